//go:build !wasip1

package hostlog

import "os"

func defaultSink() Sink { return WriterSink{W: os.Stderr} }
