// Package guest implements the module's exported entry points on top of
// the memory protocol.
//
// Every method takes and returns raw boundary values: addresses, lengths
// and packed handles. Computation methods read their inputs from memory,
// delegate to keys and msgfmt, and return the result through the
// length+pointer encoding. Any failure, including a panic, is logged once
// and reported as 0. No region is left allocated on failure.
package guest

import (
	"crypto/rand"
	"fmt"
	"io"
	"unicode/utf8"

	"go.uber.org/zap"

	wasmsigner "github.com/wippyai/wasm-signer"
	"github.com/wippyai/wasm-signer/errors"
	"github.com/wippyai/wasm-signer/keys"
	"github.com/wippyai/wasm-signer/msgfmt"
	"github.com/wippyai/wasm-signer/region"
	"github.com/wippyai/wasm-signer/transfer"
)

// Verify results.
const (
	VerifyOK      int32 = 1
	VerifyInvalid int32 = 0
	VerifyError   int32 = -1
)

// Module is one guest instance. It is not safe for concurrent use.
type Module struct {
	mem   wasmsigner.Memory
	heap  wasmsigner.Heap
	alloc *region.Allocator
	xfer  *transfer.Protocol
	rand  io.Reader
	log   *zap.Logger
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Module) { m.log = l }
}

// WithRandSource sets the entropy source for key generation.
func WithRandSource(r io.Reader) Option {
	return func(m *Module) { m.rand = r }
}

// New creates a module over mem whose regions come from heap.
func New(mem wasmsigner.Memory, heap wasmsigner.Heap, opts ...Option) *Module {
	m := &Module{
		mem:  mem,
		heap: heap,
		rand: rand.Reader,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = Logger()
	}
	m.alloc = region.New(mem, heap)
	m.xfer = transfer.New(m.alloc, m.log)
	return m
}

// Memory returns the module's linear memory.
func (m *Module) Memory() wasmsigner.Memory { return m.mem }

// Allocator returns the region allocator.
func (m *Module) Allocator() *region.Allocator { return m.alloc }

// Alloc reserves a region of size bytes and returns its data address, or 0.
func (m *Module) Alloc(size uint32) uint32 {
	ptr, err := m.alloc.Allocate(size)
	if err != nil {
		m.log.Warn("alloc failed", zap.Uint32("size", size), zap.Error(err))
		return 0
	}
	return ptr
}

// Dealloc releases a region returned by Alloc or by a packed result.
func (m *Module) Dealloc(ptr, length uint32) {
	m.alloc.Deallocate(ptr, length)
}

// DeallocRaw releases a buffer returned as a bare pointer.
func (m *Module) DeallocRaw(ptr uint32) {
	if ptr == 0 {
		return
	}
	if err := m.heap.Disown(ptr); err != nil {
		m.log.Error("dealloc_raw failed", zap.Uint32("ptr", ptr), zap.Error(err))
	}
}

// NewPrivateKey generates a key and returns its text form.
func (m *Module) NewPrivateKey() uint64 {
	return m.packed("new_private_key", func() ([]byte, error) {
		k, err := keys.GeneratePrivateKey(m.rand)
		if err != nil {
			return nil, err
		}
		defer k.Zero()
		return []byte(k.String()), nil
	})
}

// GetAddress derives the address of the private key text at keyPtr.
func (m *Module) GetAddress(keyPtr, keyLen uint32) uint64 {
	return m.packed("get_address", func() ([]byte, error) {
		k, err := m.readKey(keyPtr, keyLen)
		if err != nil {
			return nil, err
		}
		defer k.Zero()
		return []byte(k.Address().String()), nil
	})
}

// Sign signs the message at msgPtr and returns the signature text.
func (m *Module) Sign(keyPtr, keyLen, msgPtr, msgLen uint32) uint64 {
	return m.packed("sign", func() ([]byte, error) {
		k, err := m.readKey(keyPtr, keyLen)
		if err != nil {
			return nil, err
		}
		defer k.Zero()

		msg, err := m.read("message", msgPtr, msgLen)
		if err != nil {
			return nil, err
		}
		return []byte(k.Sign(msg).String()), nil
	})
}

// Verify checks a signature text against an address text and message.
func (m *Module) Verify(addrPtr, addrLen, msgPtr, msgLen, sigPtr, sigLen uint32) (result int32) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("verify panicked", zap.Any("panic", r))
			result = VerifyError
		}
	}()

	ok, err := m.verify(addrPtr, addrLen, msgPtr, msgLen, sigPtr, sigLen)
	if err != nil {
		m.log.Error("verify failed", zap.Error(err))
		return VerifyError
	}
	if !ok {
		return VerifyInvalid
	}
	return VerifyOK
}

func (m *Module) verify(addrPtr, addrLen, msgPtr, msgLen, sigPtr, sigLen uint32) (bool, error) {
	addrText, err := m.readString("address", addrPtr, addrLen)
	if err != nil {
		return false, err
	}
	addr, err := keys.ParseAddress(addrText)
	if err != nil {
		return false, err
	}
	sigText, err := m.readString("signature", sigPtr, sigLen)
	if err != nil {
		return false, err
	}
	sig, err := keys.ParseSignature(sigText)
	if err != nil {
		return false, err
	}
	msg, err := m.read("message", msgPtr, msgLen)
	if err != nil {
		return false, err
	}
	return keys.Verify(addr, msg, sig), nil
}

// HashMessage returns the message digest as a decimal u128 literal.
func (m *Module) HashMessage(msgPtr, msgLen uint32) uint64 {
	return m.packed("hash_message", func() ([]byte, error) {
		msg, err := m.read("message", msgPtr, msgLen)
		if err != nil {
			return nil, err
		}
		return []byte(msgfmt.FormatU128(keys.HashMessage(msg))), nil
	})
}

// HashMessageBytes returns the message digest as 16 little-endian bytes.
func (m *Module) HashMessageBytes(msgPtr, msgLen uint32) uint64 {
	return m.packed("hash_message_bytes", func() ([]byte, error) {
		msg, err := m.read("message", msgPtr, msgLen)
		if err != nil {
			return nil, err
		}
		h := keys.HashMessage(msg)
		return h[:], nil
	})
}

// FormatMessage renders the message as chunks structs of u128 fields.
func (m *Module) FormatMessage(msgPtr, msgLen, chunks uint32) uint64 {
	return m.packed("format_message", func() ([]byte, error) {
		msg, err := m.read("message", msgPtr, msgLen)
		if err != nil {
			return nil, err
		}
		text, err := msgfmt.Format(msg, int(chunks))
		if err != nil {
			return nil, err
		}
		return []byte(text), nil
	})
}

// FormattedMessageToBytes recovers the message from formatted text.
func (m *Module) FormattedMessageToBytes(textPtr, textLen uint32) uint64 {
	return m.packed("formatted_message_to_bytes", func() ([]byte, error) {
		text, err := m.readString("formatted message", textPtr, textLen)
		if err != nil {
			return nil, err
		}
		return msgfmt.Recover(text)
	})
}

// packed runs fn and transfers its result. The result region is allocated
// only after fn succeeds.
func (m *Module) packed(export string, fn func() ([]byte, error)) (h uint64) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error(export+" panicked", zap.String("panic", fmt.Sprint(r)))
			h = uint64(transfer.Failed)
		}
	}()

	out, err := fn()
	if err != nil {
		m.log.Error(export+" failed", zap.Error(err))
		return uint64(transfer.Failed)
	}
	return uint64(m.xfer.ReturnAsLengthPointerPair(out))
}

// read copies length bytes at ptr out of linear memory.
func (m *Module) read(what string, ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if ptr == 0 {
		return nil, errors.New(errors.PhaseCompute, errors.KindInvalidInput).
			Path(what).
			Detail("null pointer with length %d", length).
			Build()
	}
	data, err := m.mem.Read(ptr, length)
	if err != nil {
		return nil, errors.New(errors.PhaseCompute, errors.KindOutOfBounds).
			Path(what).
			Cause(err).
			Build()
	}
	return append([]byte(nil), data...), nil
}

func (m *Module) readString(what string, ptr, length uint32) (string, error) {
	data, err := m.read(what, ptr, length)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.InvalidUTF8(errors.PhaseCompute, []string{what}, data)
	}
	return string(data), nil
}

func (m *Module) readKey(ptr, length uint32) (keys.PrivateKey, error) {
	data, err := m.read("private key", ptr, length)
	if err != nil {
		return keys.PrivateKey{}, err
	}
	defer clear(data)

	if !utf8.Valid(data) {
		return keys.PrivateKey{}, errors.New(errors.PhaseCompute, errors.KindInvalidUTF8).
			Path("private key").
			Detail("private key text is not valid UTF-8").
			Build()
	}
	return keys.ParsePrivateKey(string(data))
}
