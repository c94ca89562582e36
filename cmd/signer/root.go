package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-signer/host"
)

// options are the global flags.
type options struct {
	wasmFile  string
	cacheDir  string
	memPages  uint32
	verbose   bool
	jsonOut   bool
	heapBytes uint32
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "signer",
		Short: "Sign and verify messages through the signer guest module",
		Long: `signer drives the signer guest module: it generates private keys,
derives addresses, signs and verifies messages, hashes them and converts
them to and from the u128 struct format.

Without --wasm the guest runs in process. With --wasm it is loaded from a
wasip1 build of cmd/signer-guest and executed by wazero.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.wasmFile, "wasm", "", "Path to the guest wasm module")
	cmd.PersistentFlags().StringVar(&opts.cacheDir, "cache-dir", "", "Directory for the wazero compilation cache")
	cmd.PersistentFlags().Uint32Var(&opts.memPages, "memory-pages", 0, "Guest memory limit in 64KiB pages (0 for default)")
	cmd.PersistentFlags().Uint32Var(&opts.heapBytes, "heap", 0, "In-process guest heap size in bytes (0 for default)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Output in JSON format")

	cmd.AddCommand(
		newKeygenCmd(opts),
		newAddressCmd(opts),
		newSignCmd(opts),
		newVerifyCmd(opts),
		newHashCmd(opts),
		newFormatCmd(opts),
		newRecoverCmd(opts),
		newInteractiveCmd(opts),
	)
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// openSession creates a wrapper and one session. The returned function
// releases both.
func openSession(ctx context.Context, opts *options) (host.Session, func(), error) {
	log, err := newLogger(opts.verbose)
	if err != nil {
		return nil, nil, err
	}
	host.SetLogger(log)

	cfg := &host.Config{
		Logger:              log,
		CompilationCacheDir: opts.cacheDir,
		MemoryLimitPages:    opts.memPages,
	}

	var (
		w       host.Wrapper
		closeFn func()
	)
	if opts.wasmFile != "" {
		data, err := os.ReadFile(opts.wasmFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read wasm: %w", err)
		}
		w, closeFn, err = host.NewWrapper(ctx, data, cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Debug("loaded guest", zap.String("file", opts.wasmFile))
	} else {
		w, closeFn, err = host.NewLocalWrapper(cfg, heapConfig(opts))
		if err != nil {
			return nil, nil, err
		}
	}

	s, err := w.NewSession()
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return s, func() {
		s.Close()
		closeFn()
		_ = log.Sync()
	}, nil
}

// printJSON outputs data as JSON
func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// readArg returns arg, or standard input when arg is "-".
func readArg(cmd *cobra.Command, arg string) ([]byte, error) {
	if arg != "-" {
		return []byte(arg), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return data, nil
}
