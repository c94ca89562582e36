package host

import (
	"crypto/rand"
	"io"

	"go.uber.org/zap"
)

// Config holds configuration for wrapper creation
type Config struct {
	// RandSource feeds the guest's WASI random_get and key generation.
	// nil means crypto/rand.
	RandSource io.Reader

	// Logger receives guest diagnostics. nil means the package logger.
	Logger *zap.Logger

	// CompilationCacheDir enables wazero's on-disk compilation cache.
	// Empty means no cache.
	CompilationCacheDir string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32
}

// DefaultConfig returns the configuration used when nil is passed.
func DefaultConfig() *Config {
	return &Config{
		RandSource:       rand.Reader,
		MemoryLimitPages: 1024,
	}
}

func (c *Config) withDefaults() *Config {
	out := DefaultConfig()
	if c == nil {
		out.Logger = Logger()
		return out
	}
	if c.RandSource != nil {
		out.RandSource = c.RandSource
	}
	if c.MemoryLimitPages != 0 {
		out.MemoryLimitPages = c.MemoryLimitPages
	}
	out.CompilationCacheDir = c.CompilationCacheDir
	out.Logger = c.Logger
	if out.Logger == nil {
		out.Logger = Logger()
	}
	return out
}
