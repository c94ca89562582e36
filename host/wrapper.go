// Package host runs the signer guest and exposes its entry points as a Go
// API.
//
// A Wrapper owns a compiled guest and creates Sessions; each Session owns
// one guest instance. Guest results come back as packed length+pointer
// handles, are copied out of guest memory and released with dealloc.
// Private key bytes written into guest memory are wiped before they are
// released.
package host

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-signer/arena"
	"github.com/wippyai/wasm-signer/errors"
	"github.com/wippyai/wasm-signer/guest"
	"github.com/wippyai/wasm-signer/hostlog"
)

// ErrNoRuntime is returned by NewSession after the wrapper was closed.
var ErrNoRuntime = stderrors.New("no runtime, create new wrapper")

// Wrapper creates sessions. It is safe for concurrent use.
type Wrapper interface {
	NewSession() (Session, error)
	Close()
}

// wasmWrapper instantiates a compiled guest per session.
type wasmWrapper struct {
	runtime      wazero.Runtime
	cmod         wazero.CompiledModule
	moduleConfig wazero.ModuleConfig
	log          *zap.Logger
	mu           sync.Mutex
	active       bool
}

// NewWrapper compiles wasmBytes and prepares a runtime with WASI and the
// env.host_log_string import. The returned function closes the runtime;
// the wrapper cannot be used afterwards.
func NewWrapper(ctx context.Context, wasmBytes []byte, cfg *Config) (wrapper Wrapper, closeFn func(), err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError("new wrapper", r)
			wrapper = nil
			closeFn = func() {}
		}
	}()

	cfg = cfg.withDefaults()

	runtimeCfg := wazero.NewRuntimeConfig().WithMemoryLimitPages(cfg.MemoryLimitPages)
	if cfg.CompilationCacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(cfg.CompilationCacheDir)
		if err != nil {
			return nil, nil, errors.Load("create compilation cache", err)
		}
		runtimeCfg = runtimeCfg.WithCompilationCache(cache)
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	defer func() {
		if err != nil {
			_ = runtime.Close(ctx)
		}
	}()

	if _, err = wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, nil, errors.Registration(errors.PhaseHost, wasi_snapshot_preview1.ModuleName, "*", err)
	}

	_, err = runtime.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(guestLog{log: cfg.Logger}.hostLogString).
		Export("host_log_string").
		Instantiate(ctx)
	if err != nil {
		return nil, nil, errors.Registration(errors.PhaseHost, "env", "host_log_string", err)
	}

	cmod, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, nil, errors.Load("compile guest module", err)
	}
	cfg.Logger.Debug("compiled guest module", zap.Int("size", len(wasmBytes)))

	w := &wasmWrapper{
		runtime: runtime,
		cmod:    cmod,
		moduleConfig: wazero.NewModuleConfig().
			WithName("").
			WithStartFunctions("_initialize").
			WithRandSource(cfg.RandSource),
		log:    cfg.Logger,
		active: true,
	}
	return w, w.Close, nil
}

// guestLog forwards guest diagnostics to the host logger.
type guestLog struct {
	log *zap.Logger
}

// hostLogString is the env.host_log_string import.
func (g guestLog) hostLogString(_ context.Context, mod api.Module, ptr, size uint32) {
	buf, ok := mod.Memory().Read(ptr, size)
	if !ok {
		g.log.Warn("guest log out of bounds", zap.Uint32("ptr", ptr), zap.Uint32("size", size))
		return
	}
	g.entry(string(buf))
}

func (g guestLog) entry(s string) {
	g.log.Info("guest log", zap.String("entry", s))
}

// NewSession instantiates a fresh guest and checks its exports.
func (w *wasmWrapper) NewSession() (Session, error) {
	w.mu.Lock()
	active := w.active
	w.mu.Unlock()
	if !active {
		return nil, ErrNoRuntime
	}

	ctx := context.Background()
	mod, err := w.runtime.InstantiateModule(ctx, w.cmod, w.moduleConfig)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	g, err := newWazeroGuest(mod)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}
	return newSession(ctx, g, w.log), nil
}

// Close closes the runtime and every session created from it.
func (w *wasmWrapper) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.active {
		return
	}
	w.active = false
	_ = w.runtime.Close(context.Background())
}

// localWrapper runs guests in process.
type localWrapper struct {
	cfg    *Config
	heap   *arena.Config
	mu     sync.Mutex
	active bool
}

// NewLocalWrapper returns a wrapper whose sessions run the guest in
// process over an arena of heapCfg (nil for defaults). Guest diagnostics
// take the same encoded path they take from a wasm guest.
func NewLocalWrapper(cfg *Config, heapCfg *arena.Config) (Wrapper, func(), error) {
	if _, err := arena.New(heapCfg); err != nil {
		return nil, nil, err
	}
	w := &localWrapper{cfg: cfg.withDefaults(), heap: heapCfg, active: true}
	return w, w.Close, nil
}

func (w *localWrapper) NewSession() (Session, error) {
	w.mu.Lock()
	active := w.active
	w.mu.Unlock()
	if !active {
		return nil, ErrNoRuntime
	}

	sink := hostlog.SinkFunc(guestLog{log: w.cfg.Logger}.entry)
	g, err := newLocalGuest(w.heap,
		guest.WithLogger(hostlog.NewWithSink(sink, zap.InfoLevel)),
		guest.WithRandSource(w.cfg.RandSource),
	)
	if err != nil {
		return nil, err
	}
	return newSession(context.Background(), g, w.cfg.Logger), nil
}

func (w *localWrapper) Close() {
	w.mu.Lock()
	w.active = false
	w.mu.Unlock()
}
