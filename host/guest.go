package host

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	wasmsigner "github.com/wippyai/wasm-signer"
	"github.com/wippyai/wasm-signer/arena"
	"github.com/wippyai/wasm-signer/errors"
	"github.com/wippyai/wasm-signer/guest"
)

// Guest is one instantiated guest module as seen by a session.
type Guest interface {
	Memory() wasmsigner.Memory
	Call(ctx context.Context, name string, params ...uint64) ([]uint64, error)
	Close(ctx context.Context) error
	IsClosed() bool
}

// wazeroGuest runs the guest in a wazero module instance.
type wazeroGuest struct {
	mod api.Module
	mem wasmsigner.Memory
	fns map[string]api.Function
}

func newWazeroGuest(mod api.Module) (*wazeroGuest, error) {
	if err := CheckExports(mod, abiSignatures); err != nil {
		return nil, err
	}
	if mod.Memory() == nil {
		return nil, errors.NotFound(errors.PhaseLoad, "memory", "memory")
	}

	fns := make(map[string]api.Function, len(abiSignatures))
	for name := range abiSignatures {
		fns[name] = mod.ExportedFunction(name)
	}
	return &wazeroGuest{
		mod: mod,
		mem: WrapMemory(mod.Memory()),
		fns: fns,
	}, nil
}

func (g *wazeroGuest) Memory() wasmsigner.Memory { return g.mem }

func (g *wazeroGuest) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn, ok := g.fns[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}
	res, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.New(errors.PhaseRuntime, errors.KindGuestFailure).
			Path(name).
			Cause(err).
			Detail("call trapped").
			Build()
	}
	return res, nil
}

func (g *wazeroGuest) Close(ctx context.Context) error { return g.mod.Close(ctx) }

func (g *wazeroGuest) IsClosed() bool { return g.mod.IsClosed() }

// localGuest runs the guest in process over an arena.
type localGuest struct {
	mod    *guest.Module
	heap   *arena.Arena
	closed bool
}

func newLocalGuest(heapCfg *arena.Config, opts ...guest.Option) (*localGuest, error) {
	a, err := arena.New(heapCfg)
	if err != nil {
		return nil, err
	}
	return &localGuest{mod: guest.New(a, a, opts...), heap: a}, nil
}

func (g *localGuest) Memory() wasmsigner.Memory { return g.heap }

func (g *localGuest) Call(_ context.Context, name string, params ...uint64) ([]uint64, error) {
	if g.closed {
		return nil, ErrNoModule
	}
	return g.mod.Call(name, params...)
}

func (g *localGuest) Close(context.Context) error {
	g.closed = true
	return nil
}

func (g *localGuest) IsClosed() bool { return g.closed }
