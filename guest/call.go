package guest

import (
	"github.com/wippyai/wasm-signer/errors"
)

type export struct {
	params int
	call   func(m *Module, p []uint64) []uint64
}

func u32(v uint64) uint32 { return uint32(v) }

var exports = map[string]export{
	"alloc": {1, func(m *Module, p []uint64) []uint64 {
		return []uint64{uint64(m.Alloc(u32(p[0])))}
	}},
	"dealloc": {2, func(m *Module, p []uint64) []uint64 {
		m.Dealloc(u32(p[0]), u32(p[1]))
		return nil
	}},
	"dealloc_raw": {1, func(m *Module, p []uint64) []uint64 {
		m.DeallocRaw(u32(p[0]))
		return nil
	}},
	"new_private_key": {0, func(m *Module, _ []uint64) []uint64 {
		return []uint64{m.NewPrivateKey()}
	}},
	"get_address": {2, func(m *Module, p []uint64) []uint64 {
		return []uint64{m.GetAddress(u32(p[0]), u32(p[1]))}
	}},
	"sign": {4, func(m *Module, p []uint64) []uint64 {
		return []uint64{m.Sign(u32(p[0]), u32(p[1]), u32(p[2]), u32(p[3]))}
	}},
	"verify": {6, func(m *Module, p []uint64) []uint64 {
		return []uint64{uint64(uint32(m.Verify(u32(p[0]), u32(p[1]), u32(p[2]), u32(p[3]), u32(p[4]), u32(p[5]))))}
	}},
	"hash_message": {2, func(m *Module, p []uint64) []uint64 {
		return []uint64{m.HashMessage(u32(p[0]), u32(p[1]))}
	}},
	"hash_message_bytes": {2, func(m *Module, p []uint64) []uint64 {
		return []uint64{m.HashMessageBytes(u32(p[0]), u32(p[1]))}
	}},
	"format_message": {3, func(m *Module, p []uint64) []uint64 {
		return []uint64{m.FormatMessage(u32(p[0]), u32(p[1]), u32(p[2]))}
	}},
	"formatted_message_to_bytes": {2, func(m *Module, p []uint64) []uint64 {
		return []uint64{m.FormattedMessageToBytes(u32(p[0]), u32(p[1]))}
	}},
}

// ExportNames lists the entry points Call dispatches.
func ExportNames() []string {
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	return names
}

// Call invokes an entry point by its export name with raw core-wasm
// parameters, the way a wasm runtime would. i32 results are returned
// zero-extended.
func (m *Module) Call(name string, params ...uint64) ([]uint64, error) {
	e, ok := exports[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}
	if len(params) != e.params {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Path(name).
			Value(len(params)).
			Detail("expected %d params, got %d", e.params, len(params)).
			Build()
	}
	return e.call(m, params), nil
}
