package host

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-signer/errors"
)

// ABI declares the core signature of every guest export.
const ABI = `
alloc: func(size: u32) -> u32;
dealloc: func(ptr: u32, len: u32);
dealloc_raw: func(ptr: u32);
new_private_key: func() -> u64;
get_address: func(key-ptr: u32, key-len: u32) -> u64;
sign: func(key-ptr: u32, key-len: u32, msg-ptr: u32, msg-len: u32) -> u64;
verify: func(addr-ptr: u32, addr-len: u32, msg-ptr: u32, msg-len: u32, sig-ptr: u32, sig-len: u32) -> s32;
hash_message: func(msg-ptr: u32, msg-len: u32) -> u64;
hash_message_bytes: func(msg-ptr: u32, msg-len: u32) -> u64;
format_message: func(msg-ptr: u32, msg-len: u32, chunks: u32) -> u64;
formatted_message_to_bytes: func(text-ptr: u32, text-len: u32) -> u64;
`

// Export names used by sessions.
const (
	exportAlloc                   = "alloc"
	exportDealloc                 = "dealloc"
	exportNewPrivateKey           = "new_private_key"
	exportGetAddress              = "get_address"
	exportSign                    = "sign"
	exportVerify                  = "verify"
	exportHashMessage             = "hash_message"
	exportHashMessageBytes        = "hash_message_bytes"
	exportFormatMessage           = "format_message"
	exportFormattedMessageToBytes = "formatted_message_to_bytes"
)

// Signature is the WIT view of one export.
type Signature struct {
	Params  []wit.Type
	Results []wit.Type
}

var funcPattern = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// ParseABI extracts export signatures from WIT function declarations of
// the form "name: func(a: T, ...) -> R;".
func ParseABI(text string) (map[string]*Signature, error) {
	sigs := make(map[string]*Signature)

	for _, match := range funcPattern.FindAllStringSubmatch(text, -1) {
		name := match[1]
		sig := &Signature{}

		for _, p := range strings.Split(match[2], ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			typStr := p
			if idx := strings.LastIndex(p, ":"); idx != -1 {
				typStr = strings.TrimSpace(p[idx+1:])
			}
			t, err := wit.ParseType(typStr)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse param type "+typStr)
			}
			sig.Params = append(sig.Params, t)
		}

		if res := strings.TrimSpace(match[3]); res != "" {
			t, err := wit.ParseType(res)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse result type "+res)
			}
			sig.Results = []wit.Type{t}
		}

		sigs[name] = sig
	}

	if len(sigs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no functions found in WIT text")
	}
	return sigs, nil
}

// coreType lowers a primitive WIT type to its core wasm value type.
func coreType(t wit.Type) (api.ValueType, bool) {
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return api.ValueTypeI32, true
	case wit.U64, wit.S64:
		return api.ValueTypeI64, true
	case wit.F32:
		return api.ValueTypeF32, true
	case wit.F64:
		return api.ValueTypeF64, true
	default:
		return 0, false
	}
}

// CoreTypes lowers every type in ts.
func CoreTypes(ts []wit.Type) ([]api.ValueType, error) {
	out := make([]api.ValueType, len(ts))
	for i, t := range ts {
		vt, ok := coreType(t)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseLoad, nil, fmt.Sprintf("%T", t), "not a core primitive")
		}
		out[i] = vt
	}
	return out, nil
}

// ExportedFunctions is what CheckExports inspects. wazero's api.Module
// satisfies it.
type ExportedFunctions interface {
	ExportedFunction(name string) api.Function
}

// CheckExports verifies that mod exports every function in sigs with the
// expected core signature. All missing names are reported together.
func CheckExports(mod ExportedFunctions, sigs map[string]*Signature) error {
	names := make([]string, 0, len(sigs))
	for name := range sigs {
		names = append(names, name)
	}
	slices.Sort(names)

	var missing []string
	for _, name := range names {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			missing = append(missing, name)
			continue
		}
		if err := checkSignature(name, fn.Definition(), sigs[name]); err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingExportsError(missing)
	}
	return nil
}

func checkSignature(name string, def api.FunctionDefinition, sig *Signature) error {
	params, err := CoreTypes(sig.Params)
	if err != nil {
		return err
	}
	results, err := CoreTypes(sig.Results)
	if err != nil {
		return err
	}

	if !slices.Equal(def.ParamTypes(), params) {
		return errors.New(errors.PhaseLoad, errors.KindTypeMismatch).
			Path(name, "params").
			Detail("expected %s, got %s", valueTypeNames(params), valueTypeNames(def.ParamTypes())).
			Build()
	}
	if !slices.Equal(def.ResultTypes(), results) {
		return errors.New(errors.PhaseLoad, errors.KindTypeMismatch).
			Path(name, "results").
			Detail("expected %s, got %s", valueTypeNames(results), valueTypeNames(def.ResultTypes())).
			Build()
	}
	return nil
}

func valueTypeNames(ts []api.ValueType) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = api.ValueTypeName(t)
	}
	return "(" + strings.Join(names, ", ") + ")"
}

var abiSignatures = mustParseABI()

func mustParseABI() map[string]*Signature {
	sigs, err := ParseABI(ABI)
	if err != nil {
		panic(err)
	}
	return sigs
}
