package minivm

import (
	"bytes"
	"context"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
)

// SignatureSection is the custom section that may carry WIT-style
// signatures for the exports of a wasm class, one per line:
//
//	add: func(a: s32, b: s32) -> s32;
const SignatureSection = "jvmbridge:signatures"

var (
	wasmMagic  = []byte{0x00, 'a', 's', 'm'}
	classMagic = []byte{0xCA, 0xFE, 0xBA, 0xBE}

	funcPattern = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;\n]+))?`)
)

// defineBytes loads a class from bytes. Only WebAssembly modules are
// understood: each exported function becomes a static method.
func (rt *Runtime) defineBytes(t *Thread, name string, data []byte) (*Class, error) {
	if name == "" || strings.ContainsAny(name, ".[;") {
		return nil, t.Raise(noClassDefFoundError, name)
	}
	if rt.findClass(name) != nil {
		return nil, t.Raise(linkageError, "duplicate class definition: "+name)
	}
	switch {
	case bytes.HasPrefix(data, classMagic):
		return nil, t.Raise(classFormatError, name+": class files are not supported, define a wasm module")
	case !bytes.HasPrefix(data, wasmMagic):
		return nil, t.Raise(classFormatError, name+": incompatible magic value")
	}

	ctx := context.Background()
	wr, err := rt.wasmRuntime(ctx)
	if err != nil {
		return nil, t.Raise(linkageError, err.Error())
	}
	compiled, err := wr.CompileModule(ctx, data)
	if err != nil {
		return nil, t.Raise(classFormatError, name+": "+err.Error())
	}
	mod, err := wr.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, t.Raise(linkageError, name+": "+err.Error())
	}

	sigs := exportSignatures(name, compiled)
	wc := &wasmClass{name: name, mod: mod}
	exports := compiled.ExportedFunctions()
	names := make([]string, 0, len(exports))
	for n := range exports {
		names = append(names, n)
	}
	slices.Sort(names)

	var methods []MethodDef
	for _, export := range names {
		def := exports[export]
		params, ret, ok := wasmDescriptors(def.ParamTypes(), def.ResultTypes())
		if sig, found := sigs[export]; found {
			if ok && sig.matches(params, ret) {
				params, ret = sig.params, sig.ret
				ok = true
			} else {
				Logger().Warn("signature does not match export",
					zap.String("class", name), zap.String("export", export))
			}
		}
		if !ok {
			Logger().Warn("skipping export with unsupported signature",
				zap.String("class", name), zap.String("export", export))
			continue
		}
		methods = append(methods, Static(export, "("+strings.Join(params, "")+")"+ret, wc.call(export, params, ret)))
	}

	c, err := rt.Define(ClassDef{Name: name, Methods: methods})
	if err != nil {
		if cerr := mod.Close(ctx); cerr != nil {
			Logger().Warn("close wasm module", zap.Error(cerr))
		}
		return nil, t.Raise(linkageError, err.Error())
	}
	if rt.verbose.Load() {
		Logger().Info("class defined from wasm", zap.String("class", name), zap.Int("methods", len(methods)))
	}
	return c, nil
}

// wasmRuntime returns the shared wazero runtime, creating it on first use.
func (rt *Runtime) wasmRuntime(ctx context.Context) (wazero.Runtime, error) {
	rt.wasmMu.Lock()
	defer rt.wasmMu.Unlock()
	if rt.destroyed.Load() {
		return nil, errors.Unsupported(errors.PhaseDefine, "class definition after DestroyJavaVM")
	}
	if rt.wasm == nil {
		rt.wasm = wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCustomSections(true))
	}
	return rt.wasm, nil
}

// wasmClass is the module instance behind a wasm-defined class. Calls are
// serialized: a module instance is not safe for concurrent use.
type wasmClass struct {
	mod  api.Module
	name string
	mu   sync.Mutex
}

func (wc *wasmClass) call(export string, params []string, ret string) Impl {
	return func(t *Thread, _ *Object, args []Slot) (Slot, error) {
		fn := wc.mod.ExportedFunction(export)
		if fn == nil {
			return Slot{}, t.Raise(unsatisfiedLinkError, wc.name+"."+export)
		}
		in := make([]uint64, len(args))
		for i, p := range params {
			in[i] = toWasm(p[0], args[i].Prim)
		}

		wc.mu.Lock()
		out, err := fn.Call(context.Background(), in...)
		wc.mu.Unlock()
		if err != nil {
			return Slot{}, t.Raise(runtimeException, wc.name+"."+export+": "+err.Error())
		}
		if ret == "V" || len(out) == 0 {
			return Slot{}, nil
		}
		return Prim(fromWasm(ret[0], out[0])), nil
	}
}

func toWasm(desc byte, v jvmbridge.JValue) uint64 {
	switch desc {
	case 'Z':
		if v.Bool() {
			return 1
		}
		return 0
	case 'B':
		return api.EncodeI32(int32(v.Byte()))
	case 'S':
		return api.EncodeI32(int32(v.Short()))
	case 'C':
		return api.EncodeI32(int32(v.Char()))
	case 'I':
		return api.EncodeI32(v.Int())
	case 'J':
		return api.EncodeI64(v.Long())
	case 'F':
		return api.EncodeF32(v.Float())
	}
	return api.EncodeF64(v.Double())
}

func fromWasm(desc byte, r uint64) jvmbridge.JValue {
	switch desc {
	case 'Z':
		return jvmbridge.EncodeBool(uint32(r) != 0)
	case 'B':
		return jvmbridge.EncodeByte(int8(api.DecodeI32(r)))
	case 'S':
		return jvmbridge.EncodeShort(int16(api.DecodeI32(r)))
	case 'C':
		return jvmbridge.EncodeChar(uint16(api.DecodeU32(r)))
	case 'I':
		return jvmbridge.EncodeInt(api.DecodeI32(r))
	case 'J':
		return jvmbridge.EncodeLong(int64(r))
	case 'F':
		return jvmbridge.EncodeFloat(api.DecodeF32(r))
	}
	return jvmbridge.EncodeDouble(api.DecodeF64(r))
}

// wasmDescriptors derives descriptors from core wasm value types. Only
// exports with at most one result are supported.
func wasmDescriptors(params, results []api.ValueType) ([]string, string, bool) {
	out := make([]string, len(params))
	for i, p := range params {
		d, ok := valueTypeDesc(p)
		if !ok {
			return nil, "", false
		}
		out[i] = d
	}
	switch len(results) {
	case 0:
		return out, "V", true
	case 1:
		d, ok := valueTypeDesc(results[0])
		return out, d, ok
	}
	return nil, "", false
}

func valueTypeDesc(t api.ValueType) (string, bool) {
	switch t {
	case api.ValueTypeI32:
		return "I", true
	case api.ValueTypeI64:
		return "J", true
	case api.ValueTypeF32:
		return "F", true
	case api.ValueTypeF64:
		return "D", true
	}
	return "", false
}

type exportSig struct {
	params []string
	ret    string
}

// matches reports whether sig lowers to the core wasm types of an export.
func (sig exportSig) matches(params []string, ret string) bool {
	if len(sig.params) != len(params) || coreDesc(sig.ret) != ret {
		return false
	}
	for i, p := range sig.params {
		if coreDesc(p) != params[i] {
			return false
		}
	}
	return true
}

// coreDesc returns the descriptor of the wasm value type d is passed as.
func coreDesc(d string) string {
	switch d {
	case "Z", "B", "S", "C":
		return "I"
	}
	return d
}

// exportSignatures reads the signature section of a compiled module.
// Lines that fail to parse are logged and ignored.
func exportSignatures(class string, compiled wazero.CompiledModule) map[string]exportSig {
	sigs := make(map[string]exportSig)
	for _, sec := range compiled.CustomSections() {
		if sec.Name() != SignatureSection {
			continue
		}
		for _, match := range funcPattern.FindAllStringSubmatch(string(sec.Data()), -1) {
			sig, err := parseExportSig(match[2], match[3])
			if err != nil {
				Logger().Warn("bad export signature",
					zap.String("class", class), zap.String("export", match[1]), zap.Error(err))
				continue
			}
			sigs[match[1]] = sig
		}
	}
	return sigs
}

func parseExportSig(paramsStr, resultStr string) (exportSig, error) {
	sig := exportSig{ret: "V"}
	for _, p := range splitParams(paramsStr) {
		typStr := p
		if idx := strings.LastIndex(p, ":"); idx != -1 {
			typStr = p[idx+1:]
		}
		d, err := witDesc(typStr)
		if err != nil {
			return exportSig{}, err
		}
		sig.params = append(sig.params, d)
	}
	resultStr = strings.TrimSpace(resultStr)
	if resultStr != "" && resultStr != "()" {
		d, err := witDesc(resultStr)
		if err != nil {
			return exportSig{}, err
		}
		sig.ret = d
	}
	return sig, nil
}

// witDesc maps a scalar WIT type to the descriptor of the same width.
func witDesc(s string) (string, error) {
	t, err := wit.ParseType(strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	switch t.(type) {
	case wit.Bool:
		return "Z", nil
	case wit.S8, wit.U8:
		return "B", nil
	case wit.S16:
		return "S", nil
	case wit.U16:
		return "C", nil
	case wit.S32, wit.U32, wit.Char:
		return "I", nil
	case wit.S64, wit.U64:
		return "J", nil
	case wit.F32:
		return "F", nil
	case wit.F64:
		return "D", nil
	}
	return "", errors.Unsupported(errors.PhaseDefine, "wit type "+strings.TrimSpace(s))
}

// splitParams splits a parameter list on top-level commas.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0
	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
				continue
			}
		}
		current.WriteRune(ch)
	}
	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}
	return result
}
