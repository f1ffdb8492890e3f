package minivm

import (
	"reflect"
	"slices"
	"strings"
	"unicode"

	"go.uber.org/zap"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
)

// Host is a Go value whose exported methods are published as the static
// methods of a class.
type Host interface {
	// ClassName returns the internal name of the class, e.g. "host/Math".
	ClassName() string
}

// ExplicitRegistrar lets a host name its methods itself instead of
// relying on the PascalCase to lowerCamelCase conversion.
type ExplicitRegistrar interface {
	Register() map[string]any
}

var (
	errorType  = reflect.TypeFor[error]()
	threadType = reflect.TypeFor[*Thread]()
	objectType = reflect.TypeFor[*Object]()
)

// RegisterHost defines a class from h. Supported parameter and result
// types are bool, int8, uint16, int16, int32, int64, int, float32,
// float64, string and *Object. A *Thread first parameter receives the
// calling thread. A trailing error result is raised as a
// RuntimeException.
func (rt *Runtime) RegisterHost(h Host) (*Class, error) {
	name := h.ClassName()
	if name == "" {
		return nil, errors.InvalidInput(errors.PhaseDefine, "class name cannot be empty")
	}

	funcs := make(map[string]reflect.Value)
	if er, ok := h.(ExplicitRegistrar); ok {
		for n, fn := range er.Register() {
			funcs[n] = reflect.ValueOf(fn)
		}
	} else {
		rv := reflect.ValueOf(h)
		typ := rv.Type()
		for i := 0; i < typ.NumMethod(); i++ {
			method := typ.Method(i)
			if !method.IsExported() || method.Name == "ClassName" {
				continue
			}
			funcs[toLowerCamel(method.Name)] = rv.Method(i)
		}
	}

	names := make([]string, 0, len(funcs))
	for n := range funcs {
		names = append(names, n)
	}
	slices.Sort(names)

	methods := make([]MethodDef, 0, len(names))
	for _, n := range names {
		md, err := hostMethod(n, funcs[n])
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDefine, errors.KindTypeMismatch, err, name+"."+n)
		}
		methods = append(methods, md)
	}

	c, err := rt.Define(ClassDef{Name: name, Methods: methods})
	if err != nil {
		return nil, err
	}
	Logger().Debug("host class registered", zap.String("class", name), zap.Int("methods", len(methods)))
	return c, nil
}

func hostMethod(name string, fn reflect.Value) (MethodDef, error) {
	if fn.Kind() != reflect.Func {
		return MethodDef{}, errors.New(errors.PhaseDefine, errors.KindTypeMismatch).
			NativeType(fn.Type().String()).
			Detail("handler must be a function").
			Build()
	}
	ft := fn.Type()
	if ft.IsVariadic() {
		return MethodDef{}, errors.Unsupported(errors.PhaseDefine, "variadic host function")
	}

	first := 0
	if ft.NumIn() > 0 && ft.In(0) == threadType {
		first = 1
	}
	var sig strings.Builder
	sig.WriteByte('(')
	for i := first; i < ft.NumIn(); i++ {
		d, ok := goDesc(ft.In(i))
		if !ok {
			return MethodDef{}, errors.Unsupported(errors.PhaseDefine, "parameter type "+ft.In(i).String())
		}
		sig.WriteString(d)
	}
	sig.WriteByte(')')

	results := ft.NumOut()
	hasErr := results > 0 && ft.Out(results-1) == errorType
	if hasErr {
		results--
	}
	switch results {
	case 0:
		sig.WriteByte('V')
	case 1:
		d, ok := goDesc(ft.Out(0))
		if !ok {
			return MethodDef{}, errors.Unsupported(errors.PhaseDefine, "result type "+ft.Out(0).String())
		}
		sig.WriteString(d)
	default:
		return MethodDef{}, errors.Unsupported(errors.PhaseDefine, "host functions return at most one value")
	}

	impl := func(t *Thread, _ *Object, args []Slot) (Slot, error) {
		in := make([]reflect.Value, 0, ft.NumIn())
		if first == 1 {
			in = append(in, reflect.ValueOf(t))
		}
		for i, a := range args {
			v, err := toGo(t, ft.In(first+i), a)
			if err != nil {
				return Slot{}, err
			}
			in = append(in, v)
		}
		out := fn.Call(in)
		if hasErr {
			if err, _ := out[len(out)-1].Interface().(error); err != nil {
				return Slot{}, err
			}
		}
		if results == 0 {
			return Slot{}, nil
		}
		return fromGo(t, out[0]), nil
	}
	return Static(name, sig.String(), impl), nil
}

func goDesc(t reflect.Type) (string, bool) {
	if t == objectType {
		return "Ljava/lang/Object;", true
	}
	switch t.Kind() {
	case reflect.Bool:
		return "Z", true
	case reflect.Int8:
		return "B", true
	case reflect.Uint16:
		return "C", true
	case reflect.Int16:
		return "S", true
	case reflect.Int32:
		return "I", true
	case reflect.Int64, reflect.Int:
		return "J", true
	case reflect.Float32:
		return "F", true
	case reflect.Float64:
		return "D", true
	case reflect.String:
		return "Ljava/lang/String;", true
	}
	return "", false
}

func toGo(t *Thread, typ reflect.Type, s Slot) (reflect.Value, error) {
	v := reflect.New(typ).Elem()
	if typ == objectType {
		v.Set(reflect.ValueOf(s.Obj))
		return v, nil
	}
	switch typ.Kind() {
	case reflect.Bool:
		v.SetBool(s.Prim.Bool())
	case reflect.Int8:
		v.SetInt(int64(s.Prim.Byte()))
	case reflect.Uint16:
		v.SetUint(uint64(s.Prim.Char()))
	case reflect.Int16:
		v.SetInt(int64(s.Prim.Short()))
	case reflect.Int32:
		v.SetInt(int64(s.Prim.Int()))
	case reflect.Int64, reflect.Int:
		v.SetInt(s.Prim.Long())
	case reflect.Float32:
		v.SetFloat(float64(s.Prim.Float()))
	case reflect.Float64:
		v.SetFloat(s.Prim.Double())
	case reflect.String:
		str, ok := stringOf(s.Obj)
		if !ok {
			return v, t.Raise(nullPointerException, "string argument is null")
		}
		v.SetString(str)
	}
	return v, nil
}

func fromGo(t *Thread, v reflect.Value) Slot {
	if v.Type() == objectType {
		o, _ := v.Interface().(*Object)
		return Obj(o)
	}
	switch v.Kind() {
	case reflect.Bool:
		return Prim(jvmbridge.EncodeBool(v.Bool()))
	case reflect.Int8:
		return Prim(jvmbridge.EncodeByte(int8(v.Int())))
	case reflect.Uint16:
		return Prim(jvmbridge.EncodeChar(uint16(v.Uint())))
	case reflect.Int16:
		return Prim(jvmbridge.EncodeShort(int16(v.Int())))
	case reflect.Int32:
		return Prim(jvmbridge.EncodeInt(int32(v.Int())))
	case reflect.Int64, reflect.Int:
		return Prim(jvmbridge.EncodeLong(v.Int()))
	case reflect.Float32:
		return Prim(jvmbridge.EncodeFloat(float32(v.Float())))
	case reflect.Float64:
		return Prim(jvmbridge.EncodeDouble(v.Float()))
	}
	return Obj(t.rt.NewString(v.String()))
}

// toLowerCamel converts PascalCase to lowerCamelCase.
// Leading acronyms are lowered whole: HTTPGet -> httpGet, ID -> id.
func toLowerCamel(s string) string {
	runes := []rune(s)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	// The last capital before a lowercase letter starts the next word.
	if n > 1 && n < len(runes) && unicode.IsLower(runes[n]) {
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
