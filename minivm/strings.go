package minivm

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	jvmbridge "github.com/wippyai/jvm-bridge"
)

const stringBuilderClass = "java/lang/StringBuilder"

func (rt *Runtime) defineStrings() {
	rt.MustDefine(ClassDef{
		Name:       stringClass,
		Interfaces: []string{"java/lang/CharSequence", "java/lang/Comparable"},
		Methods:    stringMethods(),
	})
	rt.MustDefine(ClassDef{
		Name:       stringBuilderClass,
		Interfaces: []string{"java/lang/CharSequence"},
		Methods:    builderMethods(),
	})
}

func stringMethods() []MethodDef {
	text := func(o *Object) string {
		s, _ := o.Native.(string)
		return s
	}
	newString := func(t *Thread, s string) (Slot, error) {
		return Obj(t.rt.NewString(s)), nil
	}
	transform := func(name string, fn func(string) string) MethodDef {
		return Virtual(name, "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return newString(t, fn(text(this)))
		})
	}
	compare := func(t *Thread, this *Object, args []Slot) (Slot, error) {
		other, ok := stringOf(args[0].Obj)
		if !ok {
			if args[0].Obj == nil {
				return Slot{}, t.Raise(nullPointerException, "compareTo null")
			}
			return Slot{}, t.Raisef(classCastException, "%s cannot be cast to java.lang.String", args[0].Obj.Class.DottedName())
		}
		return Prim(jvmbridge.EncodeInt(compareUTF16(text(this), other))), nil
	}
	valueOf := func(desc string) MethodDef {
		return Static("valueOf", "("+desc+")Ljava/lang/String;", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			s, err := t.display(descKind(desc), args[0])
			if err != nil {
				return Slot{}, err
			}
			return newString(t, s)
		})
	}

	return []MethodDef{
		Constructor("()V", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			this.Native = ""
			return Slot{}, nil
		}),
		Constructor("(Ljava/lang/String;)V", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			s, ok := stringOf(args[0].Obj)
			if !ok {
				return Slot{}, t.Raise(nullPointerException, "original is null")
			}
			this.Native = s
			return Slot{}, nil
		}),
		Virtual("length", "()I", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeInt(int32(len(utf16.Encode([]rune(text(this))))))), nil
		}),
		Virtual("isEmpty", "()Z", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeBool(text(this) == "")), nil
		}),
		Virtual("charAt", "(I)C", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			units := utf16.Encode([]rune(text(this)))
			i := args[0].Prim.Int()
			if i < 0 || int(i) >= len(units) {
				return Slot{}, t.Raisef(stringIndexOutOfBoundsException, "index %d, length %d", i, len(units))
			}
			return Prim(jvmbridge.EncodeChar(units[i])), nil
		}),
		Virtual("equals", "(Ljava/lang/Object;)Z", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			other, ok := stringOf(args[0].Obj)
			return Prim(jvmbridge.EncodeBool(ok && other == text(this))), nil
		}),
		Virtual("hashCode", "()I", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeInt(javaHash(text(this)))), nil
		}),
		Virtual("toString", "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(this), nil
		}),
		Virtual("compareTo", "(Ljava/lang/String;)I", compare),
		Virtual("compareTo", "(Ljava/lang/Object;)I", compare),
		Virtual("concat", "(Ljava/lang/String;)Ljava/lang/String;", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			other, ok := stringOf(args[0].Obj)
			if !ok {
				return Slot{}, t.Raise(nullPointerException, "concat null")
			}
			return newString(t, text(this)+other)
		}),
		Virtual("startsWith", "(Ljava/lang/String;)Z", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			prefix, ok := stringOf(args[0].Obj)
			if !ok {
				return Slot{}, t.Raise(nullPointerException, "prefix is null")
			}
			return Prim(jvmbridge.EncodeBool(strings.HasPrefix(text(this), prefix))), nil
		}),
		Virtual("indexOf", "(Ljava/lang/String;)I", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			sub, ok := stringOf(args[0].Obj)
			if !ok {
				return Slot{}, t.Raise(nullPointerException, "str is null")
			}
			i := strings.Index(text(this), sub)
			if i > 0 {
				i = len(utf16.Encode([]rune(text(this)[:i])))
			}
			return Prim(jvmbridge.EncodeInt(int32(i))), nil
		}),
		Virtual("substring", "(II)Ljava/lang/String;", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			units := utf16.Encode([]rune(text(this)))
			begin, end := args[0].Prim.Int(), args[1].Prim.Int()
			if begin < 0 || end > int32(len(units)) || begin > end {
				return Slot{}, t.Raisef(stringIndexOutOfBoundsException, "begin %d, end %d, length %d", begin, end, len(units))
			}
			return newString(t, string(utf16.Decode(units[begin:end])))
		}),
		transform("toUpperCase", strings.ToUpper),
		transform("toLowerCase", strings.ToLower),
		transform("trim", func(s string) string {
			return strings.TrimFunc(s, func(r rune) bool { return r <= ' ' })
		}),
		valueOf("Ljava/lang/Object;"),
		valueOf("I"),
		valueOf("J"),
		valueOf("D"),
		valueOf("F"),
		valueOf("Z"),
		valueOf("C"),
	}
}

func builderMethods() []MethodDef {
	text := func(o *Object) string {
		o.mu.Lock()
		defer o.mu.Unlock()
		s, _ := o.Native.(string)
		return s
	}
	set := func(o *Object, s string) {
		o.mu.Lock()
		o.Native = s
		o.mu.Unlock()
	}
	appendOf := func(desc string) MethodDef {
		return Virtual("append", "("+desc+")Ljava/lang/StringBuilder;", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			s, err := t.display(descKind(desc), args[0])
			if err != nil {
				return Slot{}, err
			}
			set(this, text(this)+s)
			return Obj(this), nil
		})
	}

	return []MethodDef{
		Constructor("()V", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			set(this, "")
			return Slot{}, nil
		}),
		Constructor("(Ljava/lang/String;)V", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			s, ok := stringOf(args[0].Obj)
			if !ok {
				return Slot{}, t.Raise(nullPointerException, "str is null")
			}
			set(this, s)
			return Slot{}, nil
		}),
		Constructor("(I)V", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			if args[0].Prim.Int() < 0 {
				return Slot{}, t.Raise(negativeArraySizeException, strconv.Itoa(int(args[0].Prim.Int())))
			}
			set(this, "")
			return Slot{}, nil
		}),
		appendOf("Ljava/lang/String;"),
		appendOf("I"),
		appendOf("J"),
		appendOf("C"),
		appendOf("Z"),
		appendOf("D"),
		appendOf("F"),
		appendOf("Ljava/lang/Object;"),
		Virtual("length", "()I", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Prim(jvmbridge.EncodeInt(int32(len(utf16.Encode([]rune(text(this))))))), nil
		}),
		Virtual("charAt", "(I)C", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			units := utf16.Encode([]rune(text(this)))
			i := args[0].Prim.Int()
			if i < 0 || int(i) >= len(units) {
				return Slot{}, t.Raisef(stringIndexOutOfBoundsException, "index %d, length %d", i, len(units))
			}
			return Prim(jvmbridge.EncodeChar(units[i])), nil
		}),
		Virtual("reverse", "()Ljava/lang/StringBuilder;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			r := []rune(text(this))
			for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
				r[i], r[j] = r[j], r[i]
			}
			set(this, string(r))
			return Obj(this), nil
		}),
		Virtual("toString", "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			return Obj(t.rt.NewString(text(this))), nil
		}),
	}
}

// display renders a value the way string concatenation does. Objects go
// through toString; null prints as "null".
func (t *Thread) display(k jvmbridge.Kind, s Slot) (string, error) {
	switch k {
	case jvmbridge.KindObject:
		if s.Obj == nil {
			return "null", nil
		}
		if text, ok := stringOf(s.Obj); ok {
			return text, nil
		}
		res, err := t.Invoke(s.Obj, "toString", "()Ljava/lang/String;")
		if err != nil {
			return "", err
		}
		if res.Obj == nil {
			return "null", nil
		}
		text, _ := stringOf(res.Obj)
		return text, nil
	case jvmbridge.KindBoolean:
		return strconv.FormatBool(s.Prim.Bool()), nil
	case jvmbridge.KindChar:
		return string(utf16.Decode([]uint16{s.Prim.Char()})), nil
	case jvmbridge.KindFloat:
		return formatFloat(float64(s.Prim.Float()), 32), nil
	case jvmbridge.KindDouble:
		return formatFloat(s.Prim.Double(), 64), nil
	case jvmbridge.KindByte:
		return strconv.Itoa(int(s.Prim.Byte())), nil
	case jvmbridge.KindShort:
		return strconv.Itoa(int(s.Prim.Short())), nil
	case jvmbridge.KindInt:
		return strconv.Itoa(int(s.Prim.Int())), nil
	case jvmbridge.KindLong:
		return strconv.FormatInt(s.Prim.Long(), 10), nil
	}
	return "", nil
}

// formatFloat follows Double.toString: plain notation with at least one
// fractional digit in [1e-3, 1e7), computerized scientific notation
// outside it.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	if abs := math.Abs(f); abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(f, 'f', -1, bits)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	s := strconv.FormatFloat(f, 'E', -1, bits)
	mant, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mant + "E" + strconv.Itoa(e)
}

// javaHash is String.hashCode over UTF-16 code units.
func javaHash(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}

// compareUTF16 is String.compareTo.
func compareUTF16(a, b string) int32 {
	ua, ub := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	for i := range min(len(ua), len(ub)) {
		if ua[i] != ub[i] {
			return int32(ua[i]) - int32(ub[i])
		}
	}
	return int32(len(ua) - len(ub))
}
