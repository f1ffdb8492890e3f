package minivm

import (
	"math"
	"strconv"
	"strings"

	jvmbridge "github.com/wippyai/jvm-bridge"
)

var boxClasses = map[jvmbridge.Kind]string{
	jvmbridge.KindBoolean: "java/lang/Boolean",
	jvmbridge.KindByte:    "java/lang/Byte",
	jvmbridge.KindChar:    "java/lang/Character",
	jvmbridge.KindShort:   "java/lang/Short",
	jvmbridge.KindInt:     "java/lang/Integer",
	jvmbridge.KindLong:    "java/lang/Long",
	jvmbridge.KindFloat:   "java/lang/Float",
	jvmbridge.KindDouble:  "java/lang/Double",
}

const numberClass = "java/lang/Number"

func (rt *Runtime) defineBoxes() {
	rt.MustDefine(ClassDef{Name: numberClass, Methods: numberMethods()})

	for _, k := range []jvmbridge.Kind{
		jvmbridge.KindBoolean, jvmbridge.KindByte, jvmbridge.KindChar, jvmbridge.KindShort,
		jvmbridge.KindInt, jvmbridge.KindLong, jvmbridge.KindFloat, jvmbridge.KindDouble,
	} {
		def := ClassDef{
			Name:       boxClasses[k],
			Interfaces: []string{"java/lang/Comparable"},
			Methods:    rt.boxMethods(k),
			Fields: []FieldDef{
				{Name: "TYPE", Sig: "Ljava/lang/Class;", Static: true, Value: Obj(rt.primitives[k.Descriptor()].mirror)},
			},
		}
		if k != jvmbridge.KindBoolean && k != jvmbridge.KindChar {
			def.Super = numberClass
		}
		switch k {
		case jvmbridge.KindInt:
			def.Fields = append(def.Fields,
				FieldDef{Name: "MAX_VALUE", Sig: "I", Static: true, Value: Prim(jvmbridge.EncodeInt(math.MaxInt32))},
				FieldDef{Name: "MIN_VALUE", Sig: "I", Static: true, Value: Prim(jvmbridge.EncodeInt(math.MinInt32))})
		case jvmbridge.KindLong:
			def.Fields = append(def.Fields,
				FieldDef{Name: "MAX_VALUE", Sig: "J", Static: true, Value: Prim(jvmbridge.EncodeLong(math.MaxInt64))},
				FieldDef{Name: "MIN_VALUE", Sig: "J", Static: true, Value: Prim(jvmbridge.EncodeLong(math.MinInt64))})
		}
		rt.MustDefine(def)
	}
}

// numeric reads a numeric box as both an integer and a float.
func numeric(o *Object) (int64, float64) {
	v, _ := o.Native.(jvmbridge.JValue)
	switch o.Class.Name {
	case "java/lang/Byte":
		return int64(v.Byte()), float64(v.Byte())
	case "java/lang/Short":
		return int64(v.Short()), float64(v.Short())
	case "java/lang/Integer":
		return int64(v.Int()), float64(v.Int())
	case "java/lang/Long":
		return v.Long(), float64(v.Long())
	case "java/lang/Float":
		return int64(v.Float()), float64(v.Float())
	case "java/lang/Double":
		return int64(v.Double()), v.Double()
	}
	return 0, 0
}

func numberMethods() []MethodDef {
	conv := func(name string, k jvmbridge.Kind) MethodDef {
		return Virtual(name, "()"+string(k.Descriptor()), func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			i, f := numeric(this)
			switch k {
			case jvmbridge.KindByte:
				return Prim(jvmbridge.EncodeByte(int8(i))), nil
			case jvmbridge.KindShort:
				return Prim(jvmbridge.EncodeShort(int16(i))), nil
			case jvmbridge.KindInt:
				return Prim(jvmbridge.EncodeInt(int32(i))), nil
			case jvmbridge.KindLong:
				return Prim(jvmbridge.EncodeLong(i)), nil
			case jvmbridge.KindFloat:
				return Prim(jvmbridge.EncodeFloat(float32(f))), nil
			}
			return Prim(jvmbridge.EncodeDouble(f)), nil
		})
	}
	return []MethodDef{
		Constructor("()V", noop),
		conv("byteValue", jvmbridge.KindByte),
		conv("shortValue", jvmbridge.KindShort),
		conv("intValue", jvmbridge.KindInt),
		conv("longValue", jvmbridge.KindLong),
		conv("floatValue", jvmbridge.KindFloat),
		conv("doubleValue", jvmbridge.KindDouble),
	}
}

func (rt *Runtime) boxMethods(k jvmbridge.Kind) []MethodDef {
	desc := string(k.Descriptor())
	name := boxClasses[k]
	self := "L" + name + ";"
	raw := func(o *Object) jvmbridge.JValue {
		v, _ := o.Native.(jvmbridge.JValue)
		return v
	}

	methods := []MethodDef{
		Constructor("("+desc+")V", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			this.Native = args[0].Prim
			return Slot{}, nil
		}),
		Static("valueOf", "("+desc+")"+self, func(t *Thread, _ *Object, args []Slot) (Slot, error) {
			return Obj(t.rt.Box(k, args[0].Prim)), nil
		}),
		Virtual("toString", "()Ljava/lang/String;", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			s, err := t.display(k, Prim(raw(this)))
			if err != nil {
				return Slot{}, err
			}
			return Obj(t.rt.NewString(s)), nil
		}),
		Virtual("equals", "(Ljava/lang/Object;)Z", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			o := args[0].Obj
			return Prim(jvmbridge.EncodeBool(o != nil && o.Class == this.Class && raw(o) == raw(this))), nil
		}),
		Virtual("hashCode", "()I", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
			v := raw(this)
			switch k {
			case jvmbridge.KindBoolean:
				if v.Bool() {
					return Prim(jvmbridge.EncodeInt(1231)), nil
				}
				return Prim(jvmbridge.EncodeInt(1237)), nil
			case jvmbridge.KindLong, jvmbridge.KindDouble:
				return Prim(jvmbridge.EncodeInt(int32(uint64(v) ^ uint64(v)>>32))), nil
			}
			i, _ := numeric(this)
			if k == jvmbridge.KindChar {
				i = int64(v.Char())
			}
			if k == jvmbridge.KindFloat {
				i = int64(int32(math.Float32bits(v.Float())))
			}
			return Prim(jvmbridge.EncodeInt(int32(i))), nil
		}),
		Virtual("compareTo", "(Ljava/lang/Object;)I", func(t *Thread, this *Object, args []Slot) (Slot, error) {
			o := args[0].Obj
			if o == nil {
				return Slot{}, t.Raise(nullPointerException, "compareTo null")
			}
			if o.Class != this.Class {
				return Slot{}, t.Raisef(classCastException, "%s cannot be cast to %s", o.Class.DottedName(), this.Class.DottedName())
			}
			return Prim(jvmbridge.EncodeInt(compareBoxed(k, raw(this), raw(o)))), nil
		}),
	}

	// Number supplies the numeric accessors; the other two boxes carry
	// their own.
	switch k {
	case jvmbridge.KindBoolean:
		methods = append(methods,
			Virtual("booleanValue", "()Z", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
				return Prim(raw(this)), nil
			}),
			Static("parseBoolean", "(Ljava/lang/String;)Z", func(t *Thread, _ *Object, args []Slot) (Slot, error) {
				s, _ := stringOf(args[0].Obj)
				return Prim(jvmbridge.EncodeBool(strings.EqualFold(s, "true"))), nil
			}))
	case jvmbridge.KindChar:
		methods = append(methods,
			Virtual("charValue", "()C", func(t *Thread, this *Object, _ []Slot) (Slot, error) {
				return Prim(raw(this)), nil
			}))
	case jvmbridge.KindInt:
		methods = append(methods, parser("parseInt", "I", func(s string) (jvmbridge.JValue, error) {
			v, err := strconv.ParseInt(s, 10, 32)
			return jvmbridge.EncodeInt(int32(v)), err
		}))
	case jvmbridge.KindLong:
		methods = append(methods, parser("parseLong", "J", func(s string) (jvmbridge.JValue, error) {
			v, err := strconv.ParseInt(s, 10, 64)
			return jvmbridge.EncodeLong(v), err
		}))
	case jvmbridge.KindDouble:
		methods = append(methods, parser("parseDouble", "D", func(s string) (jvmbridge.JValue, error) {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			return jvmbridge.EncodeDouble(v), err
		}))
	}
	return methods
}

func parser(name, desc string, parse func(string) (jvmbridge.JValue, error)) MethodDef {
	return Static(name, "(Ljava/lang/String;)"+desc, func(t *Thread, _ *Object, args []Slot) (Slot, error) {
		s, ok := stringOf(args[0].Obj)
		if !ok {
			return Slot{}, t.Raise(numberFormatException, "Cannot parse null string")
		}
		v, err := parse(s)
		if err != nil {
			return Slot{}, t.Raise(numberFormatException, "For input string: \""+s+"\"")
		}
		return Prim(v), nil
	})
}

func compareBoxed(k jvmbridge.Kind, a, b jvmbridge.JValue) int32 {
	cmp := func(less, greater bool) int32 {
		switch {
		case less:
			return -1
		case greater:
			return 1
		}
		return 0
	}
	switch k {
	case jvmbridge.KindBoolean:
		return cmp(!a.Bool() && b.Bool(), a.Bool() && !b.Bool())
	case jvmbridge.KindChar:
		return int32(a.Char()) - int32(b.Char())
	case jvmbridge.KindByte:
		return int32(a.Byte()) - int32(b.Byte())
	case jvmbridge.KindShort:
		return int32(a.Short()) - int32(b.Short())
	case jvmbridge.KindInt:
		return cmp(a.Int() < b.Int(), a.Int() > b.Int())
	case jvmbridge.KindLong:
		return cmp(a.Long() < b.Long(), a.Long() > b.Long())
	case jvmbridge.KindFloat:
		return cmp(a.Float() < b.Float(), a.Float() > b.Float())
	}
	return cmp(a.Double() < b.Double(), a.Double() > b.Double())
}
