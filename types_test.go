package jvmbridge

import (
	"math"
	"testing"
)

func TestJValueRoundTrip(t *testing.T) {
	if EncodeByte(-1).Byte() != -1 || EncodeShort(math.MinInt16).Short() != math.MinInt16 {
		t.Error("narrow signed values do not survive encoding")
	}
	if EncodeChar(0xFFFF).Char() != 0xFFFF {
		t.Error("char is not zero-extended")
	}
	if EncodeInt(-5).Long() != 0xFFFFFFFB {
		t.Error("int must occupy the low 32 bits only")
	}
	if f := EncodeFloat(float32(math.NaN())).Float(); !math.IsNaN(float64(f)) {
		t.Error("NaN float lost")
	}
	if EncodeDouble(math.Copysign(0, -1)).Double() != 0 || !math.Signbit(EncodeDouble(math.Copysign(0, -1)).Double()) {
		t.Error("negative zero lost")
	}
	if !EncodeBool(true).Bool() || EncodeBool(false).Bool() {
		t.Error("bool encoding wrong")
	}
}

func TestKindDescriptors(t *testing.T) {
	for k := KindBoolean; k <= KindVoid; k++ {
		got, ok := KindFromDescriptor(k.Descriptor())
		if !ok || got != k {
			t.Errorf("KindFromDescriptor(%c) = %v, %v; want %v", k.Descriptor(), got, ok, k)
		}
	}
	if k, ok := KindFromDescriptor('['); !ok || k != KindObject {
		t.Errorf("array descriptor = %v, %v", k, ok)
	}
	if _, ok := KindFromDescriptor('Q'); ok {
		t.Error("Q accepted as a descriptor")
	}
	if KindObject.IsPrimitive() || KindVoid.IsPrimitive() || !KindDouble.IsPrimitive() {
		t.Error("IsPrimitive wrong")
	}
	if Kind(42).String() != "kind(42)" {
		t.Errorf("unknown kind = %q", Kind(42).String())
	}
}

func TestVersionString(t *testing.T) {
	if Version1_6.String() != "1.6" || Version1_1.String() != "1.1" {
		t.Errorf("versions render as %s, %s", Version1_6, Version1_1)
	}
}
