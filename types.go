package jvmbridge

import (
	"fmt"
	"math"
)

// Ref is an opaque foreign reference. Ref 0 is the null reference.
type Ref uintptr

// MethodID identifies a resolved method or constructor for direct calls.
type MethodID uintptr

// FieldID identifies a resolved field.
type FieldID uintptr

// Kind is the closed set of foreign value kinds. KindVoid is the "value" of
// methods that return nothing.
type Kind uint8

const (
	KindBoolean Kind = iota
	KindByte
	KindChar
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindObject
	KindVoid
)

var kindNames = [...]string{
	KindBoolean: "boolean",
	KindByte:    "byte",
	KindChar:    "char",
	KindShort:   "short",
	KindInt:     "int",
	KindLong:    "long",
	KindFloat:   "float",
	KindDouble:  "double",
	KindObject:  "object",
	KindVoid:    "void",
}

var kindDescriptors = [...]byte{
	KindBoolean: 'Z',
	KindByte:    'B',
	KindChar:    'C',
	KindShort:   'S',
	KindInt:     'I',
	KindLong:    'J',
	KindFloat:   'F',
	KindDouble:  'D',
	KindObject:  'L',
	KindVoid:    'V',
}

// String returns the foreign type name of the kind ("int", "void", ...).
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Descriptor returns the single-character type descriptor of the kind.
func (k Kind) Descriptor() byte {
	if int(k) < len(kindDescriptors) {
		return kindDescriptors[k]
	}
	return 0
}

// IsPrimitive reports whether k is one of the eight primitive kinds.
func (k Kind) IsPrimitive() bool {
	return k <= KindDouble
}

// KindFromDescriptor maps a type descriptor character back to its kind.
// Array descriptors ('[') map to KindObject.
func KindFromDescriptor(c byte) (Kind, bool) {
	switch c {
	case '[':
		return KindObject, true
	}
	for k, d := range kindDescriptors {
		if d == c {
			return Kind(k), true
		}
	}
	return 0, false
}

// JValue is the untyped 64-bit argument/result slot shared by all primitive
// calls. Use the Encode helpers to build one and the accessor methods to read
// it back; the caller tracks which kind it holds.
type JValue uint64

func EncodeBool(v bool) JValue {
	if v {
		return 1
	}
	return 0
}

func EncodeByte(v int8) JValue { return JValue(uint32(int32(v))) }
func EncodeChar(v uint16) JValue { return JValue(v) }
func EncodeShort(v int16) JValue { return JValue(uint32(int32(v))) }
func EncodeInt(v int32) JValue { return JValue(uint32(v)) }
func EncodeLong(v int64) JValue { return JValue(uint64(v)) }
func EncodeFloat(v float32) JValue { return JValue(math.Float32bits(v)) }
func EncodeDouble(v float64) JValue { return JValue(math.Float64bits(v)) }
func EncodeRef(r Ref) JValue { return JValue(r) }

func (v JValue) Bool() bool { return v&1 != 0 }
func (v JValue) Byte() int8 { return int8(v) }
func (v JValue) Char() uint16 { return uint16(v) }
func (v JValue) Short() int16 { return int16(v) }
func (v JValue) Int() int32 { return int32(uint32(v)) }
func (v JValue) Long() int64 { return int64(v) }
func (v JValue) Float() float32 { return math.Float32frombits(uint32(v)) }
func (v JValue) Double() float64 { return math.Float64frombits(uint64(v)) }
func (v JValue) Ref() Ref { return Ref(v) }

// Version is the interface version requested from and reported by the
// runtime.
type Version int32

const (
	Version1_1 Version = 0x00010001
	Version1_2 Version = 0x00010002
	Version1_4 Version = 0x00010004
	Version1_6 Version = 0x00010006
)

// String renders the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", int32(v)>>16, int32(v)&0xffff)
}

// Status is the result code of invocation-interface calls.
type Status int32

const (
	StatusOK       Status = 0
	StatusErr      Status = -1
	StatusDetached Status = -2
	StatusVersion  Status = -3
	StatusNoMem    Status = -4
	StatusExists   Status = -5
	StatusInvalid  Status = -6
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusErr:
		return "error"
	case StatusDetached:
		return "detached"
	case StatusVersion:
		return "unsupported version"
	case StatusNoMem:
		return "out of memory"
	case StatusExists:
		return "already exists"
	case StatusInvalid:
		return "invalid arguments"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// ReleaseMode controls how ReleaseArrayElements treats the element buffer.
type ReleaseMode int32

const (
	// ReleaseCopyBack copies the buffer back and frees it.
	ReleaseCopyBack ReleaseMode = 0
	// ReleaseCommit copies the buffer back and keeps it.
	ReleaseCommit ReleaseMode = 1
	// ReleaseAbort frees the buffer without copying back.
	ReleaseAbort ReleaseMode = 2
)

func (m ReleaseMode) String() string {
	switch m {
	case ReleaseCopyBack:
		return "copy-back"
	case ReleaseCommit:
		return "commit"
	case ReleaseAbort:
		return "abort"
	}
	return fmt.Sprintf("mode(%d)", int32(m))
}
