package class

import (
	"strings"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/errors"
)

var primitiveKinds = map[string]jvmbridge.Kind{
	"boolean": jvmbridge.KindBoolean,
	"byte":    jvmbridge.KindByte,
	"char":    jvmbridge.KindChar,
	"short":   jvmbridge.KindShort,
	"int":     jvmbridge.KindInt,
	"long":    jvmbridge.KindLong,
	"float":   jvmbridge.KindFloat,
	"double":  jvmbridge.KindDouble,
	"void":    jvmbridge.KindVoid,
}

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

// KindOf maps a type name as returned by Class.getName to the kind used to
// pass or return it. Every non-primitive name is KindObject.
func KindOf(typeName string) jvmbridge.Kind {
	if k, ok := primitiveKinds[typeName]; ok {
		return k
	}
	return jvmbridge.KindObject
}

// BoxClass returns the internal name of the box class of a primitive kind.
func BoxClass(k jvmbridge.Kind) (string, bool) {
	name, ok := boxClasses[k]
	return name, ok
}

// Descriptor converts a type name as returned by Class.getName into a type
// descriptor: "int" becomes "I", "java.lang.String" becomes
// "Ljava/lang/String;", array names are already descriptors.
func Descriptor(typeName string) string {
	if k, ok := primitiveKinds[typeName]; ok {
		return string(k.Descriptor())
	}
	if strings.HasPrefix(typeName, "[") {
		return InternalName(typeName)
	}
	return "L" + InternalName(typeName) + ";"
}

func indexError(i, n int) error {
	return errors.IndexOutOfRange(i, n)
}
