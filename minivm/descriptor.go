package minivm

import (
	"fmt"
	"strings"

	jvmbridge "github.com/wippyai/jvm-bridge"
)

const (
	ctorName   = "<init>"
	clinitName = "<clinit>"
)

// parseMethodSig splits "(ILjava/lang/String;)V" into its parameter and
// return descriptors.
func parseMethodSig(sig string) (params []string, ret string, err error) {
	if !strings.HasPrefix(sig, "(") {
		return nil, "", fmt.Errorf("method descriptor %q: missing '('", sig)
	}
	i := 1
	for i < len(sig) && sig[i] != ')' {
		n, err := fieldDescLen(sig[i:])
		if err != nil {
			return nil, "", fmt.Errorf("method descriptor %q: %w", sig, err)
		}
		params = append(params, sig[i:i+n])
		i += n
	}
	if i >= len(sig) {
		return nil, "", fmt.Errorf("method descriptor %q: missing ')'", sig)
	}
	ret = sig[i+1:]
	if ret == "V" {
		return params, ret, nil
	}
	n, err := fieldDescLen(ret)
	if err != nil || n != len(ret) {
		return nil, "", fmt.Errorf("method descriptor %q: bad return type", sig)
	}
	return params, ret, nil
}

// fieldDescLen returns the length of the field descriptor at the start of
// s.
func fieldDescLen(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty type")
	}
	switch s[0] {
	case 'Z', 'B', 'C', 'S', 'I', 'J', 'F', 'D':
		return 1, nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 2 {
			return 0, fmt.Errorf("unterminated class type %q", s)
		}
		return end + 1, nil
	case '[':
		n, err := fieldDescLen(s[1:])
		return n + 1, err
	}
	return 0, fmt.Errorf("unknown type %q", s[:1])
}

func descKind(desc string) jvmbridge.Kind {
	k, _ := jvmbridge.KindFromDescriptor(desc[0])
	return k
}

// className maps a reference descriptor to the name FindClass takes:
// "Ljava/lang/String;" to "java/lang/String", arrays stay as they are.
func className(desc string) string {
	if strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") {
		return desc[1 : len(desc)-1]
	}
	return desc
}

var primitiveNames = map[byte]string{
	'Z': "boolean",
	'B': "byte",
	'C': "char",
	'S': "short",
	'I': "int",
	'J': "long",
	'F': "float",
	'D': "double",
	'V': "void",
}
