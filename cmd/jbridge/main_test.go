package main

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/jvm-bridge/class"
	"github.com/wippyai/jvm-bridge/minivm"
	"github.com/wippyai/jvm-bridge/value"
	"github.com/wippyai/jvm-bridge/vm"
)

func start(t *testing.T) *vm.VM {
	t.Helper()
	rt := minivm.New()
	v, err := vm.Start(rt.Create, vm.Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { v.Destroy() })
	return v
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opts.yaml")
	doc := "version: \"1.4\"\noptions:\n  - -Xmx64m\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := loadOptions(config{configFile: path, opts: multiFlag{"-Dx=1"}, ignore: true})
	if err != nil {
		t.Fatalf("loadOptions: %v", err)
	}
	want := vm.Options{Options: []string{"-Xmx64m", "-Dx=1"}, IgnoreUnrecognized: true, Version: vm.Version14}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}

	got, err = loadOptions(config{configFile: path, version: "v6"})
	if err != nil || got.Version != vm.Version16 {
		t.Errorf("-version override = %v, %v", got.Version, err)
	}

	if _, err := loadOptions(config{configFile: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Error("missing config file accepted")
	}
	if _, err := loadOptions(config{version: "banana"}); err == nil {
		t.Error("bad version accepted")
	}
}

func TestParseArg(t *testing.T) {
	v := start(t)

	tests := []struct {
		raw  string
		want value.Value
	}{
		{"bool:true", value.Bool(true)},
		{"s8:-3", value.Byte(-3)},
		{"s16:300", value.Short(300)},
		{"u16:65", value.Char('A')},
		{"char:é", value.Char('é')},
		{"s32:-42", value.Int(-42)},
		{"s64:1099511627776", value.Long(1 << 40)},
		{"f32:0.5", value.Float(0.5)},
		{"f64:2.25", value.Double(2.25)},
		{"null", value.Null()},
	}
	for _, tt := range tests {
		got, err := parseArg(v, tt.raw)
		if err != nil {
			t.Errorf("parseArg(%q): %v", tt.raw, err)
			continue
		}
		if got.Kind() != tt.want.Kind() || got.JValue() != tt.want.JValue() {
			t.Errorf("parseArg(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}

	s, err := parseArg(v, "string:hi there")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Release()
	if text, err := class.AsString(v, s); err != nil || text != "hi there" {
		t.Errorf("string arg = %q, %v", text, err)
	}

	for _, bad := range []string{"42", "s32:x", "s8:300", "list<u8>:1", "char:ab"} {
		if _, err := parseArg(v, bad); err == nil {
			t.Errorf("parseArg(%q) succeeded", bad)
		}
	}
}

func TestConvertArg(t *testing.T) {
	v := start(t)

	tests := []struct {
		text, typ string
		want      value.Value
	}{
		{"true", "boolean", value.Bool(true)},
		{"7", "byte", value.Byte(7)},
		{"x", "char", value.Char('x')},
		{"-1", "short", value.Short(-1)},
		{"12", "int", value.Int(12)},
		{"-9", "long", value.Long(-9)},
		{"1.5", "float", value.Float(1.5)},
		{"1e3", "double", value.Double(1000)},
		{"null", "java.lang.Object", value.Null()},
	}
	for _, tt := range tests {
		got, err := convertArg(v, tt.text, tt.typ)
		if err != nil {
			t.Errorf("convertArg(%q, %s): %v", tt.text, tt.typ, err)
			continue
		}
		if got.Kind() != tt.want.Kind() || got.JValue() != tt.want.JValue() {
			t.Errorf("convertArg(%q, %s) = %v, want %v", tt.text, tt.typ, got, tt.want)
		}
	}

	if _, err := convertArg(v, "1", "java.lang.StringBuilder"); err == nil {
		t.Error("StringBuilder argument accepted")
	}
}

func TestDescribeClass(t *testing.T) {
	v := start(t)
	lines, err := describeClass(v, "java.lang.Math")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"static int max(int, int)", "static double sqrt(double)"} {
		if !slices.Contains(lines, want) {
			t.Errorf("missing %q in %v", want, lines)
		}
	}
	if _, err := describeClass(v, "no.such.Class"); err == nil {
		t.Error("missing class described")
	}
}

func TestListClassesParallel(t *testing.T) {
	v := start(t)
	if err := listClasses(v, []string{"java.lang.Math", "java.lang.String", "java.lang.Integer"}); err != nil {
		t.Fatalf("listClasses: %v", err)
	}
	if err := listClasses(v, []string{"java.lang.Math", "no.such.Class"}); err == nil {
		t.Error("listClasses with a missing class succeeded")
	}
}

func TestInvokeByIndex(t *testing.T) {
	v := start(t)
	methods, err := staticMethods(v, "java.lang.Math")
	if err != nil {
		t.Fatal(err)
	}
	idx := slices.IndexFunc(methods, func(m methodInfo) bool {
		return m.name == "max" && slices.Equal(m.params, []string{"long", "long"})
	})
	if idx < 0 {
		t.Fatalf("max(long, long) not found in %v", methods)
	}

	got, err := invokeByIndex(v, methods[idx], []string{"-5", "3"})
	if err != nil || got != "long(3)" {
		t.Errorf("max = %q, %v", got, err)
	}

	parse, err := staticMethods(v, "java.lang.Integer")
	if err != nil {
		t.Fatal(err)
	}
	idx = slices.IndexFunc(parse, func(m methodInfo) bool { return m.name == "parseInt" })
	if idx < 0 {
		t.Fatal("parseInt not found")
	}
	_, err = invokeByIndex(v, parse[idx], []string{"zz"})
	if err == nil || err.Error() != `java.lang.NumberFormatException: For input string: "zz"` {
		t.Errorf("parseInt(zz) error = %v", err)
	}
}

func TestFormatValue(t *testing.T) {
	v := start(t)
	if got := formatValue(v, value.Int(3)); got != "int(3)" {
		t.Errorf("int = %q", got)
	}
	if got := formatValue(v, value.Null()); got != "null" {
		t.Errorf("null = %q", got)
	}

	s, _ := class.NewString(v, "q")
	sv := value.Object(s)
	defer sv.Release()
	if got := formatValue(v, sv); got != `"q"` {
		t.Errorf("string = %q", got)
	}

	b, err := class.Box(v, value.Long(9))
	if err != nil {
		t.Fatal(err)
	}
	bv := value.Object(b)
	defer bv.Release()
	if got := formatValue(v, bv); got != "9" {
		t.Errorf("boxed = %q", got)
	}
}
