package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf16"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/class"
	"github.com/wippyai/jvm-bridge/fault"
	"github.com/wippyai/jvm-bridge/minivm"
	"github.com/wippyai/jvm-bridge/proxy"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/value"
	"github.com/wippyai/jvm-bridge/vm"
)

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (f *multiFlag) String() string { return strings.Join(*f, ",") }

func (f *multiFlag) Set(s string) error {
	*f = append(*f, s)
	return nil
}

type config struct {
	configFile  string
	version     string
	ignore      bool
	classes     []string
	method      string
	defineFile  string
	list        bool
	interactive bool
	opts        multiFlag
	args        multiFlag
}

func main() {
	var (
		cfg       config
		className string
		verbose   bool
	)
	flag.StringVar(&cfg.configFile, "config", "", "YAML options file")
	flag.StringVar(&cfg.version, "version", "", "Interface version (1.6, v4, ...)")
	flag.BoolVar(&cfg.ignore, "ignore-unrecognized", false, "Skip runtime options the runtime does not know")
	flag.StringVar(&className, "class", "", "Class to use (comma-separated with -list and -i)")
	flag.StringVar(&cfg.method, "call", "", "Static method of -class to call")
	flag.StringVar(&cfg.defineFile, "define", "", "WebAssembly module to define as -class")
	flag.BoolVar(&cfg.list, "list", false, "List public methods and exit")
	flag.BoolVar(&cfg.interactive, "i", false, "Interactive mode with TUI")
	flag.BoolVar(&verbose, "v", false, "Debug logging to stderr")
	flag.Var(&cfg.opts, "opt", "Runtime option (repeatable)")
	flag.Var(&cfg.args, "arg", "Typed argument type:value, e.g. s32:5, f64:0.5, string:hi, null (repeatable)")
	flag.Parse()

	if className != "" {
		cfg.classes = strings.Split(className, ",")
	}
	if len(cfg.classes) == 0 && !cfg.interactive {
		fmt.Fprintln(os.Stderr, "Usage: jbridge -class <name> [-call method] [-arg type:value ...]")
		fmt.Fprintln(os.Stderr, "       jbridge -class <name,...> -list")
		fmt.Fprintln(os.Stderr, "       jbridge -class <name> -define <module.wasm> -call <export> -arg s32:1")
		fmt.Fprintln(os.Stderr, "       jbridge [-class <name,...>] -i  (interactive mode)")
		os.Exit(1)
	}

	if verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			vm.SetLogger(l.Named("vm"))
			ref.SetLogger(l.Named("ref"))
			proxy.SetLogger(l.Named("proxy"))
			minivm.SetLogger(l.Named("minivm"))
			defer l.Sync()
		}
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadOptions(cfg config) (vm.Options, error) {
	var opts vm.Options
	if cfg.configFile != "" {
		data, err := os.ReadFile(cfg.configFile)
		if err != nil {
			return opts, fmt.Errorf("read config: %w", err)
		}
		if opts, err = vm.LoadOptions(data); err != nil {
			return opts, err
		}
	}
	opts.Options = append(opts.Options, cfg.opts...)
	if cfg.ignore {
		opts.IgnoreUnrecognized = true
	}
	if cfg.version != "" {
		v, err := vm.ParseVersion(cfg.version)
		if err != nil {
			return opts, err
		}
		opts.Version = v
	}
	return opts, nil
}

func run(cfg config) error {
	opts, err := loadOptions(cfg)
	if err != nil {
		return err
	}

	rt := minivm.New(minivm.WithStderr(os.Stderr))
	v, err := vm.Start(rt.Create, opts)
	if err != nil {
		return fmt.Errorf("start runtime: %w", err)
	}
	defer v.Destroy()

	if cfg.defineFile != "" {
		if len(cfg.classes) != 1 {
			return fmt.Errorf("-define needs exactly one -class")
		}
		data, err := os.ReadFile(cfg.defineFile)
		if err != nil {
			return fmt.Errorf("read module: %w", err)
		}
		cls, err := class.DefineType(v, cfg.classes[0], data)
		if err != nil {
			return report("define "+cfg.classes[0], err)
		}
		fmt.Printf("Defined %s from %s\n", cls, cfg.defineFile)
		cls.Release()
	}

	if cfg.interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(v, cfg.classes)
	}

	if cfg.list {
		return listClasses(v, cfg.classes)
	}

	if cfg.method == "" {
		return showClass(v, cfg.classes[0])
	}
	return callStatic(v, cfg.classes[0], cfg.method, cfg.args)
}

// showClass prints what the runtime reports for a class, the equivalent of
// String.class.getName().
func showClass(v *vm.VM, name string) error {
	cls, err := class.ForName(v, name)
	if err != nil {
		return report("find "+name, err)
	}
	defer cls.Release()

	res, err := class.Call(v, cls.Ref(), "getName")
	if err != nil {
		return report("getName", err)
	}
	defer res.Release()
	s, err := class.AsString(v, res)
	if err != nil {
		return err
	}
	fmt.Printf("Class: %s\n", s)
	return nil
}

// listClasses describes every class on its own attached goroutine.
func listClasses(v *vm.VM, names []string) error {
	out := make([][]string, len(names))
	var eg errgroup.Group
	for i, name := range names {
		eg.Go(func() error {
			return v.Do(func(jvmbridge.Env) error {
				lines, err := describeClass(v, name)
				if err != nil {
					return report("describe "+name, err)
				}
				out[i] = lines
				return nil
			})
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, name := range names {
		fmt.Printf("%s:\n", name)
		for _, line := range out[i] {
			fmt.Printf("  %s\n", line)
		}
	}
	return nil
}

func describeClass(v *vm.VM, name string) ([]string, error) {
	cls, err := class.ForName(v, name)
	if err != nil {
		return nil, err
	}
	defer cls.Release()

	var lines []string
	for _, enumerate := range []func() (*class.MethodList, error){cls.Constructors, cls.Methods} {
		list, err := enumerate()
		if err != nil {
			return nil, err
		}
		for m, err := range list.All() {
			if err != nil {
				list.Release()
				return nil, err
			}
			lines = append(lines, m.String())
			m.Release()
		}
		list.Release()
	}
	return lines, nil
}

func callStatic(v *vm.VM, className, method string, rawArgs []string) error {
	args := make([]value.Value, 0, len(rawArgs))
	defer func() { value.ReleaseAll(args) }()
	for _, raw := range rawArgs {
		val, err := parseArg(v, raw)
		if err != nil {
			return fmt.Errorf("argument %q: %w", raw, err)
		}
		args = append(args, val)
	}

	cls, err := class.ForName(v, className)
	if err != nil {
		return report("find "+className, err)
	}
	defer cls.Release()

	fmt.Printf("Calling %s.%s(%s)...\n", className, method, describeArgs(args))
	res, err := cls.CallStatic(method, args...)
	if err != nil {
		return report(method, err)
	}
	defer res.Release()
	fmt.Printf("Result: %s\n", formatValue(v, res))
	return nil
}

// report prints the stack trace of a foreign fault before returning it.
func report(what string, err error) error {
	if f, ok := fault.As(err); ok {
		fmt.Fprintf(os.Stderr, "Foreign fault in %s: %s: %s\n", what, f.ClassName(), f.Message())
		if perr := f.Print(); perr != nil {
			fmt.Fprintf(os.Stderr, "print stack trace: %v\n", perr)
		}
		f.Release()
	}
	return fmt.Errorf("%s: %w", what, err)
}

// parseArg converts "type:value" into a value. The type is a WIT scalar
// type name; "null" stands alone.
func parseArg(v *vm.VM, raw string) (value.Value, error) {
	if raw == "null" {
		return value.Null(), nil
	}
	typ, text, ok := strings.Cut(raw, ":")
	if !ok {
		return value.Value{}, fmt.Errorf("want type:value")
	}
	t, err := wit.ParseType(typ)
	if err != nil {
		return value.Value{}, err
	}

	switch t.(type) {
	case wit.Bool:
		b, err := strconv.ParseBool(text)
		return value.Bool(b), err
	case wit.S8, wit.U8:
		n, err := strconv.ParseInt(text, 10, 8)
		return value.Byte(int8(n)), err
	case wit.S16:
		n, err := strconv.ParseInt(text, 10, 16)
		return value.Short(int16(n)), err
	case wit.U16:
		n, err := strconv.ParseUint(text, 10, 16)
		return value.Char(uint16(n)), err
	case wit.Char:
		units := utf16.Encode([]rune(text))
		if len(units) != 1 {
			return value.Value{}, fmt.Errorf("char must be one UTF-16 unit")
		}
		return value.Char(units[0]), nil
	case wit.S32, wit.U32:
		n, err := strconv.ParseInt(text, 10, 32)
		return value.Int(int32(n)), err
	case wit.S64, wit.U64:
		n, err := strconv.ParseInt(text, 10, 64)
		return value.Long(n), err
	case wit.F32:
		f, err := strconv.ParseFloat(text, 32)
		return value.Float(float32(f)), err
	case wit.F64:
		f, err := strconv.ParseFloat(text, 64)
		return value.Double(f), err
	case wit.String:
		s, err := class.NewString(v, text)
		if err != nil {
			return value.Value{}, err
		}
		return value.Object(s), nil
	}
	return value.Value{}, fmt.Errorf("unsupported type %s", typ)
}

func describeArgs(args []value.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

// formatValue renders primitives by kind and objects through toString.
func formatValue(v *vm.VM, val value.Value) string {
	if !val.IsRef() || val.IsNull() {
		return val.String()
	}
	if ok, _ := class.IsString(v, val.Ref()); ok {
		s, err := class.AsString(v, val)
		if err != nil {
			return "<" + err.Error() + ">"
		}
		return strconv.Quote(s)
	}
	s, err := class.ToString(v, val.Ref())
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return s
}
