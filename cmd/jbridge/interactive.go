package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	jvmbridge "github.com/wippyai/jvm-bridge"
	"github.com/wippyai/jvm-bridge/class"
	"github.com/wippyai/jvm-bridge/fault"
	"github.com/wippyai/jvm-bridge/ref"
	"github.com/wippyai/jvm-bridge/value"
	"github.com/wippyai/jvm-bridge/vm"
)

var defaultClasses = []string{
	"java.lang.Math",
	"java.lang.String",
	"java.lang.Integer",
	"java.lang.Long",
	"java.lang.Double",
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	vm       *vm.VM
	result   string
	classes  []string
	methods  []methodInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

// methodInfo is a static method found by enumeration. index is its
// position in the class's method list, so the call reaches exactly this
// overload.
type methodInfo struct {
	class      string
	name       string
	returnType string
	params     []string
	index      int
}

type modelState int

const (
	stateSelectMethod modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(v *vm.VM, classes []string) *interactiveModel {
	if len(classes) == 0 {
		classes = defaultClasses
	}
	return &interactiveModel{
		vm:      v,
		classes: classes,
		state:   stateSelectMethod,
	}
}

type loadedMsg struct {
	err     error
	methods []methodInfo
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadMethods
}

// loadMethods runs on a bubbletea goroutine, so it attaches for the
// duration of the scan.
func (m *interactiveModel) loadMethods() tea.Msg {
	var methods []methodInfo
	err := m.vm.Do(func(jvmbridge.Env) error {
		for _, name := range m.classes {
			found, err := staticMethods(m.vm, name)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			methods = append(methods, found...)
		}
		return nil
	})
	if err != nil {
		return loadedMsg{err: err}
	}
	sort.SliceStable(methods, func(i, j int) bool {
		if methods[i].class != methods[j].class {
			return methods[i].class < methods[j].class
		}
		return methods[i].name < methods[j].name
	})
	return loadedMsg{methods: methods}
}

func staticMethods(v *vm.VM, name string) ([]methodInfo, error) {
	cls, err := class.ForName(v, name)
	if err != nil {
		return nil, err
	}
	defer cls.Release()
	list, err := cls.Methods()
	if err != nil {
		return nil, err
	}
	defer list.Release()

	var out []methodInfo
	for i := range list.Len() {
		meth, err := list.At(i)
		if err != nil {
			return nil, err
		}
		if meth.IsStatic() {
			out = append(out, methodInfo{
				class:      name,
				name:       meth.Name(),
				returnType: meth.ReturnType(),
				params:     meth.ParamTypeNames(),
				index:      i,
			})
		}
		meth.Release()
	}
	return out, nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectMethod && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectMethod && m.selected < len(m.methods)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectMethod:
				if len(m.methods) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callMethod
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callMethod

			case stateShowResult:
				m.state = stateSelectMethod
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectMethod
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectMethod
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.methods = msg.methods

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	f := m.methods[m.selected]
	m.inputs = make([]textinput.Model, len(f.params))
	for i, p := range f.params {
		ti := textinput.New()
		ti.Placeholder = p
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callMethod() tea.Msg {
	f := m.methods[m.selected]
	texts := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		texts[i] = input.Value()
	}

	var result string
	err := m.vm.Do(func(jvmbridge.Env) error {
		var err error
		result, err = invokeByIndex(m.vm, f, texts)
		return err
	})
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: result}
}

func invokeByIndex(v *vm.VM, f methodInfo, texts []string) (string, error) {
	args := make([]value.Value, 0, len(texts))
	defer func() { value.ReleaseAll(args) }()
	for i, text := range texts {
		val, err := convertArg(v, text, f.params[i])
		if err != nil {
			return "", fmt.Errorf("arg%d: %w", i, err)
		}
		args = append(args, val)
	}

	cls, err := class.ForName(v, f.class)
	if err != nil {
		return "", err
	}
	defer cls.Release()
	list, err := cls.Methods()
	if err != nil {
		return "", err
	}
	defer list.Release()
	meth, err := list.At(f.index)
	if err != nil {
		return "", err
	}
	defer meth.Release()

	res, err := class.Invoke(v, ref.Null, meth, args)
	if err != nil {
		if flt, ok := fault.As(err); ok {
			defer flt.Release()
			return "", fmt.Errorf("%s: %s", flt.ClassName(), flt.Message())
		}
		return "", err
	}
	defer res.Release()
	return formatValue(v, res), nil
}

// convertArg parses text as a value of the named parameter type.
func convertArg(v *vm.VM, text, typeName string) (value.Value, error) {
	switch typeName {
	case "boolean":
		b, err := strconv.ParseBool(text)
		return value.Bool(b), err
	case "byte":
		n, err := strconv.ParseInt(text, 10, 8)
		return value.Byte(int8(n)), err
	case "char":
		units := utf16.Encode([]rune(text))
		if len(units) != 1 {
			return value.Value{}, fmt.Errorf("char must be one UTF-16 unit")
		}
		return value.Char(units[0]), nil
	case "short":
		n, err := strconv.ParseInt(text, 10, 16)
		return value.Short(int16(n)), err
	case "int":
		n, err := strconv.ParseInt(text, 10, 32)
		return value.Int(int32(n)), err
	case "long":
		n, err := strconv.ParseInt(text, 10, 64)
		return value.Long(n), err
	case "float":
		f, err := strconv.ParseFloat(text, 32)
		return value.Float(float32(f)), err
	case "double":
		f, err := strconv.ParseFloat(text, 64)
		return value.Double(f), err
	}

	if text == "null" {
		return value.Null(), nil
	}
	if typeName == "java.lang.String" || typeName == "java.lang.Object" || typeName == "java.lang.CharSequence" {
		s, err := class.NewString(v, text)
		if err != nil {
			return value.Value{}, err
		}
		return value.Object(s), nil
	}
	return value.Value{}, fmt.Errorf("cannot enter a %s", typeName)
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.methods) == 0 {
		return "Loading classes..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Class Browser"))
	b.WriteString(" ")
	b.WriteString(strings.Join(m.classes, ", "))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectMethod:
		b.WriteString("Select a static method to call:\n\n")
		for i, f := range m.methods {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatMethod(f)))
			} else {
				b.WriteString(cursor + m.formatMethod(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.methods[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.class+"."+f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(f.params[i]))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.methods[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.class+"."+f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatMethod(f methodInfo) string {
	params := make([]string, len(f.params))
	for i, p := range f.params {
		params[i] = typeStyle.Render(p)
	}
	return typeStyle.Render(f.returnType) + " " + funcStyle.Render(shortName(f.class)+"."+f.name) + "(" + strings.Join(params, ", ") + ")"
}

func shortName(className string) string {
	if i := strings.LastIndexByte(className, '.'); i >= 0 {
		return className[i+1:]
	}
	return className
}

func runInteractive(v *vm.VM, classes []string) error {
	p := tea.NewProgram(newInteractiveModel(v, classes), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
