// Package textfsm compiles TextFSM templates and runs them against
// semi-structured CLI output.
//
// A template has two sections separated by a blank line. The first declares
// the values to extract:
//
//	Value [Option[,Option...]] NAME (regex)
//
// The second is a set of states, each a name followed by indented rules:
//
//	Start
//	  ^Device.*ID -> Neighbors
//
// Rules reference values as ${NAME}; "$$" is a literal dollar sign. Templates
// are data, not code: they are read from disk at run time so operators can
// tune them without rebuilding.
package textfsm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"
)

const maxNameLen = 48

// Reserved state names.
const (
	StateStart = "Start"
	StateEnd   = "End"
	StateEOF   = "EOF"
)

// Value options.
const (
	OptionRequired = "Required"
	OptionFilldown = "Filldown"
	OptionFillup   = "Fillup"
	OptionKey      = "Key"
	OptionList     = "List"
)

type lineOp int

const (
	lineNext lineOp = iota
	lineContinue
	lineError
)

type recordOp int

const (
	recordNone recordOp = iota
	recordEmit
	recordClear
	recordClearAll
)

var (
	commentRe     = regexp.MustCompile(`^\s*#`)
	nameRe        = regexp.MustCompile(`^\w+$`)
	matchActionRe = regexp.MustCompile(`^(.*)(\s->(.*))$`)
	actionRe      = regexp.MustCompile(`^\s+(Continue|Next|Error)(?:\.(Clearall|Clear|Record|NoRecord))?(?:\s+(\w+|".*"))?$`)
	action2Re     = regexp.MustCompile(`^\s+(Clearall|Clear|Record|NoRecord)(?:\s+(\w+|".*"))?$`)
	action3Re     = regexp.MustCompile(`^(?:\s+(\w+|".*"))?$`)
)

// Value is one declared field of a template.
type Value struct {
	Name     string
	Pattern  string
	Required bool
	Filldown bool
	Fillup   bool
	Key      bool
	List     bool

	group string
}

type rule struct {
	line     int
	match    string
	re       *regexp.Regexp
	groups   []int
	lineOp   lineOp
	recordOp recordOp
	next     string
	errMsg   string
}

// Template is a compiled TextFSM template. It is immutable once parsed and
// may be used for any number of ParseText calls.
type Template struct {
	values []*Value
	byName map[string]int
	states map[string][]*rule
	order  []string
}

// Parse reads and compiles a template. Every structural problem is reported
// as a *TemplateError before any text is processed.
func Parse(r io.Reader) (*Template, error) {
	p := &templateReader{scanner: bufio.NewScanner(r)}
	t := &Template{
		byName: make(map[string]int),
		states: make(map[string][]*rule),
	}

	if err := p.readValues(t); err != nil {
		return nil, err
	}

	for {
		more, err := p.readState(t)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}

	if err := p.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}

	if err := t.validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// ParseString compiles a template held in memory.
func ParseString(s string) (*Template, error) {
	return Parse(strings.NewReader(s))
}

// ParseFile compiles the template stored at path.
func ParseFile(path string) (*Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open template %s: %w", path, err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}

	return t, nil
}

// MustParse is like ParseString but panics on error.
func MustParse(s string) *Template {
	t, err := ParseString(s)
	if err != nil {
		panic(err)
	}

	return t
}

// Header returns the value names in declaration order. Record fields follow
// the same order.
func (t *Template) Header() []string {
	names := make([]string, len(t.values))
	for i, v := range t.values {
		names[i] = v.Name
	}

	return names
}

// Index returns the column of the named value, or -1.
func (t *Template) Index(name string) int {
	if i, ok := t.byName[name]; ok {
		return i
	}

	return -1
}

// Values returns copies of the declared values.
func (t *Template) Values() []Value {
	out := make([]Value, len(t.values))
	for i, v := range t.values {
		out[i] = *v
	}

	return out
}

// States returns the state names in declaration order.
func (t *Template) States() []string {
	return append([]string(nil), t.order...)
}

func (t *Template) validate() error {
	if _, ok := t.states[StateStart]; !ok {
		return &TemplateError{Msg: "missing state 'Start'"}
	}

	for _, reserved := range []string{StateEnd, StateEOF} {
		if rules, ok := t.states[reserved]; ok && len(rules) > 0 {
			return &TemplateError{Line: rules[0].line, Msg: fmt.Sprintf("state '%s' must be empty", reserved)}
		}
	}

	for _, name := range t.order {
		for _, r := range t.states[name] {
			if r.lineOp == lineError || r.next == "" || r.next == StateEnd || r.next == StateEOF {
				continue
			}
			if _, ok := t.states[r.next]; !ok {
				return &TemplateError{
					Line: r.line,
					Msg:  fmt.Sprintf("state '%s' not found, referenced in state '%s'", r.next, name),
				}
			}
		}
	}

	return nil
}

// ============================================================================
// TEMPLATE READER
// ============================================================================

type templateReader struct {
	scanner *bufio.Scanner
	line    int
}

func (p *templateReader) next() (string, bool) {
	if !p.scanner.Scan() {
		return "", false
	}
	p.line++

	return strings.TrimRightFunc(p.scanner.Text(), unicode.IsSpace), true
}

func (p *templateReader) readValues(t *Template) error {
	for {
		line, ok := p.next()
		if !ok {
			break
		}

		if line == "" {
			if len(t.values) == 0 {
				continue
			}
			break
		}

		if commentRe.MatchString(line) {
			continue
		}

		if !strings.HasPrefix(line, "Value ") {
			return &TemplateError{Line: p.line, Msg: "expected blank line after last Value definition"}
		}

		v, err := parseValue(line, p.line)
		if err != nil {
			return err
		}

		if _, dup := t.byName[v.Name]; dup {
			return &TemplateError{Line: p.line, Msg: fmt.Sprintf("duplicate declarations for Value '%s'", v.Name)}
		}

		t.byName[v.Name] = len(t.values)
		t.values = append(t.values, v)
	}

	if len(t.values) == 0 {
		return &TemplateError{Line: p.line, Msg: "template declares no Value"}
	}

	return nil
}

func (p *templateReader) readState(t *Template) (bool, error) {
	var name string

	for {
		line, ok := p.next()
		if !ok {
			return false, nil
		}
		if line == "" || commentRe.MatchString(line) {
			continue
		}

		if !nameRe.MatchString(line) || len(line) > maxNameLen || isReservedOp(line) {
			return false, &TemplateError{Line: p.line, Msg: fmt.Sprintf("invalid state name '%s'", line)}
		}
		if _, dup := t.states[line]; dup {
			return false, &TemplateError{Line: p.line, Msg: fmt.Sprintf("duplicate state name '%s'", line)}
		}

		name = line
		t.states[name] = nil
		t.order = append(t.order, name)

		break
	}

	for {
		line, ok := p.next()
		if !ok || line == "" {
			break
		}
		if commentRe.MatchString(line) {
			continue
		}

		body := strings.TrimLeft(line, " \t")
		if body == line || !strings.HasPrefix(body, "^") {
			return false, &TemplateError{Line: p.line, Msg: "missing white space or caret ('^') before rule"}
		}

		r, err := t.parseRule(body, p.line)
		if err != nil {
			return false, err
		}

		t.states[name] = append(t.states[name], r)
	}

	return true, nil
}

func isReservedOp(s string) bool {
	switch s {
	case "Continue", "Next", "Error", "Clear", "Clearall", "Record", "NoRecord":
		return true
	}

	return false
}

// ============================================================================
// VALUES
// ============================================================================

func parseValue(line string, lineNum int) (*Value, error) {
	first, rest := splitToken(strings.TrimPrefix(line, "Value"))
	if first == "" || rest == "" {
		return nil, &TemplateError{Line: lineNum, Msg: "expected at least 3 tokens on Value line"}
	}

	v := &Value{}

	if strings.HasPrefix(rest, "(") {
		v.Name, v.Pattern = first, rest
	} else {
		if err := v.setOptions(first, lineNum); err != nil {
			return nil, err
		}
		v.Name, v.Pattern = splitToken(rest)
	}

	if !nameRe.MatchString(v.Name) || len(v.Name) > maxNameLen {
		return nil, &TemplateError{Line: lineNum, Msg: fmt.Sprintf("invalid Value name '%s'", v.Name)}
	}

	if !strings.HasPrefix(v.Pattern, "(") || !strings.HasSuffix(v.Pattern, ")") {
		return nil, &TemplateError{Line: lineNum, Msg: fmt.Sprintf("Value '%s' must be contained within a '()' pair", v.Name)}
	}

	if _, err := regexp.Compile(v.Pattern); err != nil {
		return nil, &TemplateError{Line: lineNum, Msg: fmt.Sprintf("invalid regular expression for Value '%s': %v", v.Name, err)}
	}

	v.group = "(?P<" + v.Name + ">" + v.Pattern[1:]

	return v, nil
}

func (v *Value) setOptions(options string, lineNum int) error {
	seen := make(map[string]bool)

	for _, opt := range strings.Split(options, ",") {
		if seen[opt] {
			return &TemplateError{Line: lineNum, Msg: fmt.Sprintf("duplicate option '%s'", opt)}
		}
		seen[opt] = true

		switch opt {
		case OptionRequired:
			v.Required = true
		case OptionFilldown:
			v.Filldown = true
		case OptionFillup:
			v.Fillup = true
		case OptionKey:
			v.Key = true
		case OptionList:
			v.List = true
		default:
			return &TemplateError{Line: lineNum, Msg: fmt.Sprintf("unknown option '%s'", opt)}
		}
	}

	return nil
}

func splitToken(s string) (string, string) {
	s = strings.TrimSpace(s)

	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}

	return s[:i], strings.TrimSpace(s[i:])
}

// ============================================================================
// RULES
// ============================================================================

func (t *Template) parseRule(text string, lineNum int) (*rule, error) {
	r := &rule{line: lineNum, match: text}

	var action string

	hasAction := false
	if m := matchActionRe.FindStringSubmatch(text); m != nil {
		r.match, action, hasAction = m[1], m[3], true
	}

	expanded, err := t.expand(r.match, lineNum)
	if err != nil {
		return nil, err
	}

	r.re, err = regexp.Compile(expanded)
	if err != nil {
		return nil, &TemplateError{Line: lineNum, Msg: fmt.Sprintf("invalid regular expression '%s': %v", r.match, err)}
	}

	names := r.re.SubexpNames()
	r.groups = make([]int, len(names))
	for i, n := range names {
		r.groups[i] = -1
		if idx, ok := t.byName[n]; ok && i > 0 {
			r.groups[i] = idx
		}
	}

	if !hasAction {
		return r, nil
	}

	var ln, rec, next string

	switch {
	case actionRe.MatchString(action):
		m := actionRe.FindStringSubmatch(action)
		ln, rec, next = m[1], m[2], m[3]
	case action2Re.MatchString(action):
		m := action2Re.FindStringSubmatch(action)
		rec, next = m[1], m[2]
	case action3Re.MatchString(action):
		next = action3Re.FindStringSubmatch(action)[1]
	default:
		return nil, &TemplateError{Line: lineNum, Msg: fmt.Sprintf("badly formatted rule '%s'", text)}
	}

	switch ln {
	case "Continue":
		r.lineOp = lineContinue
	case "Error":
		r.lineOp = lineError
	}

	switch rec {
	case "Record":
		r.recordOp = recordEmit
	case "Clear":
		r.recordOp = recordClear
	case "Clearall":
		r.recordOp = recordClearAll
	}

	if r.lineOp == lineError {
		r.errMsg = strings.Trim(next, `"`)
		return r, nil
	}

	if next != "" {
		if r.lineOp == lineContinue {
			return nil, &TemplateError{Line: lineNum, Msg: fmt.Sprintf("action 'Continue' with new state '%s'", next)}
		}
		if !nameRe.MatchString(next) {
			return nil, &TemplateError{Line: lineNum, Msg: "alphanumeric characters only in state names"}
		}
		r.next = next
	}

	return r, nil
}

// expand substitutes ${NAME} and $NAME with the value's named group. A value
// may appear at most once per rule.
func (t *Template) expand(match string, lineNum int) (string, error) {
	var b strings.Builder

	used := make(map[string]bool)

	substitute := func(name string) error {
		idx, ok := t.byName[name]
		if !ok {
			return &TemplateError{Line: lineNum, Msg: fmt.Sprintf("unknown value '%s' in rule '%s'", name, match)}
		}
		if used[name] {
			return &TemplateError{Line: lineNum, Msg: fmt.Sprintf("duplicate substitution of '%s' in rule '%s'", name, match)}
		}
		used[name] = true
		b.WriteString(t.values[idx].group)

		return nil
	}

	for i := 0; i < len(match); i++ {
		c := match[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}

		if i+1 >= len(match) {
			return "", &TemplateError{Line: lineNum, Msg: fmt.Sprintf("invalid placeholder in rule '%s' (use $$ for end of line)", match)}
		}

		switch next := match[i+1]; {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '{':
			end := strings.IndexByte(match[i+2:], '}')
			if end < 0 {
				return "", &TemplateError{Line: lineNum, Msg: fmt.Sprintf("unterminated placeholder in rule '%s'", match)}
			}
			name := match[i+2 : i+2+end]
			if !isIdent(name) {
				return "", &TemplateError{Line: lineNum, Msg: fmt.Sprintf("invalid placeholder '${%s}'", name)}
			}
			if err := substitute(name); err != nil {
				return "", err
			}
			i += 2 + end
		case isIdentStart(next):
			j := i + 1
			for j < len(match) && isIdentChar(match[j]) {
				j++
			}
			if err := substitute(match[i+1 : j]); err != nil {
				return "", err
			}
			i = j - 1
		default:
			return "", &TemplateError{Line: lineNum, Msg: fmt.Sprintf("invalid placeholder in rule '%s' (use $$ for end of line)", match)}
		}
	}

	return b.String(), nil
}

func isIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}

	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
