package textfsm

import "fmt"

// TemplateError reports a malformed template. It is always returned at load
// time, never while parsing text.
type TemplateError struct {
	Line int
	Msg  string
}

func (e *TemplateError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("template error at line %d: %s", e.Line, e.Msg)
	}

	return "template error: " + e.Msg
}

// ParseError is raised by a rule carrying the Error action.
type ParseError struct {
	RuleLine  int
	InputLine string
	Msg       string
}

func (e *ParseError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s (rule line %d, input %q)", e.Msg, e.RuleLine, e.InputLine)
	}

	return fmt.Sprintf("state error raised (rule line %d, input %q)", e.RuleLine, e.InputLine)
}
