package textfsm

import "strings"

// Record is one emitted row. Fields follow Template.Header order; each is a
// string, or a []string for List values.
type Record []any

// Text returns field i as a string. List fields and out-of-range indexes
// yield "".
func (r Record) Text(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	s, _ := r[i].(string)

	return s
}

// List returns field i as a list. A plain string field is returned as a
// one-element list when non-empty.
func (r Record) List(i int) []string {
	if i < 0 || i >= len(r) {
		return nil
	}

	switch v := r[i].(type) {
	case []string:
		return v
	case string:
		if v != "" {
			return []string{v}
		}
	}

	return nil
}

type valueState struct {
	set  bool
	str  string
	list []string

	kept    string
	keptSet bool
}

type machine struct {
	t      *Template
	vals   []valueState
	state  string
	result []Record
}

// ParseText runs the template over text and returns the records in the
// order they were emitted. Text without any matching row yields an empty,
// non-nil slice.
func (t *Template) ParseText(text string) ([]Record, error) {
	m := &machine{
		t:      t,
		vals:   make([]valueState, len(t.values)),
		state:  StateStart,
		result: []Record{},
	}

	for _, line := range splitLines(text) {
		if err := m.checkLine(line); err != nil {
			return nil, err
		}
		if m.state == StateEnd || m.state == StateEOF {
			break
		}
	}

	// Reaching end of input records implicitly unless the template asks
	// otherwise with an explicit EOF state.
	if _, hasEOF := t.states[StateEOF]; m.state != StateEnd && !hasEOF {
		m.appendRecord()
	}

	return m.result, nil
}

// ParseTextToMaps is ParseText keyed by value name.
func (t *Template) ParseTextToMaps(text string) ([]map[string]any, error) {
	records, err := t.ParseText(text)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, len(records))
	for i, rec := range records {
		row := make(map[string]any, len(rec))
		for j, v := range t.values {
			row[v.Name] = rec[j]
		}
		out[i] = row
	}

	return out, nil
}

func (m *machine) checkLine(line string) error {
	for _, r := range m.t.states[m.state] {
		loc := r.re.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}

		for g, vi := range r.groups {
			if vi < 0 {
				continue
			}
			start, end := loc[2*g], loc[2*g+1]
			if start < 0 {
				m.assign(vi, "", false)
				continue
			}
			m.assign(vi, line[start:end], true)
		}

		switch r.recordOp {
		case recordEmit:
			m.appendRecord()
		case recordClear:
			m.clearRecord()
		case recordClearAll:
			m.clearAll()
		case recordNone:
		}

		switch r.lineOp {
		case lineError:
			return &ParseError{RuleLine: r.line, InputLine: line, Msg: r.errMsg}
		case lineContinue:
			continue
		case lineNext:
		}

		if r.next != "" {
			m.state = r.next
		}

		return nil
	}

	return nil
}

func (m *machine) assign(i int, s string, matched bool) {
	def, v := m.t.values[i], &m.vals[i]

	v.set, v.str = matched, s
	if def.Filldown {
		v.kept, v.keptSet = s, matched
	}

	if !matched {
		return
	}

	if def.List {
		v.list = append(v.list, s)
	}

	if def.Fillup && !def.List && s != "" {
		for r := len(m.result) - 1; r >= 0; r-- {
			if m.result[r].Text(i) != "" {
				break
			}
			m.result[r][i] = s
		}
	}
}

func (m *machine) appendRecord() {
	rec := make(Record, len(m.vals))
	empty := true

	for i, def := range m.t.values {
		v := m.vals[i]

		if def.List {
			if def.Required && len(v.list) == 0 {
				m.clearRecord()
				return
			}
			rec[i] = append([]string{}, v.list...)
			if len(v.list) > 0 {
				empty = false
			}
			continue
		}

		if def.Required && v.str == "" {
			m.clearRecord()
			return
		}
		rec[i] = v.str
		if v.set {
			empty = false
		}
	}

	if empty {
		return
	}

	m.result = append(m.result, rec)
	m.clearRecord()
}

// clearRecord resets every value except Filldown ones, which fall back to
// their last assignment.
func (m *machine) clearRecord() {
	for i, def := range m.t.values {
		v := &m.vals[i]
		if def.Filldown {
			v.str, v.set = v.kept, v.keptSet
			continue
		}
		v.str, v.set, v.list = "", false, nil
	}
}

func (m *machine) clearAll() {
	for i := range m.vals {
		m.vals[i] = valueState{}
	}
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}
