package textfsm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ValuesAndStates(t *testing.T) {
	tmpl, err := ParseString(`# leading comment
Value Required,Filldown NAME (\S+)
Value List ADDR (\d+\.\d+\.\d+\.\d+)
Value Key ID (\d+)

Start
  ^Name ${NAME} -> Detail

Detail
  # addresses repeat
  ^\s+${ADDR}
  ^Id $ID -> Record Start
`)
	require.NoError(t, err)

	assert.Equal(t, []string{"NAME", "ADDR", "ID"}, tmpl.Header())
	assert.Equal(t, []string{"Start", "Detail"}, tmpl.States())
	assert.Equal(t, 1, tmpl.Index("ADDR"))
	assert.Equal(t, -1, tmpl.Index("MISSING"))

	values := tmpl.Values()
	require.Len(t, values, 3)
	assert.True(t, values[0].Required)
	assert.True(t, values[0].Filldown)
	assert.True(t, values[1].List)
	assert.True(t, values[2].Key)
	assert.Equal(t, `(\d+)`, values[2].Pattern)
}

func TestParse_TemplateErrors(t *testing.T) {
	testCases := []struct {
		name     string
		template string
	}{
		{
			name:     "duplicate value",
			template: "Value A (x)\nValue A (y)\n\nStart\n  ^${A}\n",
		},
		{
			name:     "unknown option",
			template: "Value Bogus A (x)\n\nStart\n  ^${A}\n",
		},
		{
			name:     "duplicate option",
			template: "Value List,List A (x)\n\nStart\n  ^${A}\n",
		},
		{
			name:     "regex without parentheses",
			template: "Value Required A x\n\nStart\n  ^${A}\n",
		},
		{
			name:     "invalid value regex",
			template: "Value A ([)\n\nStart\n  ^x\n",
		},
		{
			name:     "too few tokens",
			template: "Value A\n\nStart\n  ^x\n",
		},
		{
			name:     "no values",
			template: "Start\n  ^x\n",
		},
		{
			name:     "unresolvable substitution",
			template: "Value A (x)\n\nStart\n  ^${B}\n",
		},
		{
			name:     "value used twice in one rule",
			template: "Value A (x)\n\nStart\n  ^${A} ${A}\n",
		},
		{
			name:     "bare dollar",
			template: "Value A (x)\n\nStart\n  ^${A}$\n",
		},
		{
			name:     "missing start state",
			template: "Value A (x)\n\nBegin\n  ^${A}\n",
		},
		{
			name:     "undefined target state",
			template: "Value A (x)\n\nStart\n  ^${A} -> Nowhere\n",
		},
		{
			name:     "continue with state change",
			template: "Value A (x)\n\nStart\n  ^${A} -> Continue Other\n\nOther\n  ^x\n",
		},
		{
			name:     "rule without caret",
			template: "Value A (x)\n\nStart\n  ${A}\n",
		},
		{
			name:     "rule without indentation",
			template: "Value A (x)\n\nStart\n^${A}\n",
		},
		{
			name:     "non-empty End state",
			template: "Value A (x)\n\nStart\n  ^${A}\n\nEnd\n  ^x\n",
		},
		{
			name:     "duplicate state",
			template: "Value A (x)\n\nStart\n  ^${A}\n\nStart\n  ^x\n",
		},
		{
			name:     "reserved word as state",
			template: "Value A (x)\n\nStart\n  ^${A}\n\nRecord\n  ^x\n",
		},
		{
			name:     "badly formatted action",
			template: "Value A (x)\n\nStart\n  ^${A} -> Record Start Extra\n",
		},
		{
			name:     "text after value section",
			template: "Value A (x)\nStart\n  ^${A}\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tmpl, err := ParseString(tc.template)
			require.Error(t, err)
			assert.Nil(t, tmpl)

			var tmplErr *TemplateError
			require.ErrorAs(t, err, &tmplErr)
			assert.NotEmpty(t, tmplErr.Msg)
		})
	}
}

func TestParse_ValueRegexWithLiteralParens(t *testing.T) {
	testCases := map[string]struct {
		template string
		input    string
		want     string
	}{
		"paren in character class": {
			template: "Value DESCR ([^)]+)\n\nStart\n  ^Desc \\(${DESCR}\\) -> Record\n",
			input:    "Desc (uplink to core)\n",
			want:     "uplink to core",
		},
		"escaped paren": {
			template: "Value SPEED (\\d+\\)?)\n\nStart\n  ^Speed ${SPEED}$$ -> Record\n",
			input:    "Speed 1000)\n",
			want:     "1000)",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			tmpl, err := ParseString(tc.template)
			require.NoError(t, err)

			records, err := tmpl.ParseText(tc.input)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, tc.want, records[0].Text(0))
		})
	}
}

func TestParse_ReportsLineNumber(t *testing.T) {
	_, err := ParseString("Value A (x)\n\nStart\n  ^${A}\n  ^${NOPE}\n")
	require.Error(t, err)

	var tmplErr *TemplateError
	require.ErrorAs(t, err, &tmplErr)
	assert.Equal(t, 5, tmplErr.Line)
	assert.Contains(t, err.Error(), "line 5")
}

func TestParse_ErrorActionMayCarryMessage(t *testing.T) {
	_, err := ParseString("Value A (x)\n\nStart\n  ^${A} -> Error \"bad input here\"\n")
	require.NoError(t, err)
}

func TestParseFile(t *testing.T) {
	for _, name := range []string{
		"cisco_ios_show_cdp_neighbors.textfsm",
		"cisco_ios_show_version.textfsm",
	} {
		t.Run(name, func(t *testing.T) {
			tmpl, err := ParseFile(filepath.Join("..", "..", "templates", name))
			require.NoError(t, err)
			assert.NotEmpty(t, tmpl.Header())
		})
	}

	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.textfsm"))
	require.Error(t, err)
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("Value A (x)\n") })
}
