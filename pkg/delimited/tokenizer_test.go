package delimited

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRow(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		delim byte
		want  []string
	}{
		{"simple", "a,b,c", ',', []string{"a", "b", "c"}},
		{"trims", " a , b ,c ", ',', []string{"a", "b", "c"}},
		{"empty fields kept", "a,,c,", ',', []string{"a", "", "c", ""}},
		{"quoted delimiter", `a,"b,c",d`, ',', []string{"a", "b,c", "d"}},
		{"quoted keeps spaces", `a, " b " ,d`, ',', []string{"a", " b ", "d"}},
		{"doubled quote", `"say ""hi""",x`, ',', []string{`say "hi"`, "x"}},
		{"empty quoted", `"",x`, ',', []string{"", "x"}},
		{"inner quote unquoted", `ab"c,d`, ',', []string{`ab"c`, "d"}},
		{"space keeps empty fields", "1  2 3", ' ', []string{"1", "", "2", "3"}},
		{"tab keeps empty fields", "1\t\t2\t", '\t', []string{"1", "", "2", ""}},
		{"tab leaves inner spaces", "a\t2021-03-04 05:00:00\t1.5", '\t', []string{"a", "2021-03-04 05:00:00", "1.5"}},
		{"tab trims spaces", " a \t b ", '\t', []string{"a", "b"}},
		{"space with quotes", `x "a b" y`, ' ', []string{"x", "a b", "y"}},
		{"space quoted empty", `x "" y`, ' ', []string{"x", "", "y"}},
		{"pipe", "1|2|3", '|', []string{"1", "2", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitRow(tt.line, tt.delim, '"'))
		})
	}
}

func TestJoinRowRoundTrip(t *testing.T) {
	rows := [][]string{
		{"a", "b", "c"},
		{"has,comma", `has "quote"`, " padded ", ""},
		{"*P*", "terrestrial", "2"},
		{"2021-03-04 05:00:00", "tab\there", "", "x"},
		{"", ""},
		{"", "a", ""},
	}

	for _, delim := range []byte{',', '\t', ' ', '|', ';'} {
		for _, row := range rows {
			var buf bytes.Buffer
			w := bufio.NewWriter(&buf)
			require.NoError(t, joinRow(w, row, delim, '"'))
			require.NoError(t, w.Flush())

			tok := NewTokenizer(&buf, WithDelimiter(delim))
			got, ok := tok.NextRow()
			require.True(t, ok)
			assert.Equal(t, row, got, "delimiter %q", delim)
		}
	}
}

func TestTokenizer(t *testing.T) {
	input := "# comment\n" +
		"a,b\r\n" +
		"\n" +
		"   # indented comment\n" +
		"c,d\n" +
		"e"

	tok := NewTokenizer(strings.NewReader(input))
	var rows [][]string
	for {
		row, ok := tok.NextRow()
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	require.NoError(t, tok.Err())
	assert.Equal(t, [][]string{{"a", "b"}, {}, {"c", "d"}, {"e"}}, rows)
	assert.Equal(t, 6, tok.Line())
}

func TestTokenizerOptions(t *testing.T) {
	tok := NewTokenizer(strings.NewReader("#x;y\n'a;b';c\n"),
		WithDelimiter(';'),
		WithQuote('\''),
		WithComment(""),
	)

	row, ok := tok.NextRow()
	require.True(t, ok)
	assert.Equal(t, []string{"#x", "y"}, row)

	row, ok = tok.NextRow()
	require.True(t, ok)
	assert.Equal(t, []string{"a;b", "c"}, row)

	_, ok = tok.NextRow()
	assert.False(t, ok)
}

func TestRowsSource(t *testing.T) {
	src := Rows([]string{"1"}, []string{"2"})
	r1, _ := src.NextRow()
	r2, _ := src.NextRow()
	_, ok := src.NextRow()
	assert.Equal(t, []string{"1"}, r1)
	assert.Equal(t, []string{"2"}, r2)
	assert.False(t, ok)
}
