package delimited

import (
	"bufio"
	"io"
	"strings"
)

const maxLineBytes = 16 * 1024 * 1024

// RowSource yields one token row per logical record. A source that can
// fail should also implement Err.
type RowSource interface {
	NextRow() ([]string, bool)
}

type errSource interface {
	Err() error
}

// Rows returns a source over rows already held in memory.
func Rows(rows ...[]string) RowSource {
	return &sliceRows{rows: rows}
}

type sliceRows struct {
	rows [][]string
	next int
}

func (s *sliceRows) NextRow() ([]string, bool) {
	if s.next >= len(s.rows) {
		return nil, false
	}
	row := s.rows[s.next]
	s.next++
	return row, true
}

// Tokenizer splits lines from a reader into token rows. Tokens are trimmed
// of surrounding whitespace. A field wrapped in the quote character may
// contain the delimiter, and a doubled quote inside it stands for one quote.
// Blank lines produce empty rows; comment lines are dropped.
type Tokenizer struct {
	scanner   *bufio.Scanner
	delimiter byte
	quote     byte
	comment   string
	line      int
}

// TokenizerOption configures a Tokenizer.
type TokenizerOption func(*Tokenizer)

// WithDelimiter sets the field separator. The default is a comma. Every
// delimiter separates exactly two fields, so runs of it yield empty fields.
func WithDelimiter(d byte) TokenizerOption {
	return func(t *Tokenizer) { t.delimiter = d }
}

// WithQuote sets the quote character. Zero disables quoting.
func WithQuote(q byte) TokenizerOption {
	return func(t *Tokenizer) { t.quote = q }
}

// WithComment sets the prefix that marks a comment line. Empty disables
// comments. The default is "#".
func WithComment(prefix string) TokenizerOption {
	return func(t *Tokenizer) { t.comment = prefix }
}

// NewTokenizer reads rows from r.
func NewTokenizer(r io.Reader, opts ...TokenizerOption) *Tokenizer {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	t := &Tokenizer{
		scanner:   sc,
		delimiter: ',',
		quote:     '"',
		comment:   "#",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NextRow returns the next non-comment row.
func (t *Tokenizer) NextRow() ([]string, bool) {
	for t.scanner.Scan() {
		t.line++
		line := strings.TrimRight(t.scanner.Text(), "\r")
		if t.comment != "" && strings.HasPrefix(strings.TrimLeft(line, " \t"), t.comment) {
			continue
		}
		if strings.TrimSpace(line) == "" {
			return []string{}, true
		}
		return splitRow(line, t.delimiter, t.quote), true
	}
	return nil, false
}

// Line is the 1-based number of the last physical line read.
func (t *Tokenizer) Line() int { return t.line }

// Err returns the first read error, if any.
func (t *Tokenizer) Err() error { return t.scanner.Err() }

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

// splitRow splits line on delim outside of quotes. Empty fields are kept.
func splitRow(line string, delim, quote byte) []string {
	var (
		fields   []string
		cur      strings.Builder
		inQuotes bool
		quoted   bool
		closed   bool
	)
	emit := func() {
		s := cur.String()
		if !quoted {
			s = strings.TrimSpace(s)
		}
		fields = append(fields, s)
		cur.Reset()
		quoted, closed = false, false
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0 && inQuotes && c == quote:
			if i+1 < len(line) && line[i+1] == quote {
				cur.WriteByte(quote)
				i++
				continue
			}
			inQuotes = false
			closed = true
		case quote != 0 && c == quote && !quoted && strings.TrimSpace(cur.String()) == "":
			cur.Reset()
			inQuotes = true
			quoted = true
		case !inQuotes && c == delim:
			emit()
		case closed && isSpace(c):
		default:
			cur.WriteByte(c)
		}
	}
	emit()
	return fields
}

// needsQuoting reports whether token must be quoted to survive splitRow.
// Empty tokens are quoted under a whitespace delimiter, where an all-empty
// row would otherwise read back as a blank line.
func needsQuoting(token string, delim, quote byte) bool {
	if token == "" {
		return isSpace(delim)
	}
	if strings.IndexByte(token, delim) >= 0 || strings.ContainsAny(token, "\r\n") {
		return true
	}
	if quote != 0 && strings.IndexByte(token, quote) >= 0 {
		return true
	}
	return isSpace(token[0]) || isSpace(token[len(token)-1])
}

// joinRow is the inverse of splitRow.
func joinRow(w *bufio.Writer, tokens []string, delim, quote byte) error {
	for i, tok := range tokens {
		if i > 0 {
			if err := w.WriteByte(delim); err != nil {
				return err
			}
		}
		if quote != 0 && needsQuoting(tok, delim, quote) {
			q := string(quote)
			tok = q + strings.ReplaceAll(tok, q, q+q) + q
		}
		if _, err := w.WriteString(tok); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}
