package delimited

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atwilso/tracktable/pkg/models"
)

// PointHeaderMagic is the first token of a point header row. It cannot be
// a coordinate, timestamp or reasonable object id.
const PointHeaderMagic = "*P*"

// MaxDimension bounds the dimension a header may declare.
const MaxDimension = 1024

// headerFixedTokens counts the tokens before the property pairs: magic,
// domain, dimension, object id flag, timestamp flag, property count.
const headerFixedTokens = 6

// Header declares the layout of the data rows that follow it. Property
// types are written as the numeric tags of models.PropertyKind.
//
//	*P* domain dimension has_object_id has_timestamp k (tag name)*k
type Header struct {
	Domain        string
	Dimension     int
	HasObjectID   bool
	HasTimestamp  bool
	PropertyNames []string
	PropertyKinds []models.PropertyKind
}

// IsHeader reports whether row starts with the point header magic.
func IsHeader(row []string) bool {
	return len(row) > 0 && row[0] == PointHeaderMagic
}

// ParseHeader decodes one complete header row. The row must contain
// exactly the number of tokens its property count implies.
func ParseHeader(tokens []string) (Header, error) {
	h, n, err := parseHeaderPrefix(tokens)
	if err != nil {
		return Header{}, err
	}
	if n != len(tokens) {
		return Header{}, &HeaderError{
			Field:  "property count",
			Reason: fmt.Sprintf("row has %d tokens, header declares %d", len(tokens), n),
		}
	}
	return h, nil
}

// parseHeaderPrefix decodes a header from the front of tokens and returns
// how many tokens it used. Trailing tokens are left for the caller.
func parseHeaderPrefix(tokens []string) (Header, int, error) {
	var h Header
	if len(tokens) < headerFixedTokens {
		return h, 0, &HeaderError{Field: "row", Reason: "too few tokens for a header"}
	}
	if tokens[0] != PointHeaderMagic {
		return h, 0, &HeaderError{Field: "magic", Token: tokens[0], Reason: "missing header magic"}
	}

	h.Domain = tokens[1]

	dim, err := strconv.Atoi(strings.TrimSpace(tokens[2]))
	if err != nil || dim < 1 {
		return h, 0, &HeaderError{Field: "dimension", Token: tokens[2], Reason: "must be a positive integer"}
	}
	if dim > MaxDimension {
		return h, 0, &HeaderError{Field: "dimension", Token: tokens[2], Reason: fmt.Sprintf("exceeds %d", MaxDimension)}
	}
	h.Dimension = dim

	if h.HasObjectID, err = parseFlag(tokens[3]); err != nil {
		return h, 0, &HeaderError{Field: "object id flag", Token: tokens[3], Reason: "must be 0 or 1"}
	}
	if h.HasTimestamp, err = parseFlag(tokens[4]); err != nil {
		return h, 0, &HeaderError{Field: "timestamp flag", Token: tokens[4], Reason: "must be 0 or 1"}
	}

	count, err := strconv.Atoi(strings.TrimSpace(tokens[5]))
	if err != nil || count < 0 {
		return h, 0, &HeaderError{Field: "property count", Token: tokens[5], Reason: "must be a non-negative integer"}
	}

	if count > (len(tokens)-headerFixedTokens)/2 {
		return h, 0, &HeaderError{
			Field:  "property count",
			Reason: fmt.Sprintf("declares %d properties but row ends early", count),
		}
	}
	needed := headerFixedTokens + 2*count

	if count > 0 {
		h.PropertyNames = make([]string, 0, count)
		h.PropertyKinds = make([]models.PropertyKind, 0, count)
	}
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		tag := tokens[headerFixedTokens+2*i]
		name := tokens[headerFixedTokens+2*i+1]

		kind, err := models.ParsePropertyKind(tag)
		if err != nil {
			return h, 0, &HeaderError{Field: "property type", Token: tag, Reason: "unrecognized type tag"}
		}
		if name == "" {
			return h, 0, &HeaderError{Field: "property name", Reason: "empty name"}
		}
		if _, dup := seen[name]; dup {
			return h, 0, &HeaderError{Field: "property name", Token: name, Reason: "duplicate name"}
		}
		seen[name] = struct{}{}

		h.PropertyNames = append(h.PropertyNames, name)
		h.PropertyKinds = append(h.PropertyKinds, kind)
	}
	return h, needed, nil
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Validate checks the invariants ParseHeader enforces, for headers built
// in code.
func (h Header) Validate() error {
	if h.Dimension < 1 {
		return &HeaderError{Field: "dimension", Token: strconv.Itoa(h.Dimension), Reason: "must be a positive integer"}
	}
	if h.Dimension > MaxDimension {
		return &HeaderError{Field: "dimension", Token: strconv.Itoa(h.Dimension), Reason: fmt.Sprintf("exceeds %d", MaxDimension)}
	}
	if len(h.PropertyNames) != len(h.PropertyKinds) {
		return &HeaderError{Field: "properties", Reason: "names and kinds differ in length"}
	}
	seen := make(map[string]struct{}, len(h.PropertyNames))
	for i, name := range h.PropertyNames {
		if !h.PropertyKinds[i].Valid() {
			return &HeaderError{Field: "property type", Token: h.PropertyKinds[i].String(), Reason: "unrecognized type tag"}
		}
		if name == "" {
			return &HeaderError{Field: "property name", Reason: "empty name"}
		}
		if _, dup := seen[name]; dup {
			return &HeaderError{Field: "property name", Token: name, Reason: "duplicate name"}
		}
		seen[name] = struct{}{}
	}
	return nil
}

// TokenCount is the length of the encoded header.
func (h Header) TokenCount() int {
	return headerFixedTokens + 2*len(h.PropertyNames)
}

// RecordLength is the number of tokens in one data row under this header.
func (h Header) RecordLength() int {
	n := h.Dimension + len(h.PropertyNames)
	if h.HasObjectID {
		n++
	}
	if h.HasTimestamp {
		n++
	}
	return n
}

// Tokens encodes the header. ParseHeader(h.Tokens()) reproduces h.
func (h Header) Tokens() []string {
	out := make([]string, 0, h.TokenCount())
	out = append(out,
		PointHeaderMagic,
		h.Domain,
		strconv.Itoa(h.Dimension),
		formatFlag(h.HasObjectID),
		formatFlag(h.HasTimestamp),
		strconv.Itoa(len(h.PropertyNames)),
	)
	for i, name := range h.PropertyNames {
		out = append(out, strconv.Itoa(int(h.PropertyKinds[i])), name)
	}
	return out
}

// HeaderFor describes the layout a writer uses for points like p. Property
// names are taken from p in sorted order.
func HeaderFor(p models.Point) Header {
	traits := p.Traits()
	h := Header{
		Domain:       traits.Domain,
		Dimension:    traits.Dimension,
		HasObjectID:  traits.HasObjectID,
		HasTimestamp: traits.HasTimestamp,
	}
	if traits.HasProperties {
		for name, v := range models.PropertiesOf(p).All() {
			h.PropertyNames = append(h.PropertyNames, name)
			h.PropertyKinds = append(h.PropertyKinds, v.Kind())
		}
	}
	return h
}
