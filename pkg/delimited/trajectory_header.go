package delimited

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/atwilso/tracktable/pkg/models"
	"github.com/atwilso/tracktable/pkg/timestamp"
)

// TrajectoryHeaderMagic is the first token of a trajectory row.
const TrajectoryHeaderMagic = "*T*"

// TrajectoryHeader precedes the points of one trajectory on the same row:
//
//	*T* [uuid] domain num_points k (name tag value)*k
//
// The UUID is optional when reading; rows written without one get a fresh
// UUID.
type TrajectoryHeader struct {
	UUID       uuid.UUID
	Domain     string
	NumPoints  int
	Properties models.PropertyMap
}

// ParseTrajectoryHeader decodes a trajectory header from the front of
// tokens and returns how many tokens it used.
func ParseTrajectoryHeader(tokens []string, conv *timestamp.Converter) (TrajectoryHeader, int, error) {
	var h TrajectoryHeader
	if len(tokens) == 0 || tokens[0] != TrajectoryHeaderMagic {
		return h, 0, &HeaderError{Field: "magic", Reason: "missing trajectory header magic"}
	}
	pos := 1

	if pos < len(tokens) {
		if id, err := uuid.Parse(tokens[pos]); err == nil {
			h.UUID = id
			pos++
		}
	}
	if h.UUID == uuid.Nil {
		h.UUID = uuid.New()
	}

	if len(tokens) < pos+3 {
		return h, 0, &HeaderError{Field: "row", Reason: "too few tokens for a trajectory header"}
	}
	h.Domain = tokens[pos]

	n, err := strconv.Atoi(strings.TrimSpace(tokens[pos+1]))
	if err != nil || n < 0 {
		return h, 0, &HeaderError{Field: "point count", Token: tokens[pos+1], Reason: "must be a non-negative integer"}
	}
	h.NumPoints = n

	count, err := strconv.Atoi(strings.TrimSpace(tokens[pos+2]))
	if err != nil || count < 0 {
		return h, 0, &HeaderError{Field: "property count", Token: tokens[pos+2], Reason: "must be a non-negative integer"}
	}
	pos += 3

	if count > (len(tokens)-pos)/3 {
		return h, 0, &HeaderError{
			Field:  "property count",
			Reason: fmt.Sprintf("declares %d properties but row ends early", count),
		}
	}
	for i := 0; i < count; i++ {
		name, tag, text := tokens[pos], tokens[pos+1], tokens[pos+2]
		pos += 3

		kind, err := models.ParsePropertyKind(tag)
		if err != nil {
			return h, 0, &HeaderError{Field: "property type", Token: tag, Reason: "unrecognized type tag"}
		}
		if conv.IsNull(text) {
			continue
		}
		v, err := ParseValue(text, kind, conv)
		if err != nil {
			return h, 0, &HeaderError{Field: "property value", Token: text, Reason: fmt.Sprintf("cannot read %s for %q", kind, name)}
		}
		h.Properties.Set(name, v)
	}
	return h, pos, nil
}

// Tokens encodes the header with its UUID.
func (h *TrajectoryHeader) Tokens(conv *timestamp.Converter, precision int) []string {
	out := []string{
		TrajectoryHeaderMagic,
		h.UUID.String(),
		h.Domain,
		strconv.Itoa(h.NumPoints),
		strconv.Itoa(h.Properties.Len()),
	}
	for name, v := range h.Properties.All() {
		out = append(out, name, strconv.Itoa(int(v.Kind())), FormatValue(v, conv, precision))
	}
	return out
}
