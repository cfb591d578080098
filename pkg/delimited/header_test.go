package delimited

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atwilso/tracktable/pkg/domain"
	"github.com/atwilso/tracktable/pkg/models"
)

func TestHeaderRoundTrip(t *testing.T) {
	headers := []Header{
		{Domain: "terrestrial", Dimension: 2},
		{Domain: "cartesian3d", Dimension: 3, HasObjectID: true, HasTimestamp: true},
		{
			Domain:        "terrestrial",
			Dimension:     2,
			HasObjectID:   true,
			PropertyNames: []string{"name", "speed", "count", "seen"},
			PropertyKinds: []models.PropertyKind{models.KindString, models.KindReal, models.KindInteger, models.KindTimestamp},
		},
		{Domain: "", Dimension: 30, HasTimestamp: true},
	}

	for _, h := range headers {
		t.Run(h.Domain, func(t *testing.T) {
			require.NoError(t, h.Validate())
			tokens := h.Tokens()
			assert.Len(t, tokens, h.TokenCount())

			got, err := ParseHeader(tokens)
			require.NoError(t, err)
			if diff := cmp.Diff(h, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHeaderTokens(t *testing.T) {
	h := Header{
		Domain:        "terrestrial",
		Dimension:     2,
		HasObjectID:   true,
		PropertyNames: []string{"name"},
		PropertyKinds: []models.PropertyKind{models.KindString},
	}
	assert.Equal(t, []string{"*P*", "terrestrial", "2", "1", "0", "1", "2", "name"}, h.Tokens())
}

func TestParseHeaderAcceptsKindNames(t *testing.T) {
	h, err := ParseHeader([]string{"*P*", "cartesian2d", "2", "true", "False", "2", "Real", "speed", "timestamp", "seen"})
	require.NoError(t, err)
	assert.True(t, h.HasObjectID)
	assert.False(t, h.HasTimestamp)
	assert.Equal(t, []models.PropertyKind{models.KindReal, models.KindTimestamp}, h.PropertyKinds)
}

func TestParseHeaderErrors(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		field  string
	}{
		{"too short", []string{"*P*", "terrestrial", "2"}, "row"},
		{"wrong magic", []string{"*T*", "terrestrial", "2", "0", "0", "0"}, "magic"},
		{"zero dimension", []string{"*P*", "terrestrial", "0", "0", "0", "0"}, "dimension"},
		{"negative dimension", []string{"*P*", "terrestrial", "-2", "0", "0", "0"}, "dimension"},
		{"text dimension", []string{"*P*", "terrestrial", "two", "0", "0", "0"}, "dimension"},
		{"huge dimension", []string{"*P*", "terrestrial", "9223372036854775807", "1", "0", "1", "2", "name"}, "dimension"},
		{"dimension past bound", []string{"*P*", "feature_vector", "1025", "0", "0", "0"}, "dimension"},
		{"bad flag", []string{"*P*", "terrestrial", "2", "yes", "0", "0"}, "object id flag"},
		{"bad timestamp flag", []string{"*P*", "terrestrial", "2", "0", "2", "0"}, "timestamp flag"},
		{"count too large", []string{"*P*", "terrestrial", "2", "0", "0", "2", "1", "a"}, "property count"},
		{"huge count", []string{"*P*", "terrestrial", "2", "0", "0", "9223372036854775807", "1", "a"}, "property count"},
		{"count too small", []string{"*P*", "terrestrial", "2", "0", "0", "0", "1", "a"}, "property count"},
		{"bad tag", []string{"*P*", "terrestrial", "2", "0", "0", "1", "9", "a"}, "property type"},
		{"duplicate name", []string{"*P*", "terrestrial", "2", "0", "0", "2", "1", "a", "2", "a"}, "property name"},
		{"empty name", []string{"*P*", "terrestrial", "2", "0", "0", "1", "1", ""}, "property name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(tt.tokens)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat))

			var herr *HeaderError
			require.True(t, errors.As(err, &herr))
			assert.Equal(t, tt.field, herr.Field)
		})
	}
}

func TestIsHeader(t *testing.T) {
	assert.True(t, IsHeader([]string{"*P*"}))
	assert.False(t, IsHeader([]string{"*T*"}))
	assert.False(t, IsHeader(nil))
	assert.False(t, IsHeader([]string{" *P*"}))
}

func TestHeaderFor(t *testing.T) {
	p := domain.NewTerrestrialTrajectoryPoint(1, 2)
	p.Properties().SetReal("speed", 3)
	p.Properties().SetString("name", "Alice")

	h := HeaderFor(p)
	want := Header{
		Domain:        "terrestrial",
		Dimension:     2,
		HasObjectID:   true,
		HasTimestamp:  true,
		PropertyNames: []string{"name", "speed"},
		PropertyKinds: []models.PropertyKind{models.KindString, models.KindReal},
	}
	if diff := cmp.Diff(want, h); diff != "" {
		t.Errorf("HeaderFor mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 6, h.RecordLength())

	base := HeaderFor(domain.NewCartesian3DPoint(1, 2, 3))
	assert.Equal(t, 3, base.RecordLength())
	assert.Empty(t, base.PropertyNames)
}

func TestHeaderValidate(t *testing.T) {
	assert.Error(t, Header{Dimension: 0}.Validate())
	assert.Error(t, Header{Dimension: MaxDimension + 1}.Validate())
	assert.Error(t, Header{Dimension: 2, PropertyNames: []string{"a"}}.Validate())
	assert.Error(t, Header{
		Dimension:     2,
		PropertyNames: []string{"a"},
		PropertyKinds: []models.PropertyKind{models.KindUnknown},
	}.Validate())
}
