package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		name    string
		full    string
		first   string
		surname *string
		ok      bool
	}{
		{name: "two words", full: "Ana Souza", first: "Ana", surname: strPtr("Souza"), ok: true},
		{name: "compound surname", full: "Ana Maria de Souza", first: "Ana", surname: strPtr("Maria de Souza"), ok: true},
		{name: "single word", full: "Ana", first: "Ana", surname: nil, ok: true},
		{name: "padded", full: "  Ana   Souza  ", first: "Ana", surname: strPtr("Souza"), ok: true},
		{name: "tab separated", full: "Ana\tSouza", first: "Ana", surname: strPtr("Souza"), ok: true},
		{name: "blank", full: "   ", ok: false},
		{name: "empty", full: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, surname, ok := SplitFullName(tt.full)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.surname, surname)
		})
	}
}

func TestNewParty(t *testing.T) {
	party, ok := NewParty(RawParty{NativeID: "42", FullName: strPtr(" Bruno Lima "), Email: strPtr("bruno@example.com")}, SourceOcta)
	require.True(t, ok)
	assert.Equal(t, "42", party.NativeID)
	assert.Equal(t, SourceOcta, party.Source)
	assert.Equal(t, "Bruno", party.FirstName)
	assert.Equal(t, strPtr("Lima"), party.Surname)
	assert.Equal(t, "Bruno Lima", party.FullName)
	assert.Equal(t, strPtr("bruno@example.com"), party.Email)

	_, ok = NewParty(RawParty{NativeID: "43"}, SourceOcta)
	assert.False(t, ok)

	_, ok = NewParty(RawParty{NativeID: "44", FullName: strPtr("")}, SourceSults)
	assert.False(t, ok)

	_, ok = NewParty(RawParty{NativeID: "", FullName: strPtr("No Id")}, SourceSults)
	assert.False(t, ok)
}

func TestParseSourceSystem(t *testing.T) {
	src, err := ParseSourceSystem("octa")
	require.NoError(t, err)
	assert.Equal(t, SourceOcta, src)
	assert.Equal(t, "octa", src.Key())

	src, err = ParseSourceSystem(" SULTS ")
	require.NoError(t, err)
	assert.Equal(t, SourceSults, src)

	_, err = ParseSourceSystem("zendesk")
	assert.Error(t, err)
}
