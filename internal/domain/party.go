package domain

import "strings"

// RawParty is a responsible party as extracted from a source.
type RawParty struct {
	NativeID string
	FullName *string
	Email    *string
}

// Party is a conformed row of the responsible-party dimension.
type Party struct {
	NativeID  string
	Source    SourceSystem
	FirstName string
	Surname   *string
	FullName  string
	Email     *string
}

// SplitFullName splits a trimmed full name at its first whitespace run. The
// surname is nil, not empty, when the name is a single word. ok is false for
// blank names.
func SplitFullName(full string) (first string, surname *string, ok bool) {
	trimmed := strings.TrimSpace(full)
	if trimmed == "" {
		return "", nil, false
	}
	idx := strings.IndexFunc(trimmed, isSpace)
	if idx < 0 {
		return trimmed, nil, true
	}
	rest := strings.TrimSpace(trimmed[idx:])
	return trimmed[:idx], &rest, true
}

// NewParty conforms a raw party for the given source. ok is false when the
// raw party has no usable name and must be skipped.
func NewParty(raw RawParty, source SourceSystem) (Party, bool) {
	if raw.FullName == nil || strings.TrimSpace(raw.NativeID) == "" {
		return Party{}, false
	}
	first, surname, ok := SplitFullName(*raw.FullName)
	if !ok {
		return Party{}, false
	}
	return Party{
		NativeID:  raw.NativeID,
		Source:    source,
		FirstName: first,
		Surname:   surname,
		FullName:  strings.TrimSpace(*raw.FullName),
		Email:     raw.Email,
	}, true
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
