package domain

// Scope names an API permission carried in a bearer token.
type Scope string

const (
	ScopeReportsRead Scope = "reports:read"
)
