package model

// AccessScope says which authorization query decided a request.
type AccessScope string

const (
	ScopeClass   AccessScope = "class"
	ScopeGeneral AccessScope = "general"
)

// AccessOutcome is the terminal state of the access check.
type AccessOutcome string

const (
	OutcomeGranted    AccessOutcome = "granted"
	OutcomeDenied     AccessOutcome = "denied"
	OutcomeRedirected AccessOutcome = "redirected"
)
