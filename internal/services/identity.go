package services

import "boutique/internal/models"

// IdentitySource tells which lane authenticated a request.
type IdentitySource int

const (
	Unauthenticated IdentitySource = iota
	SessionIdentity
	TokenIdentity
)

func (s IdentitySource) String() string {
	switch s {
	case SessionIdentity:
		return "session"
	case TokenIdentity:
		return "token"
	default:
		return "unauthenticated"
	}
}

// Identity is the resolved caller of a request.
type Identity struct {
	Source IdentitySource
	User   models.UserSnapshot
}

func (i Identity) Authenticated() bool {
	return i.Source != Unauthenticated
}
