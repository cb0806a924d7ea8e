package auth

import "say-something/internal/domain"

// Identity is the server-verified view of who is calling.
type Identity struct {
	ChannelID    string
	UserID       string
	OpaqueUserID string
	Role         domain.Role
}

// IdentityFromClaims projects verified claims. Unknown roles become viewers.
func IdentityFromClaims(c Claims) Identity {
	return Identity{
		ChannelID:    c.ChannelID,
		UserID:       c.UserID,
		OpaqueUserID: c.OpaqueUserID,
		Role:         domain.ParseRole(c.Role),
	}
}

// HasSharedID reports whether the viewer granted their real user id.
func (i Identity) HasSharedID() bool {
	return i.UserID != ""
}
