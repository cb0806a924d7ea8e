// Package panel models the client side of the extension: the cached viewer
// session, the panel configuration, and the panel state driven by platform
// callbacks. Nothing here is trusted by the API.
package panel

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"say-something/internal/auth"
	"say-something/internal/domain"
)

// Session is the last token handed to the panel by the platform, decoded
// without verification for display decisions only.
type Session struct {
	Token         string
	OpaqueID      string
	ChannelID     string
	UserID        string
	Role          string
	IsModerator   bool
	IsBroadcaster bool
	IsLoggedIn    bool
}

var unverified = jwt.NewParser()

// SetToken replaces the session. A token that cannot be decoded leaves an
// empty session behind.
func (s *Session) SetToken(token, opaqueID string) {
	var claims auth.Claims
	if _, _, err := unverified.ParseUnverified(token, &claims); err != nil || claims.OpaqueUserID == "" {
		*s = Session{}
		return
	}
	role := domain.Role(claims.Role)
	*s = Session{
		Token:         token,
		OpaqueID:      opaqueID,
		ChannelID:     claims.ChannelID,
		UserID:        claims.UserID,
		Role:          claims.Role,
		IsModerator:   role == domain.RoleModerator || role == domain.RoleBroadcaster,
		IsBroadcaster: role == domain.RoleBroadcaster,
		IsLoggedIn:    strings.HasPrefix(claims.OpaqueUserID, "U"),
	}
}

func (s Session) HasSharedID() bool { return s.UserID != "" }

func (s Session) IsAuthenticated() bool { return s.Token != "" && s.OpaqueID != "" }
