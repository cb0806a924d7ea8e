package domain

// Role is the extension role carried in a session token.
type Role string

const (
	RoleViewer      Role = "viewer"
	RoleModerator   Role = "moderator"
	RoleBroadcaster Role = "broadcaster"

	// RoleExternal is only ever minted by the backend for platform calls.
	RoleExternal Role = "external"
)

// ParseRole maps a claim value onto a viewer-facing role. Anything outside
// the closed set, including RoleExternal, is treated as a viewer.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleModerator, RoleBroadcaster:
		return Role(s)
	default:
		return RoleViewer
	}
}

// CanModerate reports whether the role may complete suggestions.
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleBroadcaster
}
