package panel

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"say-something/internal/auth"
)

// panelToken signs with a key the panel never sees; decoding is unverified.
func panelToken(t *testing.T, channelID, userID, opaqueID, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		ChannelID:    channelID,
		UserID:       userID,
		OpaqueUserID: opaqueID,
		Role:         role,
	}).SignedString([]byte("platform-only"))
	require.NoError(t, err)
	return s
}

func TestSession_SetToken_Roles(t *testing.T) {
	cases := []struct {
		role                 string
		moderator, broadcast bool
	}{
		{role: "viewer"},
		{role: "moderator", moderator: true},
		{role: "broadcaster", moderator: true, broadcast: true},
		{role: "external"},
	}
	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			var s Session
			s.SetToken(panelToken(t, "42", "1001", "U1001", tc.role), "U1001")
			require.Equal(t, tc.moderator, s.IsModerator)
			require.Equal(t, tc.broadcast, s.IsBroadcaster)
			require.Equal(t, tc.role, s.Role)
			require.Equal(t, "42", s.ChannelID)
			require.True(t, s.IsLoggedIn)
			require.True(t, s.HasSharedID())
			require.True(t, s.IsAuthenticated())
		})
	}
}

func TestSession_SetToken_AnonymousViewer(t *testing.T) {
	var s Session
	s.SetToken(panelToken(t, "42", "", "A-guest", "viewer"), "A-guest")
	require.False(t, s.IsLoggedIn)
	require.False(t, s.HasSharedID())
	require.True(t, s.IsAuthenticated())
}

func TestSession_SetToken_DecodeFailureResets(t *testing.T) {
	var s Session
	s.SetToken(panelToken(t, "42", "1001", "U1001", "broadcaster"), "U1001")
	require.True(t, s.IsBroadcaster)

	s.SetToken("not.a.jwt", "U1001")
	require.Equal(t, Session{}, s)
	require.False(t, s.IsAuthenticated())

	s.SetToken(panelToken(t, "42", "1001", "", "moderator"), "U1001")
	require.Equal(t, Session{}, s)
}
