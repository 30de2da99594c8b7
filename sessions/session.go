package sessions

import "time"

// Session is one still-valid refresh-token lineage. A session is created when
// a grant succeeds, its expiry slides forward on every refresh, and deleting
// it revokes both the refresh token and any outstanding access tokens bound
// to its SessionID (access token verification re-checks session liveness).
type Session struct {
	ClientID              string    `json:"clientId"`
	SessionID             string    `json:"sessionId"`
	RefreshToken          string    `json:"refreshToken"`
	UserID                string    `json:"userId"`
	Scope                 string    `json:"scope"`
	CreatedAt             time.Time `json:"createdAt"`
	RefreshTokenCreatedAt time.Time `json:"refreshTokenCreatedAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}
