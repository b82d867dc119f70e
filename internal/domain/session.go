package domain

// TokenPair is the access/refresh token pair issued by the auth endpoints.
// Both fields are opaque to the client; a pair is always replaced whole.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty reports whether the pair carries no usable tokens.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// User is the authenticated staff profile.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Credentials is the durable session record held by the vault. Tokens and
// user profile are persisted and loaded as one unit so a restart can never
// observe a partially written session.
type Credentials struct {
	Tokens TokenPair `json:"tokens"`
	User   *User     `json:"user,omitempty"`
}

// Complete reports whether all three session fields are present: access
// token, refresh token and user profile.
func (c *Credentials) Complete() bool {
	return c != nil &&
		c.Tokens.AccessToken != "" &&
		c.Tokens.RefreshToken != "" &&
		c.User != nil
}
