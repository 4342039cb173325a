package domain

// Credentials is the persisted token pair. Invariant: both tokens are
// present or both are absent; a half-authenticated pair is never
// stored. The backend does not rotate refresh tokens, so a refresh
// replaces only the access token.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

func (c Credentials) Valid() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}
