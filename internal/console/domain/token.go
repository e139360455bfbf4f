package domain

import "time"

// TokenPair holds the credentials issued once a login attempt reaches the
// verified state. No TokenPair exists while the session is unverified.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // lifetime of the access token in seconds
}

// Empty reports whether the pair carries no usable access token.
func (p TokenPair) Empty() bool {
	return p.AccessToken == ""
}

// ExpiryFrom computes the absolute access-token expiry given the moment the
// pair was received.
func (p TokenPair) ExpiryFrom(receivedAt time.Time) time.Time {
	return receivedAt.Add(time.Duration(p.ExpiresIn) * time.Second)
}
