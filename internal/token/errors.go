package token

import "errors"

var (
	// ErrTokenMalformed indicates the token string is structurally invalid
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrTokenSignature indicates the signature does not verify under the
	// secret for the expected class
	ErrTokenSignature = errors.New("token signature is invalid")

	// ErrTokenExpired indicates the token's expiry lies in the past
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenClassMismatch indicates a token of one class was presented
	// where the other class is required (e.g. an access token on the
	// refresh path)
	ErrTokenClassMismatch = errors.New("token class mismatch")
)
