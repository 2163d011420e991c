package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Class tags a token as short-lived access credential or long-lived
// refresh credential.
type Class string

const (
	ClassAccess  Class = "access"
	ClassRefresh Class = "refresh"
)

// Claims is the signed payload. The class tag travels inside the token so
// the verifying side can reject cross-class use.
type Claims struct {
	Class string `json:"cls"`
	jwt.RegisteredClaims
}

// Token is the decoded, verified form. It is reconstructed from the signed
// payload on every request and never persisted.
type Token struct {
	Subject   string
	Class     Class
	ID        string // jti
	IssuedAt  time.Time
	ExpiresAt time.Time
	Signature string
	Raw       string
}

// Codec encodes and decodes signed expiring tokens. Access and refresh
// tokens are signed with distinct secrets; verification always selects the
// secret from the expected class, never from anything the token claims.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
}

func NewCodec(accessSecret, refreshSecret []byte, issuer string) (*Codec, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, errors.New("token: signing secrets are required")
	}
	if string(accessSecret) == string(refreshSecret) {
		return nil, errors.New("token: access and refresh secrets must differ")
	}
	return &Codec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
	}, nil
}

// Encode signs a token of the given class with issuedAt=now and
// expiresAt=now+ttl.
func (c *Codec) Encode(subject string, class Class, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("token: non-positive ttl %v", ttl)
	}
	now := time.Now()
	claims := Claims{
		Class: string(class),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secretFor(class))
}

// Decode verifies signature, expiry and class. The four failure modes are
// distinguished so callers can surface different machine codes: a
// structurally broken string maps to ErrTokenMalformed, a past expiry to
// ErrTokenExpired, a token minted under the other class's secret to
// ErrTokenClassMismatch, and everything else to ErrTokenSignature.
func (c *Codec) Decode(tokenString string, expected Class) (*Token, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
	)

	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secretFor(expected), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			// A token correctly signed under the other class's secret is a
			// cross-class presentation, not a forgery.
			if c.verifiesAs(tokenString, otherClass(expected)) {
				return nil, ErrTokenClassMismatch
			}
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenSignature
		}
	}
	if !tok.Valid {
		return nil, ErrTokenSignature
	}
	if Class(claims.Class) != expected {
		return nil, ErrTokenClassMismatch
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}

	return &Token{
		Subject:   claims.Subject,
		Class:     Class(claims.Class),
		ID:        claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		Signature: Signature(tokenString),
		Raw:       tokenString,
	}, nil
}

// verifiesAs reports whether the signature verifies under the secret of
// the given class. Claims validation is skipped: an expired token signed
// with the wrong class's secret is still a class mismatch.
func (c *Codec) verifiesAs(tokenString string, class Class) bool {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.secretFor(class), nil
	})
	return err == nil
}

func (c *Codec) secretFor(class Class) []byte {
	if class == ClassRefresh {
		return c.refreshSecret
	}
	return c.accessSecret
}

func otherClass(class Class) Class {
	if class == ClassAccess {
		return ClassRefresh
	}
	return ClassAccess
}

// Signature returns the signature segment of a compact JWT, used as the
// revocation key. Returns the whole string when it does not look like a
// JWT so revocation still keys on something stable.
func Signature(tokenString string) string {
	if idx := strings.LastIndexByte(tokenString, '.'); idx >= 0 {
		return tokenString[idx+1:]
	}
	return tokenString
}
