package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose separates the two token families. The value is carried in the
// "pur" claim so a refresh token can never pass as an access token even
// if the secrets were ever configured identically.
type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
)

var (
	ErrNoSecret     = errors.New("signing secret is not configured")
	ErrTokenExpired = errors.New("token expired")
	ErrBadSignature = errors.New("invalid token")
)

type Claims struct {
	Purpose Purpose `json:"pur"`
	jwt.RegisteredClaims
}

type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
}

func NewCodec(accessSecret, refreshSecret []byte) (*Codec, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, ErrNoSecret
	}
	return &Codec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		now:           time.Now,
	}, nil
}

// WithClock replaces the codec's time source. Tests use it to verify
// expiry without sleeping.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

func (c *Codec) Sign(subject string, purpose Purpose, ttl time.Duration) (string, error) {
	issued := c.now()
	claims := Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		},
	}
	if purpose == PurposeRefresh {
		// distinct logins in the same second must still mint distinct tokens
		claims.ID = uuid.NewString()
	}
	tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tkn.SignedString(c.secretFor(purpose))
}

// Verify checks the signature and expiry of tokenStr under the secret
// belonging to purpose. Malformed, tampered and cross-purpose tokens all
// collapse to ErrBadSignature; only a genuinely expired token is reported
// as ErrTokenExpired.
func (c *Codec) Verify(tokenStr string, purpose Purpose) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return c.secretFor(purpose), nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrBadSignature
	}
	if !tkn.Valid || claims.Purpose != purpose || claims.Subject == "" {
		return nil, ErrBadSignature
	}
	return &claims, nil
}

func (c *Codec) secretFor(purpose Purpose) []byte {
	if purpose == PurposeRefresh {
		return c.refreshSecret
	}
	return c.accessSecret
}
