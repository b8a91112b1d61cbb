package budgetauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that are malformed, forged or expired.
var ErrInvalidToken = errors.New("invalid budget confirmation token")

// Grant is the over-budget guest add the user is asked to approve.
type Grant struct {
	DateKey        string  `json:"date"`
	Slot           string  `json:"slot"`
	ItemID         string  `json:"item_id"`
	MealID         string  `json:"meal_id"`
	Amount         float64 `json:"amount"`
	SameRestaurant bool    `json:"same_restaurant"`
}

type claims struct {
	Grant
	jwt.RegisteredClaims
}

// Authorizer signs and verifies budget confirmation tokens with HS256.
type Authorizer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthorizer creates an Authorizer. A non-positive ttl defaults to 15 minutes.
func NewAuthorizer(secret string, ttl time.Duration) *Authorizer {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Authorizer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for g and its expiry.
func (a *Authorizer) Issue(g Grant) (string, time.Time, error) {
	now := a.now()
	expiresAt := now.Add(a.ttl)

	c := claims{
		Grant: g,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   g.DateKey + "/" + g.Slot,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign confirmation token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry and returns the grant.
func (a *Authorizer) Verify(tokenString string) (Grant, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return c.Grant, nil
}
