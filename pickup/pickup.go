// Package pickup issues and verifies the signed token a customer presents
// at the counter. The token is the QR payload; rendering it as an image is
// a frontend concern.
package pickup

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired pickup token")

// TokenValidity is how long a pickup token stays usable after fulfillment.
const TokenValidity = 24 * time.Hour

type Claims struct {
	OrderID string `json:"order_id"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies pickup tokens with a shared secret.
type Issuer struct {
	secret   []byte
	validity time.Duration
}

func NewIssuer(secret []byte) *Issuer {
	return &Issuer{secret: secret, validity: TokenValidity}
}

// NewIssuerWithValidity is used by tests to exercise expiry.
func NewIssuerWithValidity(secret []byte, validity time.Duration) *Issuer {
	return &Issuer{secret: secret, validity: validity}
}

// Issue creates a signed token bound to a human order id.
func (i *Issuer) Issue(orderID string) (string, error) {
	now := time.Now()
	claims := Claims{
		OrderID: orderID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.validity)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify checks signature and validity window and returns the claims.
func (i *Issuer) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.OrderID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
