// Package auth verifies the HS256 access tokens that carry the caller's
// account id.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the wallet account id.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"account_id"`
}

// GenerateToken signs a token for accountID valid for validity.
func GenerateToken(accountID string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		AccountID: accountID,
	})
	return token.SignedString(secretKey)
}

// AccountIDFromToken validates tokenString and returns its account id.
// Expired tokens yield common.ErrTokenExpired, everything else
// common.ErrInvalidToken.
func AccountIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}
	if !token.Valid || claims.AccountID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.AccountID, nil
}
