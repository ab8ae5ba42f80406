// Package auth implements phone-number login: one-time codes gated on the
// authorized-phone list, signed session tokens, and the mini-program
// code-for-phone exchange.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jinxingedu/kindersync/internal/common"
)

// Claims carries the authenticated phone number inside a session token.
type Claims struct {
	jwt.RegisteredClaims
	Phone string
}

// GenerateToken issues an HS256 session token for a verified phone number.
func GenerateToken(phone string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Phone: phone,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetPhoneFromToken verifies a session token and extracts the phone number.
func GetPhoneFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrorInvalidToken
		}
		return "", err
	}

	if !token.Valid {
		return "", common.ErrorInvalidToken
	}

	return claims.Phone, nil
}
