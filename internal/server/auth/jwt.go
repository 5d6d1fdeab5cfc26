// Package auth issues and verifies operator tokens for the decision API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/hotspotkeeper/internal/common"
)

// Claims holds the registered claims plus the operator name. Subject
// mirrors Operator for generic JWT tooling.
type Claims struct {
	jwt.RegisteredClaims
	Operator string `json:"operator"`
}

// GenerateToken signs an HS256 token for operator that expires after
// validityDuration.
func GenerateToken(operator string, secretKey []byte, validityDuration time.Duration) (string, error) {
	if operator == "" {
		return "", fmt.Errorf("operator is required: %w", common.ErrorValidation)
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Operator: operator,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetOperatorFromToken verifies tokenString and returns its operator.
// Expired tokens yield common.ErrTokenExpired; every other failure
// common.ErrInvalidToken.
func GetOperatorFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Operator == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Operator, nil
}
