package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleManager is the only role a session can hold. Staff submit without a
// session.
const RoleManager = "manager"

const SessionTTL = 12 * time.Hour

type ManagerClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a manager session token. The token id lets request
// logs tell sessions apart.
func GenerateToken(secret string, now time.Time) (string, time.Time, error) {
	expires := now.Add(SessionTTL)
	claims := &ManagerClaims{
		Role: RoleManager,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   RoleManager,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

func parseToken(secret, tokenStr string) (*ManagerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ManagerClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(*ManagerClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
