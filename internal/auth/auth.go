package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// IssuePlayerToken signs an HS256 token carrying player_id.
func IssuePlayerToken(secret string, playerID int, displayName string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := jwt.MapClaims{
		"player_id":    playerID,
		"display_name": displayName,
		"exp":          jwt.NewNumericDate(exp).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign player token: %w", err)
	}
	return signed, exp, nil
}

// IssueAdminToken signs an HS256 token for an admin session.
func IssueAdminToken(secret, username string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := jwt.MapClaims{
		"admin": username,
		"exp":   jwt.NewNumericDate(exp).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin token: %w", err)
	}
	return signed, exp, nil
}

func parse(secret, token string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParsePlayerToken validates token and returns its player_id.
func ParsePlayerToken(secret, token string) (int, error) {
	claims, err := parse(secret, token)
	if err != nil {
		return 0, err
	}
	playerIDf, ok := claims["player_id"].(float64)
	if !ok || playerIDf <= 0 {
		return 0, ErrInvalidToken
	}
	return int(playerIDf), nil
}

// ParseAdminToken validates token and returns the admin username.
func ParseAdminToken(secret, token string) (string, error) {
	claims, err := parse(secret, token)
	if err != nil {
		return "", err
	}
	username, ok := claims["admin"].(string)
	if !ok || username == "" {
		return "", ErrInvalidToken
	}
	return username, nil
}
