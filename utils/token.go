package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// GenerateToken signs an HS256 token for userID. The id is stored as a
// string because JSON numbers lose precision above 2^53.
func GenerateToken(secret []byte, userID int64, kind TokenType, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("JWT secret is not configured")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": strconv.FormatInt(userID, 10),
		"type":    string(kind),
		"exp":     time.Now().Add(ttl).Unix(),
	})

	return token.SignedString(secret)
}

// ParseToken validates the signature, expiry and type and returns the user id.
func ParseToken(secret []byte, tokenString string, kind TokenType) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	if t, _ := claims["type"].(string); t != string(kind) {
		return 0, ErrInvalidToken
	}
	raw, _ := claims["user_id"].(string)
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
