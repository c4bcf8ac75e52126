package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// AuthService verifies the bearer tokens the forum issues to its users.
type AuthService struct {
	jwtSecret string
}

type TokenClaims struct {
	UserID    int64
	Username  string
	SessionID string
}

func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{jwtSecret: jwtSecret}
}

// IssueToken signs a token in the format VerifyToken accepts.
func (s *AuthService) IssueToken(claims TokenClaims, expiresAt time.Time) (string, error) {
	mapClaims := jwt.MapClaims{
		"sub":      strconv.FormatInt(claims.UserID, 10),
		"username": claims.Username,
		"jti":      claims.SessionID,
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) VerifyToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return nil, ErrInvalidToken
	}

	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return nil, ErrInvalidToken
	}

	// Session ID is optional; presence rate limiting falls back to the user ID.
	sessionID, _ := claims["jti"].(string)

	return &TokenClaims{
		UserID:    userID,
		Username:  username,
		SessionID: sessionID,
	}, nil
}
