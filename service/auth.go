package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

// Claims binds a token to one wallet session.
type Claims struct {
	SessionID string `json:"session_id"`
	jwt.StandardClaims
}

const (
	expireDuration = 24 * time.Hour
)

type AuthService struct {
	JWTSecret []byte
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{
		JWTSecret: []byte(secret),
	}
}

// TokenLifetime is how long a freshly generated token stays valid.
func (a *AuthService) TokenLifetime() time.Duration {
	return expireDuration
}

func (a *AuthService) GenerateToken(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("session id is required")
	}
	now := time.Now()
	claims := &Claims{
		SessionID: sessionID,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(expireDuration).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.JWTSecret)
}

func (a *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.JWTSecret, nil
	})
	if err != nil || !token.Valid || claims.SessionID == "" {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}

func (a *AuthService) RefreshToken(oldToken string) (string, error) {
	claims, err := a.ValidateToken(oldToken)
	if err != nil {
		return "", err
	}
	return a.GenerateToken(claims.SessionID)
}
