package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type Manager struct {
	secretKey  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secretKey:  secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

type Claims struct {
	UserID   int64  `json:"user_id"`
	UserType string `json:"user_type"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

func (m *Manager) generate(userID int64, userType, tokenType string, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:   userID,
		UserType: userType,
		Type:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.secretKey))
}

func (m *Manager) GenerateAccessToken(userID int64, userType string) (string, error) {
	return m.generate(userID, userType, TokenTypeAccess, m.accessTTL)
}

func (m *Manager) GenerateRefreshToken(userID int64, userType string) (string, error) {
	return m.generate(userID, userType, TokenTypeRefresh, m.refreshTTL)
}

func (m *Manager) GenerateTokens(userID int64, userType string) (accessToken, refreshToken string, err error) {
	accessToken, err = m.GenerateAccessToken(userID, userType)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = m.GenerateRefreshToken(userID, userType)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (m *Manager) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(m.secretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
