package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenService issues and validates bearer access tokens.
type TokenService interface {
	IssueAccessToken(userID uuid.UUID) (*AccessToken, error)
	ValidateAccessToken(tokenString string) (uuid.UUID, error)
}

// AccessToken is a signed token and its lifetime in seconds.
type AccessToken struct {
	Token     string
	ExpiresIn int64
}

type tokenService struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewTokenService creates an HS256 token service; expiration is in seconds.
func NewTokenService(secret string, expiration int64) TokenService {
	return &tokenService{
		secret:     []byte(secret),
		expiration: time.Duration(expiration) * time.Second,
		now:        time.Now,
	}
}

func (s *tokenService) IssueAccessToken(userID uuid.UUID) (*AccessToken, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"type": "access",
		"exp":  now.Add(s.expiration).Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &AccessToken{
		Token:     signed,
		ExpiresIn: int64(s.expiration / time.Second),
	}, nil
}

func (s *tokenService) ValidateAccessToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired())

	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}

	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return uuid.Nil, ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	return userID, nil
}

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)
