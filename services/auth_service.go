package services

import (
	"errors"
	"time"

	"purchase-prediction-api/config"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const RoleAnalyst = "analyst"

// AuthService signs in the dashboard's operator account and issues JWTs.
type AuthService struct {
	jwtSecret    []byte
	expiryH      int
	username     string
	passwordHash string
	now          Clock
}

func NewAuthService(jwtCfg config.JWTConfig, authCfg config.AuthConfig) *AuthService {
	return &AuthService{
		jwtSecret:    []byte(jwtCfg.Secret),
		expiryH:      jwtCfg.ExpiryHours,
		username:     authCfg.Username,
		passwordHash: authCfg.PasswordHash,
		now:          time.Now,
	}
}

func (s *AuthService) HashPassword(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

func (s *AuthService) CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Login checks the operator credentials and returns a signed token.
func (s *AuthService) Login(username, password string) (string, error) {
	if s.passwordHash == "" || username != s.username || !s.CheckPassword(s.passwordHash, password) {
		return "", ErrInvalidCredentials
	}
	return s.GenerateToken(username, RoleAnalyst)
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (s *AuthService) GenerateToken(username, role string) (string, error) {
	now := s.now()
	claims := Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.expiryH) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.jwtSecret, nil
		},
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
