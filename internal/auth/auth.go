package auth

import (
	"errors"
	"os"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid token or expired")

// Claims is what a verified token asserts about its bearer. The core treats
// any verified token as authoritative.
type Claims struct {
	Username string
	IsAdmin  bool
}

// Service видає та перевіряє JWT для зареєстрованих користувачів.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewService() *Service {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "YOUR_ULTRA_SECRET_KEY_HERE"
	}
	return &Service{
		secret: []byte(secret),
		issuer: "mechmap-service",
		ttl:    time.Hour * 72,
	}
}

// Issue генерує JWT з іменем користувача та ознакою адміністратора.
func (s *Service) Issue(username string, isAdmin bool) (string, error) {
	claims := jwt.MapClaims{
		"username": username,
		"is_admin": isAdmin,
		"exp":      time.Now().Add(s.ttl).Unix(),
		"iss":      s.issuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates the token and extracts its claims.
func (s *Service) Verify(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	username, _ := mapClaims["username"].(string)
	if username == "" {
		return Claims{}, ErrInvalidToken
	}
	isAdmin, _ := mapClaims["is_admin"].(bool)
	return Claims{Username: username, IsAdmin: isAdmin}, nil
}

// HashPassword хешує пароль за допомогою bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
