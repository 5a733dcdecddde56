package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Context is the authorization state of a caller. The zero value is an
// anonymous viewer.
type Context struct {
	IsGlobalAdmin bool
	Department    string
}

func (c Context) Authenticated() bool {
	return c.IsGlobalAdmin || c.Department != ""
}

// CanEdit reports whether the caller may change data owned by dept. Global
// admins may edit every department; department sessions only their own.
func CanEdit(c Context, dept string) bool {
	if c.IsGlobalAdmin {
		return true
	}
	return c.Department != "" && c.Department == dept
}

type Claims struct {
	Department string `json:"dept,omitempty"`
	Admin      bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Context() Context {
	return Context{IsGlobalAdmin: c.Admin, Department: c.Department}
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func GenerateToken(secret string, actor Context, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Department: actor.Department,
		Admin:      actor.IsGlobalAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
