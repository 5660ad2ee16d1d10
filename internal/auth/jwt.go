// Package auth выдаёт и проверяет JWT токены редакторов для изменяющих
// запросов HTTP API.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "terrain-editor"

// ErrInvalidToken токен не прошёл проверку
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims represents JWT claims
type Claims struct {
	Editor   string `json:"editor"`
	CanWrite bool   `json:"can_write"`
	jwt.RegisteredClaims
}

// Signer подписывает и проверяет токены общим HMAC ключом
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner создаёт Signer из ключа в base64 (не короче 32 байт)
func NewSigner(secret string) (*Signer, error) {
	decoded, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("auth: decode secret: %w", err)
	}
	if len(decoded) < 32 {
		return nil, errors.New("auth: secret key must be at least 32 bytes")
	}
	return &Signer{secret: decoded, now: time.Now}, nil
}

// Issue creates a token for the given editor
func (s *Signer) Issue(editor string, canWrite bool, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		Editor:   editor,
		CanWrite: canWrite,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   editor,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate checks token validity and returns its claims
func (s *Signer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// GenerateSecret generates a new secure secret key
func GenerateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}
