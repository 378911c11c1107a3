// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is what a verified token carries.
type Claims struct {
	Subject string
	// ExpiresAt is zero for tokens that never expire.
	ExpiresAt time.Time
}

// TTL returns how long the token stays valid from now. Zero means forever.
func (c Claims) TTL() time.Duration {
	if c.ExpiresAt.IsZero() {
		return 0
	}
	if d := time.Until(c.ExpiresAt); d > 0 {
		return d
	}
	return time.Second
}

// Signer issues and verifies EdDSA tokens.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	// TTL is the token lifetime; zero issues tokens without an exp claim.
	TTL time.Duration
}

// NewSigner generates a fresh ed25519 key pair. Tokens do not survive a restart.
func NewSigner(ttl time.Duration) (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Signer{privateKey: priv, publicKey: pub, TTL: ttl}, nil
}

// NewSignerFromPath loads a raw ed25519 key pair from disk.
func NewSignerFromPath(privatePath, publicPath string, ttl time.Duration) (*Signer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("key files are not raw ed25519 keys")
	}
	return &Signer{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		TTL:        ttl,
	}, nil
}

// CreateJWT signs a token with sub = subject and a unique jti.
func (s *Signer) CreateJWT(subject string) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"jti": uuid.NewString(),
		"iat": time.Now().Unix(),
	}
	if s.TTL > 0 {
		claims["exp"] = time.Now().Add(s.TTL).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// ParseJWT verifies the signature and expiry of tokenString.
func (s *Signer) ParseJWT(tokenString string) (Claims, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return Claims{}, ErrInvalidToken
	}

	sub, err := t.Claims.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	out := Claims{Subject: sub}
	if exp, err := t.Claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// AuthenticateJWT returns the subject of a valid token.
func (s *Signer) AuthenticateJWT(tokenString string) (string, error) {
	c, err := s.ParseJWT(tokenString)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}
