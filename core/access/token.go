package access

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned for tokens which are malformed, expired or not signed by us
var ErrInvalidToken = errors.New("invalid token")

// Claims are the claims of a restkit token
type Claims struct {
	Data map[string]interface{} `json:"data,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and verifies HS256 tokens
type TokenIssuer struct {
	// Secret is the HMAC key. This is mandatory.
	Secret []byte
	// Issuer is put into and expected in the iss claim. This is optional.
	Issuer string
	// TTL is the lifetime of issued tokens. Default is one hour.
	TTL time.Duration
}

// Token is an issued token
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Issue returns a token for subject, carrying data
func (ti *TokenIssuer) Issue(subject string, data map[string]interface{}) (*Token, error) {
	if len(ti.Secret) == 0 {
		return nil, errors.New("token issuer has no secret")
	}
	ttl := ti.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Data: data,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    ti.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.Secret)
	if err != nil {
		return nil, fmt.Errorf("cannot sign token: %w", err)
	}
	return &Token{AccessToken: signed, TokenType: "bearer", ExpiresAt: expiresAt.UTC()}, nil
}

// Parse verifies tokenString and returns its claims
func (ti *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return ti.Secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if ti.Issuer != "" && claims.Issuer != ti.Issuer {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// Refresh returns a new token for the subject and data of a valid token
func (ti *TokenIssuer) Refresh(tokenString string) (*Token, error) {
	claims, err := ti.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	return ti.Issue(claims.Subject, claims.Data)
}
