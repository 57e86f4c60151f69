package auth

import (
	"errors"
	"fmt"
	"time"

	"eventhub/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail parsing or signature checks.
var ErrInvalidToken = errors.New("invalid token")

type jwtClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// JWTCodec issues and verifies session tokens.
type JWTCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTCodec returns a codec that signs and verifies HS256 JWTs with the
// given secret. The session id travels as the jti claim.
func NewJWTCodec(secret, issuer string) *JWTCodec {
	return &JWTCodec{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (c *JWTCodec) Issue(tc domain.TokenClaims, expiry time.Duration) (string, error) {
	now := c.now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tc.SessionID,
			Subject:   tc.UserID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Email: tc.Email,
		Role:  string(tc.Role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (c *JWTCodec) Verify(tokenString string) (*domain.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	claims := &jwtClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing session or subject", ErrInvalidToken)
	}
	return &domain.TokenClaims{
		SessionID: claims.ID,
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      domain.Role(claims.Role),
	}, nil
}
