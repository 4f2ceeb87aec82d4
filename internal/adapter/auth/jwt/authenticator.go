package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the authenticated account.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticator issues and validates HMAC-signed bearer tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

var (
	_ domain.IdentityResolver = (*Authenticator)(nil)
	_ domain.TokenIssuer      = (*Authenticator)(nil)
)

func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (a *Authenticator) Issue(accountID, email string) (string, error) {
	now := a.now()
	claims := Claims{
		UserID: accountID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate validates tokenString and returns the account ID it names.
// Every failure is reported as domain.ErrUnauthenticated.
func (a *Authenticator) Authenticate(_ context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", domain.ErrUnauthenticated
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("token has expired: %w", domain.ErrUnauthenticated)
		}
		return "", fmt.Errorf("token is invalid: %w", domain.ErrUnauthenticated)
	}
	if !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("token carries no user: %w", domain.ErrUnauthenticated)
	}
	return claims.UserID, nil
}
