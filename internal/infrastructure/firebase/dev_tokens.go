package firebase

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DevTokenIssuer mints and verifies HMAC-signed tokens for local development,
// where no Firebase project is available. It satisfies the same verifier
// contract as FirebaseAuthClient.
type DevTokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewDevTokenIssuer(secret string) *DevTokenIssuer {
	return &DevTokenIssuer{
		secret: []byte(secret),
		ttl:    24 * time.Hour,
	}
}

func (d *DevTokenIssuer) Issue(uid string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(d.secret)
}

func (d *DevTokenIssuer) VerifyToken(ctx context.Context, tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return d.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token")
	}

	return claims.Subject, nil
}
