package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/makkenzo/license-checkout-service/internal/domain/license"
)

const activationIssuer = "license-checkout-service"

var ErrTokensDisabled = errors.New("activation tokens are not configured")

// ActivationClaims is what the desktop application caches after a successful
// validation so it can start offline until the token expires.
type ActivationClaims struct {
	Email      string `json:"email"`
	MaxDevices int    `json:"max_devices"`
	jwt.RegisteredClaims
}

type ActivationTokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewActivationTokenIssuer(secret string, ttl time.Duration) *ActivationTokenIssuer {
	return &ActivationTokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (i *ActivationTokenIssuer) Enabled() bool {
	return i != nil && len(i.secret) > 0
}

func (i *ActivationTokenIssuer) Issue(lic *license.License) (string, time.Time, error) {
	if !i.Enabled() {
		return "", time.Time{}, ErrTokensDisabled
	}

	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := ActivationClaims{
		Email:      lic.PurchaseEmail,
		MaxDevices: lic.MaxDevices,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    activationIssuer,
			Subject:   lic.LicenseKey,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign activation token: %w", err)
	}
	return signed, expiresAt, nil
}

func (i *ActivationTokenIssuer) Parse(tokenString string) (*ActivationClaims, error) {
	if !i.Enabled() {
		return nil, ErrTokensDisabled
	}

	claims := &ActivationClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(activationIssuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid activation token: %w", err)
	}
	return claims, nil
}
