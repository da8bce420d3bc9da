package util

import (
	"strings"
	"testing"
	"time"

	"github.com/makkenzo/license-checkout-service/internal/domain/license"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	full, prefix, hash, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(full, "lk_"+prefix+"_"))
	assert.Len(t, prefix, 8)
	assert.Equal(t, HashAPIKey(full), hash)

	parsed, ok := ParseAPIKey(full)
	require.True(t, ok)
	assert.Equal(t, prefix, parsed)
}

func TestParseAPIKeyRejects(t *testing.T) {
	for _, k := range []string{"", "lk_", "lm_abc_def", "lk_abc", "lk__secret", "lk_abc_"} {
		_, ok := ParseAPIKey(k)
		assert.False(t, ok, k)
	}
}

func TestActivationTokenRoundTrip(t *testing.T) {
	issuer := NewActivationTokenIssuer("s3cret", time.Hour)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	lic := &license.License{LicenseKey: "AAAAAAAA-BBBBBBBB-CCCCCCCC-DDDDDDDD", PurchaseEmail: "buyer@example.com", MaxDevices: 3}
	token, exp, err := issuer.Issue(lic)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, lic.LicenseKey, claims.Subject)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.Equal(t, 3, claims.MaxDevices)

	_, err = NewActivationTokenIssuer("other", time.Hour).Parse(token)
	assert.Error(t, err)

	issuer.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = issuer.Parse(token)
	assert.Error(t, err)
}

func TestActivationTokenDisabled(t *testing.T) {
	issuer := NewActivationTokenIssuer("", time.Hour)
	assert.False(t, issuer.Enabled())
	_, _, err := issuer.Issue(&license.License{})
	assert.ErrorIs(t, err, ErrTokensDisabled)
}
