package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("conflicts-20250701-20250731", "2025/07/report.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	reportID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "conflicts-20250701-20250731", reportID)
	assert.Equal(t, "2025/07/report.csv", path)
	assert.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("conflicts-1", "2025/07/report.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, _, _, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrTokenExpired)

	// Cleanup still resolves the file behind a stale token.
	reportID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "conflicts-1", reportID)
	assert.Equal(t, "2025/07/report.csv", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("conflicts-1", "2025/07/report.csv")
	require.NoError(t, err)

	payload, sig, ok := strings.Cut(token, ".")
	require.True(t, ok)

	_, _, _, err = signer.Parse("x"+payload[1:]+"."+sig, false)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, _, _, err = signer.Parse(payload, false)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSignedURLSignerRejectsForeignSecret(t *testing.T) {
	token, _, err := NewSignedURLSigner("secret-a", time.Hour).Generate("conflicts-1", "2025/07/report.csv")
	require.NoError(t, err)

	_, _, _, err = NewSignedURLSigner("secret-b", time.Hour).Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
