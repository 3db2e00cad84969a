package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerSignAndVerify(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("job-1", "reports/order.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := signer.Verify(token, false)
	require.NoError(t, err)
	require.Equal(t, "job-1", claims.JobID)
	require.Equal(t, "reports/order.csv", claims.Path)
	require.True(t, expiresAt.Equal(claims.ExpiresAt))
}

func TestSignedURLSignerExpired(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	signer := NewSignedURLSigner("secret", time.Minute)
	signer.now = func() time.Time { return now }

	token, _, err := signer.Sign("job-1", "reports/order.csv")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = signer.Verify(token, false)
	require.ErrorIs(t, err, ErrTokenExpired)

	claims, err := signer.Verify(token, true)
	require.NoError(t, err)
	require.Equal(t, "reports/order.csv", claims.Path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Sign("job-1", "reports/order.csv")
	require.NoError(t, err)

	_, err = NewSignedURLSigner("other", time.Hour).Verify(token, false)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = signer.Verify("job-2"+token[len("job-1"):], false)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = signer.Verify("garbage", false)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
