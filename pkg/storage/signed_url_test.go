package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fvu-intake/pkg/clock"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour, nil)
	token, expiresAt, err := signer.Generate("sub-1", "2024/03/upload_PR1.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	ref, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "sub-1", ref)
	require.Equal(t, "2024/03/upload_PR1.pdf", path)
	require.True(t, expiresAt.Equal(parsedExpiry))
}

func TestSignedURLSignerExpired(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	signer := NewSignedURLSigner("secret", time.Minute, clock.Func(func() time.Time { return now }))
	token, _, err := signer.Generate("sub-1", "upload.pdf")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, _, _, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrTokenExpired)

	ref, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "sub-1", ref)
	require.Equal(t, "upload.pdf", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour, nil)
	token, _, err := signer.Generate("sub-1", "upload.pdf")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour, nil)
	_, _, _, err = other.Parse(token, false)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, _, _, err = signer.Parse("not-a-token", false)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, _, err = NewSignedURLSigner("", time.Hour, nil).Generate("sub-1", "upload.pdf")
	require.Error(t, err)
}
