package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/noah-isme/fvu-intake/pkg/backend"
	"github.com/noah-isme/fvu-intake/pkg/clock"
	"github.com/noah-isme/fvu-intake/pkg/jobs"
	"github.com/noah-isme/fvu-intake/pkg/storage"
)

func newArtifactForTest(t *testing.T, clk clock.Clock) (*ArtifactService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour, clk)
	return NewArtifactService(store, signer, clk, ArtifactConfig{APIPrefix: "/api/v1/"}, nil), store
}

func TestArchiveWritesFilesAndSignsLinks(t *testing.T) {
	svc, store := newArtifactForTest(t, clock.Fixed(fixtureNow))

	links, err := svc.Archive("ref-1",
		backend.Attachment{Filename: "upload_PR240001_20240310.pdf", Data: []byte("%PDF")},
		backend.Attachment{Filename: "upload_PR240001_20240310.json", Data: []byte(`{}`)},
	)
	require.NoError(t, err)
	require.Len(t, links, 2)
	require.True(t, strings.HasPrefix(links[0].URL, "/api/v1/artifacts/ref-1."))
	require.True(t, links[0].ExpiresAt.Equal(fixtureNow.Add(time.Hour)))

	data, err := store.Read("2024/03/10/ref-1/upload_PR240001_20240310.pdf")
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(data))

	token := strings.TrimPrefix(links[1].URL, "/api/v1/artifacts/")
	file, name, err := svc.Open(token)
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "upload_PR240001_20240310.json", name)
	require.Equal(t, `{}`, string(body))
}

func TestOpenRejectsTamperedAndExpiredTokens(t *testing.T) {
	clk := &movableClock{now: fixtureNow}
	svc, _ := newArtifactForTest(t, clk)

	links, err := svc.Archive("ref-2", backend.Attachment{Filename: "a.pdf", Data: []byte("x")})
	require.NoError(t, err)
	token := strings.TrimPrefix(links[0].URL, "/api/v1/artifacts/")

	_, _, err = svc.Open(token + "0")
	require.ErrorIs(t, err, storage.ErrTokenInvalid)

	clk.Advance(2 * time.Hour)
	_, _, err = svc.Open(token)
	require.ErrorIs(t, err, storage.ErrTokenExpired)
}

func TestArchiveThroughQueue(t *testing.T) {
	defer goleak.VerifyNone(t)
	svc, store := newArtifactForTest(t, clock.Fixed(fixtureNow))
	queue := jobs.NewQueue("artifacts", svc.HandleArchiveJob, jobs.QueueConfig[ArchiveJob]{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()
	svc.UseQueue(queue)

	_, err := svc.Archive("ref-3", backend.Attachment{Filename: "b c.pdf", Data: []byte("queued")})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		data, err := store.Read("2024/03/10/ref-3/b_c.pdf")
		return err == nil && string(data) == "queued"
	}, time.Second, 5*time.Millisecond)
}

func TestArchiveDisabledWithoutStorage(t *testing.T) {
	svc := NewArtifactService(nil, nil, nil, ArtifactConfig{}, nil)
	links, err := svc.Archive("ref", backend.Attachment{Filename: "a.pdf"})
	require.NoError(t, err)
	require.Nil(t, links)
	require.False(t, svc.Enabled())
}
