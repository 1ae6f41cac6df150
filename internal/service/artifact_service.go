package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fvu-intake/internal/models"
	"github.com/noah-isme/fvu-intake/pkg/backend"
	"github.com/noah-isme/fvu-intake/pkg/clock"
	"github.com/noah-isme/fvu-intake/pkg/jobs"
	"github.com/noah-isme/fvu-intake/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ArtifactConfig tunes the artifact archive.
type ArtifactConfig struct {
	APIPrefix string
	TTL       time.Duration
}

// ArchiveJob is one artifact waiting to be written to the archive.
type ArchiveJob struct {
	RelPath string
	Data    []byte
}

// ArtifactService keeps copies of generated artifacts for audit and hands out
// signed download links for them.
type ArtifactService struct {
	storage fileStorage
	signer  *storage.SignedURLSigner
	clock   clock.Clock
	cfg     ArtifactConfig
	logger  *zap.Logger
	queue   *jobs.Queue[ArchiveJob]
}

// NewArtifactService constructs an ArtifactService. A nil storage disables archiving.
func NewArtifactService(store fileStorage, signer *storage.SignedURLSigner, clk clock.Clock, cfg ArtifactConfig, logger *zap.Logger) *ArtifactService {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	return &ArtifactService{storage: store, signer: signer, clock: clk, cfg: cfg, logger: logger}
}

// Enabled reports whether artifacts are archived.
func (s *ArtifactService) Enabled() bool {
	return s != nil && s.storage != nil
}

// UseQueue moves archive writes onto a background queue.
func (s *ArtifactService) UseQueue(q *jobs.Queue[ArchiveJob]) {
	s.queue = q
}

// HandleArchiveJob writes one queued artifact. It is the queue handler.
func (s *ArtifactService) HandleArchiveJob(_ context.Context, job jobs.Job[ArchiveJob]) error {
	_, err := s.storage.Save(job.Payload.RelPath, job.Payload.Data)
	return err
}

// Archive stores the artifacts under reference and returns download links.
// Links are issued before the write completes when a queue is in use.
func (s *ArtifactService) Archive(reference string, attachments ...backend.Attachment) ([]models.ArtifactLink, error) {
	if !s.Enabled() {
		return nil, nil
	}
	day := s.clock.Now().UTC().Format("2006/01/02")
	links := make([]models.ArtifactLink, 0, len(attachments))
	for _, att := range attachments {
		relPath := path.Join(day, reference, sanitizeFilename(att.Filename))
		if err := s.write(reference, relPath, att.Data); err != nil {
			return links, err
		}
		if s.signer == nil {
			continue
		}
		token, expiresAt, err := s.signer.Generate(reference, relPath)
		if err != nil {
			return links, fmt.Errorf("sign artifact link: %w", err)
		}
		links = append(links, models.ArtifactLink{
			Filename:  att.Filename,
			URL:       fmt.Sprintf("%s/artifacts/%s", s.prefix(), token),
			ExpiresAt: expiresAt,
		})
	}
	return links, nil
}

func (s *ArtifactService) write(reference, relPath string, data []byte) error {
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job[ArchiveJob]{ID: reference, Kind: "archive", Payload: ArchiveJob{RelPath: relPath, Data: data}})
		if err == nil {
			return nil
		}
		s.logger.Warn("archive queue unavailable, writing inline", zap.String("reference", reference), zap.Error(err))
	}
	if _, err := s.storage.Save(relPath, data); err != nil {
		return fmt.Errorf("archive artifact: %w", err)
	}
	return nil
}

func (s *ArtifactService) prefix() string {
	p := strings.TrimRight(s.cfg.APIPrefix, "/")
	if p == "" {
		p = "/api/v1"
	}
	return p
}

// Open resolves a download token to the archived file and its name.
func (s *ArtifactService) Open(token string) (*os.File, string, error) {
	if !s.Enabled() || s.signer == nil {
		return nil, "", fmt.Errorf("artifact archive disabled")
	}
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", err
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", err
	}
	return file, path.Base(relPath), nil
}

// Cleanup removes archived files older than ttl, or the configured TTL when ttl <= 0.
func (s *ArtifactService) Cleanup(ttl time.Duration) ([]string, error) {
	if !s.Enabled() {
		return nil, nil
	}
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "artifact"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
