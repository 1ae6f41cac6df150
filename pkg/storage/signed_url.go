package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/fvu-intake/pkg/clock"
)

// Token errors.
var (
	ErrTokenInvalid = errors.New("invalid download token")
	ErrTokenExpired = errors.New("download token expired")
)

// SignedURLSigner creates and validates signed artifact download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration, clk clock.Clock) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, clock: clk}
}

// Generate returns a token binding a submission reference to a stored file.
func (s *SignedURLSigner) Generate(reference, relPath string) (string, time.Time, error) {
	if reference == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("reference and relPath required")
	}
	if strings.Contains(reference, ".") {
		return "", time.Time{}, fmt.Errorf("reference must not contain '.'")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.clock.Now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	token := strings.Join([]string{reference, ts, encodedPath, s.sign(reference, ts, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded reference and path.
// allowExpired skips the expiry check for cleanup routines.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (reference, relPath string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	reference, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(reference, ts, encodedPath)), []byte(signature)) {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	expiresAt = time.Unix(expUnix, 0)
	if !allowExpired && s.clock.Now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return reference, string(rawPath), expiresAt, nil
}

func (s *SignedURLSigner) sign(reference, ts, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(reference + "|" + ts + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
