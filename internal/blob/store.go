// Package blob implements the content store backing ingestion: raw uploaded
// objects on the local filesystem, addressed by a relative ref, with
// HMAC-signed expiring read tokens handed to the external analyzer.
package blob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("blob not found")
	ErrInvalidRef   = errors.New("invalid blob ref")
	ErrTokenExpired = errors.New("access token expired")
	ErrBadSignature = errors.New("access token signature mismatch")
)

type Store struct {
	dir    string
	secret []byte
}

func NewStore(dir string, signingKey []byte) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Store{dir: dir, secret: signingKey}, nil
}

func (s *Store) path(ref string) (string, error) {
	clean := filepath.Clean(ref)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(s.dir, clean), nil
}

func (s *Store) Put(ctx context.Context, ref string, data []byte) error {
	p, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}

func (s *Store) Get(ctx context.Context, ref string) ([]byte, error) {
	p, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p) // #nosec G304 -- path is validated against the store root
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return data, err
}

func (s *Store) Delete(ctx context.Context, ref string) error {
	p, err := s.path(ref)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return err
}

// IssueReadAccess returns a time-limited, read-only token for ref. The token
// embeds the ref and expiry and is signed so the analyzer callback endpoint
// can verify it without shared state.
func (s *Store) IssueReadAccess(ref string, ttl time.Duration) (string, error) {
	if _, err := s.path(ref); err != nil {
		return "", err
	}
	expiry := time.Now().Add(ttl).Unix()
	payload := fmt.Sprintf("%s|%d", ref, expiry)
	sig := s.sign(payload)
	return base64.URLEncoding.EncodeToString([]byte(payload + "|" + sig)), nil
}

// Resolve verifies a read access token and returns the ref it grants access to.
func (s *Store) Resolve(token string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("decode access token: %w", err)
	}
	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed access token")
	}
	ref, expiryStr, sig := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(sig), []byte(s.sign(ref+"|"+expiryStr))) {
		return "", ErrBadSignature
	}
	expiry, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed access token expiry")
	}
	if time.Now().Unix() > expiry {
		return "", ErrTokenExpired
	}
	return ref, nil
}

func (s *Store) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}
