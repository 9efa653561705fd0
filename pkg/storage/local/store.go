package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/rentfolio/rentfolio-backend/pkg/config"
)

// Store persists uploads on local disk under a configured root directory.
// Object paths are always server-generated; client filenames never touch the
// filesystem layout.
type Store struct {
	root     string
	maxBytes int64
}

// SavedObject reports where an upload landed and what it sniffed as.
type SavedObject struct {
	Path        string
	ContentType string
	SizeBytes   int64
}

var (
	errRootRequired = errors.New("uploads directory is required")
	// ErrTooLarge is returned when an upload exceeds the configured limit.
	ErrTooLarge = errors.New("upload exceeds size limit")
)

// NewStore creates the root directory if needed.
func NewStore(cfg config.UploadsConfig) (*Store, error) {
	root := strings.TrimSpace(cfg.Dir)
	if root == "" {
		return nil, errRootRequired
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir uploads root: %w", err)
	}

	maxBytes := int64(cfg.MaxUploadMB) * 1024 * 1024
	if maxBytes <= 0 {
		maxBytes = 25 * 1024 * 1024
	}
	return &Store{root: root, maxBytes: maxBytes}, nil
}

// Save sniffs the payload's MIME type and writes it under <root>/<scope>/.
// The returned path is relative to the root so the DB rows stay portable if
// the root moves.
func (s *Store) Save(ctx context.Context, scope string, r io.Reader) (*SavedObject, error) {
	if s == nil {
		return nil, errors.New("store not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scope = sanitizeScope(scope)
	if scope == "" {
		return nil, errors.New("scope is required")
	}

	// LimitReader with one extra byte so we can tell "at limit" from "over".
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, errors.New("empty upload")
	}

	mtype := mimetype.Detect(data)

	relPath := filepath.Join(scope, uuid.NewString()+mtype.Extension())
	fullPath := filepath.Join(s.root, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir scope dir: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}

	return &SavedObject{
		Path:        relPath,
		ContentType: mtype.String(),
		SizeBytes:   int64(len(data)),
	}, nil
}

// Open returns a reader over a previously saved object.
func (s *Store) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	if s == nil {
		return nil, errors.New("store not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cleaned := filepath.Clean(relPath)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return nil, fmt.Errorf("invalid object path %q", relPath)
	}
	return os.Open(filepath.Join(s.root, cleaned))
}

// Delete removes a saved object. Missing files are not an error.
func (s *Store) Delete(ctx context.Context, relPath string) error {
	if s == nil {
		return errors.New("store not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cleaned := filepath.Clean(relPath)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return fmt.Errorf("invalid object path %q", relPath)
	}
	err := os.Remove(filepath.Join(s.root, cleaned))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func sanitizeScope(scope string) string {
	scope = strings.TrimSpace(strings.ToLower(scope))
	var sb strings.Builder
	for _, r := range scope {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// SniffContentType exposes detection for callers that already hold the bytes.
func SniffContentType(data []byte) string {
	return mimetype.Detect(data).String()
}
