package documents

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
	pkgerrors "github.com/rentfolio/rentfolio-backend/pkg/errors"
	"github.com/rentfolio/rentfolio-backend/pkg/storage/local"
)

type repository interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type objectStore interface {
	Save(ctx context.Context, scope string, r io.Reader) (*local.SavedObject, error)
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
	Delete(ctx context.Context, relPath string) error
}

// DocumentDTO is the document metadata transport shape.
type DocumentDTO struct {
	ID          uuid.UUID          `json:"id"`
	Kind        enums.DocumentKind `json:"kind"`
	FileName    string             `json:"file_name"`
	ContentType string             `json:"content_type"`
	SizeBytes   int64              `json:"size_bytes"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Service stores uploads on disk and their metadata in the documents table.
type Service interface {
	Upload(ctx context.Context, ownerID uuid.UUID, kindValue, fileName string, r io.Reader) (*DocumentDTO, error)
	Download(ctx context.Context, actorID uuid.UUID, role enums.UserRole, docID uuid.UUID) (io.ReadCloser, *DocumentDTO, error)
	ListMine(ctx context.Context, ownerID uuid.UUID) ([]DocumentDTO, error)
	Delete(ctx context.Context, actorID uuid.UUID, role enums.UserRole, docID uuid.UUID) error
	Exists(ctx context.Context, docID uuid.UUID) (bool, error)
}

type service struct {
	repo  repository
	store objectStore
}

// NewService builds a documents service.
func NewService(repo repository, store objectStore) (Service, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	return &service{repo: repo, store: store}, nil
}

// Upload sniffs and persists one file. The content type always comes from
// the payload, never from the client.
func (s *service) Upload(ctx context.Context, ownerID uuid.UUID, kindValue, fileName string, r io.Reader) (*DocumentDTO, error) {
	kind, err := enums.ParseDocumentKind(kindValue)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid document kind")
	}

	saved, err := s.store.Save(ctx, string(kind), r)
	if err != nil {
		if errors.Is(err, local.ErrTooLarge) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "file exceeds the upload size limit")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store upload")
	}

	doc := &models.Document{
		OwnerID:     ownerID,
		Kind:        kind,
		FileName:    sanitizeFileName(fileName),
		ContentType: saved.ContentType,
		SizeBytes:   saved.SizeBytes,
		StoragePath: saved.Path,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		// Orphan the metadata, not the bytes.
		_ = s.store.Delete(ctx, saved.Path)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create document")
	}
	return fromModel(doc), nil
}

// Download streams a stored file back to an authorized caller.
func (s *service) Download(ctx context.Context, actorID uuid.UUID, role enums.UserRole, docID uuid.UUID) (io.ReadCloser, *DocumentDTO, error) {
	doc, err := s.authorizedDocument(ctx, actorID, role, docID)
	if err != nil {
		return nil, nil, err
	}
	reader, err := s.store.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open document")
	}
	return reader, fromModel(doc), nil
}

// ListMine returns the caller's uploads.
func (s *service) ListMine(ctx context.Context, ownerID uuid.UUID) ([]DocumentDTO, error) {
	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list documents")
	}
	out := make([]DocumentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *fromModel(&rows[i]))
	}
	return out, nil
}

// Delete removes the file and its metadata.
func (s *service) Delete(ctx context.Context, actorID uuid.UUID, role enums.UserRole, docID uuid.UUID) error {
	doc, err := s.authorizedDocument(ctx, actorID, role, docID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, doc.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete document")
	}
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete stored file")
	}
	return nil
}

// Exists reports whether a document id refers to a stored row. Services use
// it to validate proof-of-payment references.
func (s *service) Exists(ctx context.Context, docID uuid.UUID) (bool, error) {
	_, err := s.repo.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup document")
	}
	return true, nil
}

func (s *service) authorizedDocument(ctx context.Context, actorID uuid.UUID, role enums.UserRole, docID uuid.UUID) (*models.Document, error) {
	doc, err := s.repo.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup document")
	}
	if role != enums.UserRoleAdmin && doc.OwnerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your document")
	}
	return doc, nil
}

// sanitizeFileName strips any path components a client smuggles into the
// display name. The stored filesystem path never uses it.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "upload"
	}
	return name
}

func fromModel(d *models.Document) *DocumentDTO {
	return &DocumentDTO{
		ID:          d.ID,
		Kind:        d.Kind,
		FileName:    d.FileName,
		ContentType: d.ContentType,
		SizeBytes:   d.SizeBytes,
		CreatedAt:   d.CreatedAt,
	}
}
