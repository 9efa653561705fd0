package controllers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/rentfolio/rentfolio-backend/api/responses"
	docsvc "github.com/rentfolio/rentfolio-backend/internal/documents"
	"github.com/rentfolio/rentfolio-backend/pkg/config"
	pkgerrors "github.com/rentfolio/rentfolio-backend/pkg/errors"
	"github.com/rentfolio/rentfolio-backend/pkg/logger"
)

// UploadDocument accepts a multipart form with a "file" part and a "kind"
// field and stores the file under the caller's account.
func UploadDocument(svc docsvc.Service, cfg config.UploadsConfig, logg *logger.Logger) http.HandlerFunc {
	maxBytes := int64(cfg.MaxUploadMB) << 20
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file part missing"))
			return
		}
		defer file.Close()

		doc, err := svc.Upload(r.Context(), ownerID, r.FormValue("kind"), header.Filename, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, doc)
	}
}

// DownloadDocument streams the stored file back to an authorized caller.
func DownloadDocument(svc docsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		docID, err := pathUUID(r, "documentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reader, doc, err := svc.Download(r.Context(), callerID, actorRole(r), docID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer reader.Close()

		w.Header().Set("Content-Type", doc.ContentType)
		w.Header().Set("Content-Length", fmt.Sprintf("%d", doc.SizeBytes))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
		if _, err := io.Copy(w, reader); err != nil {
			ctx := logg.WithField(r.Context(), "error", err.Error())
			logg.Warn(ctx, "document stream interrupted")
		}
	}
}

// ListMyDocuments returns the caller's document metadata.
func ListMyDocuments(svc docsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListMine(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// DeleteDocument removes the stored file and its metadata.
func DeleteDocument(svc docsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		docID, err := pathUUID(r, "documentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), callerID, actorRole(r), docID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
