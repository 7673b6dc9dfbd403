package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/httpx"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/dmitrijs2005/gatekeeper/internal/trust"
	"github.com/go-chi/chi/v5"
)

// maxUploadBytes caps a multipart upload request.
const maxUploadBytes = 32 << 20

// FileStore is the part of services.FileService the file handlers use.
type FileStore interface {
	Upload(ctx context.Context, userID string, in services.Upload) (string, error)
	Delete(ctx context.Context, userID, objectName string) error
	URL(ctx context.Context, userID, objectName string) (string, error)
}

type objectRequest struct {
	ObjectName string `json:"objectName"`
}

type objectResponse struct {
	ObjectName string `json:"objectName"`
}

type urlResponse struct {
	URL string `json:"url"`
}

// FilesHandler serves /api/files/*. Every route needs the identity header.
type FilesHandler struct {
	files         FileStore
	trustedHeader string
	logger        logging.Logger
}

func NewFilesHandler(files FileStore, trustedHeader string, l logging.Logger) *FilesHandler {
	return &FilesHandler{
		files:         files,
		trustedHeader: trustedHeader,
		logger:        l.With("module", "files_handler"),
	}
}

func (h *FilesHandler) Routes() http.Handler {
	r := newRouter(h.logger)
	r.Route("/api/files", func(r chi.Router) {
		r.Use(trust.RequireIdentity(h.trustedHeader))
		r.Post("/upload", h.upload)
		r.Delete("/delete", h.delete)
		r.Get("/url", h.url)
	})
	return r
}

func (h *FilesHandler) upload(w http.ResponseWriter, r *http.Request) {
	userID, _ := trust.PrincipalFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.Fail(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		httpx.Error(w, fmt.Errorf("%w: multipart field \"file\" is required", common.ErrValidation))
		return
	}
	defer file.Close()

	key, err := h.files.Upload(r.Context(), userID, services.Upload{
		FileType:    r.FormValue("fileType"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, "File uploaded successfully", objectResponse{ObjectName: key})
}

func (h *FilesHandler) delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := trust.PrincipalFromContext(r.Context())

	var req objectRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Error(w, err)
		return
	}

	if err := h.files.Delete(r.Context(), userID, req.ObjectName); err != nil {
		h.fail(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, "File deleted successfully", nil)
}

func (h *FilesHandler) url(w http.ResponseWriter, r *http.Request) {
	userID, _ := trust.PrincipalFromContext(r.Context())

	u, err := h.files.URL(r.Context(), userID, r.URL.Query().Get("objectName"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, "URL generated successfully", urlResponse{URL: u})
}

func (h *FilesHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := httpx.StatusFor(err)
	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	case status == http.StatusForbidden:
		h.logger.Warn(r.Context(), "cross-user object access denied", "path", r.URL.Path)
	}
	httpx.Error(w, err)
}
