package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/artpar/sage/app"
	"github.com/artpar/sage/domain/catalog"
	"github.com/artpar/sage/domain/diagnostic"
	"github.com/artpar/sage/domain/sender"
)

// Health reports liveness and uptime.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   h.clock.Now().UTC().Format(time.RFC3339),
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	})
}

// ValidateCatalog validates one uploaded tabular file against the named
// catalog spec and returns the findings. Nothing is persisted.
func (h *Handler) ValidateCatalog(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	spec, err := h.specs.LoadCatalog(name + ".yaml")
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("catalog %q: %v", name, err))
		return
	}

	path, cleanup, err := h.saveUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	ds, err := h.reader.ReadFile(path)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("cannot read upload: %v", err))
		return
	}

	validator := catalog.Validator{Now: h.clock.Now}
	diags := validator.Validate(ds, spec)
	writeJSON(w, http.StatusOK, map[string]any{
		"catalog":     spec.Name,
		"rows":        ds.Rows(),
		"success":     diagnostic.Success(diags),
		"diagnostics": diags,
	})
}

// ProcessPackage runs the full pipeline on an uploaded artifact for the named
// package. Query params: force=true bypasses dedup, sender_id enables
// authorization and the per-sender content gate.
func (h *Handler) ProcessPackage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	force := r.URL.Query().Get("force") == "true"
	senderID := r.URL.Query().Get("sender_id")
	packagePath := filepath.Join(h.packagesDir, name+".yaml")

	path, cleanup, err := h.saveUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	var contentHash string
	if senderID != "" {
		if _, err := h.senders.Authorize(senderID, name, sender.MethodAPI); err != nil {
			status := http.StatusForbidden
			if errors.Is(err, app.ErrUnknownSender) {
				status = http.StatusNotFound
			}
			writeError(w, status, err.Error())
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		contentHash, err = h.senders.CheckContent(r.Context(), senderID, data, force)
		if err != nil {
			var dup *app.DuplicateError
			if errors.As(err, &dup) {
				writeJSON(w, http.StatusConflict, map[string]any{
					"package":   name,
					"duplicate": true,
					"error":     dup.Error(),
				})
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	report, err := h.processor.ProcessPackage(r.Context(), path, packagePath, app.ProcessOptions{
		Force:    force,
		SenderID: senderID,
	})
	if err != nil {
		h.writeProcessError(w, name, err)
		return
	}

	if senderID != "" && contentHash != "" {
		if err := h.senders.RegisterContent(r.Context(), senderID, contentHash, name, report.Success, report.FirstError()); err != nil {
			h.logger.Warn().Err(err).Str("sender", senderID).Msg("content registration failed")
		}
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) writeProcessError(w http.ResponseWriter, name string, err error) {
	var (
		cfgErr *app.ConfigError
		fmtErr *app.FormatError
		dupErr *app.DuplicateError
	)
	switch {
	case errors.As(err, &dupErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"package":   name,
			"duplicate": true,
			"error":     dupErr.Error(),
		})
	case errors.As(err, &fmtErr):
		writeError(w, http.StatusBadRequest, fmtErr.Error())
	case errors.As(err, &cfgErr):
		writeError(w, http.StatusNotFound, cfgErr.Error())
	default:
		h.logger.Error().Err(err).Str("package", name).Msg("processing failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// SendersOverdue lists deadline violations at the current time.
func (h *Handler) SendersOverdue(w http.ResponseWriter, r *http.Request) {
	violations, err := h.senders.Overdue()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if violations == nil {
		violations = []app.Violation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checked_at": h.clock.Now().UTC().Format(time.RFC3339),
		"violations": violations,
	})
}

// saveUpload stores the request's file in a temp directory, keeping the
// uploaded filename so format detection by extension still works. Accepts
// multipart form field "file" or a raw body with an X-Filename header.
func (h *Handler) saveUpload(r *http.Request) (string, func(), error) {
	dir, err := os.MkdirTemp("", "sage-upload-")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	var (
		src      io.Reader
		filename string
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			cleanup()
			return "", nil, fmt.Errorf("missing form file %q: %w", "file", err)
		}
		defer file.Close()
		src = file
		filename = filepath.Base(header.Filename)
	} else {
		filename = filepath.Base(r.Header.Get("X-Filename"))
		if filename == "" || filename == "." {
			cleanup()
			return "", nil, fmt.Errorf("raw uploads require an X-Filename header")
		}
		src = r.Body
	}

	path := filepath.Join(dir, filename)
	dst, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, h.maxUpload+1)); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("store upload: %w", err)
	}
	if info, err := dst.Stat(); err == nil && info.Size() > h.maxUpload {
		cleanup()
		return "", nil, fmt.Errorf("upload exceeds %d bytes", h.maxUpload)
	}
	return path, cleanup, nil
}
