package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jpcaldeira/reserva/internal/backup"
)

type Handler struct {
	svc            *backup.Service
	maxUploadBytes int64
}

func NewHandler(svc *backup.Service, maxUploadBytes int64) *Handler {
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/export", h.export)
	r.Post("/preview", h.preview)
	r.Post("/import", h.importSnapshot)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Export(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		slog.Error("failed to export snapshot", "error", err)

		return
	}

	filename := fmt.Sprintf("reserva-backup-%s.json", time.Now().Format("2006-01-02"))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := json.NewEncoder(w).Encode(snap); err != nil {
		slog.Error("failed to encode snapshot", "error", err)
	}
}

// preview accepts an uploaded snapshot file and answers with every record
// per class plus its duplicate flag, so the UI can render the selection
// screen with duplicates disabled.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	sess, err := h.svc.Open(r.Context(), file)
	if err != nil {
		if errors.Is(err, backup.ErrInvalidSnapshot) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)
		slog.Error("failed to open snapshot", "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toPreviewResponse(sess)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type importRequest struct {
	Snapshot        backup.Snapshot        `json:"snapshot"`
	Selected        map[backup.Class][]int `json:"selected"`
	IncludeSettings bool                   `json:"includeSettings"`
}

// importSnapshot replays the client's selection through the engine's
// reducer, so the same invariants hold for API callers as for the console:
// duplicates and payments are rejected, references cascade automatically.
func (h *Handler) importSnapshot(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Snapshot.Version < 1 {
		http.Error(w, backup.ErrInvalidSnapshot.Error(), http.StatusBadRequest)
		return
	}

	sess, err := h.svc.Load(r.Context(), &req.Snapshot)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		slog.Error("failed to load snapshot", "error", err)

		return
	}

	for _, class := range backup.Classes {
		for _, idx := range req.Selected[class] {
			if _, err := sess.Apply(backup.Action{Op: backup.OpSelect, Class: class, Index: idx}); err != nil {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
		}
	}

	sess.SetIncludeSettings(req.IncludeSettings)

	stats, err := h.svc.Import(r.Context(), sess)
	if err != nil {
		http.Error(w, "import failed", http.StatusInternalServerError)
		slog.Error("failed to import selection", "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toImportResponse(stats)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
