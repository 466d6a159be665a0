// system.go — служебные endpoints: индекс API, OpenAPI документ,
// раздача изображений локального хранилища, ответы на неизвестные маршруты.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/workrecords/internal/api/errors"
	"github.com/bigkaa/workrecords/internal/config"
	"github.com/bigkaa/workrecords/internal/media"
)

// MediaOpener — хранилище, отдающее изображения с локального диска.
type MediaOpener interface {
	Open(publicID string) (*os.File, error)
}

// SystemHandler — обработчик служебных endpoints.
type SystemHandler struct {
	openapiJSON []byte
	media       MediaOpener
	logger      *slog.Logger
}

// NewSystemHandler создаёт обработчик служебных endpoints.
// opener может быть nil — тогда /media/{key} отвечает 404.
func NewSystemHandler(openapiJSON []byte, opener MediaOpener, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{
		openapiJSON: openapiJSON,
		media:       opener,
		logger:      logger.With(slog.String("component", "system_handler")),
	}
}

type indexResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// Index — GET /.
func (h *SystemHandler) Index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, indexResponse{
		Success: true,
		Message: "Work Records API",
		Version: config.Version,
		Endpoints: map[string]string{
			"health":  "/health",
			"records": "/api/records",
			"stats":   "/api/records/stats",
			"openapi": "/api/openapi.json",
		},
	})
}

// OpenAPI — GET /api/openapi.json.
func (h *SystemHandler) OpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapiJSON)
}

// Media — GET /media/{key}. Отдаёт изображение локального хранилища.
func (h *SystemHandler) Media(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		apierrors.NotFound(w, media.ErrNotFound.Error())
		return
	}

	key := chi.URLParam(r, "key")
	f, err := h.media.Open(key)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			apierrors.NotFound(w, media.ErrNotFound.Error())
			return
		}
		h.logger.Error("Ошибка чтения изображения",
			slog.String("public_id", key),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Server error")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		apierrors.InternalError(w, "Server error")
		return
	}

	// Имена изображений уникальны и не переиспользуются.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, key, info.ModTime(), f)
}

// NotFound — ответ на неизвестный маршрут.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	apierrors.NotFound(w, "Route not found")
}

// MethodNotAllowed — ответ на неподдерживаемый метод известного маршрута.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	apierrors.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
