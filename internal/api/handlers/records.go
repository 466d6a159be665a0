// records.go — обработчики /api/records: список с фильтрами, чтение,
// создание с загрузкой изображений, обновление, удаление, статистика.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/workrecords/internal/api/errors"
	"github.com/bigkaa/workrecords/internal/domain/model"
	"github.com/bigkaa/workrecords/internal/media"
	"github.com/bigkaa/workrecords/internal/query"
	"github.com/bigkaa/workrecords/internal/service"
)

// partialCleanupWarning — предупреждение в ответе на удаление,
// если часть изображений не удалось удалить из медиа-хранилища.
const partialCleanupWarning = "Record deleted, but some images could not be removed from media storage"

// RecordsHandler — обработчик endpoints записей.
type RecordsHandler struct {
	records   *service.RecordService
	stats     *service.StatsService
	bodyLimit int64
	logger    *slog.Logger
}

// NewRecordsHandler создаёт обработчик записей.
// constraints определяют максимальный размер тела запроса с изображениями.
func NewRecordsHandler(
	records *service.RecordService,
	stats *service.StatsService,
	constraints media.Constraints,
	logger *slog.Logger,
) *RecordsHandler {
	return &RecordsHandler{
		records:   records,
		stats:     stats,
		bodyLimit: bodyLimit(constraints),
		logger:    logger.With(slog.String("component", "records_handler")),
	}
}

// recordResponse — ответ с одной записью.
type recordResponse struct {
	Success bool              `json:"success"`
	Data    *model.WorkRecord `json:"data"`
}

// listResponse — ответ со страницей записей.
type listResponse struct {
	Success bool                `json:"success"`
	Count   int                 `json:"count"`
	Total   int64               `json:"total"`
	Data    []*model.WorkRecord `json:"data"`
	Filters query.Applied       `json:"filters"`
}

// deleteResponse — ответ на удаление записи.
type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
}

// statsResponse — ответ со статистикой.
type statsResponse struct {
	Success bool         `json:"success"`
	Data    *model.Stats `json:"data"`
}

// List — GET /api/records.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := query.FromValues(r.URL.Query())
	if err != nil {
		apierrors.BadRequest(w, err.Error())
		return
	}
	spec, err := query.Build(params)
	if err != nil {
		apierrors.BadRequest(w, err.Error())
		return
	}

	result, err := h.records.List(r.Context(), spec)
	if err != nil {
		writeServiceError(w, h.logger, "list", err)
		return
	}

	records := result.Records
	if records == nil {
		records = []*model.WorkRecord{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Success: true,
		Count:   len(records),
		Total:   result.Total,
		Data:    records,
		Filters: spec.Applied(),
	})
}

// Get — GET /api/records/{id}.
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Success: true, Data: record})
}

// Create — POST /api/records.
// multipart/form-data: title, description, billAmount и файлы images.
func (h *RecordsHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseForm(w, r)
	if err != nil {
		writeServiceError(w, h.logger, "create", err)
		return
	}
	defer form.cleanup()

	files, closeFiles, err := form.openFiles()
	if err != nil {
		writeServiceError(w, h.logger, "create", err)
		return
	}
	defer closeFiles()

	record, err := h.records.CreateWithUploads(r.Context(), service.CreateInput{
		Title:             form.Title,
		Description:       form.Description,
		BillAmount:        form.BillAmount,
		BillAmountInvalid: form.billAmountInvalid,
	}, files)
	if err != nil {
		writeServiceError(w, h.logger, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, recordResponse{Success: true, Data: record})
}

// Update — PUT /api/records/{id}.
// JSON меняет только поля; multipart с images заменяет набор изображений.
func (h *RecordsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	form, err := h.parseForm(w, r)
	if err != nil {
		writeServiceError(w, h.logger, "update", err)
		return
	}
	defer form.cleanup()

	files, closeFiles, err := form.openFiles()
	if err != nil {
		writeServiceError(w, h.logger, "update", err)
		return
	}
	defer closeFiles()

	record, report, err := h.records.UpdateWithUploads(r.Context(), id, service.UpdateInput{
		Title:             form.Title,
		Description:       form.Description,
		BillAmount:        form.BillAmount,
		BillAmountInvalid: form.billAmountInvalid,
	}, files)
	if err != nil {
		writeServiceError(w, h.logger, "update", err)
		return
	}
	if !report.OK() {
		h.logger.Warn("Прежние изображения удалены не полностью",
			slog.String("record_id", id),
			slog.Int("failed", report.Failed),
		)
	}
	writeJSON(w, http.StatusOK, recordResponse{Success: true, Data: record})
}

// Delete — DELETE /api/records/{id}.
// Ошибки удаления изображений не отменяют удаление записи.
func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	report, err := h.records.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, "delete", err)
		return
	}

	resp := deleteResponse{Success: true, Message: "Record deleted successfully"}
	if !report.OK() {
		resp.Warning = partialCleanupWarning
	}
	writeJSON(w, http.StatusOK, resp)
}

// Stats — GET /api/records/stats.
func (h *RecordsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Get(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Success: true, Data: stats})
}

// parseForm ограничивает размер тела и разбирает его по Content-Type.
func (h *RecordsHandler) parseForm(w http.ResponseWriter, r *http.Request) (*recordForm, error) {
	if h.bodyLimit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.bodyLimit)
	}
	if isMultipart(r) {
		return parseMultipartForm(r)
	}
	return parseJSONForm(r)
}
