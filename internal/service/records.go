// records.go — жизненный цикл записей о работах: создание, обновление
// с заменой набора изображений, удаление с очисткой медиа-хранилища, выборка.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/workrecords/internal/domain/model"
	"github.com/bigkaa/workrecords/internal/media"
	"github.com/bigkaa/workrecords/internal/query"
	"github.com/bigkaa/workrecords/internal/repository"
)

// Prometheus-метрики операций с записями.
var (
	recordOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wr_record_operations_total",
			Help: "Количество успешных операций с записями",
		},
		[]string{"operation"},
	)
	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wr_query_duration_seconds",
		Help:    "Длительность выборки записей с фильтрами",
		Buckets: prometheus.DefBuckets,
	})
)

// CreateInput — поля новой записи. nil — поле не передано.
type CreateInput struct {
	Title       *string
	Description *string
	BillAmount  *float64
	// BillAmountInvalid — сумма передана, но не разобрана как число.
	// Ошибка возвращается после проверки обязательных полей и изображений.
	BillAmountInvalid bool
}

// UpdateInput — изменяемые поля записи. nil — поле не изменяется.
type UpdateInput struct {
	Title             *string
	Description       *string
	BillAmount        *float64
	BillAmountInvalid bool
	// Images — новый набор изображений; nil — набор не меняется.
	Images []model.Image
}

// ListResult — страница записей и общее количество совпадений.
type ListResult struct {
	Records []*model.WorkRecord
	// Total — количество записей, удовлетворяющих фильтрам (без limit/skip)
	Total int64
}

// RecordService — сервис жизненного цикла записей.
type RecordService struct {
	repo         repository.RecordRepository
	media        media.Store
	constraints  media.Constraints
	mediaTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewRecordService создаёт сервис записей.
// mediaTimeout ограничивает каждое обращение к медиа-хранилищу.
func NewRecordService(
	repo repository.RecordRepository,
	store media.Store,
	constraints media.Constraints,
	mediaTimeout time.Duration,
	logger *slog.Logger,
) *RecordService {
	if mediaTimeout <= 0 {
		mediaTimeout = defaultMediaTimeout
	}
	return &RecordService{
		repo:         repo,
		media:        store,
		constraints:  constraints,
		mediaTimeout: mediaTimeout,
		logger:       logger.With(slog.String("component", "record_service")),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create сохраняет запись с уже загруженными изображениями.
// Порядок проверок: описание и сумма, затем наличие изображений,
// затем ограничения полей. При ошибке валидации хранилища не вызываются.
func (s *RecordService) Create(ctx context.Context, in CreateInput, images []model.Image) (*model.WorkRecord, error) {
	record, err := s.buildRecord(in, len(images))
	if err != nil {
		return nil, err
	}
	record.SetImages(images)

	saved, err := s.repo.Insert(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("создание записи: %w", err)
	}

	recordOperationsTotal.WithLabelValues("create").Inc()
	s.logger.Info("Запись создана",
		slog.String("record_id", saved.ID),
		slog.Int("images", len(saved.ImageURLs)),
	)
	return saved, nil
}

// CreateWithUploads проверяет поля и файлы, загружает изображения
// и сохраняет запись. Если загрузка любого файла или сохранение записи
// не удались, уже загруженные изображения удаляются (best-effort).
func (s *RecordService) CreateWithUploads(ctx context.Context, in CreateInput, files []media.File) (*model.WorkRecord, error) {
	if _, err := s.buildRecord(in, len(files)); err != nil {
		return nil, err
	}
	if err := s.constraints.Validate(files); err != nil {
		return nil, err
	}

	images, err := s.upload(ctx, files)
	if err != nil {
		return nil, err
	}

	saved, err := s.Create(ctx, in, images)
	if err != nil {
		s.releaseImages(ctx, "", publicIDs(images), cleanupReasonAbort)
		return nil, err
	}
	return saved, nil
}

// Get возвращает запись по идентификатору.
func (s *RecordService) Get(ctx context.Context, id string) (*model.WorkRecord, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "получение записи")
	}
	return record, nil
}

// List возвращает страницу записей и общее количество совпадений.
func (s *RecordService) List(ctx context.Context, spec query.Spec) (*ListResult, error) {
	start := time.Now()
	defer func() { queryDuration.Observe(time.Since(start).Seconds()) }()

	records, err := s.repo.Find(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("выборка записей: %w", err)
	}
	total, err := s.repo.Count(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("подсчёт записей: %w", err)
	}
	return &ListResult{Records: records, Total: total}, nil
}

// Update изменяет поля записи. Если передан новый набор изображений,
// сначала запрашивается удаление всех прежних (ошибки только логируются),
// затем набор заменяется целиком.
func (s *RecordService) Update(ctx context.Context, id string, in UpdateInput) (*model.WorkRecord, *CleanupReport, error) {
	update, err := s.buildUpdate(in)
	if err != nil {
		return nil, nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, mapRepoError(err, "получение записи")
	}

	var report *CleanupReport
	if update.Images != nil {
		report = s.releaseImages(ctx, existing.ID, existing.PublicIDs, cleanupReasonReplace)
	}

	updated, err := s.repo.Update(ctx, id, update)
	if err != nil {
		if report != nil && report.Attempted > 0 {
			s.logger.Warn("Прежние изображения удалены, но запись не обновлена: ссылки указывают на удалённые изображения",
				slog.String("record_id", id),
				slog.Int("images_released", report.Attempted-report.Failed),
				slog.String("error", err.Error()),
			)
		}
		return nil, report, mapRepoError(err, "обновление записи")
	}

	recordOperationsTotal.WithLabelValues("update").Inc()
	s.logger.Info("Запись обновлена",
		slog.String("record_id", updated.ID),
		slog.Bool("images_replaced", update.Images != nil),
	)
	return updated, report, nil
}

// UpdateWithUploads обновляет запись, загружая новые изображения.
// Существование записи проверяется до загрузки; пустой список файлов
// означает, что набор изображений не меняется.
func (s *RecordService) UpdateWithUploads(ctx context.Context, id string, in UpdateInput, files []media.File) (*model.WorkRecord, *CleanupReport, error) {
	if len(files) == 0 {
		return s.Update(ctx, id, in)
	}

	if _, err := s.buildUpdate(in); err != nil {
		return nil, nil, err
	}
	if err := s.constraints.Validate(files); err != nil {
		return nil, nil, err
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, nil, mapRepoError(err, "получение записи")
	}

	images, err := s.upload(ctx, files)
	if err != nil {
		return nil, nil, err
	}
	in.Images = images

	updated, report, err := s.Update(ctx, id, in)
	if err != nil {
		s.releaseImages(ctx, id, publicIDs(images), cleanupReasonAbort)
		return nil, report, err
	}
	return updated, report, nil
}

// Delete удаляет запись. Все изображения удаляются параллельно;
// документ удаляется после завершения всех попыток независимо от их исхода.
// Отсутствующая запись — ErrNotFound без обращений к медиа-хранилищу.
func (s *RecordService) Delete(ctx context.Context, id string) (*CleanupReport, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "получение записи")
	}

	report := s.releaseImages(ctx, existing.ID, existing.PublicIDs, cleanupReasonDelete)

	if err := s.repo.Delete(ctx, id); err != nil {
		return report, mapRepoError(err, "удаление записи")
	}

	recordOperationsTotal.WithLabelValues("delete").Inc()
	s.logger.Info("Запись удалена",
		slog.String("record_id", id),
		slog.Int("images_attempted", report.Attempted),
		slog.Int("images_failed", report.Failed),
	)
	return report, nil
}

// upload последовательно загружает файлы. При ошибке удаляет
// уже загруженные изображения и возвращает ErrMediaUpload.
func (s *RecordService) upload(ctx context.Context, files []media.File) ([]model.Image, error) {
	images := make([]model.Image, 0, len(files))
	for _, f := range files {
		callCtx, cancel := context.WithTimeout(ctx, s.mediaTimeout)
		img, err := s.media.Upload(callCtx, f)
		cancel()
		if err != nil {
			s.logger.Error("Ошибка загрузки изображения",
				slog.String("store", s.media.Name()),
				slog.String("file", f.Name),
				slog.String("error", err.Error()),
			)
			s.releaseImages(ctx, "", publicIDs(images), cleanupReasonAbort)
			if errors.Is(err, media.ErrUnsupportedFormat) || errors.Is(err, media.ErrFileTooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", ErrMediaUpload, err) //nolint:errorlint // намеренный двойной wrap
		}
		images = append(images, img)
	}
	return images, nil
}

// buildRecord проверяет поля новой записи и возвращает запись без изображений.
func (s *RecordService) buildRecord(in CreateInput, imageCount int) (*model.WorkRecord, error) {
	hasAmount := in.BillAmount != nil || in.BillAmountInvalid
	if in.Description == nil || strings.TrimSpace(*in.Description) == "" || !hasAmount {
		return nil, ErrMissingFields
	}
	if imageCount == 0 {
		return nil, ErrMissingImages
	}
	if in.BillAmountInvalid {
		return nil, ErrInvalidBillAmount
	}

	record := &model.WorkRecord{
		Description: strings.TrimSpace(*in.Description),
		BillAmount:  *in.BillAmount,
	}
	if in.Title != nil {
		record.Title = strings.TrimSpace(*in.Title)
	}
	if err := validateFields(&record.Title, &record.Description, &record.BillAmount); err != nil {
		return nil, err
	}
	return record, nil
}

// buildUpdate проверяет переданные поля и формирует изменения.
func (s *RecordService) buildUpdate(in UpdateInput) (model.RecordUpdate, error) {
	if in.BillAmountInvalid {
		return model.RecordUpdate{}, ErrInvalidBillAmount
	}
	update := model.RecordUpdate{
		BillAmount: in.BillAmount,
		UpdatedAt:  s.now(),
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		update.Title = &t
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		update.Description = &d
	}
	if in.Images != nil {
		if len(in.Images) == 0 {
			return model.RecordUpdate{}, ErrMissingImages
		}
		update.Images = in.Images
	}
	if err := validateFields(update.Title, update.Description, update.BillAmount); err != nil {
		return model.RecordUpdate{}, err
	}
	return update, nil
}

// validateFields проверяет ограничения заданных (не nil) полей.
func validateFields(title, description *string, billAmount *float64) error {
	if title != nil && utf8.RuneCountInString(*title) > model.TitleMaxLength {
		return NewValidationError(fmt.Sprintf("Title cannot exceed %d characters", model.TitleMaxLength))
	}
	if description != nil && utf8.RuneCountInString(*description) < model.DescriptionMinLength {
		return NewValidationError(fmt.Sprintf("Description must be at least %d characters", model.DescriptionMinLength))
	}
	if billAmount != nil && (math.IsNaN(*billAmount) || math.IsInf(*billAmount, 0)) {
		return ErrInvalidBillAmount
	}
	if billAmount != nil && *billAmount < 0 {
		return NewValidationError("Bill amount must be a non-negative number")
	}
	return nil
}

// mapRepoError транслирует ошибки репозитория в ошибки сервиса.
func mapRepoError(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func publicIDs(images []model.Image) []string {
	ids := make([]string, len(images))
	for i, img := range images {
		ids[i] = img.PublicID
	}
	return ids
}
