// Пакет media — хранилище изображений записей (MediaStore).
// Реализации: Cloudinary и локальная файловая система.
// Хранилище не знает о записях: оно принимает файлы и возвращает
// пары (URL, public id), удаление выполняется по public id.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"

	"github.com/bigkaa/workrecords/internal/domain/model"
)

// Сообщения этих ошибок видны клиенту API.
var (
	// ErrNotFound — изображение с указанным public id отсутствует.
	ErrNotFound = errors.New("image not found")
	// ErrUnsupportedFormat — файл не является изображением допустимого формата.
	ErrUnsupportedFormat = errors.New("only image files are allowed")
	// ErrFileTooLarge — превышен размер одного файла.
	ErrFileTooLarge = errors.New("file too large")
	// ErrTooManyFiles — превышено количество файлов в запросе.
	ErrTooManyFiles = errors.New("too many files")
)

// Папка и префикс public id по умолчанию.
const (
	DefaultFolder  = "work_records"
	publicIDPrefix = "photo_"
)

// AllowedFormats — допустимые расширения изображений (без точки).
var AllowedFormats = []string{"jpg", "jpeg", "png", "webp"}

// File — загружаемый файл.
type File struct {
	// Name — исходное имя файла (используется для определения формата)
	Name string
	// ContentType — MIME тип из multipart заголовка
	ContentType string
	// Size — размер в байтах (-1, если неизвестен)
	Size int64
	// Reader — содержимое файла
	Reader io.Reader
}

// Format возвращает расширение файла в нижнем регистре без точки.
func (f File) Format() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), ".")
}

// Store — хранилище изображений.
type Store interface {
	// Upload сохраняет изображение и возвращает его URL и public id.
	Upload(ctx context.Context, file File) (model.Image, error)
	// Delete удаляет изображение. Для отсутствующего — ErrNotFound.
	Delete(ctx context.Context, publicID string) error
	// Name — имя реализации для логов и метрик.
	Name() string
}

// Constraints — ограничения на загружаемые изображения.
type Constraints struct {
	MaxFileSize int64
	MaxFiles    int
}

// Validate проверяет набор файлов до обращения к хранилищу.
// Пустой набор допустим: обязательность изображений проверяет сервис.
func (c Constraints) Validate(files []File) error {
	if c.MaxFiles > 0 && len(files) > c.MaxFiles {
		return fmt.Errorf("%w: at most %d images per request", ErrTooManyFiles, c.MaxFiles)
	}
	for _, f := range files {
		if err := c.ValidateFile(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFile проверяет MIME тип, формат и размер одного файла.
func (c Constraints) ValidateFile(f File) error {
	if f.ContentType != "" && !strings.HasPrefix(f.ContentType, "image/") {
		return fmt.Errorf("%w: %s has type %s", ErrUnsupportedFormat, f.Name, f.ContentType)
	}
	if !slices.Contains(AllowedFormats, f.Format()) {
		return fmt.Errorf("%w: %s (allowed: %s)", ErrUnsupportedFormat, f.Name, strings.Join(AllowedFormats, ", "))
	}
	if c.MaxFileSize > 0 && f.Size > c.MaxFileSize {
		return fmt.Errorf("%w: %s is %s, limit %s", ErrFileTooLarge, f.Name,
			units.HumanSize(float64(f.Size)), units.HumanSize(float64(c.MaxFileSize)))
	}
	return nil
}

// NewPublicID генерирует идентификатор изображения.
// Формат: photo_{unix ms}-{короткий uuid}, пример: photo_1705312800000-a1b2c3d4
func NewPublicID(now time.Time) string {
	return fmt.Sprintf("%s%d-%s", publicIDPrefix, now.UnixMilli(), uuid.New().String()[:8])
}
