package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/bigkaa/workrecords/internal/domain/model"
)

// Качество JPEG при перекодировании уменьшенных изображений.
const jpegQuality = 85

// Ограничение числа пикселей до декодирования: сжатый файл может быть мал,
// а растр после декодирования занимать сотни мегабайт.
const (
	maxPixelsFactor  = 16
	defaultMaxPixels = 40_000_000
)

// LocalStore — хранилище изображений в локальной директории.
// Файлы отдаются HTTP-сервером по пути {publicURL}/media/{publicID}.
type LocalStore struct {
	// dir — корневая директория хранения (WR_MEDIA_DIR)
	dir          string
	publicURL    string
	maxDimension int
	now          func() time.Time
}

// NewLocalStore создаёт локальное хранилище. Создаёт директорию,
// если она не существует.
func NewLocalStore(dir, publicURL string, maxDimension int) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию медиа %s: %w", dir, err)
	}
	return &LocalStore{
		dir:          dir,
		publicURL:    strings.TrimRight(publicURL, "/"),
		maxDimension: maxDimension,
		now:          time.Now,
	}, nil
}

// Name возвращает имя реализации.
func (s *LocalStore) Name() string { return "local" }

// Dir возвращает путь к директории хранения.
func (s *LocalStore) Dir() string { return s.dir }

// Upload сохраняет изображение. Изображения больше maxDimension по любой
// стороне уменьшаются пропорционально и перекодируются (PNG остаётся PNG,
// остальные форматы становятся JPEG). Public id совпадает с именем файла.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
func (s *LocalStore) Upload(ctx context.Context, file File) (model.Image, error) {
	data, err := io.ReadAll(file.Reader)
	if err != nil {
		return model.Image{}, fmt.Errorf("ошибка чтения %s: %w", file.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return model.Image{}, err
	}

	data, ext, err := s.prepare(data)
	if err != nil {
		return model.Image{}, fmt.Errorf("%s: %w", file.Name, err)
	}

	publicID := NewPublicID(s.now()) + "." + ext
	if err := s.writeAtomic(publicID, data); err != nil {
		return model.Image{}, err
	}

	return model.Image{
		URL:      s.publicURL + "/media/" + url.PathEscape(publicID),
		PublicID: publicID,
	}, nil
}

// prepare проверяет, что данные являются изображением, и при необходимости
// уменьшает его. Возвращает итоговые байты и расширение файла
// (по фактическому формату содержимого, а не по имени).
func (s *LocalStore) prepare(data []byte) ([]byte, string, error) {
	cfg, decodedFormat, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: не удалось распознать изображение", ErrUnsupportedFormat)
	}
	format := decodedFormat
	if format == "jpeg" {
		format = "jpg"
	}

	if pixels, limit := int64(cfg.Width)*int64(cfg.Height), s.maxPixels(); pixels > limit {
		return nil, "", fmt.Errorf("%w: %dx%d px exceeds %d px limit",
			ErrFileTooLarge, cfg.Width, cfg.Height, limit)
	}

	if s.maxDimension <= 0 || (cfg.Width <= s.maxDimension && cfg.Height <= s.maxDimension) {
		return data, format, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: ошибка декодирования", ErrUnsupportedFormat)
	}
	w, h := fitWithin(cfg.Width, cfg.Height, s.maxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if decodedFormat == "png" {
		err = png.Encode(&buf, dst)
		format = "png"
	} else {
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
		format = "jpg"
	}
	if err != nil {
		return nil, "", fmt.Errorf("ошибка кодирования изображения: %w", err)
	}
	return buf.Bytes(), format, nil
}

// maxPixels возвращает допустимое число пикселей исходного изображения.
func (s *LocalStore) maxPixels() int64 {
	if s.maxDimension <= 0 {
		return defaultMaxPixels
	}
	return maxPixelsFactor * int64(s.maxDimension) * int64(s.maxDimension)
}

// fitWithin вычисляет размеры, вписанные в квадрат limit×limit с сохранением пропорций.
func fitWithin(w, h, limit int) (int, int) {
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

func (s *LocalStore) writeAtomic(name string, data []byte) error {
	fullPath := filepath.Join(s.dir, name)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
	}
	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}
	return nil
}

// Delete удаляет файл изображения. Для отсутствующего файла — ErrNotFound.
func (s *LocalStore) Delete(_ context.Context, publicID string) error {
	fullPath, err := s.path(publicID)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, publicID)
		}
		return fmt.Errorf("ошибка удаления файла %s: %w", publicID, err)
	}
	return nil
}

// Open открывает файл изображения для отдачи клиенту.
// Вызывающий код обязан закрыть файл.
func (s *LocalStore) Open(publicID string) (*os.File, error) {
	fullPath, err := s.path(publicID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, publicID)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", publicID, err)
	}
	return f, nil
}

// path возвращает полный путь файла. Допускаются только имена
// без разделителей пути и временные файлы не отдаются.
func (s *LocalStore) path(publicID string) (string, error) {
	if publicID == "" || publicID != filepath.Base(publicID) ||
		strings.HasPrefix(publicID, ".") || strings.HasSuffix(publicID, ".tmp") {
		return "", fmt.Errorf("%w: %s", ErrNotFound, publicID)
	}
	return filepath.Join(s.dir, publicID), nil
}
