package media

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/bigkaa/workrecords/internal/domain/model"
)

// uploadAPI — подмножество uploader.API, используемое хранилищем.
// Позволяет подменять Cloudinary в тестах.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryStore — хранилище изображений в Cloudinary.
type CloudinaryStore struct {
	api          uploadAPI
	folder       string
	maxDimension int
	now          func() time.Time
}

// NewCloudinaryStore создаёт хранилище по учётным данным Cloudinary.
// folder — папка для загружаемых изображений, maxDimension — предел
// ширины и высоты (Cloudinary уменьшает пропорционально при загрузке).
func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string, maxDimension int) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Cloudinary: %w", err)
	}
	return newCloudinaryStore(&cld.Upload, folder, maxDimension), nil
}

func newCloudinaryStore(u uploadAPI, folder string, maxDimension int) *CloudinaryStore {
	if folder == "" {
		folder = DefaultFolder
	}
	return &CloudinaryStore{
		api:          u,
		folder:       folder,
		maxDimension: maxDimension,
		now:          time.Now,
	}
}

// Name возвращает имя реализации.
func (s *CloudinaryStore) Name() string { return "cloudinary" }

// Upload загружает изображение в папку хранилища.
// Возвращает secure URL и полный public id (с папкой).
func (s *CloudinaryStore) Upload(ctx context.Context, file File) (model.Image, error) {
	params := uploader.UploadParams{
		Folder:         s.folder,
		PublicID:       NewPublicID(s.now()),
		AllowedFormats: api.CldAPIArray(AllowedFormats),
	}
	if s.maxDimension > 0 {
		dim := strconv.Itoa(s.maxDimension)
		params.Transformation = "c_limit,h_" + dim + ",w_" + dim
	}

	res, err := s.api.Upload(ctx, file.Reader, params)
	if err != nil {
		return model.Image{}, fmt.Errorf("ошибка загрузки %s в Cloudinary: %w", file.Name, err)
	}
	if res.Error.Message != "" {
		return model.Image{}, fmt.Errorf("Cloudinary отклонил %s: %s", file.Name, res.Error.Message)
	}
	if res.SecureURL == "" || res.PublicID == "" {
		return model.Image{}, fmt.Errorf("Cloudinary вернул пустой результат для %s", file.Name)
	}

	return model.Image{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

// Delete удаляет изображение по public id.
// Ответ "not found" транслируется в ErrNotFound.
func (s *CloudinaryStore) Delete(ctx context.Context, publicID string) error {
	res, err := s.api.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("ошибка удаления %s из Cloudinary: %w", publicID, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("Cloudinary отклонил удаление %s: %s", publicID, res.Error.Message)
	}

	switch res.Result {
	case "ok":
		return nil
	case "not found":
		return fmt.Errorf("%w: %s", ErrNotFound, publicID)
	default:
		return fmt.Errorf("неожиданный ответ Cloudinary при удалении %s: %q", publicID, res.Result)
	}
}
