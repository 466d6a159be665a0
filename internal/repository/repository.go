// Пакет repository — слой доступа к хранилищу записей о работах.
// Реализации: PostgreSQL (pgx, чистый SQL без ORM), MongoDB (mongo-driver)
// и in-memory (разработка и тесты). Все реализации транслируют
// query.Spec в собственный язык запросов.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/workrecords/internal/domain/model"
	"github.com/bigkaa/workrecords/internal/query"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
)

// RecordRepository — интерфейс хранилища записей о работах.
// Атомарность гарантируется только на уровне одной записи;
// при конкурентных обновлениях побеждает последняя запись.
type RecordRepository interface {
	// Insert сохраняет новую запись. Идентификатор присваивается хранилищем.
	Insert(ctx context.Context, record *model.WorkRecord) (*model.WorkRecord, error)
	// Find возвращает записи, удовлетворяющие фильтрам, с сортировкой и пагинацией.
	Find(ctx context.Context, spec query.Spec) ([]*model.WorkRecord, error)
	// Count возвращает количество записей, удовлетворяющих фильтрам (без limit/skip).
	Count(ctx context.Context, spec query.Spec) (int64, error)
	// GetByID возвращает запись по идентификатору или ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.WorkRecord, error)
	// Update применяет изменения и возвращает обновлённую запись или ErrNotFound.
	Update(ctx context.Context, id string, update model.RecordUpdate) (*model.WorkRecord, error)
	// Delete удаляет запись или возвращает ErrNotFound.
	Delete(ctx context.Context, id string) error
	// Stats вычисляет агрегаты по всем записям одним запросом.
	Stats(ctx context.Context) (*model.Stats, error)
}

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// splitImages раскладывает изображения на параллельные срезы URL и дескрипторов.
func splitImages(images []model.Image) (urls, publicIDs []string) {
	urls = make([]string, len(images))
	publicIDs = make([]string, len(images))
	for i, img := range images {
		urls[i] = img.URL
		publicIDs[i] = img.PublicID
	}
	return urls, publicIDs
}

// nonNil заменяет nil-срез пустым (NOT NULL колонки и JSON-массивы).
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
