package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/workrecords/internal/domain/model"
	"github.com/bigkaa/workrecords/internal/query"
)

// recordColumns — список столбцов таблицы work_records для SELECT/RETURNING.
const recordColumns = `id, title, description, bill_amount, image_urls, public_ids, created_at, updated_at`

// sortColumns — whitelist полей сортировки (поле API → столбец).
var sortColumns = map[string]string{
	query.FieldCreatedAt:   "created_at",
	query.FieldUpdatedAt:   "updated_at",
	query.FieldBillAmount:  "bill_amount",
	query.FieldTitle:       "title",
	query.FieldDescription: "description",
}

// likeEscaper экранирует спецсимволы шаблона ILIKE.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// pgRecordRepo — реализация RecordRepository через pgx.
type pgRecordRepo struct {
	db DBTX
}

// NewPostgresRecordRepository создаёт репозиторий записей PostgreSQL.
func NewPostgresRecordRepository(db DBTX) RecordRepository {
	return &pgRecordRepo{db: db}
}

// rowScanner — общий интерфейс pgx.Row и pgx.Rows для сканирования.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord сканирует одну строку в WorkRecord.
func scanRecord(row rowScanner) (*model.WorkRecord, error) {
	r := &model.WorkRecord{}
	if err := row.Scan(
		&r.ID, &r.Title, &r.Description, &r.BillAmount,
		&r.ImageURLs, &r.PublicIDs, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return r, nil
}

// Insert сохраняет запись. UUID генерируется, если не задан.
func (r *pgRecordRepo) Insert(ctx context.Context, record *model.WorkRecord) (*model.WorkRecord, error) {
	id := record.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	createdAt, updatedAt := record.CreatedAt, record.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	q := fmt.Sprintf(`
		INSERT INTO work_records (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`, recordColumns, recordColumns)

	saved, err := scanRecord(r.db.QueryRow(ctx, q,
		id, record.Title, record.Description, record.BillAmount,
		nonNil(record.ImageURLs), nonNil(record.PublicIDs), createdAt, updatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания записи: %w", err)
	}
	return saved, nil
}

// Find выполняет поиск записей с динамическими фильтрами, сортировкой и пагинацией.
func (r *pgRecordRepo) Find(ctx context.Context, spec query.Spec) ([]*model.WorkRecord, error) {
	where, args := buildWhere(spec, 1)
	argNum := len(args) + 1

	q := fmt.Sprintf(
		`SELECT %s FROM work_records %s %s LIMIT $%d OFFSET $%d`,
		recordColumns, where, buildOrderBy(spec.Sort), argNum, argNum+1,
	)
	args = append(args, spec.Limit, spec.Skip)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска записей: %w", err)
	}
	defer rows.Close()

	result := make([]*model.WorkRecord, 0, spec.Limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// Count возвращает количество записей с теми же фильтрами, без LIMIT/OFFSET.
func (r *pgRecordRepo) Count(ctx context.Context, spec query.Spec) (int64, error) {
	where, args := buildWhere(spec, 1)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM work_records `+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта записей: %w", err)
	}
	return total, nil
}

// GetByID возвращает запись по UUID или ErrNotFound.
// Строка, не являющаяся UUID, не может идентифицировать запись.
func (r *pgRecordRepo) GetByID(ctx context.Context, id string) (*model.WorkRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	q := fmt.Sprintf(`SELECT %s FROM work_records WHERE id = $1`, recordColumns)
	rec, err := scanRecord(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	return rec, nil
}

// Update обновляет только переданные поля и updated_at.
func (r *pgRecordRepo) Update(ctx context.Context, id string, update model.RecordUpdate) (*model.WorkRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.BillAmount != nil {
		add("bill_amount", *update.BillAmount)
	}
	if update.Images != nil {
		urls, publicIDs := splitImages(update.Images)
		add("image_urls", urls)
		add("public_ids", publicIDs)
	}
	updatedAt := update.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	add("updated_at", updatedAt)

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE work_records SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), recordColumns)

	rec, err := scanRecord(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления записи: %w", err)
	}
	return rec, nil
}

// Delete удаляет запись по UUID.
func (r *pgRecordRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM work_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats вычисляет агрегаты одним запросом. COALESCE даёт 0 на пустой таблице.
func (r *pgRecordRepo) Stats(ctx context.Context) (*model.Stats, error) {
	q := `
		SELECT
			COUNT(*),
			COALESCE(SUM(bill_amount), 0),
			COALESCE(AVG(bill_amount), 0),
			COALESCE(MAX(bill_amount), 0),
			COALESCE(MIN(bill_amount), 0)
		FROM work_records`

	s := &model.Stats{}
	if err := r.db.QueryRow(ctx, q).Scan(
		&s.TotalRecords, &s.TotalBillAmount, &s.AverageBillAmount, &s.MaxBillAmount, &s.MinBillAmount,
	); err != nil {
		return nil, fmt.Errorf("ошибка вычисления статистики: %w", err)
	}
	return s, nil
}

// buildWhere строит WHERE-условие и аргументы по спецификации запроса.
// startArg — номер первого $-параметра (для корректной нумерации).
func buildWhere(spec query.Spec, startArg int) (whereClause string, args []any) {
	var conditions []string
	argNum := startArg

	// Поиск: подстрока в title ИЛИ description, без учёта регистра
	if spec.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+likeEscaper.Replace(spec.Search)+"%")
		argNum++
	}

	if spec.CreatedFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argNum))
		args = append(args, *spec.CreatedFrom)
		argNum++
	}

	if spec.CreatedTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argNum))
		args = append(args, *spec.CreatedTo)
		argNum++
	}

	if spec.MinAmount != nil {
		conditions = append(conditions, fmt.Sprintf("bill_amount >= $%d", argNum))
		args = append(args, *spec.MinAmount)
		argNum++
	}

	if spec.MaxAmount != nil {
		conditions = append(conditions, fmt.Sprintf("bill_amount <= $%d", argNum))
		args = append(args, *spec.MaxAmount)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// buildOrderBy строит ORDER BY с безопасным whitelist полей.
// id добавляется вторым ключом для детерминированной пагинации.
func buildOrderBy(sort query.Sort) string {
	column, ok := sortColumns[sort.Field]
	if !ok {
		column = sortColumns[query.FieldCreatedAt]
	}

	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}

	return fmt.Sprintf("ORDER BY %s %s, id %s", column, direction, direction)
}
