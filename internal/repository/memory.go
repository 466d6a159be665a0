package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/workrecords/internal/domain/model"
	"github.com/bigkaa/workrecords/internal/query"
)

// memoryRecordRepo — потокобезопасное in-memory хранилище записей.
// Используется при WR_STORE_DRIVER=memory и в тестах.
type memoryRecordRepo struct {
	mu      sync.RWMutex
	records map[string]*model.WorkRecord
	now     func() time.Time
}

// NewMemoryRecordRepository создаёт пустое in-memory хранилище.
func NewMemoryRecordRepository() RecordRepository {
	return &memoryRecordRepo{
		records: make(map[string]*model.WorkRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryRecordRepo) Insert(_ context.Context, record *model.WorkRecord) (*model.WorkRecord, error) {
	rec := record.Clone()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	rec.ImageURLs = nonNil(rec.ImageURLs)
	rec.PublicIDs = nonNil(rec.PublicIDs)

	r.mu.Lock()
	r.records[rec.ID] = rec
	r.mu.Unlock()

	return rec.Clone(), nil
}

// filtered возвращает отсортированные записи, удовлетворяющие фильтрам.
// Вызывается под блокировкой чтения.
func (r *memoryRecordRepo) filtered(spec query.Spec) []*model.WorkRecord {
	out := make([]*model.WorkRecord, 0, len(r.records))
	for _, rec := range r.records {
		if spec.Matches(rec) {
			out = append(out, rec)
		}
	}
	slices.SortStableFunc(out, func(a, b *model.WorkRecord) int {
		switch {
		case spec.Less(a, b):
			return -1
		case spec.Less(b, a):
			return 1
		}
		// Детерминированный порядок при равных ключах
		if spec.Sort.Desc {
			return -strings.Compare(a.ID, b.ID)
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (r *memoryRecordRepo) Find(_ context.Context, spec query.Spec) ([]*model.WorkRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.filtered(spec)
	if spec.Skip >= len(all) {
		return []*model.WorkRecord{}, nil
	}
	end := len(all)
	if spec.Limit > 0 && spec.Skip+spec.Limit < end {
		end = spec.Skip + spec.Limit
	}

	page := make([]*model.WorkRecord, 0, end-spec.Skip)
	for _, rec := range all[spec.Skip:end] {
		page = append(page, rec.Clone())
	}
	return page, nil
}

func (r *memoryRecordRepo) Count(_ context.Context, spec query.Spec) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, rec := range r.records {
		if spec.Matches(rec) {
			n++
		}
	}
	return n, nil
}

func (r *memoryRecordRepo) GetByID(_ context.Context, id string) (*model.WorkRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *memoryRecordRepo) Update(_ context.Context, id string, update model.RecordUpdate) (*model.WorkRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = r.now()
	}
	update.Apply(rec)
	return rec.Clone(), nil
}

func (r *memoryRecordRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *memoryRecordRepo) Stats(_ context.Context) (*model.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &model.Stats{}
	for _, rec := range r.records {
		if s.TotalRecords == 0 || rec.BillAmount > s.MaxBillAmount {
			s.MaxBillAmount = rec.BillAmount
		}
		if s.TotalRecords == 0 || rec.BillAmount < s.MinBillAmount {
			s.MinBillAmount = rec.BillAmount
		}
		s.TotalRecords++
		s.TotalBillAmount += rec.BillAmount
	}
	if s.TotalRecords > 0 {
		s.AverageBillAmount = s.TotalBillAmount / float64(s.TotalRecords)
	}
	return s, nil
}
