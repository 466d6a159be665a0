package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/bigkaa/workrecords/internal/domain/model"
	"github.com/bigkaa/workrecords/internal/query"
)

func TestMemoryRecordRepository_Contract(t *testing.T) {
	runRepositoryContract(t, NewMemoryRecordRepository())
}

// TestMemoryRecordRepository_ReturnsCopies проверяет, что изменения
// возвращённой записи не влияют на хранилище.
func TestMemoryRecordRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRecordRepository()
	ctx := context.Background()

	rec := &model.WorkRecord{Description: "Painting", BillAmount: 10}
	rec.SetImages([]model.Image{{URL: "u1", PublicID: "p1"}})

	saved, err := repo.Insert(ctx, rec)
	if err != nil {
		t.Fatalf("Insert ошибка: %v", err)
	}
	saved.ImageURLs[0] = "mutated"
	rec.PublicIDs[0] = "mutated"

	got, err := repo.GetByID(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetByID ошибка: %v", err)
	}
	if got.ImageURLs[0] != "u1" || got.PublicIDs[0] != "p1" {
		t.Errorf("хранилище изменено через возвращённую запись: %v / %v", got.ImageURLs, got.PublicIDs)
	}
}

func TestMemoryRecordRepository_SkipBeyondEnd(t *testing.T) {
	repo := NewMemoryRecordRepository()
	ctx := context.Background()
	if _, err := repo.Insert(ctx, &model.WorkRecord{Description: "Painting"}); err != nil {
		t.Fatalf("Insert ошибка: %v", err)
	}

	spec, _ := query.Build(query.Params{Skip: ptr(10)})
	records, err := repo.Find(ctx, spec)
	if err != nil {
		t.Fatalf("Find ошибка: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Find вернул %d записей, ожидалось 0", len(records))
	}
}

// TestMemoryRecordRepository_ConcurrentInserts проверяет потокобезопасность.
func TestMemoryRecordRepository_ConcurrentInserts(t *testing.T) {
	repo := NewMemoryRecordRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.Insert(ctx, &model.WorkRecord{Description: "Concurrent", BillAmount: 1})
		}()
	}
	wg.Wait()

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats ошибка: %v", err)
	}
	if stats.TotalRecords != 50 || stats.TotalBillAmount != 50 {
		t.Errorf("Stats = %+v, ожидалось 50 записей", *stats)
	}
}
