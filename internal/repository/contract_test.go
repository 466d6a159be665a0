package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/workrecords/internal/domain/model"
	"github.com/bigkaa/workrecords/internal/query"
)

func ptr[T any](v T) *T { return &v }

// mustSpec строит спецификацию запроса или завершает тест.
func mustSpec(t *testing.T, p query.Params) query.Spec {
	t.Helper()
	spec, err := query.Build(p)
	if err != nil {
		t.Fatalf("query.Build ошибка: %v", err)
	}
	return spec
}

// seedRecord вставляет запись с одним изображением.
func seedRecord(t *testing.T, repo RecordRepository, title, description string, amount float64, createdAt time.Time) *model.WorkRecord {
	t.Helper()
	rec := &model.WorkRecord{
		Title:       title,
		Description: description,
		BillAmount:  amount,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	rec.SetImages([]model.Image{{URL: "https://cdn/" + description, PublicID: "work_records/" + description}})

	saved, err := repo.Insert(context.Background(), rec)
	if err != nil {
		t.Fatalf("Insert ошибка: %v", err)
	}
	return saved
}

// runRepositoryContract проверяет поведение, общее для всех реализаций RecordRepository.
// Хранилище должно быть пустым.
//
//nolint:gocyclo // последовательный сценарий
func runRepositoryContract(t *testing.T, repo RecordRepository) {
	t.Helper()
	ctx := context.Background()

	// --- Статистика пустого хранилища: все нули ---
	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats ошибка: %v", err)
	}
	if *stats != (model.Stats{}) {
		t.Errorf("Stats пустого хранилища = %+v, ожидались нули", *stats)
	}

	base := time.Date(2024, 1, 14, 12, 0, 0, 0, time.UTC)
	kitchen := seedRecord(t, repo, "Kitchen", "New cabinets", 250, base)
	sink := seedRecord(t, repo, "", "Fixed kitchen sink", 100, base.Add(24*time.Hour))
	lastMs := seedRecord(t, repo, "Bathroom", "Tiles", 500, time.Date(2024, 1, 15, 23, 59, 59, 999_000_000, time.UTC))
	nextDay := seedRecord(t, repo, "Garage", "Door repair", 1000, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC))

	if kitchen.ID == "" {
		t.Fatal("Insert не присвоил идентификатор")
	}
	if len(kitchen.ImageURLs) != 1 || len(kitchen.PublicIDs) != 1 {
		t.Errorf("изображения после Insert: %v / %v", kitchen.ImageURLs, kitchen.PublicIDs)
	}

	// --- Сортировка по умолчанию: createdAt по убыванию ---
	all, err := repo.Find(ctx, mustSpec(t, query.Params{}))
	if err != nil {
		t.Fatalf("Find ошибка: %v", err)
	}
	wantOrder := []string{nextDay.ID, lastMs.ID, sink.ID, kitchen.ID}
	if len(all) != len(wantOrder) {
		t.Fatalf("Find вернул %d записей, ожидалось %d", len(all), len(wantOrder))
	}
	for i, id := range wantOrder {
		if all[i].ID != id {
			t.Errorf("позиция %d: %s, ожидалась %s", i, all[i].ID, id)
		}
	}

	// --- Диапазон сумм ---
	inRange, err := repo.Find(ctx, mustSpec(t, query.Params{MinAmount: ptr(100.0), MaxAmount: ptr(500.0)}))
	if err != nil {
		t.Fatalf("Find ошибка: %v", err)
	}
	if len(inRange) != 3 {
		t.Errorf("minAmount=100&maxAmount=500: %d записей, ожидалось 3", len(inRange))
	}
	for _, r := range inRange {
		if r.BillAmount < 100 || r.BillAmount > 500 {
			t.Errorf("запись с суммой %v вне диапазона", r.BillAmount)
		}
	}

	// --- Поиск без учёта регистра по title ИЛИ description ---
	found, err := repo.Find(ctx, mustSpec(t, query.Params{Search: ptr("kitchen")}))
	if err != nil {
		t.Fatalf("Find ошибка: %v", err)
	}
	if len(found) != 2 {
		t.Errorf("search=kitchen: %d записей, ожидалось 2", len(found))
	}

	// --- endDate включает последнюю миллисекунду дня ---
	endDay := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	untilEnd, err := repo.Find(ctx, mustSpec(t, query.Params{EndDate: &endDay}))
	if err != nil {
		t.Fatalf("Find ошибка: %v", err)
	}
	ids := map[string]bool{}
	for _, r := range untilEnd {
		ids[r.ID] = true
	}
	if !ids[lastMs.ID] {
		t.Error("запись 2024-01-15T23:59:59.999 не попала в endDate=2024-01-15")
	}
	if ids[nextDay.ID] {
		t.Error("запись 2024-01-16T00:00:00.000 попала в endDate=2024-01-15")
	}

	// --- Count игнорирует limit/skip ---
	page := mustSpec(t, query.Params{Limit: ptr(1), Skip: ptr(1)})
	pageRecords, err := repo.Find(ctx, page)
	if err != nil {
		t.Fatalf("Find ошибка: %v", err)
	}
	if len(pageRecords) != 1 || pageRecords[0].ID != lastMs.ID {
		t.Errorf("limit=1&skip=1 вернул %v", pageRecords)
	}
	total, err := repo.Count(ctx, page)
	if err != nil {
		t.Fatalf("Count ошибка: %v", err)
	}
	if total != 4 {
		t.Errorf("Count = %d, ожидалось 4", total)
	}

	// --- GetByID ---
	got, err := repo.GetByID(ctx, sink.ID)
	if err != nil {
		t.Fatalf("GetByID ошибка: %v", err)
	}
	if got.Description != "Fixed kitchen sink" {
		t.Errorf("Description = %q", got.Description)
	}
	if _, err := repo.GetByID(ctx, "does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID несуществующей: ошибка = %v, ожидалась ErrNotFound", err)
	}

	// --- Update: частичное обновление и замена изображений ---
	updatedAt := base.Add(72 * time.Hour)
	updated, err := repo.Update(ctx, kitchen.ID, model.RecordUpdate{
		BillAmount: ptr(0.0),
		Images: []model.Image{
			{URL: "https://cdn/new-1", PublicID: "work_records/new-1"},
			{URL: "https://cdn/new-2", PublicID: "work_records/new-2"},
		},
		UpdatedAt: updatedAt,
	})
	if err != nil {
		t.Fatalf("Update ошибка: %v", err)
	}
	if updated.BillAmount != 0 || updated.Title != "Kitchen" || updated.Description != "New cabinets" {
		t.Errorf("Update результат = %+v", updated)
	}
	if len(updated.ImageURLs) != 2 || updated.PublicIDs[1] != "work_records/new-2" {
		t.Errorf("изображения после Update: %v / %v", updated.ImageURLs, updated.PublicIDs)
	}
	if !updated.UpdatedAt.Equal(updatedAt) {
		t.Errorf("UpdatedAt = %v, ожидался %v", updated.UpdatedAt, updatedAt)
	}
	if !updated.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt изменён: %v", updated.CreatedAt)
	}
	if _, err := repo.Update(ctx, "does-not-exist", model.RecordUpdate{Title: ptr("x")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update несуществующей: ошибка = %v, ожидалась ErrNotFound", err)
	}

	// --- Stats по всем записям ---
	stats, err = repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats ошибка: %v", err)
	}
	if stats.TotalRecords != 4 || stats.TotalBillAmount != 1600 ||
		stats.AverageBillAmount != 400 || stats.MaxBillAmount != 1000 || stats.MinBillAmount != 0 {
		t.Errorf("Stats = %+v", *stats)
	}

	// --- Delete ---
	if err := repo.Delete(ctx, sink.ID); err != nil {
		t.Fatalf("Delete ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, sink.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("запись найдена после Delete: %v", err)
	}
	if err := repo.Delete(ctx, sink.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete: ошибка = %v, ожидалась ErrNotFound", err)
	}
}
