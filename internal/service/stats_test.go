package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/bigkaa/workrecords/internal/domain/model"
	"github.com/bigkaa/workrecords/internal/repository"
)

// TestStatsService_Empty проверяет нулевую статистику для пустого хранилища.
func TestStatsService_Empty(t *testing.T) {
	svc := NewStatsService(repository.NewMemoryRecordRepository(), testLogger())

	stats, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get ошибка: %v", err)
	}
	if *stats != (model.Stats{}) {
		t.Errorf("Stats = %+v, ожидались нули", *stats)
	}
}

func TestStatsService_Aggregates(t *testing.T) {
	repo := repository.NewMemoryRecordRepository()
	ctx := context.Background()
	for _, amount := range []float64{100, 250, 50} {
		rec := &model.WorkRecord{Description: "Painting", BillAmount: amount}
		rec.SetImages(testImages(1))
		if _, err := repo.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	stats, err := NewStatsService(repo, testLogger()).Get(ctx)
	if err != nil {
		t.Fatalf("Get ошибка: %v", err)
	}
	want := model.Stats{TotalRecords: 3, TotalBillAmount: 400, AverageBillAmount: 400.0 / 3, MaxBillAmount: 250, MinBillAmount: 50}
	if *stats != want {
		t.Errorf("Stats = %+v, ожидалось %+v", *stats, want)
	}
}

// TestStatsService_NilFromStore проверяет нормализацию пустого результата хранилища.
func TestStatsService_NilFromStore(t *testing.T) {
	repo := &mockRecordRepo{statsFn: func(context.Context) (*model.Stats, error) { return nil, nil }}
	stats, err := NewStatsService(repo, testLogger()).Get(context.Background())
	if err != nil || stats == nil || stats.TotalRecords != 0 {
		t.Errorf("Get = %+v, %v", stats, err)
	}
}

func TestStatsService_StoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	repo := &mockRecordRepo{statsFn: func(context.Context) (*model.Stats, error) { return nil, storeErr }}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	if _, err := NewStatsService(repo, logger).Get(context.Background()); !errors.Is(err, storeErr) {
		t.Errorf("ошибка = %v, ожидалась обёрнутая ошибка хранилища", err)
	}
	if out := logs.String(); !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "connection refused") {
		t.Errorf("лог не содержит ошибку хранилища: %s", out)
	}
}
