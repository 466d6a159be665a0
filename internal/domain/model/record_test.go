package model

import (
	"testing"
	"time"
)

func TestWorkRecord_SetImages(t *testing.T) {
	r := &WorkRecord{}
	r.SetImages([]Image{
		{URL: "https://cdn/a.jpg", PublicID: "work_records/a"},
		{URL: "https://cdn/b.jpg", PublicID: "work_records/b"},
	})

	if len(r.ImageURLs) != 2 || len(r.PublicIDs) != 2 {
		t.Fatalf("длины = %d/%d, ожидалось 2/2", len(r.ImageURLs), len(r.PublicIDs))
	}
	if r.ImageURLs[1] != "https://cdn/b.jpg" || r.PublicIDs[1] != "work_records/b" {
		t.Errorf("позиционное соответствие нарушено: %v / %v", r.ImageURLs, r.PublicIDs)
	}

	imgs := r.Images()
	if len(imgs) != 2 || imgs[0].PublicID != "work_records/a" {
		t.Errorf("Images() = %v", imgs)
	}
}

func TestRecordUpdate_Apply_Partial(t *testing.T) {
	r := &WorkRecord{
		Title:       "Кухня",
		Description: "Покраска стен",
		BillAmount:  100,
		ImageURLs:   []string{"u1"},
		PublicIDs:   []string{"p1"},
	}
	amount := 0.0
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	u := &RecordUpdate{BillAmount: &amount, UpdatedAt: now}
	u.Apply(r)

	if r.BillAmount != 0 {
		t.Errorf("BillAmount = %v, ожидался 0 (явный ноль применяется)", r.BillAmount)
	}
	if r.Title != "Кухня" || r.Description != "Покраска стен" {
		t.Errorf("текстовые поля изменены: %q / %q", r.Title, r.Description)
	}
	if len(r.ImageURLs) != 1 || r.PublicIDs[0] != "p1" {
		t.Errorf("изображения изменены без Images: %v", r.ImageURLs)
	}
	if !r.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, ожидался %v", r.UpdatedAt, now)
	}
}

func TestWorkRecord_Clone(t *testing.T) {
	r := &WorkRecord{ImageURLs: []string{"u1"}, PublicIDs: []string{"p1"}}
	c := r.Clone()
	c.ImageURLs[0] = "changed"

	if r.ImageURLs[0] != "u1" {
		t.Error("Clone() разделяет срез ImageURLs с оригиналом")
	}
}
