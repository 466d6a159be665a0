// Пакет model — доменные модели Work Records.
package model

import "time"

// Ограничения полей записи.
const (
	// TitleMaxLength — максимальная длина заголовка (в символах, после trim).
	TitleMaxLength = 100
	// DescriptionMinLength — минимальная длина описания (в символах, после trim).
	DescriptionMinLength = 3
)

// WorkRecord — запись о выполненной работе.
// Инвариант: len(ImageURLs) == len(PublicIDs), элементы сопоставлены по индексу.
type WorkRecord struct {
	// ID — идентификатор, присваивается хранилищем при создании.
	ID string `json:"_id"`
	// Title — необязательный заголовок (≤100 символов).
	Title string `json:"title"`
	// Description — обязательное описание (≥3 символов).
	Description string `json:"description"`
	// BillAmount — сумма счёта (≥0).
	BillAmount float64 `json:"billAmount"`
	// ImageURLs — ссылки на изображения, в порядке загрузки.
	ImageURLs []string `json:"imageUrls"`
	// PublicIDs — дескрипторы удаления изображений в медиа-хранилище.
	PublicIDs []string `json:"cloudinaryPublicIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Image — изображение, уже сохранённое в медиа-хранилище.
type Image struct {
	// URL — стабильная ссылка на изображение.
	URL string
	// PublicID — дескриптор для последующего удаления.
	PublicID string
}

// SetImages заменяет набор изображений записи целиком,
// сохраняя позиционное соответствие URL и дескрипторов.
func (r *WorkRecord) SetImages(images []Image) {
	r.ImageURLs = make([]string, len(images))
	r.PublicIDs = make([]string, len(images))
	for i, img := range images {
		r.ImageURLs[i] = img.URL
		r.PublicIDs[i] = img.PublicID
	}
}

// Images возвращает изображения записи в порядке хранения.
func (r *WorkRecord) Images() []Image {
	n := min(len(r.ImageURLs), len(r.PublicIDs))
	out := make([]Image, n)
	for i := range n {
		out[i] = Image{URL: r.ImageURLs[i], PublicID: r.PublicIDs[i]}
	}
	return out
}

// Clone возвращает глубокую копию записи.
func (r *WorkRecord) Clone() *WorkRecord {
	c := *r
	c.ImageURLs = append([]string(nil), r.ImageURLs...)
	c.PublicIDs = append([]string(nil), r.PublicIDs...)
	return &c
}

// RecordUpdate — изменяемые поля записи.
// nil — поле не изменяется. Images == nil — набор изображений не меняется.
type RecordUpdate struct {
	Title       *string
	Description *string
	BillAmount  *float64
	Images      []Image
	UpdatedAt   time.Time
}

// Apply применяет изменения к записи.
func (u *RecordUpdate) Apply(r *WorkRecord) {
	if u.Title != nil {
		r.Title = *u.Title
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.BillAmount != nil {
		r.BillAmount = *u.BillAmount
	}
	if u.Images != nil {
		r.SetImages(u.Images)
	}
	r.UpdatedAt = u.UpdatedAt
}

// Stats — сводная статистика по суммам всех записей.
// При отсутствии записей все значения равны 0.
type Stats struct {
	TotalRecords      int64   `json:"totalRecords"`
	TotalBillAmount   float64 `json:"totalBillAmount"`
	AverageBillAmount float64 `json:"averageBillAmount"`
	MaxBillAmount     float64 `json:"maxBillAmount"`
	MinBillAmount     float64 `json:"minBillAmount"`
}
