// forms.go — разбор тел запросов создания и обновления записей.
// POST принимает multipart/form-data, PUT — JSON или multipart.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/bigkaa/workrecords/internal/media"
	"github.com/bigkaa/workrecords/internal/service"
)

// Имена полей формы.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldBillAmount  = "billAmount"
	fieldImages      = "images"
)

// multipartMemory — объём формы, хранимый в памяти; остальное уходит во временные файлы.
const multipartMemory = 32 << 20

// formFieldsOverhead — запас на текстовые поля и заголовки multipart.
const formFieldsOverhead = 1 << 20

// recordForm — поля записи и файлы изображений из тела запроса.
type recordForm struct {
	Title       *string
	Description *string
	BillAmount  *float64
	// billAmountInvalid — billAmount передан, но не является числом.
	// Решение об ошибке принимает сервис после проверки обязательных полей.
	billAmountInvalid bool
	files             []*multipart.FileHeader
	form              *multipart.Form
}

// bodyLimit возвращает максимальный размер тела запроса с изображениями.
func bodyLimit(c media.Constraints) int64 {
	if c.MaxFileSize <= 0 || c.MaxFiles <= 0 {
		return 0
	}
	return c.MaxFileSize*int64(c.MaxFiles) + formFieldsOverhead
}

// isMultipart сообщает, передано ли тело как multipart/form-data.
func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseMultipartForm разбирает multipart-тело. Пустое поле billAmount
// считается непереданным, нечисловое помечается как некорректное.
func parseMultipartForm(r *http.Request) (*recordForm, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, service.NewValidationError("Invalid multipart form")
	}

	f := &recordForm{form: r.MultipartForm}
	values := r.MultipartForm.Value
	if v, ok := values[fieldTitle]; ok && len(v) > 0 {
		f.Title = &v[0]
	}
	if v, ok := values[fieldDescription]; ok && len(v) > 0 {
		f.Description = &v[0]
	}
	if v, ok := values[fieldBillAmount]; ok && len(v) > 0 && strings.TrimSpace(v[0]) != "" {
		f.setAmount(v[0])
	}
	f.files = r.MultipartForm.File[fieldImages]
	return f, nil
}

// parseJSONForm разбирает JSON-тело обновления.
// billAmount принимается как число или как строка с числом.
func parseJSONForm(r *http.Request) (*recordForm, error) {
	var body struct {
		Title       *string         `json:"title"`
		Description *string         `json:"description"`
		BillAmount  json.RawMessage `json:"billAmount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		if errors.Is(err, io.EOF) {
			return &recordForm{}, nil
		}
		return nil, service.NewValidationError("Invalid JSON body")
	}

	f := &recordForm{Title: body.Title, Description: body.Description}
	raw := bytes.TrimSpace(body.BillAmount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return f, nil
	}

	var amount float64
	if err := json.Unmarshal(raw, &amount); err == nil {
		f.BillAmount = &amount
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		f.billAmountInvalid = true
		return f, nil
	}
	f.setAmount(s)
	return f, nil
}

// setAmount разбирает десятичную сумму из строки.
func (f *recordForm) setAmount(raw string) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		f.billAmountInvalid = true
		return
	}
	f.BillAmount = &v
}

// openFiles открывает загруженные файлы формы.
// Возвращённая функция закрывает все открытые файлы.
func (f *recordForm) openFiles() ([]media.File, func(), error) {
	opened := make([]multipart.File, 0, len(f.files))
	closeAll := func() {
		for _, file := range opened {
			_ = file.Close()
		}
	}

	files := make([]media.File, 0, len(f.files))
	for _, fh := range f.files {
		file, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("открытие файла %s: %w", fh.Filename, err)
		}
		opened = append(opened, file)
		files = append(files, media.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Reader:      file,
		})
	}
	return files, closeAll, nil
}

// cleanup удаляет временные файлы multipart-формы.
func (f *recordForm) cleanup() {
	if f.form != nil {
		_ = f.form.RemoveAll()
	}
}
