// Пакет query — построение запроса к хранилищу записей из необязательных
// параметров фильтрации, сортировки и пагинации.
//
// Разбор строковых параметров (FromValues) выполняется один раз на границе HTTP.
// Build — чистая функция без I/O: проверяет и нормализует Params в Spec,
// который каждое хранилище транслирует в свой язык запросов.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/bigkaa/workrecords/internal/domain/model"
)

// ErrInvalidParam — некорректное значение параметра запроса.
// Текст ошибки возвращается клиенту как есть.
var ErrInvalidParam = errors.New("invalid query parameter")

// Значения по умолчанию и ограничения пагинации.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// Поля сортировки (имена совпадают с JSON-полями записи).
const (
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
	FieldBillAmount  = "billAmount"
	FieldTitle       = "title"
	FieldDescription = "description"
)

// DefaultSort — сортировка по умолчанию: новые записи первыми.
const DefaultSort = "-" + FieldCreatedAt

// endOfDay — смещение последнего учитываемого момента дня (23:59:59.999).
const endOfDay = 24*time.Hour - time.Millisecond

// Params — параметры запроса списка записей.
// Все поля — указатели, nil = параметр не задан.
type Params struct {
	// Search — подстрока для поиска в title или description (без учёта регистра)
	Search *string
	// StartDate — календарная дата начала периода (включительно)
	StartDate *time.Time
	// EndDate — календарная дата конца периода (включительно, до 23:59:59.999)
	EndDate *time.Time
	// MinAmount — минимальная сумма счёта
	MinAmount *float64
	// MaxAmount — максимальная сумма счёта
	MaxAmount *float64
	// Sort — поле сортировки, префикс "-" означает убывание
	Sort *string
	// Limit — максимальное количество записей
	Limit *int
	// Skip — количество пропускаемых записей
	Skip *int
}

// Sort — нормализованная сортировка.
type Sort struct {
	Field string
	Desc  bool
}

// String возвращает сортировку в формате параметра ("-createdAt").
func (s Sort) String() string {
	if s.Desc {
		return "-" + s.Field
	}
	return s.Field
}

// Spec — нормализованная спецификация запроса.
// Фильтры объединяются через AND, Search — OR по title и description.
type Spec struct {
	// Search — подстрока поиска, "" — без ограничения
	Search string
	// CreatedFrom — нижняя граница createdAt (включительно)
	CreatedFrom *time.Time
	// CreatedTo — верхняя граница createdAt (включительно)
	CreatedTo *time.Time
	MinAmount *float64
	MaxAmount *float64
	Sort      Sort
	Limit     int
	Skip      int
}

// Applied — применённые параметры запроса для поля filters в ответе API.
type Applied struct {
	Search    string   `json:"search,omitempty"`
	StartDate string   `json:"startDate,omitempty"`
	EndDate   string   `json:"endDate,omitempty"`
	MinAmount *float64 `json:"minAmount,omitempty"`
	MaxAmount *float64 `json:"maxAmount,omitempty"`
	Sort      string   `json:"sort"`
	Limit     int      `json:"limit"`
	Skip      int      `json:"skip"`
}

// Параметры строки запроса, распознаваемые FromValues.
var paramNames = []string{"search", "startDate", "endDate", "minAmount", "maxAmount", "sort", "limit", "skip"}

// FromValues разбирает параметры строки запроса в Params.
// Пустые значения (?search=&minAmount=) считаются отсутствующими.
// Некорректные числа и даты возвращают ErrInvalidParam.
func FromValues(values url.Values) (Params, error) {
	// Убираем пустые значения — клиенты передают "" для незаданных фильтров.
	cleaned := make(url.Values, len(values))
	for _, name := range paramNames {
		if v := strings.TrimSpace(values.Get(name)); v != "" {
			cleaned.Set(name, v)
		}
	}

	var (
		p   Params
		err error
	)
	bind := func(name string, dest any) error {
		if err := runtime.BindQueryParameter("form", true, false, name, cleaned, dest); err != nil {
			return fmt.Errorf("%w: %s: %s", ErrInvalidParam, name, err.Error())
		}
		return nil
	}

	if err := bind("search", &p.Search); err != nil {
		return Params{}, err
	}
	if p.StartDate, err = bindDate(cleaned, "startDate"); err != nil {
		return Params{}, err
	}
	if p.EndDate, err = bindDate(cleaned, "endDate"); err != nil {
		return Params{}, err
	}
	if err := bind("minAmount", &p.MinAmount); err != nil {
		return Params{}, err
	}
	if err := bind("maxAmount", &p.MaxAmount); err != nil {
		return Params{}, err
	}
	if err := bind("sort", &p.Sort); err != nil {
		return Params{}, err
	}
	if err := bind("limit", &p.Limit); err != nil {
		return Params{}, err
	}
	if err := bind("skip", &p.Skip); err != nil {
		return Params{}, err
	}

	return p, nil
}

// bindDate разбирает календарную дату (2006-01-02) или момент времени RFC 3339.
func bindDate(values url.Values, name string) (*time.Time, error) {
	raw := values.Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s: expected date in format 2006-01-02 or RFC 3339, got %q",
		ErrInvalidParam, name, raw)
}

// Build проверяет и нормализует параметры запроса.
//
//nolint:cyclop // сложность обусловлена количеством параметров
func Build(p Params) (Spec, error) {
	spec := Spec{
		Sort:  parseSort(DefaultSort),
		Limit: DefaultLimit,
	}

	if p.Search != nil {
		spec.Search = strings.TrimSpace(*p.Search)
	}

	if p.StartDate != nil {
		from := startOfDay(*p.StartDate)
		spec.CreatedFrom = &from
	}
	if p.EndDate != nil {
		to := startOfDay(*p.EndDate).Add(endOfDay)
		spec.CreatedTo = &to
	}
	if spec.CreatedFrom != nil && spec.CreatedTo != nil && spec.CreatedFrom.After(*spec.CreatedTo) {
		return Spec{}, fmt.Errorf("%w: startDate cannot be after endDate", ErrInvalidParam)
	}

	if p.MinAmount != nil {
		v := *p.MinAmount
		spec.MinAmount = &v
	}
	if p.MaxAmount != nil {
		v := *p.MaxAmount
		spec.MaxAmount = &v
	}
	if spec.MinAmount != nil && spec.MaxAmount != nil && *spec.MinAmount > *spec.MaxAmount {
		return Spec{}, fmt.Errorf("%w: minAmount cannot be greater than maxAmount", ErrInvalidParam)
	}

	if p.Sort != nil && strings.TrimSpace(*p.Sort) != "" {
		spec.Sort = parseSort(strings.TrimSpace(*p.Sort))
	}

	if p.Limit != nil {
		spec.Limit = min(max(*p.Limit, 1), MaxLimit)
	}
	if p.Skip != nil {
		spec.Skip = max(*p.Skip, 0)
	}

	return spec, nil
}

// parseSort разбирает "-field" / "field" с whitelist полей.
// Неизвестное поле заменяется на createdAt с сохранением направления.
func parseSort(raw string) Sort {
	s := Sort{Field: FieldCreatedAt}
	if strings.HasPrefix(raw, "-") {
		s.Desc = true
		raw = raw[1:]
	}
	switch raw {
	case FieldCreatedAt, FieldUpdatedAt, FieldBillAmount, FieldTitle, FieldDescription:
		s.Field = raw
	}
	return s
}

// startOfDay возвращает начало календарного дня (UTC). Дата берётся
// в часовом поясе самого значения: 2024-01-15T23:00:00-05:00 — это 15 января.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Unfiltered сообщает, что спецификация не содержит ни одного фильтра.
func (s Spec) Unfiltered() bool {
	return s.Search == "" && s.CreatedFrom == nil && s.CreatedTo == nil &&
		s.MinAmount == nil && s.MaxAmount == nil
}

// Matches проверяет, удовлетворяет ли запись фильтрам спецификации.
// Используется хранилищами без собственного языка запросов.
func (s Spec) Matches(r *model.WorkRecord) bool {
	if s.Search != "" {
		needle := strings.ToLower(s.Search)
		if !strings.Contains(strings.ToLower(r.Title), needle) &&
			!strings.Contains(strings.ToLower(r.Description), needle) {
			return false
		}
	}
	if s.CreatedFrom != nil && r.CreatedAt.Before(*s.CreatedFrom) {
		return false
	}
	if s.CreatedTo != nil && r.CreatedAt.After(*s.CreatedTo) {
		return false
	}
	if s.MinAmount != nil && r.BillAmount < *s.MinAmount {
		return false
	}
	if s.MaxAmount != nil && r.BillAmount > *s.MaxAmount {
		return false
	}
	return true
}

// Less сравнивает записи в порядке сортировки спецификации.
func (s Spec) Less(a, b *model.WorkRecord) bool {
	var cmp int
	switch s.Sort.Field {
	case FieldUpdatedAt:
		cmp = a.UpdatedAt.Compare(b.UpdatedAt)
	case FieldBillAmount:
		switch {
		case a.BillAmount < b.BillAmount:
			cmp = -1
		case a.BillAmount > b.BillAmount:
			cmp = 1
		}
	case FieldTitle:
		cmp = strings.Compare(a.Title, b.Title)
	case FieldDescription:
		cmp = strings.Compare(a.Description, b.Description)
	default:
		cmp = a.CreatedAt.Compare(b.CreatedAt)
	}
	if s.Sort.Desc {
		return cmp > 0
	}
	return cmp < 0
}

// Applied возвращает применённые параметры для ответа API.
func (s Spec) Applied() Applied {
	a := Applied{
		Search:    s.Search,
		MinAmount: s.MinAmount,
		MaxAmount: s.MaxAmount,
		Sort:      s.Sort.String(),
		Limit:     s.Limit,
		Skip:      s.Skip,
	}
	if s.CreatedFrom != nil {
		a.StartDate = s.CreatedFrom.Format(time.DateOnly)
	}
	if s.CreatedTo != nil {
		a.EndDate = s.CreatedTo.Format(time.DateOnly)
	}
	return a
}
