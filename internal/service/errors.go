// errors.go — ошибки бизнес-логики сервисного слоя.
// Тексты ошибок валидации отдаются клиенту API как есть.
package service

import "errors"

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("Record not found")
	// ErrValidation — ошибка валидации входных данных.
	// Конкретные ошибки валидации — *ValidationError, совместимые с errors.Is(err, ErrValidation).
	ErrValidation = errors.New("validation error")
	// ErrMediaUpload — медиа-хранилище не приняло изображение.
	ErrMediaUpload = errors.New("Image upload failed")
)

// Ошибки валидации создания записи.
var (
	// ErrMissingFields — не заданы описание или сумма.
	ErrMissingFields = NewValidationError("Description and bill amount are required")
	// ErrMissingImages — не передано ни одного изображения.
	ErrMissingImages = NewValidationError("At least one image is required")
	// ErrInvalidBillAmount — сумма передана, но не является конечным числом.
	ErrInvalidBillAmount = NewValidationError("Bill amount must be a valid number")
)

// ValidationError — ошибка валидации с сообщением для клиента.
type ValidationError struct {
	Message string
}

// NewValidationError создаёт ошибку валидации.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string { return e.Message }

// Is делает любую ValidationError эквивалентной ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
