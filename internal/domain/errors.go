package domain

import (
	"errors"
	"strings"
)

var (
	// Ошибка отсутствующего имени клиента.
	ErrCustomerNameRequired = errors.New("customer_name is required")
	// Ошибка отсутствующей даты заказа.
	ErrOrderDateRequired = errors.New("order_date is required")
	// Ошибка отрицательной итоговой суммы заказа.
	ErrGrandTotalNegative = errors.New("grand_total must be non-negative")
	// Ошибка несоответствия итоговой суммы и сумм позиций.
	ErrGrandTotalMismatch = errors.New("grand_total does not match line item subtotals")
	// Ошибка отсутствующего наименования товара в позиции.
	ErrProductNameRequired = errors.New("product_name is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists возвращается при попытке создать заказ с занятым id.
	ErrOrderExists = errors.New("order already exists")
	// ErrSequenceConflict сигнализирует о конфликте при атомарном инкременте счётчика.
	// Ошибка считается временной: генератор повторяет транзакцию с backoff.
	ErrSequenceConflict = errors.New("sequence counter conflict")
	// ErrSequenceContention возвращается, когда все попытки инкремента исчерпаны.
	ErrSequenceContention = errors.New("sequence generation failed after retries")
	// ErrSequenceExhausted возвращается, когда дневной счётчик превысил 999.
	// Формат номера фиксирован на 3 цифры, поэтому переполнение — жёсткий отказ.
	ErrSequenceExhausted = errors.New("daily sequence exhausted")
)

// ValidationError агрегирует нарушения валидации входных данных.
// Возвращается до любой записи в хранилище.
type ValidationError struct {
	Errs []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap позволяет errors.Is находить конкретные нарушения внутри агрегата.
func (e *ValidationError) Unwrap() []error {
	return e.Errs
}

// IsValidation проверяет, является ли ошибка ошибкой валидации.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound проверяет, является ли ошибка отсутствием заказа.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}
