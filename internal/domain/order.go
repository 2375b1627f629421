package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLineItem представляет одну товарную позицию заказа.
type OrderLineItem struct {
	// ID позиции назначается при сохранении.
	ID string
	// OrderID — обратная ссылка на заказ-владелец.
	OrderID string
	// ProductName — наименование товара.
	ProductName string
	// Qty — количество единиц товара, строго положительное.
	Qty int32
	// Price — цена за единицу.
	Price decimal.Decimal
	// Subtotal — производная величина qty*price, округлённая до 2 знаков.
	Subtotal decimal.Decimal
	// Position фиксирует порядок позиции внутри заказа.
	Position int32
}

// Order агрегирует шапку заказа и его позиции.
type Order struct {
	ID           string
	OrderNo      string
	CustomerName string
	OrderDate    time.Time
	GrandTotal   decimal.Decimal
	Products     []OrderLineItem
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Round2 округляет денежную величину до 2 знаков (half away from zero).
// Все производные суммы в заказе считаются через эту функцию.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Recalculate пересчитывает subtotal каждой позиции и grand_total заказа
// из qty/price, не доверяя значениям, пришедшим от вызывающей стороны.
func (o *Order) Recalculate() {
	total := decimal.Zero
	for i := range o.Products {
		item := &o.Products[i]
		item.Subtotal = Round2(decimal.NewFromInt32(item.Qty).Mul(item.Price))
		total = total.Add(item.Subtotal)
	}
	o.GrandTotal = Round2(total)
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerName == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if o.OrderDate.IsZero() {
		errs = append(errs, ErrOrderDateRequired)
	}
	if o.GrandTotal.IsNegative() {
		errs = append(errs, ErrGrandTotalNegative)
	}

	// Сверяем сумму заказа с суммой позиций: round2(sum(round2(qty*price))).
	calc := decimal.Zero
	for _, item := range o.Products {
		if item.ProductName == "" {
			errs = append(errs, ErrProductNameRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.Price.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc = calc.Add(Round2(decimal.NewFromInt32(item.Qty).Mul(item.Price)))
	}
	if !o.GrandTotal.Equal(Round2(calc)) {
		errs = append(errs, ErrGrandTotalMismatch)
	}

	return errs
}

// LineItemInput описывает позицию заказа со стороны вызывающего.
// Subtotal намеренно отсутствует: он всегда вычисляется на сервере.
type LineItemInput struct {
	ProductName string          `json:"product_name"`
	Qty         int32           `json:"qty"`
	Price       decimal.Decimal `json:"price"`
}

// OrderInput описывает заказ со стороны вызывающего.
type OrderInput struct {
	// OrderNo может быть пустым: тогда номер сгенерирует сервис.
	OrderNo      string          `json:"order_no"`
	CustomerName string          `json:"customer_name"`
	OrderDate    time.Time       `json:"order_date"`
	Products     []LineItemInput `json:"products"`
}

// Validate проверяет входные данные до какой-либо записи в хранилище.
func (in *OrderInput) Validate() []error {
	var errs []error

	if in.CustomerName == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	for _, item := range in.Products {
		if item.ProductName == "" {
			errs = append(errs, ErrProductNameRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.Price.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}

// DateRange ограничивает поиск по дате заказа. Обе границы опциональны;
// фильтр применяется только когда задана каждая из них.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Bounded сообщает, задан ли диапазон полностью.
func (r DateRange) Bounded() bool {
	return r.Start != nil && r.End != nil
}

// StartOfDay обнуляет время в пределах календарного дня момента t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Bounds возвращает полуоткрытый интервал [начало дня Start, начало дня
// после End) для применения фильтра. Вызывать только при Bounded() == true.
func (r DateRange) Bounds() (time.Time, time.Time) {
	return StartOfDay(*r.Start), StartOfDay(*r.End).AddDate(0, 0, 1)
}

// SearchFilter описывает параметры поиска заказов.
type SearchFilter struct {
	// OrderNoPrefix, если непустой, отбирает заказы с номером, начинающимся с префикса.
	OrderNoPrefix string
	// DateRange, если задан полностью, отбирает заказы в пределах
	// [начало дня Start, конец дня End] включительно.
	DateRange DateRange
}
