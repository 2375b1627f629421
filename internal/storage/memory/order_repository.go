package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orderdesk/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository
// для локальной разработки и тестов.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create сохраняет новый заказ вместе с позициями.
func (r *orderRepositoryInMemory) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderExists
	}
	// Номер заказа уникален, как и в схеме PostgreSQL.
	for _, existing := range r.items {
		if existing.OrderNo == order.OrderNo {
			return domain.ErrOrderExists
		}
	}
	r.items[order.ID] = cloneOrder(order, true)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order, false), nil
}

// List возвращает все заказы по убыванию order_date, tie-break по id.
func (r *orderRepositoryInMemory) List(ctx context.Context) ([]domain.Order, error) {
	return r.Search(ctx, domain.SearchFilter{})
}

// Search применяет префиксный фильтр по номеру и дневной диапазон дат.
func (r *orderRepositoryInMemory) Search(_ context.Context, filter domain.SearchFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if filter.OrderNoPrefix != "" && !strings.HasPrefix(order.OrderNo, filter.OrderNoPrefix) {
			continue
		}
		if filter.DateRange.Bounded() {
			from, to := filter.DateRange.Bounds()
			if order.OrderDate.Before(from) || !order.OrderDate.Before(to) {
				continue
			}
		}
		result = append(result, cloneOrder(order, false))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].OrderDate.Equal(result[j].OrderDate) {
			return result[i].OrderDate.After(result[j].OrderDate)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// Update заменяет шапку и набор позиций целиком.
func (r *orderRepositoryInMemory) Update(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	// Номер заказа неизменяем после создания.
	order.OrderNo = current.OrderNo
	order.CreatedAt = current.CreatedAt
	r.items[order.ID] = cloneOrder(order, true)
	return nil
}

// Delete удаляет заказ вместе с позициями.
func (r *orderRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.items, id)
	return nil
}

// cloneOrder копирует заказ, чтобы избежать непредсказуемых мутаций извне.
// При assignIDs позиции без идентификатора получают новый id и позицию.
func cloneOrder(order domain.Order, assignIDs bool) domain.Order {
	clone := order
	clone.Products = make([]domain.OrderLineItem, len(order.Products))
	copy(clone.Products, order.Products)
	if assignIDs {
		for i := range clone.Products {
			if clone.Products[i].ID == "" {
				clone.Products[i].ID = uuid.NewString()
			}
			clone.Products[i].OrderID = clone.ID
			clone.Products[i].Position = int32(i)
		}
	}
	return clone
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
