package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderdesk/internal/domain"
	"github.com/vladislavdragonenkov/orderdesk/internal/service/export"
	"github.com/vladislavdragonenkov/orderdesk/internal/storage/postgres"
)

const (
	defaultTimeout  = 30 * time.Second
	queryDateLayout = "2006-01-02"
)

func main() {
	var (
		out     string
		dsn     string
		orderNo string
		start   string
		end     string
		sample  int
	)

	flag.StringVar(&out, "out", "orders.xlsx", "output .xlsx path")
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: ORDERDESK_POSTGRES_DSN)")
	flag.StringVar(&orderNo, "order_no", "", "filter: order number prefix")
	flag.StringVar(&start, "start", "", "filter: start date (YYYY-MM-DD)")
	flag.StringVar(&end, "end", "", "filter: end date (YYYY-MM-DD), inclusive")
	flag.IntVar(&sample, "sample", 0, "generate N synthetic orders instead of reading the database")
	flag.Parse()

	orders, err := collectOrders(dsn, orderNo, start, end, sample)
	if err != nil {
		fail("%v", err)
	}

	f, err := os.Create(out)
	if err != nil {
		fail("create output file: %v", err)
	}
	defer f.Close()

	if err := export.NewExporter().WriteTo(f, orders); err != nil {
		fail("write xlsx: %v", err)
	}

	fmt.Printf("exported %d orders to %s\n", len(orders), out)
}

func collectOrders(dsn, orderNo, start, end string, sample int) ([]domain.Order, error) {
	if sample > 0 {
		return sampleOrders(sample), nil
	}

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("ORDERDESK_POSTGRES_DSN"))
	}
	if dsn == "" {
		return nil, fmt.Errorf("ORDERDESK_POSTGRES_DSN (or -dsn) is required unless -sample is set")
	}

	filter, err := parseFilter(orderNo, start, end)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	defer store.Close()

	orders, err := postgres.NewOrderRepository(store).Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	return orders, nil
}

func parseFilter(orderNo, start, end string) (domain.SearchFilter, error) {
	filter := domain.SearchFilter{OrderNoPrefix: strings.TrimSpace(orderNo)}

	if s := strings.TrimSpace(start); s != "" {
		t, err := time.Parse(queryDateLayout, s)
		if err != nil {
			return domain.SearchFilter{}, fmt.Errorf("invalid -start %q, use YYYY-MM-DD", s)
		}
		filter.DateRange.Start = &t
	}
	if s := strings.TrimSpace(end); s != "" {
		t, err := time.Parse(queryDateLayout, s)
		if err != nil {
			return domain.SearchFilter{}, fmt.Errorf("invalid -end %q, use YYYY-MM-DD", s)
		}
		filter.DateRange.End = &t
	}

	return filter, nil
}

var sampleCustomers = []string{
	"Acme Corp", "Globex", "Initech", "Umbrella Ltd", "Stark Industries",
	"Wayne Enterprises", "Tyrell Corp", "Wonka Industries",
}

var sampleProducts = []string{
	"Widget", "Gadget", "Sprocket", "Gizmo", "Doohickey", "Contraption",
}

// sampleOrders генерирует синтетические заказы для проверки больших выгрузок.
func sampleOrders(n int) []domain.Order {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC()

	orders := make([]domain.Order, 0, n)
	for i := 0; i < n; i++ {
		day := now.AddDate(0, 0, -rng.Intn(90))
		order := domain.Order{
			ID:           uuid.NewString(),
			OrderNo:      fmt.Sprintf("INV%s-%03d", day.Format("20060102"), i%999+1),
			CustomerName: sampleCustomers[rng.Intn(len(sampleCustomers))],
			OrderDate:    day,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		items := rng.Intn(4) + 1
		for j := 0; j < items; j++ {
			order.Products = append(order.Products, domain.OrderLineItem{
				ID:          uuid.NewString(),
				OrderID:     order.ID,
				ProductName: sampleProducts[rng.Intn(len(sampleProducts))],
				Qty:         int32(rng.Intn(9) + 1),
				Price:       decimal.NewFromInt(int64(rng.Intn(100000) + 500)).Div(decimal.NewFromInt(100)),
				Position:    int32(j),
			})
		}
		order.Recalculate()
		orders = append(orders, order)
	}
	return orders
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
