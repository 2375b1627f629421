package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/vladislavdragonenkov/orderdesk/internal/service/export"
)

func TestSampleOrders(t *testing.T) {
	orders := sampleOrders(25)

	if len(orders) != 25 {
		t.Fatalf("expected 25 orders, got %d", len(orders))
	}

	for _, order := range orders {
		if order.ID == "" || order.OrderNo == "" || order.CustomerName == "" {
			t.Fatalf("incomplete sample order: %+v", order)
		}
		if len(order.Products) == 0 {
			t.Fatalf("sample order %s has no products", order.OrderNo)
		}
		if order.GrandTotal.IsNegative() || order.GrandTotal.IsZero() {
			t.Fatalf("sample order %s has non-positive total %s", order.OrderNo, order.GrandTotal)
		}
	}
}

func TestParseFilter(t *testing.T) {
	filter, err := parseFilter(" INV20260110 ", "2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatalf("parseFilter: %v", err)
	}
	if filter.OrderNoPrefix != "INV20260110" {
		t.Fatalf("unexpected prefix: %q", filter.OrderNoPrefix)
	}
	if filter.DateRange.Start == nil || filter.DateRange.End == nil {
		t.Fatal("expected bounded date range")
	}

	if _, err := parseFilter("", "31-01-2026", ""); err == nil {
		t.Fatal("expected error for bad start date")
	}
	if _, err := parseFilter("", "", "Jan 31"); err == nil {
		t.Fatal("expected error for bad end date")
	}
}

func TestCollectOrdersSample(t *testing.T) {
	orders, err := collectOrders("", "", "", "", 10)
	if err != nil {
		t.Fatalf("collectOrders: %v", err)
	}
	if len(orders) != 10 {
		t.Fatalf("expected 10 orders, got %d", len(orders))
	}
}

func TestCollectOrdersRequiresDSN(t *testing.T) {
	t.Setenv("ORDERDESK_POSTGRES_DSN", "")

	if _, err := collectOrders("", "", "", "", 0); err == nil {
		t.Fatal("expected error without dsn and sample")
	}
}

func TestSampleExportRoundTrip(t *testing.T) {
	out := filepath.Join(t.TempDir(), "orders.xlsx")

	orders := sampleOrders(5)
	f, err := os.Create(out)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	if err := export.NewExporter().WriteTo(f, orders); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	book, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer book.Close()

	rows, err := book.GetRows("Orders")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected header + 5 rows, got %d", len(rows))
	}
}
