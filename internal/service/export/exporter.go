package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/vladislavdragonenkov/orderdesk/internal/domain"
)

const (
	sheetName  = "Orders"
	dateLayout = "02 Jan 2006"
)

var headers = []string{"Order No", "Customer Name", "Order Date", "Grand Total"}

// Exporter формирует xlsx-выгрузку заказов.
type Exporter struct{}

// NewExporter создаёт экспортер заказов.
func NewExporter() *Exporter {
	return &Exporter{}
}

// WriteTo пишет книгу с заказами в w. Порядок строк повторяет порядок orders.
func (e *Exporter) WriteTo(w io.Writer, orders []domain.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFE0E0E0"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	currencyFormat := "Rp#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFormat})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}

	for i, title := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}

	for i, order := range orders {
		row := i + 2
		total, _ := order.GrandTotal.Float64()
		values := []any{
			order.OrderNo,
			order.CustomerName,
			order.OrderDate.Format(dateLayout),
			total,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}

		totalCell, err := excelize.CoordinatesToCellName(len(values), row)
		if err != nil {
			return fmt.Errorf("total cell name: %w", err)
		}
		if err := f.SetCellStyle(sheetName, totalCell, totalCell, moneyStyle); err != nil {
			return fmt.Errorf("style total: %w", err)
		}
	}

	// ширина колонок под типичное содержимое
	if err := f.SetColWidth(sheetName, "A", "A", 20); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "B", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "C", "D", 16); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
