package pricing

import (
	"fmt"

	"go-gin-event-commerce/internal/model"
	apperrors "go-gin-event-commerce/pkg/app_errors"
)

// Totals 選擇的張數與金額
type Totals struct {
	Tickets int     `json:"tickets"`
	Amount  float64 `json:"amount"`
}

// Cart 購票數量選擇，所有更新都會夾在上限內
type Cart struct {
	view  View
	qty   map[string]int
	order []string
}

func NewCart(view View) *Cart {
	return &Cart{view: view, qty: make(map[string]int)}
}

// TransactionLimit 合計上限: min(10, 已選區域中最小的 maxPerTransaction)
func TransactionLimit(limits ...int) int {
	limit := MaxTicketsPerTransaction
	for _, l := range limits {
		if l > 0 && l < limit {
			limit = l
		}
	}
	return limit
}

func (c *Cart) limitWith(zoneID string) int {
	var limits []int
	for id, q := range c.qty {
		if q > 0 && id != zoneID {
			if row, ok := c.view.Row(id); ok {
				limits = append(limits, row.MaxPerTransaction)
			}
		}
	}
	if row, ok := c.view.Row(zoneID); ok {
		limits = append(limits, row.MaxPerTransaction)
	}
	return TransactionLimit(limits...)
}

func (c *Cart) othersTotal(zoneID string) int {
	total := 0
	for id, q := range c.qty {
		if id != zoneID {
			total += q
		}
	}
	return total
}

// Set 設定數量並回傳實際套用的值；未知區域一律為 0
func (c *Cart) Set(zoneID string, qty int) int {
	row, ok := c.view.Row(zoneID)
	if !ok {
		return 0
	}
	qty = min(max(qty, 0), row.MaxPerTransaction, row.Available)
	if qty > 0 {
		qty = min(qty, max(c.limitWith(zoneID)-c.othersTotal(zoneID), 0))
	}

	if _, seen := c.qty[zoneID]; !seen {
		c.order = append(c.order, zoneID)
	}
	c.qty[zoneID] = qty
	return qty
}

func (c *Cart) Increment(zoneID string) int {
	return c.Set(zoneID, c.qty[zoneID]+1)
}

func (c *Cart) Decrement(zoneID string) int {
	return c.Set(zoneID, c.qty[zoneID]-1)
}

// CanIncrement 再加一張是否仍在上限內
func (c *Cart) CanIncrement(zoneID string) bool {
	row, ok := c.view.Row(zoneID)
	if !ok {
		return false
	}
	next := c.qty[zoneID] + 1
	if next > row.MaxPerTransaction || next > row.Available {
		return false
	}
	return c.othersTotal(zoneID)+next <= c.limitWith(zoneID)
}

func (c *Cart) Quantity(zoneID string) int {
	return c.qty[zoneID]
}

// Lines 依選擇順序回傳數量大於 0 的區域
func (c *Cart) Lines() []ZoneRow {
	var lines []ZoneRow
	for _, id := range c.order {
		if q := c.qty[id]; q > 0 {
			row, _ := c.view.Row(id)
			line := *row
			line.Quantity = q
			lines = append(lines, line)
		}
	}
	return lines
}

func (c *Cart) Totals() Totals {
	var t Totals
	for _, l := range c.Lines() {
		t.Tickets += l.Quantity
		t.Amount += float64(l.Quantity) * l.Price
	}
	return t
}

// ValidateSelection 伺服器端重新檢查選擇，回傳以目前價格計算的明細
func ValidateSelection(view View, selections []model.TicketSelection) ([]model.OrderLine, error) {
	if len(selections) == 0 {
		return nil, fmt.Errorf("%w: no tickets selected", apperrors.ErrInvalidQuantity)
	}

	merged := make(map[string]int, len(selections))
	var order []string
	for _, s := range selections {
		if s.Quantity <= 0 {
			return nil, fmt.Errorf("%w: zone %q", apperrors.ErrInvalidQuantity, s.ZoneID)
		}
		if _, ok := view.Row(s.ZoneID); !ok {
			return nil, fmt.Errorf("%w: zone %q is not sold in this phase", apperrors.ErrZoneNotFound, s.ZoneID)
		}
		if _, seen := merged[s.ZoneID]; !seen {
			order = append(order, s.ZoneID)
		}
		merged[s.ZoneID] += s.Quantity
	}

	lines := make([]model.OrderLine, 0, len(order))
	limits := make([]int, 0, len(order))
	total := 0
	for _, id := range order {
		row, _ := view.Row(id)
		q := merged[id]
		if q > row.MaxPerTransaction {
			return nil, fmt.Errorf("%w: zone %q allows %d", apperrors.ErrExceedsMaxPerTransaction, id, row.MaxPerTransaction)
		}
		if q > row.Available {
			return nil, fmt.Errorf("%w: zone %q has %d left", apperrors.ErrInsufficientStock, id, row.Available)
		}
		limits = append(limits, row.MaxPerTransaction)
		total += q
		lines = append(lines, model.OrderLine{
			ZoneID:    row.ZoneID,
			ZoneName:  row.ZoneName,
			Quantity:  q,
			UnitPrice: row.Price,
			Subtotal:  Round2(float64(q) * row.Price),
		})
	}

	if limit := TransactionLimit(limits...); total > limit {
		return nil, fmt.Errorf("%w: %d tickets, limit %d", apperrors.ErrExceedsMaxPerTransaction, total, limit)
	}
	return lines, nil
}

// LineTotals 明細的張數與金額
func LineTotals(lines []model.OrderLine) Totals {
	var t Totals
	for _, l := range lines {
		t.Tickets += l.Quantity
		t.Amount += float64(l.Quantity) * l.UnitPrice
	}
	t.Amount = Round2(t.Amount)
	return t
}
