// Package pricing projects a resolved sales phase into the purchase view:
// cheapest zone, availability, cart caps and installment plans.
package pricing

import (
	"math"

	"go-gin-event-commerce/internal/model"
)

const (
	// ReservationFee 分期模式下每張票先付的訂金 (活動幣別)
	ReservationFee = 50.0
	// MaxTicketsPerTransaction 單筆交易所有區域合計上限
	MaxTicketsPerTransaction = 10
	MaxInstallments          = 3
)

// ZoneRow 購票畫面上的一個區域
type ZoneRow struct {
	ZoneID            string   `json:"zoneId"`
	ZoneName          string   `json:"zoneName"`
	ZoneDescription   string   `json:"zoneDescription,omitempty"`
	Quantity          int      `json:"quantity"`
	Price             float64  `json:"price"`
	MaxPerTransaction int      `json:"maxPerTransaction"`
	Available         int      `json:"available"`
	Sold              int      `json:"sold"`
	Capacity          int      `json:"capacity"`
	DisplayPrice      *float64 `json:"displayPrice,omitempty"`
}

// View 由單一階段投影出的價格資訊
type View struct {
	EventID            string            `json:"eventId"`
	Currency           string            `json:"currency"`
	Phase              *model.SalesPhase `json:"phase,omitempty"`
	Rows               []ZoneRow         `json:"zones"`
	Cheapest           *ZoneRow          `json:"cheapestZone,omitempty"`
	TotalAvailable     int               `json:"totalAvailable"`
	AvailableZoneCount int               `json:"availableZoneCount"`
	AllowInstallments  bool              `json:"allowInstallments"`
	MaxInstallments    int               `json:"maxInstallments,omitempty"`
	ReservationFee     float64           `json:"reservationFee,omitempty"`
	SellOnPlatform     bool              `json:"sellTicketsOnPlatform"`
	AllowOffline       bool              `json:"allowOfflinePayments"`
	DisplayCurrency    string            `json:"displayCurrency,omitempty"`
	ExchangeRate       float64           `json:"exchangeRate,omitempty"`
}

// Row 依 zoneID 取得畫面列
func (v *View) Row(zoneID string) (*ZoneRow, bool) {
	for i := range v.Rows {
		if v.Rows[i].ZoneID == zoneID {
			return &v.Rows[i], true
		}
	}
	return nil, false
}

// CheapestZone 最低價的價格列，同價時取先出現者；沒有數字價格的列略過
func CheapestZone(rows []model.ZonePricing) (*model.ZonePricing, bool) {
	var cheapest *model.ZonePricing
	for i := range rows {
		if !rows[i].HasPrice() {
			continue
		}
		if cheapest == nil || rows[i].PriceValue() < cheapest.PriceValue() {
			cheapest = &rows[i]
		}
	}
	return cheapest, cheapest != nil
}

// Availability 尚有庫存的總張數與區域數
func Availability(rows []model.ZonePricing) (totalAvailable, availableZoneCount int) {
	for _, r := range rows {
		if r.Available > 0 {
			totalAvailable += r.Available
			availableZoneCount++
		}
	}
	return totalAvailable, availableZoneCount
}

// BuildView 投影活動在指定階段的價格；找不到區域、區域停用或沒有價格的列不顯示
func BuildView(event *model.Event, phase *model.SalesPhase) View {
	view := View{
		EventID:           event.ID,
		Currency:          event.Currency,
		AllowInstallments: event.AllowInstallmentPayments,
		MaxInstallments:   event.InstallmentLimit(MaxInstallments),
		SellOnPlatform:    event.SellTicketsOnPlatform,
		AllowOffline:      event.AllowOfflinePayments,
	}
	if view.AllowInstallments {
		view.ReservationFee = ReservationFee
	}
	if phase == nil {
		return view
	}
	p := *phase
	view.Phase = &p

	var listed []model.ZonePricing
	for _, zp := range phase.ZonesPricing {
		zone, ok := event.Zone(zp.ZoneID)
		if !ok || !zone.IsActive || !zp.HasPrice() {
			continue
		}
		listed = append(listed, zp)
		view.Rows = append(view.Rows, ZoneRow{
			ZoneID:            zone.ID,
			ZoneName:          zone.Name,
			ZoneDescription:   zone.Description,
			Price:             zp.PriceValue(),
			MaxPerTransaction: zone.Limit(),
			Available:         max(zp.Available, 0),
			Sold:              max(zp.Sold, 0),
			Capacity:          zone.Capacity,
		})
	}

	if cheapest, ok := CheapestZone(listed); ok {
		if row, ok := view.Row(cheapest.ZoneID); ok {
			c := *row
			view.Cheapest = &c
		}
	}
	view.TotalAvailable, view.AvailableZoneCount = Availability(listed)
	return view
}

// ConvertView 附上另一幣別的顯示價格；rate 無效時原樣回傳
func ConvertView(view View, currency string, rate float64) View {
	if currency == "" || currency == view.Currency || rate <= 0 {
		return view
	}
	out := view
	out.DisplayCurrency = currency
	out.ExchangeRate = rate
	out.Rows = make([]ZoneRow, len(view.Rows))
	for i, row := range view.Rows {
		converted := Round2(row.Price * rate)
		row.DisplayPrice = &converted
		out.Rows[i] = row
	}
	if view.Cheapest != nil {
		c := *view.Cheapest
		converted := Round2(c.Price * rate)
		c.DisplayPrice = &converted
		out.Cheapest = &c
	}
	return out
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
