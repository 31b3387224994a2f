package model

import "time"

// OrderStatus 訂單狀態類型
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValid 驗證狀態是否有效
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	transitions := map[OrderStatus][]OrderStatus{
		OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
		OrderStatusConfirmed: {OrderStatusCancelled},
		OrderStatusCancelled: {}, // 不能轉換到任何狀態
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// PaymentMethod 付款方式
type PaymentMethod string

const (
	// 線上付款，成功後導向 paymentUrl
	PaymentMethodOnline PaymentMethod = "online"
	// 以下皆為離線付款，透過 WhatsApp 人工確認
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCash     PaymentMethod = "cash"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodOnline, PaymentMethodTransfer, PaymentMethodCash:
		return true
	}
	return false
}

func (m PaymentMethod) IsOnline() bool {
	return m == PaymentMethodOnline
}

// PaymentType 全額或分期
type PaymentType string

const (
	PaymentTypeFull         PaymentType = "full"
	PaymentTypeInstallments PaymentType = "installments"
)

func (t PaymentType) IsValid() bool {
	return t == PaymentTypeFull || t == PaymentTypeInstallments
}

// OrderLine 單一區域的購買明細，價格以伺服器端為準
type OrderLine struct {
	ZoneID    string  `json:"zoneId"`
	ZoneName  string  `json:"zoneName"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
}

type Customer struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Document string `json:"document,omitempty"`
}

// Order 訂單模型
type Order struct {
	ID             string        `json:"id"`
	Reference      string        `json:"reference"`
	EventID        string        `json:"eventId"`
	EventSlug      string        `json:"eventSlug"`
	EventName      string        `json:"eventName"`
	PhaseID        string        `json:"phaseId"`
	Lines          []OrderLine   `json:"lines"`
	TotalAmount    float64       `json:"totalAmount"`
	Currency       string        `json:"currency"`
	PaymentMethod  PaymentMethod `json:"paymentMethod"`
	PaymentType    PaymentType   `json:"paymentType"`
	Installments   int           `json:"installments,omitempty"`
	ReservationFee float64       `json:"reservationFee,omitempty"`
	PerInstallment float64       `json:"perInstallment,omitempty"`
	Customer       Customer      `json:"customer"`
	Status         OrderStatus   `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// TicketCount 訂單總張數
func (o *Order) TicketCount() int {
	total := 0
	for _, l := range o.Lines {
		total += l.Quantity
	}
	return total
}

// TicketSelection 前端送出的單一區域選擇
type TicketSelection struct {
	ZoneID   string  `json:"zoneId" binding:"required"`
	ZoneName string  `json:"zoneName,omitempty"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// PurchaseRequest POST /purchases 的 body
type PurchaseRequest struct {
	EventID        string            `json:"eventId" binding:"required"`
	Tickets        []TicketSelection `json:"tickets" binding:"required,min=1,dive"`
	PaymentMethod  PaymentMethod     `json:"paymentMethod" binding:"required"`
	PaymentType    PaymentType       `json:"paymentType" binding:"required"`
	Installments   *int              `json:"installments,omitempty"`
	ReservationFee *float64          `json:"reservationFee,omitempty"`
	TotalAmount    float64           `json:"totalAmount"`
	Currency       string            `json:"currency" binding:"required"`
	// Reference 由前端產生的冪等鍵，重送時回傳同一筆訂單
	Reference string   `json:"reference,omitempty"`
	Customer  Customer `json:"customer"`
}

// PurchaseResponse 購買結果；離線付款時帶 whatsappUrl
type PurchaseResponse struct {
	OK          bool   `json:"ok"`
	PaymentURL  string `json:"paymentUrl,omitempty"`
	OrderID     string `json:"orderId,omitempty"`
	WhatsAppURL string `json:"whatsappUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}
