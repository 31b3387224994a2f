package model

import (
	"encoding/json"
	"strings"
	"time"

	"go-gin-event-commerce/internal/timeutil"
)

// DefaultMaxPerTransaction 區域未設定單筆上限時使用
const DefaultMaxPerTransaction = 10

// Timestamp 相容多種儲存格式的時間欄位 (ISO 字串、{seconds,nanoseconds}、epoch)
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// UnmarshalJSON 無法解析時保留零值，不回傳錯誤
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	t, ok := timeutil.ParseFlexibleTime(b)
	if !ok {
		ts.Time = time.Time{}
		return nil
	}
	ts.Time = t
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}

// OrElse 零值時回傳 fallback
func (ts Timestamp) OrElse(fallback time.Time) time.Time {
	if ts.IsZero() {
		return fallback
	}
	return ts.Time
}

// PhaseStatus 銷售階段狀態
type PhaseStatus string

const (
	PhaseStatusUpcoming PhaseStatus = "upcoming"
	PhaseStatusActive   PhaseStatus = "active"
	PhaseStatusExpired  PhaseStatus = "expired"
	PhaseStatusSoldOut  PhaseStatus = "sold_out"
)

// IsValidOverride 只有 active 與 sold_out 可以手動設定
func (s PhaseStatus) IsValidOverride() bool {
	return s == PhaseStatusActive || s == PhaseStatusSoldOut
}

type Zone struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Capacity          int    `json:"capacity"`
	Description       string `json:"description,omitempty"`
	IsActive          bool   `json:"isActive"`
	MaxPerTransaction int    `json:"maxPerTransaction,omitempty"`
}

// UnmarshalJSON 文件缺少 isActive 時視為啟用
func (z *Zone) UnmarshalJSON(b []byte) error {
	type zoneAlias Zone
	decoded := zoneAlias{IsActive: true}
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err
	}
	*z = Zone(decoded)
	return nil
}

// Limit 單筆交易可購買的上限
func (z Zone) Limit() int {
	if z.MaxPerTransaction <= 0 {
		return DefaultMaxPerTransaction
	}
	return z.MaxPerTransaction
}

type ZonePricing struct {
	ZoneID    string   `json:"zoneId"`
	Price     *float64 `json:"price"`
	Available int      `json:"available"`
	Sold      int      `json:"sold"`
	PhaseID   string   `json:"phaseId,omitempty"`
}

// HasPrice Price 為 nil 代表此階段沒有數字價格
func (zp ZonePricing) HasPrice() bool {
	return zp.Price != nil
}

func (zp ZonePricing) PriceValue() float64 {
	if zp.Price == nil {
		return 0
	}
	return *zp.Price
}

type SalesPhase struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	StartDate    string        `json:"startDate"`
	EndDate      string        `json:"endDate"`
	ManualStatus *PhaseStatus  `json:"manualStatus"`
	Status       PhaseStatus   `json:"status,omitempty"`
	ZonesPricing []ZonePricing `json:"zonesPricing"`
}

// Pricing 依 zoneID 取得此階段的價格列
func (p *SalesPhase) Pricing(zoneID string) (*ZonePricing, bool) {
	for i := range p.ZonesPricing {
		if p.ZonesPricing[i].ZoneID == zoneID {
			return &p.ZonesPricing[i], true
		}
	}
	return nil, false
}

type Location struct {
	VenueName  string   `json:"venueName,omitempty"`
	Address    string   `json:"address,omitempty"`
	City       string   `json:"city,omitempty"`
	Region     string   `json:"region,omitempty"`
	Country    string   `json:"country,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
}

type Artist struct {
	Name            string `json:"name"`
	Instagram       string `json:"instagram,omitempty"`
	PerformanceDate string `json:"performanceDate,omitempty"`
	PerformanceTime string `json:"performanceTime,omitempty"`
	ImageURL        string `json:"imageUrl,omitempty"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Organizer struct {
	Name  string `json:"name,omitempty"`
	URL   string `json:"url,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (o *Organizer) IsEmpty() bool {
	return o == nil || (o.Name == "" && o.URL == "" && o.Email == "" && o.Phone == "")
}

// Event 活動文件，以 JSONB 整份存放
type Event struct {
	ID               string       `json:"id"`
	Slug             string       `json:"slug"`
	Name             string       `json:"name"`
	ShortDescription string       `json:"shortDescription,omitempty"`
	Description      string       `json:"description,omitempty"`
	SEOTitle         string       `json:"seoTitle,omitempty"`
	SEODescription   string       `json:"seoDescription,omitempty"`
	StartDate        string       `json:"startDate,omitempty"`
	EndDate          string       `json:"endDate,omitempty"`
	StartTime        string       `json:"startTime,omitempty"`
	EndTime          string       `json:"endTime,omitempty"`
	DoorTime         string       `json:"doorTime,omitempty"`
	Timezone         string       `json:"timezone,omitempty"`
	Currency         string       `json:"currency,omitempty"`
	Zones            []Zone       `json:"zones"`
	SalesPhases      []SalesPhase `json:"salesPhases"`

	AllowInstallmentPayments bool `json:"allowInstallmentPayments"`
	MaxInstallments          int  `json:"maxInstallments,omitempty"`
	SellTicketsOnPlatform    bool `json:"sellTicketsOnPlatform"`
	AllowOfflinePayments     bool `json:"allowOfflinePayments"`

	Location       Location   `json:"location"`
	ArtistLineup   []Artist   `json:"artistLineup,omitempty"`
	FAQSection     []FAQ      `json:"faqSection,omitempty"`
	Categories     []string   `json:"categories,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	EventType      string     `json:"eventType,omitempty"`
	ImageURL       string     `json:"imageUrl,omitempty"`
	Gallery        []string   `json:"gallery,omitempty"`
	AgeRange       string     `json:"ageRange,omitempty"`
	Organizer      *Organizer `json:"organizer,omitempty"`
	IsPublished    bool       `json:"isPublished"`
	WhatsAppNumber string     `json:"whatsappNumber,omitempty"`
	CreatedAt      Timestamp  `json:"createdAt"`
	UpdatedAt      Timestamp  `json:"updatedAt"`
}

// Zone 依 id 取得區域
func (e *Event) Zone(id string) (*Zone, bool) {
	for i := range e.Zones {
		if e.Zones[i].ID == id {
			return &e.Zones[i], true
		}
	}
	return nil, false
}

// Phase 依 id 取得銷售階段
func (e *Event) Phase(id string) (*SalesPhase, bool) {
	for i := range e.SalesPhases {
		if e.SalesPhases[i].ID == id {
			return &e.SalesPhases[i], true
		}
	}
	return nil, false
}

// TotalCapacity 所有區域容量總和
func (e *Event) TotalCapacity() int {
	total := 0
	for _, z := range e.Zones {
		total += z.Capacity
	}
	return total
}

// IsFestival eventType 或分類含 festival 時視為 Festival
func (e *Event) IsFestival() bool {
	if strings.Contains(strings.ToLower(e.EventType), "festival") {
		return true
	}
	for _, c := range e.Categories {
		if strings.Contains(strings.ToLower(c), "festival") {
			return true
		}
	}
	return false
}

// InstallmentLimit 活動允許的最大分期數
func (e *Event) InstallmentLimit(max int) int {
	if !e.AllowInstallmentPayments {
		return 0
	}
	if e.MaxInstallments <= 0 || e.MaxInstallments > max {
		return max
	}
	return e.MaxInstallments
}

// EventFilter 列表查詢條件
type EventFilter struct {
	PublishedOnly bool
	Limit         int
	Offset        int
}
