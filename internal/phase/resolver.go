// Package phase resolves the effective status of an event's sales phases and
// picks the phase bound to purchase or display.
package phase

import (
	"fmt"
	"sort"
	"time"

	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/internal/timeutil"
	apperrors "go-gin-event-commerce/pkg/app_errors"
)

// Resolver 以活動時區解析階段日期；沒有 offset 的日期以 Location 的牆上時間解讀
type Resolver struct {
	Location *time.Location
}

func NewResolver(timezone string) Resolver {
	return Resolver{Location: timeutil.Location(timezone)}
}

// ForEvent 使用活動本身的時區
func ForEvent(event *model.Event) Resolver {
	return NewResolver(event.Timezone)
}

// Window 解析階段起訖，任一無法解析時 ok 為 false
func (r Resolver) Window(p model.SalesPhase) (start, end time.Time, ok bool) {
	start, okStart := timeutil.ParseInstant(p.StartDate, r.Location)
	end, okEnd := timeutil.ParseInstant(p.EndDate, r.Location)
	return start, end, okStart && okEnd
}

// InWindow start <= now <= end
func (r Resolver) InWindow(now time.Time, p model.SalesPhase) bool {
	start, end, ok := r.Window(p)
	if !ok {
		return false
	}
	return !now.Before(start) && !now.After(end)
}

// Status 計算單一階段的有效狀態。手動覆寫優先，日期無法解析時為 upcoming
func (r Resolver) Status(now time.Time, p model.SalesPhase) model.PhaseStatus {
	if p.ManualStatus != nil {
		if *p.ManualStatus == model.PhaseStatusSoldOut {
			return model.PhaseStatusSoldOut
		}
		return model.PhaseStatusActive
	}

	start, end, ok := r.Window(p)
	if !ok || end.Before(start) {
		return model.PhaseStatusUpcoming
	}
	switch {
	case now.Before(start):
		return model.PhaseStatusUpcoming
	case now.After(end):
		return model.PhaseStatusExpired
	default:
		return model.PhaseStatusActive
	}
}

// Resolve 回傳帶有 Status 的副本，不修改輸入
func (r Resolver) Resolve(now time.Time, phases []model.SalesPhase) []model.SalesPhase {
	out := make([]model.SalesPhase, len(phases))
	for i, p := range phases {
		p.ZonesPricing = append([]model.ZonePricing(nil), p.ZonesPricing...)
		p.Status = r.Status(now, p)
		out[i] = p
	}
	return out
}

// ActiveForPurchase 依陣列順序取第一個有效狀態為 active 的階段，綁定購票流程。
// 手動 sold_out 即使在期間內也不可購買，手動 active 在期間外仍可購買
func (r Resolver) ActiveForPurchase(now time.Time, phases []model.SalesPhase) (*model.SalesPhase, bool) {
	for i := range phases {
		if r.Status(now, phases[i]) == model.PhaseStatusActive {
			p := phases[i]
			p.Status = model.PhaseStatusActive
			return &p, true
		}
	}
	return nil, false
}

// DefaultForDisplay 依開始時間排序後: 進行中 > 下一個即將開始 > 最後一個階段
func (r Resolver) DefaultForDisplay(now time.Time, phases []model.SalesPhase) (*model.SalesPhase, bool) {
	if len(phases) == 0 {
		return nil, false
	}

	type candidate struct {
		phase    model.SalesPhase
		start    time.Time
		hasStart bool
	}
	sorted := make([]candidate, len(phases))
	for i, p := range phases {
		start, ok := timeutil.ParseInstant(p.StartDate, r.Location)
		sorted[i] = candidate{phase: p, start: start, hasStart: ok}
	}
	// 無法解析開始時間的排在最後
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.hasStart != b.hasStart {
			return a.hasStart
		}
		return a.start.Before(b.start)
	})

	pick := func(c candidate) (*model.SalesPhase, bool) {
		p := c.phase
		p.Status = r.Status(now, p)
		return &p, true
	}

	for _, c := range sorted {
		if r.Status(now, c.phase) == model.PhaseStatusActive {
			return pick(c)
		}
	}
	for _, c := range sorted {
		if c.hasStart && c.start.After(now) {
			return pick(c)
		}
	}
	return pick(sorted[len(sorted)-1])
}

// Validate 寫入前檢查階段資料
func (r Resolver) Validate(p model.SalesPhase) error {
	if p.ManualStatus != nil && !p.ManualStatus.IsValidOverride() {
		return fmt.Errorf("%w: phase %q has %q", apperrors.ErrInvalidPhaseStatus, p.ID, *p.ManualStatus)
	}
	start, end, ok := r.Window(p)
	if ok && end.Before(start) {
		return fmt.Errorf("%w: phase %q ends %s before it starts %s",
			apperrors.ErrInvalidPhaseWindow, p.ID, p.EndDate, p.StartDate)
	}
	return nil
}

// ValidateAll 檢查所有階段，並確認價格列指向存在的區域
func (r Resolver) ValidateAll(phases []model.SalesPhase, zones []model.Zone) error {
	known := make(map[string]struct{}, len(zones))
	for _, z := range zones {
		known[z.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(phases))
	for _, p := range phases {
		if p.ID == "" {
			return fmt.Errorf("%w: sales phase without id", apperrors.ErrInvalidInput)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate sales phase id %q", apperrors.ErrInvalidInput, p.ID)
		}
		seen[p.ID] = struct{}{}

		if err := r.Validate(p); err != nil {
			return err
		}
		priced := make(map[string]struct{}, len(p.ZonesPricing))
		for _, zp := range p.ZonesPricing {
			if _, ok := known[zp.ZoneID]; !ok {
				return fmt.Errorf("%w: phase %q prices unknown zone %q", apperrors.ErrZoneNotFound, p.ID, zp.ZoneID)
			}
			// 每個區域在同一階段只能有一列價格
			if _, dup := priced[zp.ZoneID]; dup {
				return fmt.Errorf("%w: phase %q prices zone %q twice", apperrors.ErrInvalidInput, p.ID, zp.ZoneID)
			}
			priced[zp.ZoneID] = struct{}{}
			if zp.Price != nil && *zp.Price < 0 {
				return fmt.Errorf("%w: negative price for zone %q", apperrors.ErrInvalidInput, zp.ZoneID)
			}
			if zp.Available < 0 || zp.Sold < 0 {
				return fmt.Errorf("%w: negative inventory for zone %q", apperrors.ErrInvalidInput, zp.ZoneID)
			}
		}
	}
	return nil
}
