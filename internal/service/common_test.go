package service_test

import (
	"context"
	"time"

	"go-gin-event-commerce/config"
	"go-gin-event-commerce/internal/model"

	"github.com/jackc/pgx/v5"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func ctx() context.Context { return context.Background() }

const (
	testEventID = "5f0c1c2e-3c59-4f6b-9d55-0b9a3f1e2a10"
	testPhaseID = "phase-1"
	testZoneID  = "z-vip"
)

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func statusPtr(s model.PhaseStatus) *model.PhaseStatus { return &s }

// newEvent 已發佈、目前有一個進行中的階段，VIP 135 PEN 剩 100 張
func newEvent() *model.Event {
	return &model.Event{
		ID:                       testEventID,
		Slug:                     "festival-verano",
		Name:                     "Festival Verano",
		Timezone:                 "UTC-05:00",
		Currency:                 "PEN",
		StartDate:                "2025-03-15",
		StartTime:                "20:00",
		IsPublished:              true,
		SellTicketsOnPlatform:    true,
		AllowOfflinePayments:     true,
		AllowInstallmentPayments: true,
		MaxInstallments:          3,
		WhatsAppNumber:           "+51 999 888 777",
		Zones: []model.Zone{
			{ID: testZoneID, Name: "VIP", Capacity: 100, IsActive: true},
		},
		SalesPhases: []model.SalesPhase{
			{
				ID:        testPhaseID,
				Name:      "Preventa",
				StartDate: fixedNow.Add(-24 * time.Hour).Format(time.RFC3339),
				EndDate:   fixedNow.Add(24 * time.Hour).Format(time.RFC3339),
				ZonesPricing: []model.ZonePricing{
					{ZoneID: testZoneID, Price: floatPtr(135), Available: 100, Sold: 0},
				},
			},
		},
	}
}

func purchaseConfig() config.PurchaseConfig {
	return config.PurchaseConfig{
		PaymentURLBase:  "https://pay.example.com/checkout",
		WhatsAppNumber:  "51111111111",
		AmountTolerance: 0.01,
	}
}

type fakeTx struct {
	pgx.Tx
	committed bool
	commitErr error
}

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error { return nil }

type fakePool struct {
	tx  *fakeTx
	err error
}

func (p *fakePool) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.tx, nil
}
