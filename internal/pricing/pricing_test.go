package pricing

import (
	"encoding/json"
	"errors"
	"testing"

	"go-gin-event-commerce/internal/model"
	apperrors "go-gin-event-commerce/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v float64) *float64 {
	return &v
}

func testEvent() *model.Event {
	return &model.Event{
		ID:                       "evt-1",
		Currency:                 "PEN",
		AllowInstallmentPayments: true,
		MaxInstallments:          3,
		SellTicketsOnPlatform:    true,
		Zones: []model.Zone{
			{ID: "general", Name: "General", Capacity: 500, IsActive: true},
			{ID: "vip", Name: "VIP", Capacity: 100, IsActive: true, MaxPerTransaction: 4},
			{ID: "box", Name: "Box", Capacity: 10, IsActive: false},
			{ID: "backstage", Name: "Backstage", Capacity: 5, IsActive: true, MaxPerTransaction: 2},
		},
		SalesPhases: []model.SalesPhase{{
			ID: "presale",
			ZonesPricing: []model.ZonePricing{
				{ZoneID: "general", Price: price(135), Available: 300, Sold: 200},
				{ZoneID: "vip", Price: price(250), Available: 3, Sold: 97},
				{ZoneID: "box", Price: price(50), Available: 10},
				{ZoneID: "ghost", Price: price(10), Available: 10},
				{ZoneID: "backstage", Price: price(400), Available: 0, Sold: 5},
			},
		}},
	}
}

func TestCheapestZone(t *testing.T) {
	t.Run("minimum by price", func(t *testing.T) {
		rows := []model.ZonePricing{
			{ZoneID: "a", Price: price(200)},
			{ZoneID: "b", Price: price(90)},
			{ZoneID: "c", Price: price(150)},
		}
		got, ok := CheapestZone(rows)
		require.True(t, ok)
		assert.Equal(t, "b", got.ZoneID)
	})

	t.Run("ties keep the first occurrence", func(t *testing.T) {
		rows := []model.ZonePricing{
			{ZoneID: "a", Price: price(200)},
			{ZoneID: "b", Price: price(90)},
			{ZoneID: "c", Price: price(90)},
			{ZoneID: "d", Price: price(90)},
		}
		for i := 0; i < 5; i++ {
			got, ok := CheapestZone(rows)
			require.True(t, ok)
			assert.Equal(t, "b", got.ZoneID)
		}
	})

	t.Run("rows without price are skipped", func(t *testing.T) {
		rows := []model.ZonePricing{{ZoneID: "a"}, {ZoneID: "b", Price: price(0)}}
		got, ok := CheapestZone(rows)
		require.True(t, ok)
		assert.Equal(t, "b", got.ZoneID)

		_, ok = CheapestZone([]model.ZonePricing{{ZoneID: "a"}})
		assert.False(t, ok)
	})
}

func TestAvailability(t *testing.T) {
	total, zones := Availability([]model.ZonePricing{
		{ZoneID: "a", Available: 10},
		{ZoneID: "b", Available: 0},
		{ZoneID: "c", Available: 5},
		{ZoneID: "d", Available: -3},
	})
	assert.Equal(t, 15, total)
	assert.Equal(t, 2, zones)
}

func TestBuildView(t *testing.T) {
	event := testEvent()
	view := BuildView(event, &event.SalesPhases[0])

	require.Len(t, view.Rows, 3)
	assert.Equal(t, []string{"general", "vip", "backstage"}, []string{view.Rows[0].ZoneID, view.Rows[1].ZoneID, view.Rows[2].ZoneID})
	assert.Equal(t, 10, view.Rows[0].MaxPerTransaction)
	assert.Equal(t, 4, view.Rows[1].MaxPerTransaction)

	require.NotNil(t, view.Cheapest)
	assert.Equal(t, "general", view.Cheapest.ZoneID)
	assert.Equal(t, 135.0, view.Cheapest.Price)
	assert.Equal(t, 303, view.TotalAvailable)
	assert.Equal(t, 2, view.AvailableZoneCount)
	assert.Equal(t, "PEN", view.Currency)
	assert.Equal(t, ReservationFee, view.ReservationFee)
	assert.Equal(t, 3, view.MaxInstallments)

	t.Run("no phase", func(t *testing.T) {
		empty := BuildView(event, nil)
		assert.Empty(t, empty.Rows)
		assert.Nil(t, empty.Cheapest)
		assert.Nil(t, empty.Phase)
	})
}

func TestBuildView_StoredDocument(t *testing.T) {
	doc := `{
		"id": "evt-2",
		"currency": "PEN",
		"zones": [
			{"id": "general", "name": "General", "capacity": 100},
			{"id": "box", "name": "Box", "capacity": 10, "isActive": false}
		],
		"salesPhases": [{
			"id": "preventa",
			"name": "Preventa",
			"zonesPricing": [
				{"zoneId": "general", "price": 135, "available": 100},
				{"zoneId": "box", "price": 50, "available": 10}
			]
		}]
	}`

	var event model.Event
	require.NoError(t, json.Unmarshal([]byte(doc), &event))
	assert.True(t, event.Zones[0].IsActive)
	assert.False(t, event.Zones[1].IsActive)

	view := BuildView(&event, &event.SalesPhases[0])
	require.Len(t, view.Rows, 1)
	require.NotNil(t, view.Cheapest)
	assert.Equal(t, "general", view.Cheapest.ZoneID)
	assert.Equal(t, 135.0, view.Cheapest.Price)
	assert.Equal(t, 100, view.TotalAvailable)

	lines, err := ValidateSelection(view, []model.TicketSelection{{ZoneID: "general", Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, 270.0, LineTotals(lines).Amount)
}

func TestConvertView(t *testing.T) {
	event := testEvent()
	view := BuildView(event, &event.SalesPhases[0])

	converted := ConvertView(view, "USD", 0.27)
	assert.Equal(t, "USD", converted.DisplayCurrency)
	require.NotNil(t, converted.Rows[0].DisplayPrice)
	assert.Equal(t, 36.45, *converted.Rows[0].DisplayPrice)
	assert.Equal(t, 36.45, *converted.Cheapest.DisplayPrice)
	// original amounts stay in the event currency
	assert.Equal(t, 135.0, converted.Rows[0].Price)
	assert.Nil(t, view.Rows[0].DisplayPrice)

	same := ConvertView(view, "USD", 0)
	assert.Empty(t, same.DisplayCurrency)
	assert.Nil(t, same.Rows[0].DisplayPrice)
}

func TestCart(t *testing.T) {
	event := testEvent()
	view := BuildView(event, &event.SalesPhases[0])

	t.Run("clamps to zone limit and availability", func(t *testing.T) {
		cart := NewCart(view)
		assert.Equal(t, 3, cart.Set("vip", 9))
		assert.Equal(t, 0, cart.Set("vip", -2))
		assert.Equal(t, 0, cart.Set("box", 1))
		assert.Equal(t, 0, cart.Set("backstage", 1))
	})

	t.Run("combined cap uses the smallest selected limit", func(t *testing.T) {
		cart := NewCart(view)
		assert.Equal(t, 2, cart.Set("vip", 2))
		// vip allows 4, so the combined total stops at 4
		assert.Equal(t, 2, cart.Set("general", 8))
		assert.False(t, cart.CanIncrement("general"))
		assert.Equal(t, 2, cart.Increment("general"))

		assert.Equal(t, 1, cart.Decrement("vip"))
		assert.True(t, cart.CanIncrement("general"))
		assert.Equal(t, 3, cart.Increment("general"))
	})

	t.Run("never above ten tickets", func(t *testing.T) {
		cart := NewCart(view)
		assert.Equal(t, 10, cart.Set("general", 25))
		assert.False(t, cart.CanIncrement("general"))
	})

	t.Run("lines and totals", func(t *testing.T) {
		cart := NewCart(view)
		cart.Set("vip", 1)
		cart.Set("general", 2)
		lines := cart.Lines()
		require.Len(t, lines, 2)
		assert.Equal(t, "vip", lines[0].ZoneID)
		assert.Equal(t, 1, lines[0].Quantity)
		totals := cart.Totals()
		assert.Equal(t, 3, totals.Tickets)
		assert.Equal(t, 520.0, totals.Amount)
	})
}

func TestValidateSelection(t *testing.T) {
	event := testEvent()
	view := BuildView(event, &event.SalesPhases[0])

	t.Run("server prices win", func(t *testing.T) {
		lines, err := ValidateSelection(view, []model.TicketSelection{
			{ZoneID: "general", Quantity: 2, Price: 1},
			{ZoneID: "vip", Quantity: 1},
		})
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, 135.0, lines[0].UnitPrice)
		assert.Equal(t, 270.0, lines[0].Subtotal)
		totals := LineTotals(lines)
		assert.Equal(t, 3, totals.Tickets)
		assert.Equal(t, 520.0, totals.Amount)
	})

	t.Run("duplicate rows are merged", func(t *testing.T) {
		lines, err := ValidateSelection(view, []model.TicketSelection{
			{ZoneID: "vip", Quantity: 1},
			{ZoneID: "vip", Quantity: 2},
		})
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, 3, lines[0].Quantity)
	})

	cases := []struct {
		name string
		sel  []model.TicketSelection
		want error
	}{
		{"empty", nil, apperrors.ErrInvalidQuantity},
		{"zero quantity", []model.TicketSelection{{ZoneID: "general", Quantity: 0}}, apperrors.ErrInvalidQuantity},
		{"unknown zone", []model.TicketSelection{{ZoneID: "ghost", Quantity: 1}}, apperrors.ErrZoneNotFound},
		{"inactive zone", []model.TicketSelection{{ZoneID: "box", Quantity: 1}}, apperrors.ErrZoneNotFound},
		{"zone limit", []model.TicketSelection{{ZoneID: "general", Quantity: 11}}, apperrors.ErrExceedsMaxPerTransaction},
		{"combined limit", []model.TicketSelection{{ZoneID: "general", Quantity: 3}, {ZoneID: "vip", Quantity: 2}}, apperrors.ErrExceedsMaxPerTransaction},
		{"sold out", []model.TicketSelection{{ZoneID: "backstage", Quantity: 1}}, apperrors.ErrInsufficientStock},
		{"above availability", []model.TicketSelection{{ZoneID: "vip", Quantity: 4}}, apperrors.ErrInsufficientStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateSelection(view, tc.sel)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestSplitInstallments(t *testing.T) {
	t.Run("reservation plus installments add up", func(t *testing.T) {
		amounts := []float64{0, 49.99, 135, 270, 1000, 1234.56}
		for _, amount := range amounts {
			for tickets := 0; tickets <= 10; tickets++ {
				for n := 1; n <= MaxInstallments; n++ {
					plan, err := SplitInstallments(amount, tickets, n)
					require.NoError(t, err)
					assert.InDelta(t, amount, plan.TotalReservation+float64(n)*plan.PerInstallment, 1e-9)
					assert.GreaterOrEqual(t, plan.PerInstallment, 0.0)
					assert.GreaterOrEqual(t, plan.TotalRemaining, 0.0)
				}
			}
		}
	})

	t.Run("typical split", func(t *testing.T) {
		plan, err := SplitInstallments(540, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, 100.0, plan.TotalReservation)
		assert.Equal(t, 440.0, plan.TotalRemaining)
		assert.Equal(t, 220.0, plan.PerInstallment)
	})

	t.Run("fee above total never goes negative", func(t *testing.T) {
		plan, err := SplitInstallments(80, 3, 3)
		require.NoError(t, err)
		assert.Equal(t, 0.0, plan.TotalRemaining)
		assert.Equal(t, 0.0, plan.PerInstallment)
	})

	t.Run("installment count out of range", func(t *testing.T) {
		for _, n := range []int{0, 4, -1} {
			_, err := SplitInstallments(100, 1, n)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInstallments))
		}
	})
}
