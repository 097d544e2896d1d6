package alerts

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

func slots(quantities ...int) []models.Stock {
	out := make([]models.Stock, 0, len(quantities))
	for i, q := range quantities {
		out = append(out, models.Stock{
			ID:           uuid.New(),
			SlotNumber:   i + 1,
			Quantity:     q,
			MaxCapacity:  10,
			LowThreshold: 2,
		})
	}
	return out
}

func TestAssess(t *testing.T) {
	calc := NewCalculator(6, 0.5)
	cases := []struct {
		name   string
		stocks []models.Stock
		want   Priority
	}{
		{name: "empty slot dominates low stock", stocks: slots(0, 1, 2, 9, 9, 9), want: PriorityCritical},
		{name: "half the slots low", stocks: slots(1, 2, 2, 9, 9, 9), want: PriorityLowStock},
		{name: "below half low", stocks: slots(1, 2, 9, 9, 9, 9), want: PriorityNone},
		{name: "incomplete healthy machine", stocks: slots(9, 9, 9), want: PriorityIncomplete},
		{name: "low stock beats incomplete", stocks: slots(1, 1, 9), want: PriorityLowStock},
		{name: "critical on incomplete machine", stocks: slots(0, 9), want: PriorityCritical},
		{name: "no slots configured", stocks: nil, want: PriorityIncomplete},
		{name: "full and healthy", stocks: slots(9, 9, 9, 9, 9, 9), want: PriorityNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.Assess(tc.stocks)
			require.Equal(t, tc.want, got.Priority, got.Message())
			require.Equal(t, tc.want != PriorityNone, got.Needed())
		})
	}
}

func TestAssessCriticalExample(t *testing.T) {
	stocks := slots(0, 1, 2, 9, 9, 9)
	got := NewCalculator(6, 0.5).Assess(stocks)

	require.Equal(t, enums.AlertTypeCritical, got.Priority.AlertType())
	require.Equal(t, enums.AlertLevelCritical, got.Priority.Level())
	require.Equal(t, 1, got.EmptySlots)
	require.Equal(t, 2, got.LowStockSlots)
	require.Equal(t, 3, got.SlotsAtThreshold)
	require.Equal(t, 3, got.Threshold)
	require.Equal(t, stocks[0].ID, *got.StockID)
	require.Equal(t, "1 of 6 slots empty", got.Message())
}

func TestAssessThresholdRoundsUp(t *testing.T) {
	got := NewCalculator(6, 0.5).Assess(slots(1, 1, 9, 9, 9))
	require.Equal(t, 3, got.Threshold)
	require.Equal(t, PriorityIncomplete, got.Priority)
}

func TestPriorityTotalOrder(t *testing.T) {
	require.Less(t, PriorityNone, PriorityIncomplete)
	require.Less(t, PriorityIncomplete, PriorityLowStock)
	require.Less(t, PriorityLowStock, PriorityCritical)
	for _, p := range []Priority{PriorityIncomplete, PriorityLowStock, PriorityCritical} {
		require.Equal(t, p, PriorityOf(p.AlertType()))
	}
	require.Equal(t, PriorityNone, PriorityOf(enums.AlertTypeMachineOffline))
	require.Equal(t, "none", PriorityNone.String())
}

func TestSummarize(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	summary := Summarize([]models.Alert{
		{MachineID: a, Type: enums.AlertTypeIncomplete, IsActive: true},
		{MachineID: b, Type: enums.AlertTypeCritical, IsActive: true},
		{MachineID: c, Type: enums.AlertTypeLowStock, IsActive: true},
		{MachineID: c, Type: enums.AlertTypeCritical, IsActive: false},
	})
	require.Equal(t, 3, summary.Total)
	require.Equal(t, PriorityCritical, summary.Highest)
	require.Equal(t, enums.AlertTypeCritical, summary.HighestType)
	require.Equal(t, 1, summary.ByType[enums.AlertTypeLowStock])
	require.Equal(t, []uuid.UUID{b, c, a}, summary.Machines)

	empty := Summarize(nil)
	require.Zero(t, empty.Total)
	require.Equal(t, PriorityNone, empty.Highest)
}
