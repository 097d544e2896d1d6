package alerts

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorbox-backend/pkg/db/models"
	"github.com/angelmondragon/vendorbox-backend/pkg/enums"
)

// Priority is the total order over stock alert states. Both the single-alert
// writer and Summarize rank alerts through it.
type Priority int

const (
	PriorityNone Priority = iota
	PriorityIncomplete
	PriorityLowStock
	PriorityCritical
)

// AlertType returns the alert type raised at this priority, or "" for none.
func (p Priority) AlertType() enums.AlertType {
	switch p {
	case PriorityCritical:
		return enums.AlertTypeCritical
	case PriorityLowStock:
		return enums.AlertTypeLowStock
	case PriorityIncomplete:
		return enums.AlertTypeIncomplete
	default:
		return ""
	}
}

// Level returns the severity attached to alerts at this priority.
func (p Priority) Level() enums.AlertLevel {
	switch p {
	case PriorityCritical:
		return enums.AlertLevelCritical
	case PriorityLowStock, PriorityIncomplete:
		return enums.AlertLevelWarning
	default:
		return ""
	}
}

func (p Priority) String() string {
	if t := p.AlertType(); t != "" {
		return t.String()
	}
	return "none"
}

// PriorityOf ranks an alert type. Types the calculator never raises rank as none.
func PriorityOf(t enums.AlertType) Priority {
	switch t {
	case enums.AlertTypeCritical:
		return PriorityCritical
	case enums.AlertTypeLowStock:
		return PriorityLowStock
	case enums.AlertTypeIncomplete:
		return PriorityIncomplete
	default:
		return PriorityNone
	}
}

// Assessment is the derived alert state for one machine.
type Assessment struct {
	Priority         Priority
	StockID          *uuid.UUID
	ConfiguredSlots  int
	TotalSlots       int
	EmptySlots       int
	LowStockSlots    int
	SlotsAtThreshold int
	Threshold        int
}

// Needed reports whether the machine should carry an active alert.
func (a Assessment) Needed() bool {
	return a.Priority != PriorityNone
}

// Message renders the operator-facing text for the assessment.
func (a Assessment) Message() string {
	switch a.Priority {
	case PriorityCritical:
		return fmt.Sprintf("%d of %d slots empty", a.EmptySlots, a.ConfiguredSlots)
	case PriorityLowStock:
		return fmt.Sprintf("%d of %d slots at or below low-stock threshold (%d empty, %d low)",
			a.SlotsAtThreshold, a.ConfiguredSlots, a.EmptySlots, a.LowStockSlots)
	case PriorityIncomplete:
		return fmt.Sprintf("%d of %d slots configured", a.ConfiguredSlots, a.TotalSlots)
	default:
		return ""
	}
}

// Metadata is the diagnostic snapshot stored with the alert.
func (a Assessment) Metadata() map[string]any {
	return map[string]any{
		"empty_slots":        a.EmptySlots,
		"low_stock_slots":    a.LowStockSlots,
		"slots_at_threshold": a.SlotsAtThreshold,
		"configured_slots":   a.ConfiguredSlots,
		"total_slots":        a.TotalSlots,
		"threshold":          a.Threshold,
	}
}

// Calculator derives alert state from a machine's stock snapshot.
type Calculator struct {
	totalSlots    int
	lowStockRatio float64
}

// NewCalculator falls back to the standard machine layout for non-positive inputs.
func NewCalculator(totalSlots int, lowStockRatio float64) Calculator {
	if totalSlots <= 0 {
		totalSlots = models.MachineSlotCapacity
	}
	if lowStockRatio <= 0 || lowStockRatio > 1 {
		lowStockRatio = 0.5
	}
	return Calculator{totalSlots: totalSlots, lowStockRatio: lowStockRatio}
}

// Assess ranks the machine: any empty slot is critical; otherwise enough slots
// at threshold is low stock; otherwise missing slots is incomplete.
func (c Calculator) Assess(stocks []models.Stock) Assessment {
	a := Assessment{
		ConfiguredSlots: len(stocks),
		TotalSlots:      c.totalSlots,
	}
	var firstEmpty, firstLow *uuid.UUID
	for i := range stocks {
		s := stocks[i]
		switch {
		case s.Empty():
			a.EmptySlots++
			if firstEmpty == nil {
				firstEmpty = &s.ID
			}
		case s.Low():
			a.LowStockSlots++
			if firstLow == nil {
				firstLow = &s.ID
			}
		}
	}
	a.SlotsAtThreshold = a.EmptySlots + a.LowStockSlots
	a.Threshold = int(math.Ceil(float64(a.ConfiguredSlots) * c.lowStockRatio))

	switch {
	case a.EmptySlots >= 1:
		a.Priority = PriorityCritical
		a.StockID = firstEmpty
	case a.ConfiguredSlots > 0 && a.SlotsAtThreshold >= a.Threshold:
		a.Priority = PriorityLowStock
		a.StockID = firstLow
	case a.ConfiguredSlots < a.TotalSlots:
		a.Priority = PriorityIncomplete
	default:
		a.Priority = PriorityNone
	}
	return a
}

// Summary aggregates active alerts across machines.
type Summary struct {
	Total       int                     `json:"total"`
	ByType      map[enums.AlertType]int `json:"by_type"`
	Highest     Priority                `json:"-"`
	HighestType enums.AlertType         `json:"highest,omitempty"`
	Machines    []uuid.UUID             `json:"machines"`
}

// Summarize counts active alerts per type and finds the highest priority,
// ordering machines most severe first.
func Summarize(alerts []models.Alert) Summary {
	out := Summary{ByType: map[enums.AlertType]int{}}
	best := map[uuid.UUID]Priority{}
	var order []uuid.UUID
	for _, alert := range alerts {
		if !alert.IsActive {
			continue
		}
		out.Total++
		out.ByType[alert.Type]++
		p := PriorityOf(alert.Type)
		if p > out.Highest {
			out.Highest = p
		}
		prev, seen := best[alert.MachineID]
		if !seen {
			order = append(order, alert.MachineID)
		}
		if !seen || p > prev {
			best[alert.MachineID] = p
		}
	}
	for _, want := range []Priority{PriorityCritical, PriorityLowStock, PriorityIncomplete, PriorityNone} {
		for _, id := range order {
			if best[id] == want {
				out.Machines = append(out.Machines, id)
			}
		}
	}
	out.HighestType = out.Highest.AlertType()
	return out
}
