package enums

import "fmt"

// AlertType classifies a machine alert.
type AlertType string

const (
	AlertTypeLowStock            AlertType = "low_stock"
	AlertTypeCritical            AlertType = "critical"
	AlertTypeIncomplete          AlertType = "incomplete"
	AlertTypeMachineOffline      AlertType = "machine_offline"
	AlertTypeMaintenanceRequired AlertType = "maintenance_required"
)

var validAlertTypes = []AlertType{
	AlertTypeLowStock,
	AlertTypeCritical,
	AlertTypeIncomplete,
	AlertTypeMachineOffline,
	AlertTypeMaintenanceRequired,
}

// String implements fmt.Stringer.
func (a AlertType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AlertType.
func (a AlertType) IsValid() bool {
	for _, candidate := range validAlertTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAlertType converts raw input into a AlertType.
func ParseAlertType(value string) (AlertType, error) {
	for _, candidate := range validAlertTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid alert type %q", value)
}
