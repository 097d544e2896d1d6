package enums

import "fmt"

// AlertLevel is the severity attached to an alert.
type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "info"
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelError    AlertLevel = "error"
	AlertLevelCritical AlertLevel = "critical"
)

var validAlertLevels = []AlertLevel{
	AlertLevelInfo,
	AlertLevelWarning,
	AlertLevelError,
	AlertLevelCritical,
}

// String implements fmt.Stringer.
func (a AlertLevel) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AlertLevel.
func (a AlertLevel) IsValid() bool {
	for _, candidate := range validAlertLevels {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAlertLevel converts raw input into a AlertLevel.
func ParseAlertLevel(value string) (AlertLevel, error) {
	for _, candidate := range validAlertLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid alert level %q", value)
}
