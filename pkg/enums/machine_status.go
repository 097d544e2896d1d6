package enums

import "fmt"

// MachineStatus describes the readiness of a vending machine.
type MachineStatus string

const (
	MachineStatusIncomplete  MachineStatus = "incomplete"
	MachineStatusOnline      MachineStatus = "online"
	MachineStatusOffline     MachineStatus = "offline"
	MachineStatusMaintenance MachineStatus = "maintenance"
)

var validMachineStatuses = []MachineStatus{
	MachineStatusIncomplete,
	MachineStatusOnline,
	MachineStatusOffline,
	MachineStatusMaintenance,
}

// String implements fmt.Stringer.
func (m MachineStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MachineStatus.
func (m MachineStatus) IsValid() bool {
	for _, candidate := range validMachineStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMachineStatus converts raw input into a MachineStatus.
func ParseMachineStatus(value string) (MachineStatus, error) {
	for _, candidate := range validMachineStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid machine status %q", value)
}
