package service

import (
	"strings"
)

// ServerAlert is an alert the server attaches to the authenticated connect.
type ServerAlert uint8

const (
	// ServerAlertCriticalIdlePrimaryDevice - the primary device has been
	// idle long enough that this device is about to be unlinked.
	ServerAlertCriticalIdlePrimaryDevice ServerAlert = iota + 1

	// ServerAlertIdlePrimaryDevice - the primary device has been idle.
	ServerAlertIdlePrimaryDevice
)

// String returns the header value of the alert.
func (a ServerAlert) String() string {
	switch a {
	case ServerAlertCriticalIdlePrimaryDevice:
		return "critical_idle_primary_device"
	case ServerAlertIdlePrimaryDevice:
		return "idle_primary_device"
	default:
		return "unknown"
	}
}

// ParseServerAlerts parses alert header values. A value may carry several
// comma-separated alerts; unknown alerts are dropped.
func ParseServerAlerts(values []string) []ServerAlert {
	var alerts []ServerAlert
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			switch strings.ToLower(strings.TrimSpace(part)) {
			case "critical_idle_primary_device":
				alerts = append(alerts, ServerAlertCriticalIdlePrimaryDevice)
			case "idle_primary_device":
				alerts = append(alerts, ServerAlertIdlePrimaryDevice)
			}
		}
	}
	return alerts
}
