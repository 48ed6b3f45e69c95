package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseServerAlerts(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []ServerAlert
	}{
		{"Empty", nil, nil},
		{"Single", []string{"idle_primary_device"}, []ServerAlert{ServerAlertIdlePrimaryDevice}},
		{"CommaSeparated", []string{" Critical_Idle_Primary_Device ,idle_primary_device"},
			[]ServerAlert{ServerAlertCriticalIdlePrimaryDevice, ServerAlertIdlePrimaryDevice}},
		{"SeveralHeaders", []string{"idle_primary_device", "critical_idle_primary_device"},
			[]ServerAlert{ServerAlertIdlePrimaryDevice, ServerAlertCriticalIdlePrimaryDevice}},
		{"UnknownDropped", []string{"nope,, idle_primary_device"}, []ServerAlert{ServerAlertIdlePrimaryDevice}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseServerAlerts(tt.values))
		})
	}
}

func TestServerAlertString(t *testing.T) {
	assert.Equal(t, "critical_idle_primary_device", ServerAlertCriticalIdlePrimaryDevice.String())
	assert.Equal(t, "idle_primary_device", ServerAlertIdlePrimaryDevice.String())
	assert.Equal(t, "unknown", ServerAlert(0).String())
}
