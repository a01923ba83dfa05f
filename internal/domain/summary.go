package domain

// MetricSummary describes one metric across a set of readings.
// Previous and ChangePercent are nil when there is nothing to compare with.
type MetricSummary struct {
	Latest        float64  `json:"latest"`
	Previous      *float64 `json:"previous,omitempty"`
	ChangePercent *float64 `json:"changePercent,omitempty"`
	Min           float64  `json:"min"`
	Max           float64  `json:"max"`
	Average       float64  `json:"average"`
}

// ReadingSummary backs the dashboard metric cards
type ReadingSummary struct {
	DeviceID        string                   `json:"deviceId,omitempty"`
	Count           int                      `json:"count"`
	LatestTimestamp string                   `json:"latestTimestamp"`
	Metrics         map[Metric]MetricSummary `json:"metrics"`
}

// Device is a registered soil sensor unit
type Device struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Location       string `json:"location" yaml:"location"`
	Status         string `json:"status" yaml:"status"`
	LastConnection string `json:"lastConnection" yaml:"lastConnection"`
	BatteryLevel   int    `json:"batteryLevel" yaml:"batteryLevel"`
	SignalStrength int    `json:"signalStrength" yaml:"signalStrength"`
}

const (
	DeviceStatusOnline      = "online"
	DeviceStatusOffline     = "offline"
	DeviceStatusMaintenance = "maintenance"
)
