package registry

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Muhammadxon2oo7/agro/internal/domain"

	"gopkg.in/yaml.v3"
)

// Registry holds the known sensor devices in registration order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	devices map[string]domain.Device
}

func New(devices []domain.Device) (*Registry, error) {
	r := &Registry{devices: make(map[string]domain.Device, len(devices))}
	for _, d := range devices {
		if strings.TrimSpace(d.ID) == "" {
			return nil, fmt.Errorf("device %q has no id", d.Name)
		}
		if _, dup := r.devices[d.ID]; dup {
			return nil, fmt.Errorf("duplicate device id %q", d.ID)
		}
		switch d.Status {
		case domain.DeviceStatusOnline, domain.DeviceStatusOffline, domain.DeviceStatusMaintenance:
		default:
			return nil, fmt.Errorf("device %q has unknown status %q", d.ID, d.Status)
		}
		r.order = append(r.order, d.ID)
		r.devices[d.ID] = d
	}
	return r, nil
}

type file struct {
	Devices []domain.Device `yaml:"devices"`
}

// LoadFile reads a YAML document of the form `devices: [...]`.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read devices file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse devices file: %w", err)
	}
	return New(f.Devices)
}

// List returns devices whose id, name or location contains query,
// ignoring case. An empty query lists everything.
func (r *Registry) List(query string) []domain.Device {
	q := strings.ToLower(strings.TrimSpace(query))

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Device, 0, len(r.order))
	for _, id := range r.order {
		d := r.devices[id]
		if q == "" ||
			strings.Contains(strings.ToLower(d.ID), q) ||
			strings.Contains(strings.ToLower(d.Name), q) ||
			strings.Contains(strings.ToLower(d.Location), q) {
			out = append(out, d)
		}
	}
	return out
}

func (r *Registry) Get(id string) (domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return domain.Device{}, fmt.Errorf("device %s: %w", id, domain.ErrNotFound)
	}
	return d, nil
}

// Remove terminates a device.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[id]; !ok {
		return fmt.Errorf("device %s: %w", id, domain.ErrNotFound)
	}
	delete(r.devices, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// IDs returns device ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// DefaultDevices is the sample fleet shown on the devices page.
func DefaultDevices() []domain.Device {
	return []domain.Device{
		{ID: "DEV-001", Name: "Tuproq Sensor A1", Location: "Samarqand, 1-dala", Status: domain.DeviceStatusOnline, LastConnection: "2024-03-15T09:31:27", BatteryLevel: 78, SignalStrength: 85},
		{ID: "DEV-002", Name: "Tuproq Sensor B2", Location: "Toshkent, 3-dala", Status: domain.DeviceStatusOnline, LastConnection: "2024-03-15T08:45:12", BatteryLevel: 65, SignalStrength: 72},
		{ID: "DEV-003", Name: "Tuproq Sensor C3", Location: "Farg'ona, 2-dala", Status: domain.DeviceStatusOffline, LastConnection: "2024-03-14T16:22:05", BatteryLevel: 12, SignalStrength: 0},
		{ID: "DEV-004", Name: "Tuproq Sensor D4", Location: "Buxoro, 1-dala", Status: domain.DeviceStatusOnline, LastConnection: "2024-03-15T07:18:33", BatteryLevel: 91, SignalStrength: 92},
		{ID: "DEV-005", Name: "Tuproq Sensor E5", Location: "Namangan, 4-dala", Status: domain.DeviceStatusMaintenance, LastConnection: "2024-03-13T11:05:47", BatteryLevel: 45, SignalStrength: 38},
	}
}
