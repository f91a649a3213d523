// Package fabric defines the value types describing the fabric a dashboard
// session is looking at. Both types are plain value objects: they carry no
// behaviour beyond default construction and are copied by value wherever the
// preferences layer hands them out.
package fabric

import "time"

// Default heartbeat parameters applied to a freshly constructed Fabric.
const (
	DefaultHeartbeatInterval = 60 * time.Second
	DefaultHeartbeatTimeout  = 15 * time.Second
	DefaultHeartbeatRetries  = 3
)

// Status summarises the monitoring state of a fabric.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// Settings holds per-fabric analysis configuration.
type Settings struct {
	OverlayVNID        int    `json:"overlay_vnid"`
	Timezone           string `json:"timezone"`
	VPCPairType        string `json:"vpc_pair_type"`
	QueueInitEvents    bool   `json:"queue_init_events"`
	QueueInitEPMEvents bool   `json:"queue_init_epm_events"`
	AnalyzeMove        bool   `json:"analyze_move"`
	AnalyzeOffsubnet   bool   `json:"analyze_offsubnet"`
	AnalyzeStale       bool   `json:"analyze_stale"`
}

// NewSettings returns a usable default Settings value.
func NewSettings() Settings {
	return Settings{
		Timezone:           "UTC",
		VPCPairType:        "explicit",
		QueueInitEvents:    true,
		QueueInitEPMEvents: true,
		AnalyzeMove:        true,
		AnalyzeOffsubnet:   true,
		AnalyzeStale:       true,
	}
}

// Fabric identifies a monitored fabric and its connection parameters.
type Fabric struct {
	Name              string        `json:"name"`
	APICHost          string        `json:"apic_host"`
	AutoStart         bool          `json:"auto_start"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `json:"heartbeat_timeout"`
	HeartbeatRetries  int           `json:"heartbeat_retries"`
	Status            Status        `json:"status"`
}

// NewFabric returns a usable default Fabric value.
func NewFabric() Fabric {
	return Fabric{
		HeartbeatInterval: DefaultHeartbeatInterval,
		HeartbeatTimeout:  DefaultHeartbeatTimeout,
		HeartbeatRetries:  DefaultHeartbeatRetries,
		Status:            StatusUnknown,
	}
}
