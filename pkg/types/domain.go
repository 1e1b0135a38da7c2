package types

// ModelID is a canonical lowercase model identifier after alias resolution.
// The empty ModelID means "no model selected"; operations receiving it no-op.
type ModelID string

// None is the sentinel for "no model selected".
const None ModelID = ""

// IsNone reports whether the id is the empty sentinel.
func (id ModelID) IsNone() bool { return id == None }

// Phase is the managed server's self-reported operational state.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseInstalling   Phase = "installing"
	PhaseStarting     Phase = "starting"
	PhaseStopping     Phase = "stopping"
	PhaseReinstalling Phase = "reinstalling"
	PhaseRunning      Phase = "running"
	PhaseStopped      Phase = "stopped"
	PhaseError        Phase = "error"
)

// ServerStatus is a whole-value snapshot of the managed server process.
// It is replaced wholesale on every refresh, never mutated in place.
type ServerStatus struct {
	// Self-reported lifecycle phase.
	// example: running
	Phase Phase `json:"phase" example:"running"`
	// Whether the server binary and assets are installed.
	// example: true
	Installed bool `json:"installed" example:"true"`
	// Whether the server process is up and answering health checks.
	// example: true
	Running bool `json:"running" example:"true"`
	// Optional human-readable status message.
	Message string `json:"message,omitempty"`
	// Most recent log line captured from the server process.
	LogLine string `json:"log_line,omitempty"`
}

// Ready reports whether the server can serve model operations.
func (s ServerStatus) Ready() bool { return s.Installed && s.Running }

// ServerAction identifies a lifecycle operation on the managed server.
type ServerAction string

const (
	ActionInstall   ServerAction = "install"
	ActionStart     ServerAction = "start"
	ActionStop      ServerAction = "stop"
	ActionRestart   ServerAction = "restart"
	ActionReinstall ServerAction = "reinstall"
)

// OpClass distinguishes the two long-running per-model operations.
type OpClass string

const (
	OpDownload OpClass = "download"
	OpWarmup   OpClass = "warmup"
)

// ModelInfo describes one selectable model preset.
type ModelInfo struct {
	// Canonical model id.
	// example: large-v3-turbo
	ID ModelID `json:"id" example:"large-v3-turbo"`
	// Human-friendly name.
	// example: Large v3 Turbo
	Name string `json:"name" example:"Large v3 Turbo"`
	// Alternate user-facing names resolving to this id.
	Aliases []string `json:"aliases,omitempty"`
	// Approximate on-disk size label.
	// example: 1.6 GB
	SizeLabel string `json:"size_label,omitempty" example:"1.6 GB"`
	// Backend family serving this model (speech or llm).
	// example: speech
	Backend string `json:"backend,omitempty" example:"speech"`
}
