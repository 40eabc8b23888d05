package ffmpeg

import "fmt"

// Status is the toolchain bootstrap state.
type Status int

const (
	StatusUnknown Status = iota
	StatusDetecting
	StatusMissing
	StatusInstalling
	StatusVerifying
	StatusReady
	StatusUnavailable
)

// String returns the status name for display.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "Unknown"
	case StatusDetecting:
		return "Detecting"
	case StatusMissing:
		return "Missing"
	case StatusInstalling:
		return "Installing"
	case StatusVerifying:
		return "Verifying"
	case StatusReady:
		return "Ready"
	case StatusUnavailable:
		return "Unavailable"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is a snapshot of the toolchain bootstrap state. Path is set iff
// Status is Ready.
type State struct {
	Status Status
	Path   string
}
