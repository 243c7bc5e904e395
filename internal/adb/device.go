package adb

// Status is the readiness of a connected device as reported by `adb devices`.
type Status int

const (
	StatusOther Status = iota
	StatusReady
	StatusUnauthorized
)

// Device represents a connected ADB device.
type Device struct {
	Serial string
	State  string // raw token: "device", "unauthorized", "offline", ...
	Status Status
}

// IsReady returns true if the device is in "device" state.
func (d Device) IsReady() bool {
	return d.Status == StatusReady
}

// StatusText is the human readable status shown in device menus.
func (d Device) StatusText() string {
	switch d.Status {
	case StatusReady:
		return "Ready to use"
	case StatusUnauthorized:
		return "Unauthorized"
	default:
		return d.State
	}
}

func statusFromToken(token string) Status {
	switch token {
	case "device":
		return StatusReady
	case "unauthorized":
		return StatusUnauthorized
	default:
		return StatusOther
	}
}
