package micswitch

import (
	"errors"
	"fmt"

	"github.com/thoas/go-funk"
)

var errNoInputDevice = errors.New("no current input device")

// ToggleMute flips the mute state of the current input device and returns it as it is afterwards
func (h *AudioHelper) ToggleMute() (Device, error) {
	current, ok := h.CurrentDevice(true)
	if !ok {
		return Device{}, errNoInputDevice
	}

	device, err := h.MuteDevice(current.ID, !current.IsMuted)
	if err != nil {
		return Device{}, fmt.Errorf("toggle mute: %w", err)
	}

	return device, nil
}

// ToggleDevice switches input and output to the profile after the one currently in use.
// If no other profile has both of its devices connected, nothing changes and the current
// input device is returned
func (h *AudioHelper) ToggleDevice(profiles []DeviceProfile) (Device, error) {
	devices := h.ListDevices()

	current, ok := findCurrentInput(devices)
	if !ok {
		return Device{}, errNoInputDevice
	}

	profile, ok := nextProfile(profiles, current.Name, devices)
	if !ok {
		h.logger.Infow("No other device profile available, keeping current device", "device", current)
		return current, nil
	}

	input, _ := findDevice(devices, profile.Input, KindInput)
	output, _ := findDevice(devices, profile.Output, KindOutput)

	h.logger.Infow("Switching device profile", "profile", profile.Name, "input", input, "output", output)

	if err := h.SetCurrentDevice(input.ID, true); err != nil {
		return Device{}, fmt.Errorf("switch input to profile %s: %w", profile.Name, err)
	}

	if err := h.SetCurrentDevice(output.ID, false); err != nil {
		return Device{}, fmt.Errorf("switch output to profile %s: %w", profile.Name, err)
	}

	return h.Device(input.ID), nil
}

// nextProfile returns the first profile after the active one (cycling) whose devices are both present.
// With no active profile, the first complete profile wins
func nextProfile(profiles []DeviceProfile, currentInput string, devices []Device) (DeviceProfile, bool) {
	if len(profiles) == 0 {
		return DeviceProfile{}, false
	}

	active := funk.IndexOf(funk.Map(profiles, func(p DeviceProfile) string {
		return p.Input
	}), currentInput)

	for step := 0; step < len(profiles); step++ {
		idx := (active + 1 + step) % len(profiles)
		if active == -1 {
			idx = step
		}

		if idx == active {
			continue
		}

		candidate := profiles[idx]

		_, hasInput := findDevice(devices, candidate.Input, KindInput)
		_, hasOutput := findDevice(devices, candidate.Output, KindOutput)

		if hasInput && hasOutput {
			return candidate, true
		}
	}

	return DeviceProfile{}, false
}

func findDevice(devices []Device, name string, kind DeviceKind) (Device, bool) {
	found := funk.Find(devices, func(d Device) bool {
		return d.Name == name && d.Kind == kind
	})

	if found == nil {
		return Device{}, false
	}

	return found.(Device), true
}

func findCurrentInput(devices []Device) (Device, bool) {
	found := funk.Find(devices, func(d Device) bool {
		return d.IsInput() && d.IsCurrent
	})

	if found == nil {
		return Device{}, false
	}

	return found.(Device), true
}
