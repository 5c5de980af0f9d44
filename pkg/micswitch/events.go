package micswitch

import "fmt"

const (
	// EventInputDeviceChanged is published with the new default input Device
	EventInputDeviceChanged = "input-device-changed"

	// EventMuteChanged is published with a MuteChange
	EventMuteChanged = "mute-changed"
)

// MuteChange is the payload of a mute-changed event
type MuteChange struct {
	DeviceID ObjectID `json:"deviceId"`
	Muted    bool     `json:"isMuted"`
}

// AudioEvent is what the application boundary receives.
// Exactly one of Device and Mute is set, depending on Name
type AudioEvent struct {
	Name   string
	Device *Device
	Mute   *MuteChange
}

// EventPublisher accepts events destined for the application boundary
type EventPublisher interface {
	Publish(event AudioEvent)
}

// Payload returns the value serialized to clients for this event
func (e AudioEvent) Payload() interface{} {
	if e.Mute != nil {
		return e.Mute
	}
	return e.Device
}

func (e AudioEvent) String() string {
	return fmt.Sprintf("<%s: %v>", e.Name, e.Payload())
}

func inputDeviceChangedEvent(device Device) AudioEvent {
	return AudioEvent{
		Name:   EventInputDeviceChanged,
		Device: &device,
	}
}

func muteChangedEvent(id ObjectID, muted bool) AudioEvent {
	return AudioEvent{
		Name: EventMuteChanged,
		Mute: &MuteChange{DeviceID: id, Muted: muted},
	}
}
