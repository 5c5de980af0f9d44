package micswitch

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"
)

// DeviceKind classifies a device by the signal path it supports
type DeviceKind string

const (
	// KindInput devices support the input scope (microphones)
	KindInput DeviceKind = "input"

	// KindOutput devices are everything else
	KindOutput DeviceKind = "output"

	// shown when the OS can't tell us a device's name
	placeholderDeviceName = "N/A"

	deviceStringFormat = "<device %d: %s (%s), current: %t, muted: %t>"
)

// Device is a snapshot of one audio device, rebuilt on every query
type Device struct {
	ID        ObjectID   `json:"id"`
	Name      string     `json:"name"`
	Kind      DeviceKind `json:"deviceType"`
	IsCurrent bool       `json:"isCurrent"`
	IsMuted   bool       `json:"isMuted"`
}

func (d Device) String() string {
	return fmt.Sprintf(deviceStringFormat, d.ID, d.Name, d.Kind, d.IsCurrent, d.IsMuted)
}

// IsInput reports whether the device supports the input scope
func (d Device) IsInput() bool {
	return d.Kind == KindInput
}

// AudioHelper reads and writes default-device and mute properties through a Backend.
// It holds no device state of its own
type AudioHelper struct {
	logger  *zap.SugaredLogger
	backend Backend
}

// NewAudioHelper creates an AudioHelper on top of the given backend
func NewAudioHelper(logger *zap.SugaredLogger, backend Backend) *AudioHelper {
	logger = logger.Named("audio")

	h := &AudioHelper{
		logger:  logger,
		backend: backend,
	}

	logger.Debug("Created audio helper instance")

	return h
}

// ListDevices returns every audio device currently known to the OS.
// It never fails: enumeration errors yield an empty slice, per-field errors yield defaults
func (h *AudioHelper) ListDevices() []Device {
	ids, err := h.deviceIDs()
	if err != nil {
		h.logger.Debugw("Failed to enumerate audio devices", "error", err)
		return []Device{}
	}

	devices := make([]Device, 0, len(ids))
	seen := make(map[ObjectID]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		devices = append(devices, h.Device(id))
	}

	return devices
}

// CurrentDevice returns the OS default input (or output) device, if there is one
func (h *AudioHelper) CurrentDevice(input bool) (Device, bool) {
	id, ok := h.defaultDeviceID(input)
	if !ok {
		return Device{}, false
	}

	device := h.Device(id)

	// the default may have moved between the two reads; this snapshot is of the device
	// that was the default when we asked
	device.IsCurrent = true

	return device, true
}

// Device builds a snapshot of the given device. Every field is best-effort
func (h *AudioHelper) Device(id ObjectID) Device {
	device := Device{
		ID:   id,
		Name: placeholderDeviceName,
		Kind: KindOutput,
	}

	if name, status := h.backend.StringProperty(id, PropertyAddress{
		Selector: selectorName,
		Scope:    scopeGlobal,
		Element:  elementMain,
	}); status.OK() && name != "" {
		device.Name = name
	}

	if h.supportsInput(id) {
		device.Kind = KindInput
	}

	if currentID, ok := h.defaultDeviceID(device.IsInput()); ok {
		device.IsCurrent = currentID == id
	}

	if muted, err := h.IsMuted(id); err == nil {
		device.IsMuted = muted
	}

	return device
}

// IsMuted reads the input-scope mute property of a device.
// Unlike other reads, failures are reported to the caller
func (h *AudioHelper) IsMuted(id ObjectID) (bool, error) {
	address := muteAddress()

	size, status := h.backend.PropertyDataSize(id, address)
	if !status.OK() {
		return false, &QueryError{
			Message: "get mute property data size",
			Err:     statusError("get property data size", id, address, status),
		}
	}

	if size == 0 {
		return false, &QueryError{Message: fmt.Sprintf("mute property of device %d has no data", id)}
	}

	buf := make([]byte, size)
	if _, status := h.backend.PropertyData(id, address, buf); !status.OK() {
		return false, &QueryError{
			Message: "get mute status",
			Err:     statusError("get property data", id, address, status),
		}
	}

	return decodeUint32(buf) != 0, nil
}

func (h *AudioHelper) deviceIDs() ([]ObjectID, error) {
	address := PropertyAddress{
		Selector: selectorDevices,
		Scope:    scopeGlobal,
		Element:  elementMain,
	}

	size, status := h.backend.PropertyDataSize(SystemObject, address)
	if !status.OK() {
		return nil, statusError("get property data size", SystemObject, address, status)
	}

	buf := make([]byte, size)
	n, status := h.backend.PropertyData(SystemObject, address, buf)
	if !status.OK() {
		return nil, statusError("get property data", SystemObject, address, status)
	}

	// the device list may have shrunk between the two calls
	if n < size {
		buf = buf[:n]
	}

	ids := make([]ObjectID, 0, len(buf)/4)
	for i := 0; i+4 <= len(buf); i += 4 {
		ids = append(ids, ObjectID(binary.NativeEndian.Uint32(buf[i:i+4])))
	}

	return ids, nil
}

func (h *AudioHelper) defaultDeviceID(input bool) (ObjectID, bool) {
	buf := make([]byte, 4)

	if _, status := h.backend.PropertyData(SystemObject, defaultDeviceAddress(input), buf); !status.OK() {
		return UnknownObject, false
	}

	id := ObjectID(decodeUint32(buf))
	if id == UnknownObject {
		return UnknownObject, false
	}

	return id, true
}

// a device supports the input scope if its input stream configuration has at least one buffer.
// the AudioBufferList starts with its buffer count
func (h *AudioHelper) supportsInput(id ObjectID) bool {
	address := PropertyAddress{
		Selector: selectorStreamConfiguration,
		Scope:    scopeInput,
		Element:  elementWildcard,
	}

	size, status := h.backend.PropertyDataSize(id, address)
	if !status.OK() || size < 4 {
		return false
	}

	buf := make([]byte, size)
	if _, status := h.backend.PropertyData(id, address, buf); !status.OK() {
		return false
	}

	return decodeUint32(buf) > 0
}

func decodeUint32(buf []byte) uint32 {
	if len(buf) < 4 {
		return 0
	}
	return binary.NativeEndian.Uint32(buf)
}

func encodeUint32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.NativeEndian.PutUint32(buf, v)
	return buf
}
