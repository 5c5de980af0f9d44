package micswitch

// SetMute writes the input-scope mute property of a device. There is no read-back
func (h *AudioHelper) SetMute(id ObjectID, mute bool) error {
	var value uint32
	if mute {
		value = 1
	}

	address := muteAddress()

	if status := h.backend.SetPropertyData(id, address, encodeUint32(value)); !status.OK() {
		h.logger.Warnw("Failed to set device mute state", "device", id, "mute", mute, "status", status)

		return &MutationError{
			Message: "mute device",
			Err:     statusError("set property data", id, address, status),
		}
	}

	h.logger.Debugw("Set device mute state", "device", id, "mute", mute)

	return nil
}

// SetCurrentDevice makes the given device the OS default input (or output) device
func (h *AudioHelper) SetCurrentDevice(id ObjectID, input bool) error {
	address := defaultDeviceAddress(input)

	if status := h.backend.SetPropertyData(SystemObject, address, encodeUint32(uint32(id))); !status.OK() {
		h.logger.Warnw("Failed to set default device", "device", id, "input", input, "status", status)

		return &MutationError{
			Message: "set device",
			Err:     statusError("set property data", SystemObject, address, status),
		}
	}

	h.logger.Debugw("Set default device", "device", id, "input", input)

	return nil
}

// MuteDevice sets a device's mute state and returns the device as it is afterwards
func (h *AudioHelper) MuteDevice(id ObjectID, mute bool) (Device, error) {
	if err := h.SetMute(id, mute); err != nil {
		return Device{}, err
	}

	return h.Device(id), nil
}
