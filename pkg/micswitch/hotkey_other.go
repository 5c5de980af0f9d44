//go:build !darwin

package micswitch

import "context"

func (m *MicSwitch) setupHotkeys(_ context.Context) {
	hotkeys := m.config.Snapshot().Hotkeys

	m.logger.Named("hotkeys").Infow("Global shortcuts are only available on macOS",
		"toggleMute", hotkeys.ToggleMute,
		"toggleDevice", hotkeys.ToggleDevice)
}
