//go:build darwin

package micswitch

import (
	"context"
	"fmt"
	"strings"

	"golang.design/x/hotkey"
)

var modifierMap = map[string]hotkey.Modifier{
	"OPTION": hotkey.ModOption,
	"ALT":    hotkey.ModOption,
	"CTRL":   hotkey.ModCtrl,
	"SHIFT":  hotkey.ModShift,
	"CMD":    hotkey.ModCmd,
}

var keyMap = map[string]hotkey.Key{
	"SPACE":  hotkey.KeySpace,
	"RETURN": hotkey.KeyReturn,
	"ESCAPE": hotkey.KeyEscape,
	"TAB":    hotkey.KeyTab,
	"F1":     hotkey.KeyF1,
	"F2":     hotkey.KeyF2,
	"F3":     hotkey.KeyF3,
	"F4":     hotkey.KeyF4,
	"F5":     hotkey.KeyF5,
	"F6":     hotkey.KeyF6,
	"F7":     hotkey.KeyF7,
	"F8":     hotkey.KeyF8,
	"F9":     hotkey.KeyF9,
	"F10":    hotkey.KeyF10,
	"F11":    hotkey.KeyF11,
	"F12":    hotkey.KeyF12,
	"A":      hotkey.KeyA,
	"B":      hotkey.KeyB,
	"C":      hotkey.KeyC,
	"D":      hotkey.KeyD,
	"E":      hotkey.KeyE,
	"F":      hotkey.KeyF,
	"G":      hotkey.KeyG,
	"H":      hotkey.KeyH,
	"I":      hotkey.KeyI,
	"J":      hotkey.KeyJ,
	"K":      hotkey.KeyK,
	"L":      hotkey.KeyL,
	"M":      hotkey.KeyM,
	"N":      hotkey.KeyN,
	"O":      hotkey.KeyO,
	"P":      hotkey.KeyP,
	"Q":      hotkey.KeyQ,
	"R":      hotkey.KeyR,
	"S":      hotkey.KeyS,
	"T":      hotkey.KeyT,
	"U":      hotkey.KeyU,
	"V":      hotkey.KeyV,
	"W":      hotkey.KeyW,
	"X":      hotkey.KeyX,
	"Y":      hotkey.KeyY,
	"Z":      hotkey.KeyZ,
	"0":      hotkey.Key0,
	"1":      hotkey.Key1,
	"2":      hotkey.Key2,
	"3":      hotkey.Key3,
	"4":      hotkey.Key4,
	"5":      hotkey.Key5,
	"6":      hotkey.Key6,
	"7":      hotkey.Key7,
	"8":      hotkey.Key8,
	"9":      hotkey.Key9,
}

// parseHotkeyCombo parses a combo like "Cmd+Shift+M" into modifiers and a key.
// At least one modifier is required so a bare letter can't hijack typing
func parseHotkeyCombo(combo string) ([]hotkey.Modifier, hotkey.Key, error) {
	combo = strings.TrimSpace(combo)
	if combo == "" {
		return nil, 0, fmt.Errorf("empty hotkey combo")
	}

	parts := strings.Split(combo, "+")
	if len(parts) < 2 {
		return nil, 0, fmt.Errorf("hotkey must be modifier+key (e.g. Cmd+Shift+M), got: %s", combo)
	}

	var mods []hotkey.Modifier
	for _, part := range parts[:len(parts)-1] {
		part = strings.TrimSpace(part)
		mod, ok := modifierMap[strings.ToUpper(part)]
		if !ok {
			return nil, 0, fmt.Errorf("unknown modifier: %s (valid: Option, Alt, Ctrl, Shift, Cmd)", part)
		}
		mods = append(mods, mod)
	}

	keyStr := strings.TrimSpace(parts[len(parts)-1])
	key, ok := keyMap[strings.ToUpper(keyStr)]
	if !ok {
		return nil, 0, fmt.Errorf("unknown key: %s", keyStr)
	}

	return mods, key, nil
}

// setupHotkeys registers the configured global shortcuts until ctx is done.
// Shortcuts are read once; changing them needs a restart
func (m *MicSwitch) setupHotkeys(ctx context.Context) {
	logger := m.logger.Named("hotkeys")

	// hotkey events are delivered by the Cocoa run loop, which only the tray starts
	if !m.withTray {
		logger.Infow("Running without tray icon, global shortcuts disabled", "env", envNoTray)
		return
	}

	config := m.config.Snapshot()

	bindings := []struct {
		name   string
		combo  string
		action func() error
	}{
		{
			name:  "toggle mute",
			combo: config.Hotkeys.ToggleMute,
			action: func() error {
				_, err := m.audio.ToggleMute()
				return err
			},
		},
		{
			name:  "toggle device",
			combo: config.Hotkeys.ToggleDevice,
			action: func() error {
				_, err := m.audio.ToggleDevice(m.config.Snapshot().Profiles)
				return err
			},
		},
	}

	for _, binding := range bindings {
		if binding.combo == "" {
			logger.Debugw("Shortcut disabled", "action", binding.name)
			continue
		}

		mods, key, err := parseHotkeyCombo(binding.combo)
		if err != nil {
			logger.Warnw("Ignoring invalid shortcut", "action", binding.name, "combo", binding.combo, "error", err)
			continue
		}

		name, combo, action := binding.name, binding.combo, binding.action

		// registration completes once the tray's run loop is up, so it can't happen on the main goroutine
		go func() {
			hk := hotkey.New(mods, key)
			if err := hk.Register(); err != nil {
				logger.Warnw("Failed to register shortcut (grant Accessibility permissions in System Settings > Privacy & Security)",
					"action", name,
					"combo", combo,
					"error", err)
				return
			}

			logger.Infow("Registered shortcut", "action", name, "combo", combo)

			for {
				select {
				case <-ctx.Done():
					if err := hk.Unregister(); err != nil {
						logger.Debugw("Failed to unregister shortcut", "action", name, "error", err)
					}
					return
				case <-hk.Keydown():
					logger.Debugw("Shortcut pressed", "action", name)
					if err := action(); err != nil {
						logger.Warnw("Shortcut action failed", "action", name, "error", err)
					}
				}
			}
		}()
	}
}
