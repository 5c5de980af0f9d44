//go:build darwin

package micswitch

import (
	"context"
	"testing"

	"golang.design/x/hotkey"
)

func TestParseHotkeyCombo(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantMods []hotkey.Modifier
		wantKey  hotkey.Key
		wantErr  bool
	}{
		{"default mute", "Cmd+Shift+M", []hotkey.Modifier{hotkey.ModCmd, hotkey.ModShift}, hotkey.KeyM, false},
		{"default device", "Cmd+Shift+N", []hotkey.Modifier{hotkey.ModCmd, hotkey.ModShift}, hotkey.KeyN, false},
		{"ctrl+f5", "Ctrl+F5", []hotkey.Modifier{hotkey.ModCtrl}, hotkey.KeyF5, false},
		{"alt is option", "Alt+Space", []hotkey.Modifier{hotkey.ModOption}, hotkey.KeySpace, false},
		{"case insensitive", "cmd + shift + m", []hotkey.Modifier{hotkey.ModCmd, hotkey.ModShift}, hotkey.KeyM, false},
		{"empty", "", nil, 0, true},
		{"no modifier", "M", nil, 0, true},
		{"unknown modifier", "Super+M", nil, 0, true},
		{"unknown key", "Cmd+Unknown", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mods, key, err := parseHotkeyCombo(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for input %q, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error for input %q: %v", tt.input, err)
				return
			}
			if len(mods) != len(tt.wantMods) {
				t.Errorf("parseHotkeyCombo(%q) mods = %v, want %v", tt.input, mods, tt.wantMods)
				return
			}
			for i := range mods {
				if mods[i] != tt.wantMods[i] {
					t.Errorf("parseHotkeyCombo(%q) mod[%d] = %v, want %v", tt.input, i, mods[i], tt.wantMods[i])
				}
			}
			if key != tt.wantKey {
				t.Errorf("parseHotkeyCombo(%q) key = %v, want %v", tt.input, key, tt.wantKey)
			}
		})
	}
}

func TestSetupHotkeysNeedsTray(t *testing.T) {
	m, _, logs := newTestMicSwitchWithConfig(t, twoMicsAndSpeakers(), "hotkeys:\n  toggle_mute: Cmd+Shift+M\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.setupHotkeys(ctx)

	if logs.FilterMessage("Running without tray icon, global shortcuts disabled").Len() != 1 {
		t.Error("shortcuts not skipped without a tray")
	}
	if logs.FilterMessage("Registered shortcut").Len() != 0 {
		t.Error("registered a shortcut without a run loop to deliver it")
	}
}
