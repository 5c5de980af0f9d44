package micswitch

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stalexteam/micswitch/pkg/micswitch/icon"
)

func TestTrayStateFor(t *testing.T) {
	tests := []struct {
		name        string
		current     Device
		ok          bool
		wantMuted   bool
		wantMute    string
		wantTooltip string
	}{
		{"live microphone", Device{ID: 10, Name: "Built-in Microphone"}, true, false, "Mute", "Built-in Microphone"},
		{"muted microphone", Device{ID: 10, Name: "Built-in Microphone", IsMuted: true}, true, true, "Unmute", "(muted)"},
		{"no input device", Device{}, false, false, "Mute", trayTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := trayStateFor(tt.current, tt.ok)

			wantIcon := icon.Mic
			if tt.wantMuted {
				wantIcon = icon.MicMuted
			}
			if !bytes.Equal(state.icon, wantIcon) {
				t.Error("wrong tray icon")
			}
			if state.muteTitle != tt.wantMute {
				t.Errorf("muteTitle = %q, want %q", state.muteTitle, tt.wantMute)
			}
			if !strings.Contains(state.tooltip, tt.wantTooltip) {
				t.Errorf("tooltip = %q, want it to mention %q", state.tooltip, tt.wantTooltip)
			}
			if tt.ok && !strings.Contains(state.deviceTitle, tt.current.Name) {
				t.Errorf("deviceTitle = %q, want the device name", state.deviceTitle)
			}
		})
	}
}
