package micswitch

import (
	"fmt"
	"os"

	"github.com/getlantern/systray"

	"github.com/stalexteam/micswitch/pkg/micswitch/icon"
	"github.com/stalexteam/micswitch/pkg/micswitch/util"
)

const (
	trayTitle         = "micswitch"
	noCurrentDevice   = "none"
	currentDeviceItem = "Current device: %s"
)

type trayMenu struct {
	toggleDevice  *systray.MenuItem
	toggleMute    *systray.MenuItem
	currentDevice *systray.MenuItem
}

func (m *MicSwitch) initializeTray(onDone func()) {
	logger := m.logger.Named("tray")

	onReady := func() {
		logger.Debug("Tray instance ready")

		systray.SetTemplateIcon(icon.Mic, icon.Mic)
		systray.SetTitle(trayTitle)
		systray.SetTooltip(trayTitle)

		menu := &trayMenu{
			toggleDevice:  systray.AddMenuItem("Switch audio device", "Switch to the next device profile"),
			toggleMute:    systray.AddMenuItem("Mute", "Mute or unmute the current input device"),
			currentDevice: systray.AddMenuItem(fmt.Sprintf(currentDeviceItem, noCurrentDevice), ""),
		}
		menu.currentDevice.Disable()

		systray.AddSeparator()

		refreshDevices := systray.AddMenuItem("Re-scan audio devices", "Rebuild the mute listeners if something's stuck")
		editConfig := systray.AddMenuItem("Edit configuration", "Open config file with the default editor")

		// Only enable stack trace dump in verbose/debug mode
		var dumpStack *systray.MenuItem
		if m.verbose {
			dumpStack = systray.AddMenuItem("Dump stack trace", "Output all goroutines stack trace to log (for debugging deadlocks)")
		}

		if m.version != "" {
			systray.AddSeparator()
			versionInfo := systray.AddMenuItem(m.version, "")
			versionInfo.Disable()
		}

		systray.AddSeparator()
		quit := systray.AddMenuItem("Quit", "Stop micswitch and quit")

		m.refreshTray(menu)
		m.watchTrayEvents(menu)

		// wait on things to happen
		go func() {
			for {
				select {

				// quit
				case <-quit.ClickedCh:
					logger.Info("Quit menu item clicked, stopping")

					m.signalStop()

				// switch profile
				case <-menu.toggleDevice.ClickedCh:
					logger.Info("Switch device menu item clicked")

					if _, err := m.audio.ToggleDevice(m.config.Snapshot().Profiles); err != nil {
						logger.Warnw("Failed to switch audio device", "error", err)
						m.notifier.Notify("Can't switch audio device", err.Error())
					}

				// mute/unmute
				case <-menu.toggleMute.ClickedCh:
					logger.Info("Mute menu item clicked")

					if _, err := m.audio.ToggleMute(); err != nil {
						logger.Warnw("Failed to toggle mute", "error", err)
						m.notifier.Notify("Can't toggle mute", err.Error())
					}

				// refresh devices
				case <-refreshDevices.ClickedCh:
					logger.Info("Refresh devices menu item clicked, rebuilding mute listeners")

					if err := m.RefreshDevices(); err != nil {
						logger.Warnw("Failed to refresh devices", "error", err)
					}

				// edit config
				case <-editConfig.ClickedCh:
					logger.Info("Edit config menu item clicked, opening config for editing")

					if err := util.OpenExternal(logger, os.Getenv("EDITOR"), m.config.FilePath()); err != nil {
						logger.Warnw("Failed to open config file for editing", "error", err)
					}
				}
			}
		}()

		// dump stack trace handler (only in verbose/debug mode)
		if m.verbose && dumpStack != nil {
			go func() {
				for {
					<-dumpStack.ClickedCh
					logger.Info("Dump stack trace menu item clicked, outputting all goroutines stack trace")
					util.DumpAllGoroutines(logger)
				}
			}()
		}

		// actually start the main runtime
		onDone()
	}

	onExit := func() {
		logger.Debug("Tray exited")
	}

	// start the tray icon
	logger.Debug("Running in tray")
	systray.Run(onReady, onExit)
}

// watchTrayEvents redraws the menu on every boundary event. Redrawing is idempotent,
// so duplicates from the poller don't matter
func (m *MicSwitch) watchTrayEvents(menu *trayMenu) {
	events := m.SubscribeToAudioEvents()

	go func() {
		for range events {
			m.refreshTray(menu)
		}
	}()
}

func (m *MicSwitch) refreshTray(menu *trayMenu) {
	current, ok := m.audio.CurrentDevice(true)
	state := trayStateFor(current, ok)

	if m.verbose {
		m.logger.Named("tray").Debugw("Refreshing tray", "tooltip", state.tooltip)
	}

	systray.SetTemplateIcon(state.icon, state.icon)
	systray.SetTooltip(state.tooltip)
	menu.toggleMute.SetTitle(state.muteTitle)
	menu.currentDevice.SetTitle(state.deviceTitle)

	if ok {
		menu.toggleMute.Enable()
	} else {
		menu.toggleMute.Disable()
	}
}

// trayState is what the tray shows for a given current input device
type trayState struct {
	icon        []byte
	tooltip     string
	muteTitle   string
	deviceTitle string
}

func trayStateFor(current Device, ok bool) trayState {
	if !ok {
		return trayState{
			icon:        icon.Mic,
			tooltip:     trayTitle,
			muteTitle:   "Mute",
			deviceTitle: fmt.Sprintf(currentDeviceItem, noCurrentDevice),
		}
	}

	state := trayState{
		icon:        icon.Mic,
		tooltip:     fmt.Sprintf("%s: %s", trayTitle, current.Name),
		muteTitle:   "Mute",
		deviceTitle: fmt.Sprintf(currentDeviceItem, current.Name),
	}

	if current.IsMuted {
		state.icon = icon.MicMuted
		state.tooltip += " (muted)"
		state.muteTitle = "Unmute"
	}

	return state
}

func (m *MicSwitch) stopTray() {
	m.logger.Debug("Quitting tray")
	systray.Quit()
}
