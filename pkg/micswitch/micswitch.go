// Package micswitch exposes the macOS default audio input/output device to a desktop app:
// device listing, mute and default-device control, and live change notifications
package micswitch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stalexteam/micswitch/pkg/micswitch/util"
)

const (

	// when this is set to anything, micswitch won't use a tray icon
	envNoTray = "MICSWITCH_NO_TRAY"

	// how long stop waits for the merge loop and poller to wind down
	workerStopTimeout = 500 * time.Millisecond

	// per-subscriber buffer for boundary events
	eventConsumerBuffer = 16
)

// MicSwitch is the main entity managing access to all sub-components
type MicSwitch struct {
	logger   *zap.SugaredLogger
	notifier Notifier
	config   *CanonicalConfig

	backend  Backend
	audio    *AudioHelper
	registry *ListenerRegistry
	merge    *mergeLoop
	poller   *inputDevicePoller
	server   *SseServer

	workers       *errgroup.Group
	cancelWorkers context.CancelFunc

	stopChannel chan bool
	version     string
	verbose     bool
	stopping    sync.Once
	withTray    bool

	eventConsumers []chan AudioEvent
	consumersMutex sync.RWMutex
}

// NewMicSwitch creates a MicSwitch instance on top of the platform's audio backend
func NewMicSwitch(logger *zap.SugaredLogger, verbose bool, configFile string) (*MicSwitch, error) {
	logger = logger.Named("micswitch")

	notifier, err := NewToastNotifier(logger)
	if err != nil {
		logger.Errorw("Failed to create ToastNotifier", "error", err)
		return nil, fmt.Errorf("create new ToastNotifier: %w", err)
	}

	config, err := NewConfig(logger, notifier, configFile)
	if err != nil {
		logger.Errorw("Failed to create Config", "error", err)
		return nil, fmt.Errorf("create new Config: %w", err)
	}

	backend, err := NewBackend()
	if err != nil {
		logger.Errorw("Failed to create audio backend", "error", err)
		return nil, fmt.Errorf("create audio backend: %w", err)
	}

	return newMicSwitch(logger, notifier, config, backend, verbose), nil
}

func newMicSwitch(
	logger *zap.SugaredLogger,
	notifier Notifier,
	config *CanonicalConfig,
	backend Backend,
	verbose bool,
) *MicSwitch {

	m := &MicSwitch{
		logger:         logger,
		notifier:       notifier,
		config:         config,
		backend:        backend,
		audio:          NewAudioHelper(logger, backend),
		stopChannel:    make(chan bool, 1),
		verbose:        verbose,
		eventConsumers: []chan AudioEvent{},
	}

	m.server = NewSseServer(m, logger)

	logger.Debug("Created micswitch instance")

	return m
}

// Initialize loads the config, starts watching devices and runs until stopped
func (m *MicSwitch) Initialize() error {
	m.logger.Debug("Initializing")

	// load the config for the first time
	if err := m.config.Load(); err != nil {
		m.logger.Errorw("Failed to load config during initialization", "error", err)
		return fmt.Errorf("load config during init: %w", err)
	}

	// decide whether to run with/without tray before start, shortcuts depend on it
	_, noTraySet := os.LookupEnv(envNoTray)
	m.withTray = !noTraySet

	if err := m.start(); err != nil {
		return fmt.Errorf("start micswitch: %w", err)
	}

	if noTraySet {

		m.logger.Debugw("Running without tray icon", "reason", "envvar set")

		// run in main thread while waiting on ctrl+C
		m.setupInterruptHandler()
		m.run()

	} else {
		m.setupInterruptHandler()
		m.initializeTray(m.run)
	}

	return nil
}

// SetVersion causes micswitch to add a version string to its tray menu if called before Initialize
func (m *MicSwitch) SetVersion(version string) {
	m.version = version
}

// Verbose returns a boolean indicating whether micswitch is running in verbose mode
func (m *MicSwitch) Verbose() bool {
	return m.verbose
}

// Audio returns the query/mutation boundary
func (m *MicSwitch) Audio() *AudioHelper {
	return m.audio
}

// SubscribeToAudioEvents returns a channel that receives every event published to the application boundary.
// Consumers must tolerate duplicates: the listener path and the poller can both report one change
func (m *MicSwitch) SubscribeToAudioEvents() chan AudioEvent {
	ch := make(chan AudioEvent, eventConsumerBuffer)

	m.consumersMutex.Lock()
	m.eventConsumers = append(m.eventConsumers, ch)
	m.consumersMutex.Unlock()

	return ch
}

// Publish fans an event out to every subscriber
func (m *MicSwitch) Publish(event AudioEvent) {
	m.consumersMutex.RLock()
	consumers := make([]chan AudioEvent, len(m.eventConsumers))
	copy(consumers, m.eventConsumers)
	m.consumersMutex.RUnlock()

	if m.Verbose() {
		m.logger.Debugw("Publishing audio event", "event", event, "consumers", len(consumers))
	}

	for _, c := range consumers {
		// Safely send to channel, handling closed channels
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Debugw("Channel closed, skipping event", "recover", r)
				}
			}()
			select {
			case c <- event:
			default:
				m.logger.Warnw("Event consumer is falling behind, dropping event", "event", event)
			}
		}()
	}
}

// RefreshDevices rebuilds the mute listeners from the current device list. A listener that can't be
// torn down may still be called back by the OS, so that stops micswitch
func (m *MicSwitch) RefreshDevices() error {
	devices := m.audio.ListDevices()

	if err := m.registry.ReplaceMuteListeners(devices); err != nil {
		m.logger.Errorw("Failed to tear down mute listeners, stopping", "error", err)
		m.notifier.Notify("Audio listeners stuck!", "micswitch couldn't release its audio device listeners and will quit.")
		m.signalStop()

		return fmt.Errorf("refresh devices: %w", err)
	}

	m.logger.Infow("Refreshed audio devices", "count", len(devices), "watchingMute", m.registry.MuteListenerIDs())

	return nil
}

// start registers the listeners and starts the background workers
func (m *MicSwitch) start() error {
	config := m.config.Snapshot()

	m.registry = NewListenerRegistry(m.logger, m.backend, config.EventBuffer)

	if err := m.registry.RegisterDefaultDeviceListener(); err != nil {
		m.logger.Errorw("Failed to watch the default input device", "error", err)
		m.notifier.Notify("Can't watch audio devices!", "micswitch couldn't register with the audio system and will quit.")
		return fmt.Errorf("register default device listener: %w", err)
	}

	if err := m.RefreshDevices(); err != nil {
		return err
	}

	m.merge = newMergeLoop(m.logger, m.audio, m, m.registry.sinks(), config.MergeTimeout)
	m.poller = newInputDevicePoller(m.logger, m.audio, m, config.PollInterval)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelWorkers = cancel
	m.workers, ctx = errgroup.WithContext(ctx)

	m.workers.Go(m.merge.run)
	m.workers.Go(func() error {
		return m.poller.run(ctx)
	})

	if err := m.server.Start(); err != nil {
		m.logger.Warnw("Failed to start SSE server", "error", err)
	}

	m.setupOnMuteChanged()
	m.setupHotkeys(ctx)

	return nil
}

func (m *MicSwitch) setupInterruptHandler() {
	interruptChannel := util.SetupCloseHandler()

	go func() {
		signal := <-interruptChannel
		m.logger.Debugw("Interrupted", "signal", signal)
		m.signalStop()
	}()
}

func (m *MicSwitch) run() {
	m.logger.Info("Run loop starting")

	// watch the config file for changes
	go m.config.WatchConfigFileChanges()

	m.setupOnConfigReload()

	// wait until stopped (gracefully)
	<-m.stopChannel
	m.logger.Debug("Stop channel signaled, terminating")

	if err := m.stop(); err != nil {
		m.logger.Warnw("Failed to stop micswitch", "error", err)
		os.Exit(1)
	} else {
		// exit with 0
		os.Exit(0)
	}
}

func (m *MicSwitch) signalStop() {
	m.stopping.Do(func() {
		m.logger.Debug("Signalling stop channel")
		select {
		case m.stopChannel <- true:
		default:
			// Channel already has a signal, ignore
		}
	})
}

func (m *MicSwitch) stop() error {
	m.logger.Info("Stopping")

	m.config.StopWatchingConfigFile()
	m.server.Stop()

	if m.cancelWorkers != nil {
		m.cancelWorkers()
	}

	// closing the registry closes the sinks, which is what stops the merge loop
	var closeErr error
	if m.registry != nil {
		if closeErr = m.registry.Close(); closeErr != nil {
			m.logger.Errorw("Failed to release audio listeners", "error", closeErr)
		}
	}

	if m.workers != nil {
		done := make(chan error, 1)
		go func() {
			done <- m.workers.Wait()
		}()

		select {
		case err := <-done:
			if err != nil {
				m.logger.Warnw("Background worker failed", "error", err)
			} else {
				m.logger.Debug("Background workers stopped")
			}
		case <-time.After(workerStopTimeout):
			m.logger.Warn("Background workers did not stop within timeout, proceeding anyway")
		}
	}

	m.closeEventChannels()

	if err := m.backend.Release(); err != nil {
		m.logger.Warnw("Failed to release audio backend", "error", err)
	}

	if m.withTray {
		m.stopTray()
	}

	// attempt to sync on exit - this won't necessarily work but can't harm
	m.logger.Sync()

	if closeErr != nil {
		return fmt.Errorf("close listener registry: %w", closeErr)
	}

	return nil
}

// closeEventChannels closes all event channels to signal consumer goroutines to exit
func (m *MicSwitch) closeEventChannels() {
	m.consumersMutex.Lock()
	defer m.consumersMutex.Unlock()

	for _, ch := range m.eventConsumers {
		close(ch)
	}
	m.eventConsumers = nil

	m.logger.Debug("Closed all event channels")
}

// setupOnMuteChanged shows a toast whenever the current input device is muted or unmuted
func (m *MicSwitch) setupOnMuteChanged() {
	events := m.SubscribeToAudioEvents()

	go func() {
		for event := range events {
			if event.Mute == nil || !m.config.Snapshot().NotifyOnMute {
				continue
			}

			current, ok := m.audio.CurrentDevice(true)
			if !ok || current.ID != event.Mute.DeviceID {
				continue
			}

			if event.Mute.Muted {
				m.notifier.Notify("Microphone muted", current.Name)
			} else {
				m.notifier.Notify("Microphone live", current.Name)
			}
		}

		m.logger.Debug("Audio events channel closed, exiting mute notifier")
	}()
}

// setupOnConfigReload applies the settings that can change at runtime
func (m *MicSwitch) setupOnConfigReload() {
	configReloadedChannel := m.config.SubscribeToChanges()

	go func() {
		for range configReloadedChannel {
			m.logger.Info("Detected config reload, applying new settings")

			if m.poller != nil {
				m.poller.setInterval(m.config.Snapshot().PollInterval)
			}

			if err := m.server.Start(); err != nil {
				m.logger.Warnw("Failed to restart SSE server after config reload", "error", err)
			}
		}
	}()
}
