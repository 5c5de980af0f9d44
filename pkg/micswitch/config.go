package micswitch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"
)

// DeviceProfile is a named pair of devices that are switched to together
type DeviceProfile struct {
	Name   string `mapstructure:"name"`
	Input  string `mapstructure:"input"`
	Output string `mapstructure:"output"`
}

// ConfigValues are the parsed settings. A reload replaces them as a whole
type ConfigValues struct {
	MergeTimeout time.Duration
	PollInterval time.Duration
	EventBuffer  int

	SsePort      int
	NotifyOnMute bool

	Hotkeys struct {
		ToggleMute   string
		ToggleDevice string
	}

	Profiles []DeviceProfile
}

// CanonicalConfig provides application-wide access to configuration fields,
// as well as loading/file watching logic for micswitch's configuration file.
// Goroutines other than the loader should read through Snapshot
type CanonicalConfig struct {
	ConfigValues

	// guards ConfigValues and reloadConsumers
	lock sync.RWMutex

	logger             *zap.SugaredLogger
	notifier           Notifier
	stopWatcherChannel chan bool

	reloadConsumers []chan bool

	userConfig *viper.Viper
}

const (
	userConfigName = "config"
	userConfigPath = "."
	appConfigDir   = "micswitch"

	configType = "yaml"

	configKey_MergeTimeout = "merge_timeout_ms"
	configKey_PollInterval = "poll_interval_seconds"
	configKey_EventBuffer  = "event_buffer"
	configKey_SsePort      = "sse_port"
	configKey_NotifyOnMute = "notify_on_mute"
	configKey_ToggleMute   = "hotkeys.toggle_mute"
	configKey_ToggleDevice = "hotkeys.toggle_device"
	configKey_Profiles     = "profiles"

	default_MergeTimeout = 100
	default_PollInterval = 10
	default_EventBuffer  = 32
	default_SsePort      = 0
	default_NotifyOnMute = true
	default_ToggleMute   = "Cmd+Shift+M"
	default_ToggleDevice = "Cmd+Shift+N"

	minMergeTimeout = 10 * time.Millisecond
	minPollInterval = time.Second
)

// NewConfig creates a config instance. If configFile is empty, config.yaml is looked up
// in the working directory and then in the user's XDG config directory
func NewConfig(logger *zap.SugaredLogger, notifier Notifier, configFile string) (*CanonicalConfig, error) {
	logger = logger.Named("config")

	cc := &CanonicalConfig{
		logger:             logger,
		notifier:           notifier,
		reloadConsumers:    []chan bool{},
		stopWatcherChannel: make(chan bool),
	}

	userConfig := viper.New()
	if configFile != "" {
		userConfig.SetConfigFile(configFile)
	} else {
		userConfig.SetConfigName(userConfigName)
		userConfig.AddConfigPath(userConfigPath)
		userConfig.AddConfigPath(filepath.Join(xdg.ConfigHome, appConfigDir))
	}
	userConfig.SetConfigType(configType)

	userConfig.SetDefault(configKey_MergeTimeout, default_MergeTimeout)
	userConfig.SetDefault(configKey_PollInterval, default_PollInterval)
	userConfig.SetDefault(configKey_EventBuffer, default_EventBuffer)
	userConfig.SetDefault(configKey_SsePort, default_SsePort)
	userConfig.SetDefault(configKey_NotifyOnMute, default_NotifyOnMute)
	userConfig.SetDefault(configKey_ToggleMute, default_ToggleMute)
	userConfig.SetDefault(configKey_ToggleDevice, default_ToggleDevice)
	userConfig.SetDefault(configKey_Profiles, []map[string]string{})

	cc.userConfig = userConfig

	logger.Debug("Created config instance")

	return cc, nil
}

// Load reads the config file from disk and tries to parse it. A missing file means defaults
func (cc *CanonicalConfig) Load() error {
	cc.logger.Debug("Loading config")

	if err := cc.userConfig.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError

		if errors.As(err, &notFound) {
			cc.logger.Infow("No config file found, using defaults", "searched", cc.searchPaths())
		} else {
			cc.logger.Warnw("Viper failed to read user config", "error", err)
			if strings.Contains(err.Error(), "yaml:") {
				cc.notifier.Notify("Invalid configuration!", "Please make sure config.yaml is in a valid YAML format.")
			} else {
				cc.notifier.Notify("Error loading configuration!", "Please check micswitch's logs for more details.")
			}
			return fmt.Errorf("read user config: %w", err)
		}
	}

	if err := cc.populateFromVipers(); err != nil {
		cc.logger.Warnw("Failed to populate config fields", "error", err)
		return fmt.Errorf("populate config fields: %w", err)
	}

	values := cc.Snapshot()

	cc.logger.Info("Loaded config successfully")
	cc.logger.Infow("Config values",
		"file", cc.userConfig.ConfigFileUsed(),
		"mergeTimeout", values.MergeTimeout,
		"pollInterval", values.PollInterval,
		"eventBuffer", values.EventBuffer,
		"ssePort", values.SsePort,
		"notifyOnMute", values.NotifyOnMute,
		"hotkeys", values.Hotkeys,
		"profiles", values.Profiles,
	)

	return nil
}

// Snapshot returns a copy of the current values, safe to use while a reload is in progress
func (cc *CanonicalConfig) Snapshot() ConfigValues {
	cc.lock.RLock()
	defer cc.lock.RUnlock()

	values := cc.ConfigValues
	values.Profiles = append([]DeviceProfile(nil), cc.Profiles...)

	return values
}

// FilePath returns the config file in use, or where a new one should be created
func (cc *CanonicalConfig) FilePath() string {
	if used := cc.userConfig.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(userConfigPath, userConfigName+"."+configType)
}

// SubscribeToChanges allows external components to receive updates when the config is reloaded
func (cc *CanonicalConfig) SubscribeToChanges() chan bool {
	c := make(chan bool, 1)

	cc.lock.Lock()
	cc.reloadConsumers = append(cc.reloadConsumers, c)
	cc.lock.Unlock()

	return c
}

// WatchConfigFileChanges starts watching for configuration file changes
// and attempts reloading the config when they happen
func (cc *CanonicalConfig) WatchConfigFileChanges() {
	if cc.userConfig.ConfigFileUsed() == "" {
		cc.logger.Debug("No config file in use, not watching for changes")
		<-cc.stopWatcherChannel
		return
	}

	cc.logger.Debugw("Starting to watch user config file for changes", "path", cc.userConfig.ConfigFileUsed())

	const (
		minTimeBetweenReloadAttempts = time.Millisecond * 500
		delayBetweenEventAndReload   = time.Millisecond * 50
	)

	lastAttemptedReload := time.Now()

	// establish watch using viper as opposed to doing it ourselves, though our internal cooldown is still required
	cc.userConfig.WatchConfig()
	cc.userConfig.OnConfigChange(func(event fsnotify.Event) {

		// when we get a write event...
		if event.Op&fsnotify.Write == fsnotify.Write {

			now := time.Now()

			// ... check if it's not a duplicate (many editors will write to a file twice)
			if lastAttemptedReload.Add(minTimeBetweenReloadAttempts).Before(now) {

				// and attempt reload if appropriate
				cc.logger.Debugw("Config file modified, attempting reload", "event", event)

				// wait a bit to let the editor actually flush the new file contents to disk
				<-time.After(delayBetweenEventAndReload)

				if err := cc.Load(); err != nil {
					cc.logger.Warnw("Failed to reload config file", "error", err)
				} else {
					cc.logger.Info("Reloaded config successfully")
					cc.notifier.Notify("Configuration reloaded!", "Your changes have been applied.")

					cc.onConfigReloaded()
				}

				// don't forget to update the time
				lastAttemptedReload = now
			}
		}
	})

	// wait till they stop us
	<-cc.stopWatcherChannel
	cc.logger.Debug("Stopping user config file watcher")
	cc.userConfig.OnConfigChange(nil)
}

// StopWatchingConfigFile signals our filesystem watcher to stop
func (cc *CanonicalConfig) StopWatchingConfigFile() {
	select {
	case cc.stopWatcherChannel <- true:
	default:
		// watcher never started
	}

	cc.closeReloadChannels()
}

func (cc *CanonicalConfig) closeReloadChannels() {
	cc.lock.Lock()
	defer cc.lock.Unlock()

	for _, ch := range cc.reloadConsumers {
		close(ch)
	}
	cc.reloadConsumers = nil
	cc.logger.Debug("Closed all config reload channels")
}

func (cc *CanonicalConfig) populateFromVipers() error {
	var values ConfigValues

	values.MergeTimeout = time.Duration(cc.userConfig.GetInt(configKey_MergeTimeout)) * time.Millisecond
	if values.MergeTimeout < minMergeTimeout {
		cc.logger.Warnw("Merge timeout too small, clamping", "value", values.MergeTimeout, "min", minMergeTimeout)
		values.MergeTimeout = minMergeTimeout
	}

	values.PollInterval = time.Duration(cc.userConfig.GetInt(configKey_PollInterval)) * time.Second
	if values.PollInterval < minPollInterval {
		cc.logger.Warnw("Poll interval too small, clamping", "value", values.PollInterval, "min", minPollInterval)
		values.PollInterval = minPollInterval
	}

	values.EventBuffer = cc.userConfig.GetInt(configKey_EventBuffer)
	if values.EventBuffer < 1 {
		values.EventBuffer = default_EventBuffer
	}

	values.SsePort = cc.userConfig.GetInt(configKey_SsePort)
	if values.SsePort < 0 || values.SsePort > 65535 {
		return fmt.Errorf("invalid %s: %d", configKey_SsePort, values.SsePort)
	}

	values.NotifyOnMute = cc.userConfig.GetBool(configKey_NotifyOnMute)
	values.Hotkeys.ToggleMute = strings.TrimSpace(cc.userConfig.GetString(configKey_ToggleMute))
	values.Hotkeys.ToggleDevice = strings.TrimSpace(cc.userConfig.GetString(configKey_ToggleDevice))

	var profiles []DeviceProfile
	if err := cc.userConfig.UnmarshalKey(configKey_Profiles, &profiles); err != nil {
		return fmt.Errorf("parse %s: %w", configKey_Profiles, err)
	}

	values.Profiles = funk.Filter(profiles, func(p DeviceProfile) bool {
		if p.Input == "" || p.Output == "" {
			cc.logger.Warnw("Ignoring incomplete device profile", "profile", p)
			return false
		}
		return true
	}).([]DeviceProfile)

	cc.lock.Lock()
	cc.ConfigValues = values
	cc.lock.Unlock()

	cc.logger.Debug("Populated config fields from viper")

	return nil
}

func (cc *CanonicalConfig) searchPaths() []string {
	return []string{userConfigPath, filepath.Join(xdg.ConfigHome, appConfigDir)}
}

func (cc *CanonicalConfig) onConfigReloaded() {
	cc.logger.Debug("Notifying consumers about configuration reload")

	cc.lock.RLock()
	defer cc.lock.RUnlock()

	for _, consumer := range cc.reloadConsumers {
		// Safely send to channel, handling closed channels
		func() {
			defer func() {
				if r := recover(); r != nil {
					cc.logger.Debugw("Config reload channel closed, skipping notification", "recover", r)
				}
			}()
			select {
			case consumer <- true:
			default:
				// a reload is already pending for this consumer
			}
		}()
	}
}
