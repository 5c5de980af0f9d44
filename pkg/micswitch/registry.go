package micswitch

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/thoas/go-funk"
	"go.uber.org/zap"
)

const (
	defaultSinkName = "default_device"
	muteSinkName    = "mute"
)

// ListenerRegistry owns every active PropertyListener: at most one default-device listener
// and at most one mute listener per input device. All mute listeners share one sink
type ListenerRegistry struct {
	logger  *zap.SugaredLogger
	backend Backend

	lock            sync.Mutex
	defaultListener *PropertyListener
	muteListeners   map[ObjectID]*PropertyListener
	closed          bool

	defaultSink *eventSink
	muteSink    *eventSink
}

// NewListenerRegistry creates an empty registry whose sinks buffer up to bufferSize notifications each
func NewListenerRegistry(logger *zap.SugaredLogger, backend Backend, bufferSize int) *ListenerRegistry {
	logger = logger.Named("registry")

	r := &ListenerRegistry{
		logger:        logger,
		backend:       backend,
		muteListeners: make(map[ObjectID]*PropertyListener),
		defaultSink:   newEventSink(defaultSinkName, bufferSize),
		muteSink:      newEventSink(muteSinkName, bufferSize),
	}

	logger.Debug("Created listener registry instance")

	return r
}

// RegisterDefaultDeviceListener starts watching the default input device. Callers should treat
// failure as fatal: without it there are no device-change notifications at all
func (r *ListenerRegistry) RegisterDefaultDeviceListener() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return errors.New("listener registry closed")
	}

	if r.defaultListener != nil {
		return nil
	}

	listener := newPropertyListener(
		r.logger.Named("default_device"),
		r.backend,
		SystemObject,
		defaultDeviceAddress(true),
		decodeDefaultDevice,
		r.defaultSink,
	)

	if err := listener.Register(); err != nil {
		return fmt.Errorf("register default device listener: %w", err)
	}

	r.defaultListener = listener
	r.logger.Info("Watching default input device")

	return nil
}

// ReplaceMuteListeners tears down every mute listener and registers one per input device in devices.
// A device that fails to register is logged and skipped. A listener that fails to unregister
// is reported in the returned error, since the OS may still call back into it
func (r *ListenerRegistry) ReplaceMuteListeners(devices []Device) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return errors.New("listener registry closed")
	}

	var teardownErrs []error
	for id, listener := range r.muteListeners {
		if err := listener.Unregister(); err != nil {
			teardownErrs = append(teardownErrs, fmt.Errorf("unregister mute listener for device %d: %w", id, err))
		}
	}

	inputs := funk.Filter(devices, func(d Device) bool {
		return d.IsInput()
	}).([]Device)

	listeners := make(map[ObjectID]*PropertyListener, len(inputs))
	for _, device := range inputs {
		if _, ok := listeners[device.ID]; ok {
			continue
		}

		listener := newPropertyListener(
			r.logger.Named("mute"),
			r.backend,
			device.ID,
			muteAddress(),
			decodeMute,
			r.muteSink,
		)

		if err := listener.Register(); err != nil {
			r.logger.Warnw("Failed to watch device mute state, skipping", "device", device, "error", err)
			continue
		}

		listeners[device.ID] = listener
	}

	r.muteListeners = listeners
	r.logger.Infow("Replaced mute listeners", "inputDevices", len(inputs), "watching", len(listeners))

	return errors.Join(teardownErrs...)
}

// HasDefaultDeviceListener reports whether the default input device is being watched
func (r *ListenerRegistry) HasDefaultDeviceListener() bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.defaultListener != nil && r.defaultListener.Registered()
}

// MuteListenerIDs returns the ids of devices whose mute state is watched, in ascending order
func (r *ListenerRegistry) MuteListenerIDs() []ObjectID {
	r.lock.Lock()
	defer r.lock.Unlock()

	ids := make([]ObjectID, 0, len(r.muteListeners))
	for id, listener := range r.muteListeners {
		if listener.Registered() {
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// Close unregisters every listener and then closes both sinks, which stops the merge loop
func (r *ListenerRegistry) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error

	if r.defaultListener != nil {
		if err := r.defaultListener.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("unregister default device listener: %w", err))
		}
		r.defaultListener = nil
	}

	for id, listener := range r.muteListeners {
		if err := listener.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("unregister mute listener for device %d: %w", id, err))
		}
	}
	r.muteListeners = map[ObjectID]*PropertyListener{}

	r.defaultSink.close()
	r.muteSink.close()

	r.logger.Debug("Closed listener registry")

	return errors.Join(errs...)
}

func (r *ListenerRegistry) sinks() []*eventSink {
	return []*eventSink{r.defaultSink, r.muteSink}
}
