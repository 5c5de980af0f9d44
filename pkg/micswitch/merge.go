package micswitch

import (
	"time"

	"go.uber.org/zap"
)

// mergeLoop drains the registry's sinks in turn and republishes each notification as an AudioEvent,
// built from a fresh query rather than from the value read inside the OS callback
type mergeLoop struct {
	logger    *zap.SugaredLogger
	helper    *AudioHelper
	publisher EventPublisher

	sources []*eventSink
	timeout time.Duration
}

func newMergeLoop(
	logger *zap.SugaredLogger,
	helper *AudioHelper,
	publisher EventPublisher,
	sources []*eventSink,
	timeout time.Duration,
) *mergeLoop {

	logger = logger.Named("merge")

	m := &mergeLoop{
		logger:    logger,
		helper:    helper,
		publisher: publisher,
		sources:   sources,
		timeout:   timeout,
	}

	logger.Debugw("Created merge loop instance", "sources", len(sources), "timeout", timeout)

	return m
}

// run blocks until every source is closed. A timeout on one source just moves on to the next,
// so the worst-case latency is about timeout * len(sources)
func (m *mergeLoop) run() error {
	m.logger.Debug("Merge loop starting")

	closed := make([]bool, len(m.sources))
	open := len(m.sources)

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	for open > 0 {
		for i, source := range m.sources {
			if closed[i] {
				continue
			}

			resetTimer(timer, m.timeout)

			select {
			case n, ok := <-source.ch:
				if !ok {
					m.logger.Debugw("Source closed", "source", source.name)
					closed[i] = true
					open--
					continue
				}
				m.republish(n)

			case <-timer.C:
			}
		}
	}

	m.logger.Debug("All sources closed, merge loop exiting")

	return nil
}

func (m *mergeLoop) republish(n Notification) {
	switch n.Kind {
	case DefaultDeviceChanged:
		device, ok := m.helper.CurrentDevice(true)
		if !ok {
			m.logger.Warnw("Default device changed but no current input device found", "notification", n)
			return
		}

		if device.ID != n.DeviceID {
			m.logger.Debugw("Default device moved again since notification", "notified", n.DeviceID, "current", device.ID)
		}

		m.logger.Infow("Input device changed", "device", device)
		m.publisher.Publish(inputDeviceChangedEvent(device))

	case MuteChanged:
		muted, err := m.helper.IsMuted(n.DeviceID)
		if err != nil {
			m.logger.Warnw("Failed to re-query mute state, dropping notification", "notification", n, "error", err)
			return
		}

		m.logger.Infow("Mute changed", "device", n.DeviceID, "muted", muted)
		m.publisher.Publish(muteChangedEvent(n.DeviceID, muted))

	default:
		m.logger.Warnw("Ignoring unknown notification", "notification", n)
	}
}

func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}
