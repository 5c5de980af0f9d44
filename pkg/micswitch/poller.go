package micswitch

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// inputDevicePoller re-queries the current input device on a slow interval and publishes a change
// when it differs from the last one seen. It backs up the listener path, and both may report
// the same change
type inputDevicePoller struct {
	logger    *zap.SugaredLogger
	helper    *AudioHelper
	publisher EventPublisher

	interval int64 // nanoseconds, atomic
	lastID   ObjectID
}

func newInputDevicePoller(
	logger *zap.SugaredLogger,
	helper *AudioHelper,
	publisher EventPublisher,
	interval time.Duration,
) *inputDevicePoller {

	logger = logger.Named("poller")

	p := &inputDevicePoller{
		logger:    logger,
		helper:    helper,
		publisher: publisher,
		interval:  int64(interval),
	}

	if device, ok := helper.CurrentDevice(true); ok {
		p.lastID = device.ID
	}

	logger.Debugw("Created input device poller instance", "interval", interval, "current", p.lastID)

	return p
}

// setInterval takes effect after the current wait
func (p *inputDevicePoller) setInterval(interval time.Duration) {
	atomic.StoreInt64(&p.interval, int64(interval))
}

func (p *inputDevicePoller) currentInterval() time.Duration {
	return time.Duration(atomic.LoadInt64(&p.interval))
}

func (p *inputDevicePoller) run(ctx context.Context) error {
	p.logger.Debug("Poller starting")

	timer := time.NewTimer(p.currentInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Poller stopping")
			return nil

		case <-timer.C:
			p.poll()
			timer.Reset(p.currentInterval())
		}
	}
}

func (p *inputDevicePoller) poll() {
	device, ok := p.helper.CurrentDevice(true)
	if !ok || device.ID == p.lastID {
		return
	}

	p.logger.Infow("Detected input device change by polling", "previous", p.lastID, "device", device)
	p.lastID = device.ID
	p.publisher.Publish(inputDeviceChangedEvent(device))
}
