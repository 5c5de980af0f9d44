package micswitch

import (
	"context"
	"testing"
	"time"
)

func TestPollerPublishesOnChangeOnly(t *testing.T) {
	backend := twoMicsAndSpeakers()
	publisher := newRecordingPublisher()
	logger := testLogger(t)

	p := newInputDevicePoller(logger, NewAudioHelper(logger, backend), publisher, time.Hour)

	p.poll()
	if events := publisher.snapshot(); len(events) != 0 {
		t.Fatalf("poll() without a change published %v", events)
	}

	backend.setDefaults(11, 20)
	p.poll()
	p.poll()

	events := publisher.snapshot()
	if len(events) != 1 {
		t.Fatalf("published %d events, want 1: %v", len(events), events)
	}
	if events[0].Name != EventInputDeviceChanged || events[0].Device.ID != 11 {
		t.Errorf("event = %v, want input-device-changed for device 11", events[0])
	}

	// losing the default device is not a change worth reporting
	backend.setDefaults(UnknownObject, 20)
	p.poll()

	if events := publisher.snapshot(); len(events) != 1 {
		t.Errorf("poll() without a default device published %v", events[1:])
	}
}

func TestPollerRunStopsOnCancel(t *testing.T) {
	backend := twoMicsAndSpeakers()
	publisher := newRecordingPublisher()
	logger := testLogger(t)

	p := newInputDevicePoller(logger, NewAudioHelper(logger, backend), publisher, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.run(ctx)
	}()

	backend.setDefaults(11, 20)

	select {
	case <-publisher.notify:
	case <-time.After(testWait):
		t.Fatal("poller never noticed the device change")
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(testWait):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestPollerSetInterval(t *testing.T) {
	logger := testLogger(t)
	p := newInputDevicePoller(logger, NewAudioHelper(logger, twoMicsAndSpeakers()), newRecordingPublisher(), time.Second)

	p.setInterval(3 * time.Second)

	if got := p.currentInterval(); got != 3*time.Second {
		t.Errorf("currentInterval() = %s, want 3s", got)
	}
}
