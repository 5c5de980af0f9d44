package micswitch

import (
	"sort"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type fakeDevice struct {
	name  string
	input bool
	muted bool
}

type fakeListenerKey struct {
	object  ObjectID
	address PropertyAddress
}

// fakeBackend is an in-memory audio system. Property writes fire registered listeners
// through dispatchPropertyChange, the same way the OS callback does
type fakeBackend struct {
	lock sync.Mutex

	devices       map[ObjectID]*fakeDevice
	order         []ObjectID
	defaultInput  ObjectID
	defaultOutput ObjectID

	listeners map[ListenerToken]fakeListenerKey

	addFailures    map[ObjectID]Status
	removeFailures map[ObjectID]Status
	readFailures   map[ObjectID]Status
	setFailure     Status
	listFailure    Status

	released bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		devices:        make(map[ObjectID]*fakeDevice),
		listeners:      make(map[ListenerToken]fakeListenerKey),
		addFailures:    make(map[ObjectID]Status),
		removeFailures: make(map[ObjectID]Status),
		readFailures:   make(map[ObjectID]Status),
	}
}

func (b *fakeBackend) addDevice(id ObjectID, name string, input bool) *fakeBackend {
	b.lock.Lock()
	defer b.lock.Unlock()

	if _, ok := b.devices[id]; !ok {
		b.order = append(b.order, id)
	}
	b.devices[id] = &fakeDevice{name: name, input: input}

	return b
}

func (b *fakeBackend) removeDevice(id ObjectID) {
	b.lock.Lock()
	defer b.lock.Unlock()

	delete(b.devices, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// setDefaults changes the defaults behind micswitch's back, without firing listeners
func (b *fakeBackend) setDefaults(input ObjectID, output ObjectID) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.defaultInput = input
	b.defaultOutput = output
}

func (b *fakeBackend) setMuted(id ObjectID, muted bool) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.devices[id].muted = muted
}

func (b *fakeBackend) muted(id ObjectID) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.devices[id].muted
}

func (b *fakeBackend) failAdd(id ObjectID, status Status) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.addFailures[id] = status
}

func (b *fakeBackend) failRemove(id ObjectID, status Status) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if status.OK() {
		delete(b.removeFailures, id)
		return
	}
	b.removeFailures[id] = status
}

func (b *fakeBackend) failRead(id ObjectID, status Status) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if status.OK() {
		delete(b.readFailures, id)
		return
	}
	b.readFailures[id] = status
}

func (b *fakeBackend) failSet(status Status) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.setFailure = status
}

func (b *fakeBackend) listenerCount() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return len(b.listeners)
}

func (b *fakeBackend) tokensFor(object ObjectID, address PropertyAddress) []ListenerToken {
	b.lock.Lock()
	defer b.lock.Unlock()

	var tokens []ListenerToken
	for token, key := range b.listeners {
		if key.object == object && key.address == address {
			tokens = append(tokens, token)
		}
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })

	return tokens
}

// fire delivers a change callback to every listener on (object, address). Must be called without b.lock
func (b *fakeBackend) fire(object ObjectID, address PropertyAddress) {
	for _, token := range b.tokensFor(object, address) {
		dispatchPropertyChange(token)
	}
}

func (b *fakeBackend) PropertyDataSize(object ObjectID, address PropertyAddress) (uint32, Status) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if object == SystemObject {
		switch address.Selector {
		case selectorDevices:
			if !b.listFailure.OK() {
				return 0, b.listFailure
			}
			return uint32(4 * len(b.order)), statusOK
		case selectorDefaultInputDevice, selectorDefaultOutputDevice:
			return 4, statusOK
		}
		return 0, statusUnknownProperty
	}

	device, ok := b.devices[object]
	if !ok {
		return 0, statusBadObject
	}

	switch address.Selector {
	case selectorMute:
		if status, failing := b.readFailures[object]; failing {
			return 0, status
		}
		if !device.input {
			return 0, statusUnknownProperty
		}
		return 4, statusOK
	case selectorStreamConfiguration:
		if device.input {
			return 8, statusOK
		}
		return 4, statusOK
	}

	return 0, statusUnknownProperty
}

func (b *fakeBackend) PropertyData(object ObjectID, address PropertyAddress, buf []byte) (uint32, Status) {
	b.lock.Lock()
	defer b.lock.Unlock()

	put := func(v uint32) (uint32, Status) {
		if len(buf) < 4 {
			return 0, statusUnspecified
		}
		copy(buf, encodeUint32(v))
		return 4, statusOK
	}

	if object == SystemObject {
		switch address.Selector {
		case selectorDevices:
			if !b.listFailure.OK() {
				return 0, b.listFailure
			}
			n := uint32(0)
			for i, id := range b.order {
				if len(buf) < 4*(i+1) {
					break
				}
				copy(buf[4*i:], encodeUint32(uint32(id)))
				n += 4
			}
			return n, statusOK
		case selectorDefaultInputDevice:
			return put(uint32(b.defaultInput))
		case selectorDefaultOutputDevice:
			return put(uint32(b.defaultOutput))
		}
		return 0, statusUnknownProperty
	}

	device, ok := b.devices[object]
	if !ok {
		return 0, statusBadObject
	}

	switch address.Selector {
	case selectorMute:
		if status, failing := b.readFailures[object]; failing {
			return 0, status
		}
		if !device.input {
			return 0, statusUnknownProperty
		}
		if device.muted {
			return put(1)
		}
		return put(0)
	case selectorStreamConfiguration:
		if device.input {
			return put(1)
		}
		return put(0)
	}

	return 0, statusUnknownProperty
}

func (b *fakeBackend) SetPropertyData(object ObjectID, address PropertyAddress, data []byte) Status {
	changed, status := b.set(object, address, data)
	if changed {
		b.fire(object, address)
	}

	return status
}

func (b *fakeBackend) set(object ObjectID, address PropertyAddress, data []byte) (bool, Status) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.setFailure.OK() {
		return false, b.setFailure
	}

	value := decodeUint32(data)

	if object == SystemObject {
		if _, ok := b.devices[ObjectID(value)]; !ok {
			return false, statusBadObject
		}

		switch address.Selector {
		case selectorDefaultInputDevice:
			changed := b.defaultInput != ObjectID(value)
			b.defaultInput = ObjectID(value)
			return changed, statusOK
		case selectorDefaultOutputDevice:
			changed := b.defaultOutput != ObjectID(value)
			b.defaultOutput = ObjectID(value)
			return changed, statusOK
		}
		return false, statusUnknownProperty
	}

	device, ok := b.devices[object]
	if !ok {
		return false, statusBadObject
	}

	if address.Selector != selectorMute || !device.input {
		return false, statusIllegalOp
	}

	changed := device.muted != (value != 0)
	device.muted = value != 0

	return changed, statusOK
}

func (b *fakeBackend) StringProperty(object ObjectID, address PropertyAddress) (string, Status) {
	b.lock.Lock()
	defer b.lock.Unlock()

	device, ok := b.devices[object]
	if !ok {
		return "", statusBadObject
	}

	if address.Selector != selectorName {
		return "", statusUnknownProperty
	}

	return device.name, statusOK
}

func (b *fakeBackend) AddPropertyListener(object ObjectID, address PropertyAddress, token ListenerToken) Status {
	b.lock.Lock()
	defer b.lock.Unlock()

	if status, failing := b.addFailures[object]; failing {
		return status
	}

	b.listeners[token] = fakeListenerKey{object: object, address: address}

	return statusOK
}

func (b *fakeBackend) RemovePropertyListener(object ObjectID, address PropertyAddress, token ListenerToken) Status {
	b.lock.Lock()
	defer b.lock.Unlock()

	if status, failing := b.removeFailures[object]; failing {
		return status
	}

	if _, ok := b.listeners[token]; !ok {
		return statusUnspecified
	}

	delete(b.listeners, token)

	return statusOK
}

func (b *fakeBackend) Release() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.released = true

	return nil
}

// recordingPublisher collects published events
type recordingPublisher struct {
	lock   sync.Mutex
	events []AudioEvent
	notify chan struct{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{notify: make(chan struct{}, 64)}
}

func (p *recordingPublisher) Publish(event AudioEvent) {
	p.lock.Lock()
	p.events = append(p.events, event)
	p.lock.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *recordingPublisher) snapshot() []AudioEvent {
	p.lock.Lock()
	defer p.lock.Unlock()

	events := make([]AudioEvent, len(p.events))
	copy(events, p.events)

	return events
}

// recordingNotifier collects toast notifications
type recordingNotifier struct {
	lock   sync.Mutex
	titles []string
}

func (n *recordingNotifier) Notify(title string, message string) {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.titles = append(n.titles, title)
}

func (n *recordingNotifier) count() int {
	n.lock.Lock()
	defer n.lock.Unlock()

	return len(n.titles)
}

// twoMicsAndSpeakers is the usual test rig: two microphones (10, 11) and speakers (20).
// Mic 10 and the speakers are the defaults
func twoMicsAndSpeakers() *fakeBackend {
	b := newFakeBackend().
		addDevice(10, "Built-in Microphone", true).
		addDevice(11, "USB Microphone", true).
		addDevice(20, "Built-in Speakers", false)

	b.setDefaults(10, 20)

	return b
}

func testLogger(t *testing.T) *zap.SugaredLogger {
	return zaptest.NewLogger(t).Sugar()
}
