package micswitch

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// NotificationKind tells which property a Notification is about
type NotificationKind int

const (
	// DefaultDeviceChanged means the OS default input device was switched
	DefaultDeviceChanged NotificationKind = iota + 1

	// MuteChanged means a device's mute state was toggled
	MuteChanged
)

// Notification is the normalized value a PropertyListener pushes for every OS callback.
// It only carries enough to re-query the current state
type Notification struct {
	Kind     NotificationKind
	DeviceID ObjectID
	Muted    bool
}

func (n Notification) String() string {
	switch n.Kind {
	case DefaultDeviceChanged:
		return fmt.Sprintf("<default device changed: %d>", n.DeviceID)
	case MuteChanged:
		return fmt.Sprintf("<mute changed: %d, muted: %t>", n.DeviceID, n.Muted)
	default:
		return "<unknown notification>"
	}
}

// notificationDecoder turns the raw property value read inside a callback into a Notification
type notificationDecoder func(object ObjectID, data []byte) Notification

func decodeDefaultDevice(_ ObjectID, data []byte) Notification {
	return Notification{
		Kind:     DefaultDeviceChanged,
		DeviceID: ObjectID(decodeUint32(data)),
	}
}

func decodeMute(object ObjectID, data []byte) Notification {
	return Notification{
		Kind:     MuteChanged,
		DeviceID: object,
		Muted:    decodeUint32(data) != 0,
	}
}

// eventSink is the channel listeners push into. Once closed, sends are dropped instead of panicking,
// since OS callbacks can still be in flight during shutdown
type eventSink struct {
	name   string
	lock   sync.RWMutex
	ch     chan Notification
	closed bool
}

func newEventSink(name string, size int) *eventSink {
	if size < 1 {
		size = 1
	}

	return &eventSink{
		name: name,
		ch:   make(chan Notification, size),
	}
}

// send never blocks: a full or closed sink drops the value and returns false
func (s *eventSink) send(n Notification) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- n:
		return true
	default:
		return false
	}
}

func (s *eventSink) close() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// listenerTable maps the tokens given to the OS back to live listeners.
// A callback carrying a token that is no longer in the table is ignored
type listenerTable struct {
	lock sync.RWMutex
	next ListenerToken
	live map[ListenerToken]*PropertyListener
}

var liveListeners = &listenerTable{
	live: make(map[ListenerToken]*PropertyListener),
}

func (t *listenerTable) add(l *PropertyListener) ListenerToken {
	t.lock.Lock()
	defer t.lock.Unlock()

	// zero is never handed out so it can mean "unregistered"
	t.next++
	t.live[t.next] = l

	return t.next
}

func (t *listenerTable) remove(token ListenerToken) {
	t.lock.Lock()
	defer t.lock.Unlock()

	delete(t.live, token)
}

func (t *listenerTable) lookup(token ListenerToken) *PropertyListener {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.live[token]
}

func (t *listenerTable) count() int {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return len(t.live)
}

// dispatchPropertyChange is the entry point for every OS property listener callback
func dispatchPropertyChange(token ListenerToken) Status {
	l := liveListeners.lookup(token)
	if l == nil {
		return statusOK
	}

	return l.handlePropertyChange()
}

// PropertyListener bridges OS change notifications for one (object, property) pair onto an eventSink
type PropertyListener struct {
	logger  *zap.SugaredLogger
	backend Backend

	object  ObjectID
	address PropertyAddress
	decode  notificationDecoder
	sink    *eventSink

	lock  sync.Mutex
	token ListenerToken // zero while unregistered
}

// newPropertyListener creates an unregistered listener. It doesn't talk to the OS
func newPropertyListener(
	logger *zap.SugaredLogger,
	backend Backend,
	object ObjectID,
	address PropertyAddress,
	decode notificationDecoder,
	sink *eventSink,
) *PropertyListener {

	return &PropertyListener{
		logger:  logger.With("object", object, "property", address.String()),
		backend: backend,
		object:  object,
		address: address,
		decode:  decode,
		sink:    sink,
	}
}

// Register installs the OS callback. On failure the listener stays unregistered
func (l *PropertyListener) Register() error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.token != 0 {
		return nil
	}

	token := liveListeners.add(l)

	if status := l.backend.AddPropertyListener(l.object, l.address, token); !status.OK() {
		liveListeners.remove(token)
		l.logger.Warnw("Failed to register property listener", "status", status)

		return &ListenerError{
			Message: "register listener",
			Err:     statusError("add property listener", l.object, l.address, status),
		}
	}

	l.token = token
	l.logger.Debugw("Registered property listener", "token", token)

	return nil
}

// Unregister removes the OS callback. Unregistering an unregistered listener is a no-op.
// If the OS refuses, the listener stays registered and may still be called back
func (l *PropertyListener) Unregister() error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.token == 0 {
		return nil
	}

	if status := l.backend.RemovePropertyListener(l.object, l.address, l.token); !status.OK() {
		l.logger.Errorw("Failed to unregister property listener", "token", l.token, "status", status)

		return &ListenerError{
			Message: "unregister listener",
			Err:     statusError("remove property listener", l.object, l.address, status),
		}
	}

	liveListeners.remove(l.token)
	l.logger.Debugw("Unregistered property listener", "token", l.token)
	l.token = 0

	return nil
}

// Registered reports whether the OS callback is currently installed
func (l *PropertyListener) Registered() bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.token != 0
}

// Close is the teardown path: unregister and discard the error
func (l *PropertyListener) Close() {
	if err := l.Unregister(); err != nil {
		l.logger.Warnw("Ignoring failure to unregister listener on close", "error", err)
	}
}

// handlePropertyChange runs on an OS callback thread. It must not take l.lock:
// the OS may call back while Register or Unregister holds it
func (l *PropertyListener) handlePropertyChange() Status {
	buf := make([]byte, 4)

	if _, status := l.backend.PropertyData(l.object, l.address, buf); !status.OK() {
		l.logger.Warnw("Failed to read changed property", "status", status)
		return status
	}

	n := l.decode(l.object, buf)

	if !l.sink.send(n) {
		l.logger.Debugw("Dropped notification, sink closed or full", "sink", l.sink.name, "notification", n)
	}

	return statusOK
}
