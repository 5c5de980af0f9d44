package micswitch

import (
	"errors"
	"fmt"
)

// ObjectID identifies an audio object known to the OS: the system object or a device
type ObjectID uint32

// Status is the raw status code returned by the OS audio subsystem
type Status int32

// ListenerToken is the opaque value handed to the OS as a property listener's client data.
// It indexes the process-wide listener table and is never a memory address
type ListenerToken uint64

// PropertyAddress names one readable, writable or observable property of an audio object
type PropertyAddress struct {
	Selector uint32
	Scope    uint32
	Element  uint32
}

const (
	// UnknownObject is what the OS reports when there is no such object (e.g. no default device)
	UnknownObject ObjectID = 0

	// SystemObject is the audio hardware system object, owner of the default device properties
	SystemObject ObjectID = 1

	statusOK Status = 0

	// statuses used for diagnostics and by the fake backend in tests
	statusUnspecified     Status = 0x77686174 // 'what'
	statusUnknownProperty Status = 0x77686f3f // 'who?'
	statusBadObject       Status = 0x216f626a // '!obj'
	statusIllegalOp       Status = 0x6e6f7065 // 'nope'
)

// four-char codes, see <CoreAudio/AudioHardware.h>
const (
	selectorDevices             uint32 = 0x64657623 // 'dev#'
	selectorDefaultInputDevice  uint32 = 0x64496e20 // 'dIn '
	selectorDefaultOutputDevice uint32 = 0x644f7574 // 'dOut'
	selectorName                uint32 = 0x6c6e616d // 'lnam'
	selectorStreamConfiguration uint32 = 0x736c6179 // 'slay'
	selectorMute                uint32 = 0x6d757465 // 'mute'

	scopeGlobal uint32 = 0x676c6f62 // 'glob'
	scopeInput  uint32 = 0x696e7074 // 'inpt'
	scopeOutput uint32 = 0x6f757470 // 'outp'

	elementMain     uint32 = 0
	elementWildcard uint32 = 0xffffffff
)

// ErrUnsupportedPlatform is returned when no OS backend exists for the running platform
var ErrUnsupportedPlatform = errors.New("audio backend not supported on this platform")

// Backend is the property-level interface to the OS audio subsystem.
// All calls are synchronous. Listener callbacks arrive through dispatchPropertyChange
// on threads owned by the OS
type Backend interface {
	PropertyDataSize(object ObjectID, address PropertyAddress) (uint32, Status)
	PropertyData(object ObjectID, address PropertyAddress, buf []byte) (uint32, Status)
	SetPropertyData(object ObjectID, address PropertyAddress, data []byte) Status
	StringProperty(object ObjectID, address PropertyAddress) (string, Status)

	AddPropertyListener(object ObjectID, address PropertyAddress, token ListenerToken) Status
	RemovePropertyListener(object ObjectID, address PropertyAddress, token ListenerToken) Status

	Release() error
}

// NewBackend creates the OS backend for the running platform
func NewBackend() (Backend, error) {
	return newBackend()
}

// OK reports whether the status signals success
func (s Status) OK() bool {
	return s == statusOK
}

// String renders printable four-char codes ('who?') and falls back to the number
func (s Status) String() string {
	v := uint32(s)
	code := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}

	for _, c := range code {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("%d", int32(s))
		}
	}

	return fmt.Sprintf("'%s'", code)
}

func (a PropertyAddress) String() string {
	return fmt.Sprintf("<%s/%s/%d>", Status(a.Selector), Status(a.Scope), a.Element)
}

func defaultDeviceAddress(input bool) PropertyAddress {
	selector := selectorDefaultOutputDevice
	if input {
		selector = selectorDefaultInputDevice
	}

	return PropertyAddress{
		Selector: selector,
		Scope:    scopeGlobal,
		Element:  elementMain,
	}
}

func muteAddress() PropertyAddress {
	return PropertyAddress{
		Selector: selectorMute,
		Scope:    scopeInput,
		Element:  elementMain,
	}
}
