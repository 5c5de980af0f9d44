package micswitch

/*
#cgo LDFLAGS: -framework CoreAudio -framework CoreFoundation

#include "coreaudio_darwin.h"
*/
import "C"

import (
	"bytes"
	"unsafe"
)

// long enough for any device name CoreAudio hands out
const maxNameLength = 512

type coreAudioBackend struct{}

func newBackend() (Backend, error) {
	return &coreAudioBackend{}, nil
}

//export goPropertyListenerProc
func goPropertyListenerProc(object C.AudioObjectID, token C.uintptr_t) C.OSStatus {
	return C.OSStatus(dispatchPropertyChange(ListenerToken(token)))
}

func (b *coreAudioBackend) PropertyDataSize(object ObjectID, address PropertyAddress) (uint32, Status) {
	var size C.UInt32

	status := C.micswitchPropertyDataSize(
		C.AudioObjectID(object),
		C.UInt32(address.Selector), C.UInt32(address.Scope), C.UInt32(address.Element),
		&size,
	)

	return uint32(size), Status(status)
}

func (b *coreAudioBackend) PropertyData(object ObjectID, address PropertyAddress, buf []byte) (uint32, Status) {
	if len(buf) == 0 {
		return 0, statusOK
	}

	size := C.UInt32(len(buf))

	status := C.micswitchPropertyData(
		C.AudioObjectID(object),
		C.UInt32(address.Selector), C.UInt32(address.Scope), C.UInt32(address.Element),
		&size,
		unsafe.Pointer(&buf[0]),
	)

	return uint32(size), Status(status)
}

func (b *coreAudioBackend) SetPropertyData(object ObjectID, address PropertyAddress, data []byte) Status {
	if len(data) == 0 {
		return statusIllegalOp
	}

	status := C.micswitchSetPropertyData(
		C.AudioObjectID(object),
		C.UInt32(address.Selector), C.UInt32(address.Scope), C.UInt32(address.Element),
		C.UInt32(len(data)),
		unsafe.Pointer(&data[0]),
	)

	return Status(status)
}

func (b *coreAudioBackend) StringProperty(object ObjectID, address PropertyAddress) (string, Status) {
	buf := make([]byte, maxNameLength)

	status := C.micswitchStringProperty(
		C.AudioObjectID(object),
		C.UInt32(address.Selector), C.UInt32(address.Scope), C.UInt32(address.Element),
		(*C.char)(unsafe.Pointer(&buf[0])),
		C.UInt32(len(buf)),
	)
	if Status(status) != statusOK {
		return "", Status(status)
	}

	if end := bytes.IndexByte(buf, 0); end >= 0 {
		buf = buf[:end]
	}

	return string(buf), statusOK
}

func (b *coreAudioBackend) AddPropertyListener(object ObjectID, address PropertyAddress, token ListenerToken) Status {
	return Status(C.micswitchAddPropertyListener(
		C.AudioObjectID(object),
		C.UInt32(address.Selector), C.UInt32(address.Scope), C.UInt32(address.Element),
		C.uintptr_t(token),
	))
}

func (b *coreAudioBackend) RemovePropertyListener(object ObjectID, address PropertyAddress, token ListenerToken) Status {
	return Status(C.micswitchRemovePropertyListener(
		C.AudioObjectID(object),
		C.UInt32(address.Selector), C.UInt32(address.Scope), C.UInt32(address.Element),
		C.uintptr_t(token),
	))
}

func (b *coreAudioBackend) Release() error {
	return nil
}
