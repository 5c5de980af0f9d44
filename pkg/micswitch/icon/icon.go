// Package icon holds the tray and notification images
package icon

// Mic is a 22x22 template PNG
var Mic = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x16, 0x00, 0x00, 0x00, 0x16, 0x08, 0x06, 0x00, 0x00, 0x00, 0xc4, 0xb4, 0x6c,
	0x3b, 0x00, 0x00, 0x00, 0x3d, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0x18, 0x05, 0x24,
	0x82, 0xff, 0x68, 0x98, 0x26, 0x86, 0x52, 0xcd, 0xf0, 0x51, 0x83, 0x87, 0x98, 0xc1, 0xff, 0x49,
	0x30, 0xf8, 0xff, 0xa0, 0x33, 0x98, 0x50, 0x06, 0xa1, 0xc8, 0x60, 0x6a, 0xa9, 0xa5, 0x9d, 0xc1,
	0xf8, 0xc2, 0x96, 0x66, 0xc9, 0x8e, 0x66, 0x25, 0xdc, 0xe0, 0x36, 0x98, 0xe6, 0xe1, 0x3b, 0x78,
	0x00, 0x00, 0xc3, 0xb0, 0x59, 0xa7, 0x9a, 0xb0, 0xf1, 0x41, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45,
	0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// MicMuted is a 22x22 template PNG
var MicMuted = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x16, 0x00, 0x00, 0x00, 0x16, 0x08, 0x06, 0x00, 0x00, 0x00, 0xc4, 0xb4, 0x6c,
	0x3b, 0x00, 0x00, 0x00, 0x5f, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0xcd, 0xd5, 0x39, 0x0e, 0xc0,
	0x20, 0x0c, 0x05, 0x51, 0xdf, 0xff, 0xd2, 0x93, 0x2e, 0x15, 0x4b, 0x2c, 0xe6, 0xa3, 0x20, 0xb9,
	0x42, 0xbc, 0xc2, 0x1b, 0x55, 0x17, 0x0e, 0x49, 0x98, 0x24, 0xcc, 0xe6, 0x0e, 0x0b, 0x67, 0x12,
	0xc7, 0xb8, 0x06, 0xaf, 0x30, 0x8c, 0x5a, 0xc4, 0xe0, 0x4a, 0xc2, 0x91, 0x1c, 0x7f, 0x85, 0xf9,
	0x1d, 0xbc, 0x1b, 0x10, 0xac, 0xbd, 0x31, 0xea, 0x73, 0x6d, 0x21, 0x1d, 0x15, 0x92, 0x46, 0xe8,
	0xdb, 0x4f, 0x9d, 0xc4, 0xb2, 0xf1, 0xd5, 0xe3, 0x36, 0xde, 0xc9, 0xad, 0x3a, 0xee, 0xd7, 0x7e,
	0xa1, 0xb7, 0x55, 0x1f, 0xd1, 0x6e, 0x81, 0x7f, 0x55, 0xfd, 0xce, 0xb0, 0x00, 0x00, 0x00, 0x00,
	0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
