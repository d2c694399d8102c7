package ui

// iconBytes is a 16x16 PNG: a white play mark on a coral disc.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x44, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0xa0, 0x05, 0x78,
	0x11, 0x62, 0xf3, 0x1f, 0x1b, 0xa6, 0x48, 0x33, 0x51, 0x86, 0x10, 0xd2,
	0x8c, 0xd7, 0x10, 0x42, 0x9a, 0x60, 0x00, 0xab, 0x21, 0xc4, 0x6a, 0x46,
	0x36, 0x00, 0xc5, 0x10, 0x62, 0x34, 0x92, 0x64, 0x00, 0x3e, 0x40, 0x1f,
	0x03, 0x28, 0xf6, 0x02, 0xc9, 0x81, 0x48, 0x71, 0x34, 0x52, 0x25, 0x21,
	0x51, 0x25, 0x29, 0x53, 0x25, 0x33, 0x91, 0x0a, 0x00, 0x00, 0xce, 0xb4,
	0x3e, 0x4d, 0x97, 0x59, 0x54, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e,
	0x44, 0xae, 0x42, 0x60, 0x82,
}
