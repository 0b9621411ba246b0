package conhost

import (
	"encoding/binary"
	"unicode/utf16"
)

// The protocol carries text as counted UTF-16 strings. These helpers convert
// between the wire form (little-endian byte pairs), the stored form (code
// units), and Go strings.

func utf16Bytes(units []uint16) []byte {
	buf := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	return buf
}

// utf16Units decodes wire bytes into code units, ignoring a trailing odd byte.
func utf16Units(data []byte) []uint16 {
	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return units
}

func utf16String(units []uint16) string {
	return string(utf16.Decode(units))
}

func stringUTF16(s string) []uint16 {
	return utf16.Encode([]rune(s))
}
