package audiodev

import "unsafe"

// putInt16/getInt16 pack and unpack one PCM sample using the host's native
// byte order, matching spec.md §6: "endianness of multi-byte samples
// follows host endianness" (the wire format is not normalized to a fixed
// endianness the way the control protocol's big-endian integers are).
func putInt16(b []byte, v int16) {
	*(*int16)(unsafe.Pointer(&b[0])) = v
}

func getInt16(b []byte) int16 {
	return *(*int16)(unsafe.Pointer(&b[0]))
}
