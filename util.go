package aurora

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// safeString terminates s for the C side.
func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\x00' {
		return s + "\x00"
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = safeString(list[i])
	}
	return out
}

// sliceUint32 reinterprets SPIR-V bytes as words. Trailing bytes that do not
// fill a word are dropped.
func sliceUint32(data []byte) []uint32 {
	words := make([]uint32, len(data)/4)
	if len(words) == 0 {
		return words
	}
	vk.Memcopy(unsafe.Pointer(&words[0]), data[:len(words)*4])
	return words
}

// matrixBytes views a 4x4 float matrix as its 64 raw bytes.
func matrixBytes(m *[16]float32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&m[0])), int(unsafe.Sizeof(*m)))
}

func clampUint32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
