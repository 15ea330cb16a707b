package index

import (
	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes a raw document together with salt.
func Fingerprint(raw []byte, salt string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(schemaVersion)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(salt)
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(raw)
	return d.Sum64()
}

func putU64(dst []byte, v uint64) {
	dst[0] = byte(v >> 56)
	dst[1] = byte(v >> 48)
	dst[2] = byte(v >> 40)
	dst[3] = byte(v >> 32)
	dst[4] = byte(v >> 24)
	dst[5] = byte(v >> 16)
	dst[6] = byte(v >> 8)
	dst[7] = byte(v)
}

func getU64(src []byte) uint64 {
	return uint64(src[0])<<56 | uint64(src[1])<<48 | uint64(src[2])<<40 | uint64(src[3])<<32 |
		uint64(src[4])<<24 | uint64(src[5])<<16 | uint64(src[6])<<8 | uint64(src[7])
}
