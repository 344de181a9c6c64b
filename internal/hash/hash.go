package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/crc32"
)

// Digests of an upload payload, compared against what the object store
// reports after the write.
type Result struct {
	Size   int64
	SHA256 string
	CRC32C uint32
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func Compute(data []byte) Result {
	sum := sha256.Sum256(data)
	return Result{
		Size:   int64(len(data)),
		SHA256: hex.EncodeToString(sum[:]),
		CRC32C: crc32.Checksum(data, castagnoli),
	}
}
