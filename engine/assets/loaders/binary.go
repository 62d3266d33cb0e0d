package loaders

import (
	"os"

	"github.com/spaghettifunk/glacier/engine/core"
)

// BinaryLoader returns file contents as they are on disk.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string) (any, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// bytesToBytecode reinterprets little-endian bytes as 32 bit words.
func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, core.UserError("byte code length %d is not a multiple of 4", len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode, nil
}
