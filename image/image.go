package image

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Fill is the value of bytes in gaps between regions.
const Fill = 0xFF

// ErrEmpty is returned for an image without data.
var ErrEmpty = errors.New("image has no data")

// Image is a firmware image ready to be downloaded.
type Image struct {
	// Address is the flash address of Data[0]
	Address uint32

	// Data is the image content
	Data []byte

	// Entry is the start address recorded in the file, if HasEntry is set
	Entry    uint32
	HasEntry bool
}

// FromBinary returns an image of data loaded at addr.
func FromBinary(data []byte, addr uint32) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if uint64(addr)+uint64(len(data)) > 1<<32 {
		return nil, errors.Errorf("image of %d bytes at 0x%08X exceeds the address space", len(data), addr)
	}
	return &Image{Address: addr, Data: append([]byte(nil), data...)}, nil
}

// Load reads the image at path. Files with a .hex or .ihex extension are
// parsed as Intel HEX and addr is ignored; anything else is raw binary
// loaded at addr.
func Load(path string, addr uint32) (*Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex":
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open file")
		}
		defer func() { _ = f.Close() }()

		img, err := ParseHex(f)
		return img, errors.Wrap(err, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	img, err := FromBinary(data, addr)
	return img, errors.Wrap(err, path)
}

// Len returns the image size in bytes.
func (img *Image) Len() int { return len(img.Data) }

// End returns the address just past the image.
func (img *Image) End() uint32 { return img.Address + uint32(len(img.Data)) }

// Chunks splits the image into consecutive slices of at most size bytes.
// The slices share the image's memory.
func (img *Image) Chunks(size int) [][]byte {
	if size <= 0 {
		return nil
	}
	chunks := make([][]byte, 0, (len(img.Data)+size-1)/size)
	for off := 0; off < len(img.Data); off += size {
		end := off + size
		if end > len(img.Data) {
			end = len(img.Data)
		}
		chunks = append(chunks, img.Data[off:end])
	}
	return chunks
}
