package page

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	util "github.com/bietkhonhungvandi212/clockpool/internal/utils"
)

const (
	HEADER_SIZE = 16 // Size of PageHeader struct: PageID(8) + Checksum(4) + Flags(2) + padding(2)
	DATA_SIZE   = util.PageSize - HEADER_SIZE
)

// Header flags
const (
	FlagFree uint16 = 1 << iota // page sits on the file's free chain
	FlagMeta                    // page 0 of a page file
)

// Page is block that read/write from disk
type Page struct {
	Header PageHeader
	Data   [DATA_SIZE]byte
}

type PageHeader struct {
	PageID   util.PageID // 8 bytes
	Checksum uint32      // 4 bytes
	Flags    uint16      // 2 bytes
	_        uint16      //2 bytes (padding)
}

func (h *PageHeader) SetFlag(f uint16)      { h.Flags |= f }
func (h *PageHeader) ClearFlag(f uint16)    { h.Flags &^= f }
func (h *PageHeader) HasFlag(f uint16) bool { return h.Flags&f != 0 }

// Reset zeroes header and data.
func (p *Page) Reset() {
	*p = Page{}
}

// Serialize packs the page into a fresh byte slice for writing
func (p *Page) Serialize() []byte {
	buf := make([]byte, util.PageSize)
	p.SerializeTo(buf)
	return buf
}

// SerializeTo packs the page into buf, which must hold util.PageSize bytes.
// The checksum covers the flags and the data.
func (p *Page) SerializeTo(buf []byte) {
	_ = buf[util.PageSize-1]
	p.Header.Checksum = p.checksum()
	binary.LittleEndian.PutUint64(buf[0:8], uint64(p.Header.PageID))
	binary.LittleEndian.PutUint32(buf[8:12], p.Header.Checksum)
	binary.LittleEndian.PutUint16(buf[12:14], p.Header.Flags)
	binary.LittleEndian.PutUint16(buf[14:16], 0)
	copy(buf[HEADER_SIZE:], p.Data[:])
}

// Deserialize unpacks data into dst and validates the checksum
func Deserialize(data []byte, dst *Page) error {
	if len(data) < util.PageSize {
		return fmt.Errorf("short page image: %d bytes", len(data))
	}
	dst.Header.PageID = util.PageID(binary.LittleEndian.Uint64(data[0:8]))
	dst.Header.Checksum = binary.LittleEndian.Uint32(data[8:12])
	dst.Header.Flags = binary.LittleEndian.Uint16(data[12:14])
	copy(dst.Data[:], data[HEADER_SIZE:util.PageSize])

	if sum := dst.checksum(); sum != dst.Header.Checksum {
		return fmt.Errorf("page %d: stored %08x computed %08x: %w",
			dst.Header.PageID, dst.Header.Checksum, sum, util.ErrChecksumMismatch)
	}
	return nil
}

func (p *Page) checksum() uint32 {
	d := xxhash.New()
	var flags [2]byte
	binary.LittleEndian.PutUint16(flags[:], p.Header.Flags)
	_, _ = d.Write(flags[:])
	_, _ = d.Write(p.Data[:])
	return uint32(d.Sum64())
}
