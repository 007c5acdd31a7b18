package image

import (
	"bufio"
	"encoding/hex"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Intel HEX record types.
const (
	RecordData            = 0x00
	RecordEOF             = 0x01
	RecordExtendedSegment = 0x02
	RecordStartSegment    = 0x03
	RecordExtendedLinear  = 0x04
	RecordStartLinear     = 0x05
)

const (
	// count + address(2) + type + checksum
	hexRecordOverhead      = 5
	hexMinimumRecordLength = 1 + 2*hexRecordOverhead
	maxImageSpan           = 16 << 20
)

type region struct {
	addr uint32
	data []byte
}

// ParseHex parses an Intel HEX file and flattens it into one image.
//
// Record format after the ':' (all hex encoded):
//
//	[Count(1)][Address(2, big-endian)][Type(1)][Data(Count)][Checksum(1)]
//
// The checksum is the two's complement of the sum of all other bytes.
func ParseHex(r io.Reader) (*Image, error) {
	scanner := bufio.NewScanner(r)

	var (
		regions []region
		base    uint32
		img     Image
		sawEOF  bool
	)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}
		if sawEOF {
			return nil, errors.Errorf("line %d: data after end of file record", lineNum)
		}

		rec, err := parseRecord(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNum)
		}

		switch rec.kind {
		case RecordData:
			if len(rec.data) == 0 {
				continue
			}
			regions = append(regions, region{addr: base + uint32(rec.offset), data: rec.data})
		case RecordEOF:
			sawEOF = true
		case RecordExtendedSegment:
			if len(rec.data) != 2 {
				return nil, errors.Errorf("line %d: extended segment address needs 2 bytes, got %d", lineNum, len(rec.data))
			}
			base = (uint32(rec.data[0])<<8 | uint32(rec.data[1])) << 4
		case RecordExtendedLinear:
			if len(rec.data) != 2 {
				return nil, errors.Errorf("line %d: extended linear address needs 2 bytes, got %d", lineNum, len(rec.data))
			}
			base = (uint32(rec.data[0])<<8 | uint32(rec.data[1])) << 16
		case RecordStartSegment, RecordStartLinear:
			if len(rec.data) != 4 {
				return nil, errors.Errorf("line %d: start address needs 4 bytes, got %d", lineNum, len(rec.data))
			}
			word := uint32(rec.data[0])<<24 | uint32(rec.data[1])<<16 | uint32(rec.data[2])<<8 | uint32(rec.data[3])
			if rec.kind == RecordStartSegment {
				// CS:IP
				word = (word>>16)<<4 + word&0xFFFF
			}
			img.Entry = word
			img.HasEntry = true
		default:
			return nil, errors.Errorf("line %d: unsupported record type 0x%02X", lineNum, rec.kind)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	if !sawEOF {
		return nil, errors.New("missing end of file record")
	}
	if len(regions) == 0 {
		return nil, ErrEmpty
	}

	if err := flatten(&img, regions); err != nil {
		return nil, err
	}
	return &img, nil
}

type record struct {
	kind   byte
	offset uint16
	data   []byte
}

func parseRecord(line string) (*record, error) {
	if line[0] != ':' {
		return nil, errors.New("record must start with ':'")
	}
	if len(line) < hexMinimumRecordLength {
		return nil, errors.Errorf("record too short: got %d characters, minimum is %d", len(line), hexMinimumRecordLength)
	}

	raw, err := hex.DecodeString(line[1:])
	if err != nil {
		return nil, errors.Wrap(err, "invalid hex data")
	}

	count := int(raw[0])
	if len(raw) != count+hexRecordOverhead {
		return nil, errors.Errorf("data length mismatch: got %d bytes, expected %d", len(raw), count+hexRecordOverhead)
	}

	want := raw[len(raw)-1]
	if got := recordChecksum(raw[:len(raw)-1]); got != want {
		return nil, errors.Errorf("checksum mismatch: got 0x%02X, expected 0x%02X", want, got)
	}

	return &record{
		kind:   raw[3],
		offset: uint16(raw[1])<<8 | uint16(raw[2]),
		data:   raw[4 : 4+count],
	}, nil
}

// recordChecksum computes the two's complement of the byte sum.
func recordChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum + 1
}

func flatten(img *Image, regions []region) error {
	sort.SliceStable(regions, func(i, j int) bool { return regions[i].addr < regions[j].addr })

	start := uint64(regions[0].addr)
	var end uint64
	for _, r := range regions {
		if e := uint64(r.addr) + uint64(len(r.data)); e > end {
			end = e
		}
	}
	if end > 1<<32 {
		return errors.New("image exceeds the address space")
	}
	if end-start > maxImageSpan {
		return errors.Errorf("image spans 0x%08X-0x%08X, more than %d bytes", start, end, maxImageSpan)
	}

	data := make([]byte, end-start)
	written := make([]bool, len(data))
	for i := range data {
		data[i] = Fill
	}
	for _, r := range regions {
		off := uint64(r.addr) - start
		for i, b := range r.data {
			if written[off+uint64(i)] && data[off+uint64(i)] != b {
				return errors.Errorf("conflicting data at 0x%08X", start+off+uint64(i))
			}
			data[off+uint64(i)] = b
			written[off+uint64(i)] = true
		}
	}

	img.Address = uint32(start)
	img.Data = data
	return nil
}
