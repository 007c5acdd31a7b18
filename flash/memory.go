package flash

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Erased is the value of every byte of an erased page.
const Erased = 0xFF

// Memory is an in-memory NOR flash.
//
// Memory is not safe for concurrent use.
type Memory struct {
	data            []byte
	pageSize        uint32
	appStart        uint32
	reserved        uint32
	allowBootUpdate bool
	failed          bool

	erases   int
	programs int
}

// Option is a functional option for configuring a Memory.
type Option func(*Memory)

// WithAppStart sets the first application address. Downloads below it are
// refused unless boot loader updates are allowed.
func WithAppStart(addr uint32) Option {
	return func(m *Memory) {
		m.appStart = addr
	}
}

// WithReserved keeps the last n bytes of flash out of every download, for
// calibration or configuration data.
func WithReserved(n uint32) Option {
	return func(m *Memory) {
		m.reserved = n
	}
}

// WithBootUpdate allows downloads at address 0, replacing the boot loader.
func WithBootUpdate(allow bool) Option {
	return func(m *Memory) {
		m.allowBootUpdate = allow
	}
}

// New returns an erased flash of size bytes made of pageSize pages.
func New(size, pageSize uint32, opts ...Option) (*Memory, error) {
	m := &Memory{pageSize: pageSize}
	for _, opt := range opts {
		opt(m)
	}

	switch {
	case pageSize == 0:
		return nil, fmt.Errorf("%w: page size is zero", ErrGeometry)
	case size == 0 || size%pageSize != 0:
		return nil, fmt.Errorf("%w: size %d is not a multiple of page size %d", ErrGeometry, size, pageSize)
	case m.appStart%pageSize != 0 || m.appStart >= size:
		return nil, fmt.Errorf("%w: application start 0x%08X", ErrGeometry, m.appStart)
	case m.reserved%pageSize != 0 || m.reserved > size-m.appStart:
		return nil, fmt.Errorf("%w: reserved size %d", ErrGeometry, m.reserved)
	}

	m.data = bytes.Repeat([]byte{Erased}, int(size))
	return m, nil
}

// Size returns the flash size in bytes.
func (m *Memory) Size() uint32 { return uint32(len(m.data)) }

// PageSize returns the erase granularity in bytes.
func (m *Memory) PageSize() uint32 { return m.pageSize }

// AppStart returns the first application address.
func (m *Memory) AppStart() uint32 { return m.appStart }

// Limit returns the end of the area downloads may write.
func (m *Memory) Limit() uint32 { return m.Size() - m.reserved }

// HasError reports whether an erase or program failed since the flag was
// last cleared.
func (m *Memory) HasError() bool { return m.failed }

// ClearError resets the error flag.
func (m *Memory) ClearError() { m.failed = false }

// ErasePage sets the page at addr to Erased. A misaligned or out of range
// address raises the error flag.
func (m *Memory) ErasePage(addr uint32) {
	if addr%m.pageSize != 0 || addr >= m.Size() {
		m.failed = true
		return
	}
	page := m.data[addr : addr+m.pageSize]
	for i := range page {
		page[i] = Erased
	}
	m.erases++
}

// Program writes data at addr. Programming can only clear bits; a byte that
// would need a bit set raises the error flag and is left as the AND of old
// and new value, as on a real part.
func (m *Memory) Program(addr uint32, data []byte) {
	if uint64(addr)+uint64(len(data)) > uint64(m.Size()) {
		m.failed = true
		return
	}
	for i, b := range data {
		cur := m.data[int(addr)+i]
		if b&^cur != 0 {
			m.failed = true
		}
		m.data[int(addr)+i] = cur & b
	}
	m.programs++
}

// AddressRangeValid reports whether a download of size bytes at addr is
// allowed: page aligned, inside the writable area, and not touching the
// boot loader unless boot loader updates are allowed and addr is 0.
func (m *Memory) AddressRangeValid(addr, size uint32) bool {
	if addr%m.pageSize != 0 {
		return false
	}
	if uint64(addr)+uint64(size) > uint64(m.Limit()) {
		return false
	}
	if addr < m.appStart {
		return addr == 0 && m.allowBootUpdate
	}
	return true
}

// Read returns a copy of n bytes at addr.
func (m *Memory) Read(addr uint32, n int) ([]byte, error) {
	if n < 0 || uint64(addr)+uint64(n) > uint64(m.Size()) {
		return nil, &RangeError{Address: addr, Length: n, Size: m.Size()}
	}
	out := make([]byte, n)
	copy(out, m.data[addr:])
	return out, nil
}

// Bytes returns a copy of the whole flash.
func (m *Memory) Bytes() []byte {
	return append([]byte(nil), m.data...)
}

// Stats returns the number of page erases and program operations performed.
func (m *Memory) Stats() (erases, programs int) {
	return m.erases, m.programs
}

// Load replaces the flash contents with exactly Size bytes read from r.
func (m *Memory) Load(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read flash image: %w", err)
	}
	if len(data) != len(m.data) {
		return &SizeMismatchError{Got: len(data), Want: len(m.data)}
	}
	copy(m.data, data)
	return nil
}

// Save writes the flash contents to w.
func (m *Memory) Save(w io.Writer) error {
	if _, err := w.Write(m.data); err != nil {
		return fmt.Errorf("failed to write flash image: %w", err)
	}
	return nil
}

// LoadFile loads the flash contents from path. A missing file leaves the
// flash erased.
func (m *Memory) LoadFile(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return m.Load(f)
}

// SaveFile writes the flash contents to path.
func (m *Memory) SaveFile(path string) error {
	if err := os.WriteFile(path, m.data, 0o644); err != nil {
		return fmt.Errorf("failed to save flash image: %w", err)
	}
	return nil
}
