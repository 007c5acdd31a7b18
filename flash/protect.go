package flash

// Protected is a Memory in code protection mode: every download erases the
// whole application area, so no part of a previous image survives next to
// a new one. The reserved tail and the boot loader are never included.
type Protected struct {
	*Memory
}

// CodeProtected returns m in code protection mode.
func CodeProtected(m *Memory) *Protected {
	return &Protected{Memory: m}
}

// EraseRange returns the application area regardless of the download range.
func (p *Protected) EraseRange(addr, size uint32) (start, end uint32) {
	return p.appStart, p.Limit()
}
