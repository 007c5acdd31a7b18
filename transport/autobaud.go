package transport

// Autobaud measurement constants.
const (
	// EdgesPerSyncByte is the number of line transitions in one 8N1 frame of
	// SyncByte: the falling start edge plus nine bit boundaries.
	EdgesPerSyncByte = 10

	// SyncEdges is the number of transitions captured for the full pattern.
	SyncEdges = 2 * EdgesPerSyncByte

	// bitTolerance is the allowed deviation of a bit from the mean, as a
	// divisor of the mean (4 means 25%).
	bitTolerance = 4
)

// EdgeSampler timestamps transitions on the UART receive line.
type EdgeSampler interface {
	// CaptureEdges blocks until len(ts) edges have been recorded. Each entry
	// is a free running tick counter value at the transition.
	CaptureEdges(ts []uint32)
}

// AutobaudUART is a UART whose rate is measured from the host's sync pattern.
type AutobaudUART struct {
	*UART
	sampler  EdgeSampler
	bitTicks uint32
	attempts int
}

// NewAutobaudUART returns a UART that calibrates itself in Synchronize.
func NewAutobaudUART(regs UARTRegisters, sampler EdgeSampler) *AutobaudUART {
	return &AutobaudUART{UART: NewUART(regs), sampler: sampler}
}

// Synchronize captures sync patterns until one yields a consistent bit time,
// then programs the UART with it. It never gives up.
func (t *AutobaudUART) Synchronize() error {
	edges := make([]uint32, SyncEdges)
	for {
		t.attempts++
		t.sampler.CaptureEdges(edges)
		if ticks, ok := MeasureBitTicks(edges); ok {
			t.bitTicks = ticks
			t.regs.SetBitTicks(ticks)
			return nil
		}
	}
}

// BitTicks returns the measured bit time, or 0 before synchronisation.
func (t *AutobaudUART) BitTicks() uint32 { return t.bitTicks }

// Attempts returns the number of sync patterns sampled so far.
func (t *AutobaudUART) Attempts() int { return t.attempts }

// MeasureBitTicks derives the bit time from the edge timestamps of two sync
// bytes. Every transition inside a byte is one bit apart; the gap between
// the bytes holds at least the stop bit. It reports false when the pattern
// is not consistent enough to trust.
func MeasureBitTicks(edges []uint32) (uint32, bool) {
	if len(edges) != SyncEdges {
		return 0, false
	}

	var widths [2 * (EdgesPerSyncByte - 1)]uint32
	var sum uint64
	n := 0
	for b := 0; b < 2; b++ {
		frame := edges[b*EdgesPerSyncByte : (b+1)*EdgesPerSyncByte]
		for i := 1; i < len(frame); i++ {
			w := frame[i] - frame[i-1]
			widths[n] = w
			sum += uint64(w)
			n++
		}
	}

	mean := uint32((sum + uint64(n)/2) / uint64(n))
	if mean == 0 {
		return 0, false
	}
	slack := mean / bitTolerance
	for _, w := range widths {
		if w+slack < mean || w > mean+slack {
			return 0, false
		}
	}

	// Stop bit plus any idle time between the two bytes.
	if gap := edges[EdgesPerSyncByte] - edges[EdgesPerSyncByte-1]; gap+slack < mean {
		return 0, false
	}
	return mean, true
}
