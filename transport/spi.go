package transport

// SSIRegisters is the slice of a synchronous serial (SPI) slave peripheral
// the transport needs.
type SSIRegisters interface {
	// RxAvailable reports that the receive FIFO holds at least one byte.
	RxAvailable() bool

	// TxFull reports that the transmit FIFO cannot accept another byte.
	TxFull() bool

	// Busy reports that the shifter is still clocking data.
	Busy() bool

	ReadData() byte
	WriteData(b byte)
}

// SPISlave sends and receives bytes as an SPI slave.
//
// SPI is full duplex: every byte clocked in by the master clocks one out, so
// Send discards what comes back and Receive answers with zeros.
type SPISlave struct {
	regs SSIRegisters
}

// NewSPISlave returns a transport over regs.
func NewSPISlave(regs SSIRegisters) *SPISlave {
	return &SPISlave{regs: regs}
}

func (t *SPISlave) exchange(out byte) byte {
	for t.regs.TxFull() {
	}
	t.regs.WriteData(out)
	for !t.regs.RxAvailable() {
	}
	return t.regs.ReadData()
}

// Send queues each byte and drains the byte clocked in alongside it.
func (t *SPISlave) Send(p []byte) error {
	for _, b := range p {
		t.exchange(b)
	}
	return nil
}

// Receive clocks a zero out for every byte captured.
func (t *SPISlave) Receive(p []byte) error {
	for i := range p {
		p[i] = t.exchange(0)
	}
	return nil
}

// Flush waits until the peripheral is idle.
func (t *SPISlave) Flush() error {
	for t.regs.Busy() {
	}
	return nil
}

// Disable shuts down the peripheral if the registers support it.
func (t *SPISlave) Disable() { disable(t.regs) }
