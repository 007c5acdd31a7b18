package transport

// UARTRegisters is the slice of a UART peripheral the transport needs.
type UARTRegisters interface {
	// TxFull reports that the transmit FIFO cannot accept another byte.
	TxFull() bool

	// RxEmpty reports that the receive FIFO holds no data.
	RxEmpty() bool

	// Busy reports that the transmitter is still shifting bits out.
	Busy() bool

	ReadData() byte
	WriteData(b byte)

	// SetBitTicks programs the baud rate as a number of peripheral clock
	// ticks per bit.
	SetBitTicks(ticks uint32)
}

// UART sends and receives bytes over a fixed rate UART.
type UART struct {
	regs UARTRegisters
}

// NewUART returns a transport over regs. The baud rate must already be set.
func NewUART(regs UARTRegisters) *UART {
	return &UART{regs: regs}
}

// Send writes each byte to the data register once the FIFO has room.
func (t *UART) Send(p []byte) error {
	for _, b := range p {
		for t.regs.TxFull() {
		}
		t.regs.WriteData(b)
	}
	return nil
}

// Receive waits for each byte to arrive in the receive FIFO.
func (t *UART) Receive(p []byte) error {
	for i := range p {
		for t.regs.RxEmpty() {
		}
		p[i] = t.regs.ReadData()
	}
	return nil
}

// Flush waits until the transmitter is idle.
func (t *UART) Flush() error {
	for t.regs.Busy() {
	}
	return nil
}

// Disable shuts down the peripheral if the registers support it.
func (t *UART) Disable() { disable(t.regs) }
