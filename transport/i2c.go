package transport

// I2CRegisters is the slice of an I2C slave peripheral the transport needs.
type I2CRegisters interface {
	// ReceiveRequested reports that the master has written a byte.
	ReceiveRequested() bool

	// TransmitRequested reports that the master is reading a byte.
	TransmitRequested() bool

	// Busy reports that a transfer is still in progress on the bus.
	Busy() bool

	ReadData() byte
	WriteData(b byte)
}

// I2CSlave sends and receives bytes as an I2C slave device.
type I2CSlave struct {
	regs I2CRegisters
}

// NewI2CSlave returns a transport over regs.
func NewI2CSlave(regs I2CRegisters) *I2CSlave {
	return &I2CSlave{regs: regs}
}

// Send hands each byte to the master as it asks for one.
func (t *I2CSlave) Send(p []byte) error {
	for _, b := range p {
		for !t.regs.TransmitRequested() {
		}
		t.regs.WriteData(b)
	}
	return nil
}

// Receive waits for a receive request per byte.
func (t *I2CSlave) Receive(p []byte) error {
	for i := range p {
		for !t.regs.ReceiveRequested() {
		}
		p[i] = t.regs.ReadData()
	}
	return nil
}

// Flush waits for the bus to go idle.
func (t *I2CSlave) Flush() error {
	for t.regs.Busy() {
	}
	return nil
}

// Disable shuts down the peripheral if the registers support it.
func (t *I2CSlave) Disable() { disable(t.regs) }
