package cmd

import (
	"io"
	"net"

	"github.com/golang/glog"
	"github.com/pkg/term"

	"github.com/moffa90/go-serialboot/config"
)

// serialPort is a raw mode tty. Term.Flush discards pending data, so it is
// kept out of the transport's reach.
type serialPort struct {
	t *term.Term
}

func (p serialPort) Read(b []byte) (int, error)  { return p.t.Read(b) }
func (p serialPort) Write(b []byte) (int, error) { return p.t.Write(b) }
func (p serialPort) Close() error                { return p.t.Close() }

func openSerial(link config.Link) (io.ReadWriteCloser, error) {
	t, err := term.Open(link.Device, term.Speed(link.Baud), term.RawMode)
	if err != nil {
		return nil, err
	}
	glog.Infof("opened %s at %d baud", link.Device, link.Baud)
	return serialPort{t: t}, nil
}

// dial opens the host end of the link.
func dial(link config.Link) (io.ReadWriteCloser, error) {
	if link.Device != "" {
		return openSerial(link)
	}
	conn, err := net.Dial("tcp", link.Address)
	if err != nil {
		return nil, err
	}
	glog.Infof("connected to %s", conn.RemoteAddr())
	return conn, nil
}
