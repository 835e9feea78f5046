// Package pipe reads the spec's LEDF header-and-body framing from any
// io.Reader: a named pipe, or (via OpenSerial) a USB-serial link to an
// attached panel controller, the shape a hobbyist Arduino-driven rig
// uses instead of a raw pipe. Grounded on the teacher's internal/ws
// streaming reader combined with banshee-data-velocity.report's
// go.bug.st/serial wiring for the serial case.
package pipe

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/coreman2200/ledpanel/internal/frame"
	"github.com/coreman2200/ledpanel/internal/ingress/udp"
	"github.com/coreman2200/ledpanel/internal/mailbox"
)

// Reader accumulates LEDF-framed frames across partial reads from r and
// submits each completed frame to mbox.
type Reader struct {
	r      *bufio.Reader
	closer io.Closer
	mbox   *mailbox.Mailbox
	log    zerolog.Logger
}

// New wraps r (typically an os.File opened on a named pipe) as a Reader.
// closer, if non-nil, is called by Close.
func New(r io.Reader, closer io.Closer, mbox *mailbox.Mailbox, log zerolog.Logger) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 1<<16), closer: closer, mbox: mbox, log: log}
}

// OpenSerial opens a USB-serial port (e.g. "/dev/ttyACM0") at baud and
// wraps it as a Reader, for rigs whose panel controller streams frames
// over a serial link instead of a named pipe.
func OpenSerial(portName string, baud int, mbox *mailbox.Mailbox, log zerolog.Logger) (*Reader, error) {
	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", portName, err)
	}
	return New(port, port, mbox, log), nil
}

// Serve blocks reading frames until r returns an error (typically
// io.EOF on pipe close). Each decoded frame is submitted to the
// mailbox; a malformed header is returned as an error and the stream is
// abandoned since byte alignment cannot be recovered without
// resynchronizing on the magic.
func (p *Reader) Serve() error {
	for {
		f, err := p.readOne()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := p.mbox.Submit(f); err != nil {
			p.log.Debug().Err(err).Msg("pipe frame rejected by mailbox")
		}
	}
}

// readOne blocks until one full LEDF-framed frame has been read.
func (p *Reader) readOne() (*frame.Frame, error) {
	var header [8]byte
	if _, err := io.ReadFull(p.r, header[:]); err != nil {
		return nil, err
	}
	if header[0] != udp.Magic[0] || header[1] != udp.Magic[1] || header[2] != udp.Magic[2] || header[3] != udp.Magic[3] {
		return nil, fmt.Errorf("bad magic %q, stream desynchronized", header[0:4])
	}
	w := int(binary.BigEndian.Uint16(header[4:6]))
	h := int(binary.BigEndian.Uint16(header[6:8]))
	body := make([]byte, w*h*3)
	if _, err := io.ReadFull(p.r, body); err != nil {
		return nil, err
	}
	f := frame.New(w, h)
	for i := range f.Pix {
		f.Pix[i] = frame.RGB{R: body[i*3], G: body[i*3+1], B: body[i*3+2]}
	}
	return f, nil
}

// Close calls the closer given to New, if any.
func (p *Reader) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
