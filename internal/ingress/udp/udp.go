// Package udp listens for one-packet-per-frame datagrams and submits
// them to a mailbox.Mailbox. Grounded on the teacher's parent pack's
// banshee-data-velocity.report/internal/lidar/network.UDPListener (a
// dedicated listener goroutine reading fixed-header packets off a
// net.PacketConn) but carrying the spec's LEDF wire header instead of a
// LiDAR packet format.
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"github.com/coreman2200/ledpanel/internal/frame"
	"github.com/coreman2200/ledpanel/internal/mailbox"
)

// Magic is the 4-byte header every LEDF datagram begins with.
var Magic = [4]byte{'L', 'E', 'D', 'F'}

const headerLen = 4 + 2 + 2 // magic + width + height

// Listener receives LEDF datagrams on one UDP socket and submits the
// decoded frame to a Mailbox. One packet carries exactly one frame.
type Listener struct {
	conn *net.UDPConn
	mbox *mailbox.Mailbox
	log  zerolog.Logger

	maxPacket int
}

// Listen opens addr (":9000"-style) and returns a ready Listener.
func Listen(addr string, mbox *mailbox.Mailbox, log zerolog.Logger) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve udp addr %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %q: %w", addr, err)
	}
	return &Listener{conn: conn, mbox: mbox, log: log, maxPacket: 1 << 20}, nil
}

// Serve reads datagrams until the connection is closed, decoding and
// submitting each one. Malformed or rejected packets are logged and
// dropped; Serve itself never returns an error for a bad packet.
func (l *Listener) Serve() error {
	buf := make([]byte, l.maxPacket)
	for {
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("udp read: %w", err)
		}
		f, err := Decode(buf[:n])
		if err != nil {
			l.log.Warn().Err(err).Msg("dropped malformed LEDF datagram")
			continue
		}
		if err := l.mbox.Submit(f); err != nil {
			l.log.Debug().Err(err).Msg("udp frame rejected by mailbox")
		}
	}
}

// Close releases the underlying socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}

// Decode parses one LEDF datagram into a Frame.
func Decode(pkt []byte) (*frame.Frame, error) {
	if len(pkt) < headerLen {
		return nil, fmt.Errorf("packet too short: %d bytes", len(pkt))
	}
	if pkt[0] != Magic[0] || pkt[1] != Magic[1] || pkt[2] != Magic[2] || pkt[3] != Magic[3] {
		return nil, fmt.Errorf("bad magic %q", pkt[0:4])
	}
	w := int(binary.BigEndian.Uint16(pkt[4:6]))
	h := int(binary.BigEndian.Uint16(pkt[6:8]))
	want := w * h * 3
	body := pkt[headerLen:]
	if len(body) != want {
		return nil, fmt.Errorf("payload length %d does not match %dx%d frame (want %d)", len(body), w, h, want)
	}
	f := frame.New(w, h)
	for i := range f.Pix {
		f.Pix[i] = frame.RGB{R: body[i*3], G: body[i*3+1], B: body[i*3+2]}
	}
	return f, nil
}
