// Package ble reassembles sequence-numbered chunks from the BLE bridge
// into complete frames before submission, grounded on
// original_source/bluetooth_bridge/ble_server.go's FrameAssembler: chunk
// 0 carries a 4-byte width/height header ahead of its payload, chunk
// data accumulates by sequence number, and an assembly older than
// timeout is discarded. Each concurrent BLE central connection gets its
// own Session, tagged with a uuid so overlapping connections writing to
// the same characteristic cannot corrupt each other's partial frame.
package ble

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coreman2200/ledpanel/internal/frame"
	"github.com/coreman2200/ledpanel/internal/mailbox"
)

// MaxChunkSize is the largest payload the protocol places in one BLE
// write, matching the bridge's wire constant.
const MaxChunkSize = 500

// DefaultTimeout discards an assembly that has received no new chunk
// for this long, matching the bridge's FRAME_TIMEOUT.
const DefaultTimeout = time.Second

// Session reassembles one BLE central's chunked frame stream. Not safe
// for concurrent use by more than one goroutine; one Session per
// connection.
type Session struct {
	ID      uuid.UUID
	timeout time.Duration

	chunks         map[uint16][]byte
	width, height  int
	expectedChunks int
	lastActivity   time.Time
}

// NewSession returns a fresh, empty Session tagged with a new uuid.
func NewSession(timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{ID: uuid.New(), timeout: timeout, chunks: map[uint16][]byte{}}
}

// reset clears assembly state without changing the Session's identity.
func (s *Session) reset() {
	s.chunks = map[uint16][]byte{}
	s.width, s.height, s.expectedChunks = 0, 0, 0
}

// AddChunk feeds one BLE write (2-byte big-endian sequence number
// followed by payload, with chunk 0's payload prefixed by a 4-byte
// width/height header) into the assembly. Returns the completed frame
// once every expected chunk has arrived, or nil while assembly is still
// in progress.
func (s *Session) AddChunk(data []byte, now time.Time) (*frame.Frame, error) {
	if s.IsExpired(now) {
		s.reset()
	}
	if len(data) < 2 {
		return nil, fmt.Errorf("chunk too small: %d bytes", len(data))
	}
	seq := binary.BigEndian.Uint16(data[0:2])
	body := data[2:]

	if seq == 0 {
		if len(body) < 4 {
			return nil, fmt.Errorf("first chunk missing width/height header")
		}
		s.width = int(binary.BigEndian.Uint16(body[0:2]))
		s.height = int(binary.BigEndian.Uint16(body[2:4]))
		body = body[4:]
		total := s.width * s.height * 3
		s.expectedChunks = (total + MaxChunkSize - 1) / MaxChunkSize
	}

	s.chunks[seq] = body
	s.lastActivity = now

	if s.expectedChunks == 0 || len(s.chunks) < s.expectedChunks {
		return nil, nil
	}

	assembled := make([]byte, 0, s.width*s.height*3)
	for i := 0; i < s.expectedChunks; i++ {
		c, ok := s.chunks[uint16(i)]
		if !ok {
			return nil, nil // still waiting on a gap, despite the count matching
		}
		assembled = append(assembled, c...)
	}
	want := s.width * s.height * 3
	if len(assembled) != want {
		s.reset()
		return nil, fmt.Errorf("assembled frame size %d does not match %dx%d (want %d)", len(assembled), s.width, s.height, want)
	}

	f := frame.New(s.width, s.height)
	for i := range f.Pix {
		f.Pix[i] = frame.RGB{R: assembled[i*3], G: assembled[i*3+1], B: assembled[i*3+2]}
	}
	s.reset()
	return f, nil
}

// IsExpired reports whether the in-progress assembly has gone silent
// longer than the Session's timeout.
func (s *Session) IsExpired(now time.Time) bool {
	return len(s.chunks) > 0 && now.Sub(s.lastActivity) > s.timeout
}

// Bridge owns one Session per connected BLE central, keyed by a
// connection handle supplied by the transport layer (e.g. the OS's BLE
// stack connection ID), and submits completed frames to mbox.
type Bridge struct {
	mbox     *mailbox.Mailbox
	log      zerolog.Logger
	sessions map[string]*Session
	timeout  time.Duration
}

// NewBridge returns a Bridge with no active sessions.
func NewBridge(mbox *mailbox.Mailbox, log zerolog.Logger) *Bridge {
	return &Bridge{mbox: mbox, log: log, sessions: map[string]*Session{}, timeout: DefaultTimeout}
}

// HandleWrite feeds one chunk written by connHandle's central, creating
// a Session on first contact, and submits any frame it completes.
func (b *Bridge) HandleWrite(connHandle string, data []byte, now time.Time) {
	sess, ok := b.sessions[connHandle]
	if !ok {
		sess = NewSession(b.timeout)
		b.sessions[connHandle] = sess
	}
	f, err := sess.AddChunk(data, now)
	if err != nil {
		b.log.Warn().Err(err).Str("conn", connHandle).Str("session", sess.ID.String()).Msg("dropped malformed BLE chunk sequence")
		return
	}
	if f == nil {
		return
	}
	if err := b.mbox.Submit(f); err != nil {
		b.log.Debug().Err(err).Str("conn", connHandle).Msg("ble frame rejected by mailbox")
	}
}

// Disconnect discards connHandle's in-progress assembly, if any.
func (b *Bridge) Disconnect(connHandle string) {
	delete(b.sessions, connHandle)
}
