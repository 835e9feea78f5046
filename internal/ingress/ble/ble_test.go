package ble_test

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/ledpanel/internal/ingress/ble"
	"github.com/coreman2200/ledpanel/internal/mailbox"
)

func chunk(seq uint16, payload []byte) []byte {
	out := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(out[0:2], seq)
	copy(out[2:], payload)
	return out
}

func TestAddChunkAssemblesSingleChunkFrame(t *testing.T) {
	// 1x1 frame: 3 payload bytes, well under MaxChunkSize, one chunk total.
	header := make([]byte, 4)
	binary.BigEndian.PutUint16(header[0:2], 1)
	binary.BigEndian.PutUint16(header[2:4], 1)
	first := append(header, 10, 20, 30)

	s := ble.NewSession(time.Second)
	f, err := s.AddChunk(chunk(0, first), time.Unix(0, 0))
	assert.NoError(t, err)
	assert.NotNil(t, f)
	assert.Equal(t, uint8(10), f.Pix[0].R)
	assert.Equal(t, uint8(20), f.Pix[0].G)
	assert.Equal(t, uint8(30), f.Pix[0].B)
}

func TestAddChunkCompletesWhenBodyFitsOneChunk(t *testing.T) {
	// 2x1 frame needs 6 payload bytes.
	header := make([]byte, 4)
	binary.BigEndian.PutUint16(header[0:2], 2)
	binary.BigEndian.PutUint16(header[2:4], 1)

	s := ble.NewSession(time.Second)
	// Since MaxChunkSize(500) > 6, expectedChunks is 1, so a single
	// chunk 0 with the full body completes the frame.
	first := append(header, 1, 2, 3, 4, 5, 6)
	f, err := s.AddChunk(chunk(0, first), time.Unix(0, 0))
	assert.NoError(t, err)
	assert.NotNil(t, f)
	assert.Len(t, f.Pix, 2)
}

func TestAddChunkRejectsTooSmall(t *testing.T) {
	s := ble.NewSession(time.Second)
	_, err := s.AddChunk([]byte{0}, time.Unix(0, 0))
	assert.Error(t, err)
}

func TestIsExpiredAfterTimeout(t *testing.T) {
	header := make([]byte, 4)
	binary.BigEndian.PutUint16(header[0:2], 100)
	binary.BigEndian.PutUint16(header[2:4], 100)
	// 100x100x3 = 30000 bytes, needs 60 chunks at MaxChunkSize 500, so
	// one chunk alone leaves the assembly incomplete and in progress.
	first := append(header, make([]byte, 500)...)
	s := ble.NewSession(10 * time.Millisecond)
	_, err := s.AddChunk(chunk(0, first), time.Unix(0, 0))
	assert.NoError(t, err)
	assert.True(t, s.IsExpired(time.Unix(0, 0).Add(time.Second)))
}

func TestBridgeHandleWriteSubmitsCompletedFrame(t *testing.T) {
	mbox := mailbox.New(1, 1)
	b := ble.NewBridge(mbox, zerolog.Nop())
	header := make([]byte, 4)
	binary.BigEndian.PutUint16(header[0:2], 1)
	binary.BigEndian.PutUint16(header[2:4], 1)
	first := append(header, 5, 6, 7)

	b.HandleWrite("conn-1", chunk(0, first), time.Unix(0, 0))

	f, _, ok := mbox.Take()
	assert.True(t, ok)
	assert.Equal(t, uint8(5), f.Pix[0].R)
}

func TestBridgeSeparatesSessionsByConnection(t *testing.T) {
	mbox := mailbox.New(1, 1)
	b := ble.NewBridge(mbox, zerolog.Nop())
	header := make([]byte, 4)
	binary.BigEndian.PutUint16(header[0:2], 1)
	binary.BigEndian.PutUint16(header[2:4], 1)

	// conn-2 sends the first chunk of a 100x100 frame (60 chunks, so no
	// completion) while conn-1 completes its own frame; conn-1's frame
	// must not be disturbed by conn-2's in-progress state.
	partial := make([]byte, 4)
	binary.BigEndian.PutUint16(partial[0:2], 100)
	binary.BigEndian.PutUint16(partial[2:4], 100)
	b.HandleWrite("conn-2", chunk(0, append(partial, 0, 0)), time.Unix(0, 0))

	first := append(append([]byte{}, header...), 9, 9, 9)
	b.HandleWrite("conn-1", chunk(0, first), time.Unix(0, 0))

	f, _, ok := mbox.Take()
	assert.True(t, ok)
	assert.Equal(t, uint8(9), f.Pix[0].R)

	b.Disconnect("conn-2")
}
