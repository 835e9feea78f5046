package pipe_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/ledpanel/internal/frame"
	"github.com/coreman2200/ledpanel/internal/ingress/pipe"
	"github.com/coreman2200/ledpanel/internal/mailbox"
)

func frameBytes(w, h int, pix []frame.RGB) []byte {
	buf := make([]byte, 8+len(pix)*3)
	copy(buf[0:4], []byte("LEDF"))
	binary.BigEndian.PutUint16(buf[4:6], uint16(w))
	binary.BigEndian.PutUint16(buf[6:8], uint16(h))
	for i, p := range pix {
		buf[8+i*3], buf[8+i*3+1], buf[8+i*3+2] = p.R, p.G, p.B
	}
	return buf
}

func TestServeDecodesMultipleFramesFromOneStream(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(frameBytes(1, 1, []frame.RGB{{R: 1}}))
	stream.Write(frameBytes(1, 1, []frame.RGB{{R: 2}}))

	mbox := mailbox.New(1, 1)
	r := pipe.New(&stream, nil, mbox, zerolog.Nop())
	assert.NoError(t, r.Serve())

	f, _, ok := mbox.Take()
	assert.True(t, ok)
	assert.Equal(t, uint8(2), f.Pix[0].R) // latest-wins: second frame overwrote the first
}

func TestServeStopsCleanlyOnEOF(t *testing.T) {
	mbox := mailbox.New(1, 1)
	r := pipe.New(&bytes.Buffer{}, nil, mbox, zerolog.Nop())
	assert.NoError(t, r.Serve())
}

func TestServeAbandonsStreamOnBadMagic(t *testing.T) {
	var stream bytes.Buffer
	stream.Write([]byte{'X', 'X', 'X', 'X', 0, 1, 0, 1})
	mbox := mailbox.New(1, 1)
	r := pipe.New(&stream, nil, mbox, zerolog.Nop())
	assert.Error(t, r.Serve())
}
