// Package spi drives a WS281x-family LED chain over a SPI bus using
// periph.io, grounded on the teacher's parent module
// (coreman2200-funtimes-arcaluminis/spi/render.go), which opens a SPI
// port via spireg and wraps it with periph.io/x/devices/v3/nrzled. This
// is the one real hardware transport wired in this repo; internal/led's
// raw-ioctl spidev bit-banger from the teacher's ledcube subproject is
// not carried forward (see DESIGN.md).
package spi

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"

	"github.com/coreman2200/ledpanel/internal/frame"
)

// Driver renders a physical LED buffer over SPI using the nrzled
// protocol driver.
type Driver struct {
	mu     sync.Mutex
	drawer display.Drawer
	n      int
	img    *image.NRGBA
	order  [3]int // index into {R,G,B} for each output channel slot
}

// Open initializes host drivers, opens spiDev (or the default SPI port
// if empty), and prepares an nrzled strip of n pixels running at
// speedHz. colorOrder ("GRB", "RGB", ...) is applied in software before
// handing pixels to nrzled, since nrzled.Opts has no notion of channel
// order itself; it mirrors the teacher's internal/led colorOrd swap
// (see DESIGN.md).
func Open(spiDev string, n int, speedHz int, colorOrder string) (*Driver, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", n)
	}
	if speedHz <= 0 {
		speedHz = 2400000
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	port, err := spireg.Open(spiDev)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", spiDev, err)
	}
	opts := &nrzled.Opts{
		NumPixels: n,
		Channels:  3,
		Freq:      physic.Frequency(speedHz) * physic.Hertz,
	}
	d, err := nrzled.NewSPI(port, opts)
	if err != nil {
		return nil, fmt.Errorf("nrzled over spi: %w", err)
	}
	return &Driver{
		drawer: d,
		n:      n,
		img:    image.NewNRGBA(image.Rect(0, 0, n, 1)),
		order:  parseColorOrder(colorOrder),
	}, nil
}

// Render writes phys (length n) to the strip at the given brightness
// (applied as a uniform scalar since nrzled itself is brightness-naive).
func (d *Driver) Render(phys []frame.RGB, brightness uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(phys) != d.n {
		return fmt.Errorf("phys length %d does not match strip length %d", len(phys), d.n)
	}
	scale := float64(brightness) / 255.0
	for i, p := range phys {
		d.img.SetNRGBA(i, 0, scaleColor(p, scale, d.order))
	}
	return d.drawer.Draw(d.drawer.Bounds(), d.img, image.Point{})
}

// parseColorOrder maps a 3-letter channel order like "GRB" to indices
// into [R,G,B], defaulting to GRB (the common WS281x wiring) for any
// unrecognized or short string.
func parseColorOrder(order string) [3]int {
	lut := map[byte]int{'R': 0, 'G': 1, 'B': 2}
	if len(order) != 3 {
		return [3]int{1, 0, 2} // GRB
	}
	var idx [3]int
	for i := 0; i < 3; i++ {
		v, ok := lut[order[i]]
		if !ok {
			return [3]int{1, 0, 2}
		}
		idx[i] = v
	}
	return idx
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h, ok := d.drawer.(interface{ Halt() error }); ok {
		return h.Halt()
	}
	return nil
}

// scaleColor scales p by scale and places its channels into slot order
// [order[0],order[1],order[2]] = [R,G,B], matching the strip's wiring.
func scaleColor(p frame.RGB, scale float64, order [3]int) color.NRGBA {
	ch := [3]uint8{scale8(p.R, scale), scale8(p.G, scale), scale8(p.B, scale)}
	return color.NRGBA{R: ch[order[0]], G: ch[order[1]], B: ch[order[2]], A: 255}
}

func scale8(v uint8, scale float64) uint8 {
	x := float64(v) * scale
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return uint8(x)
}
