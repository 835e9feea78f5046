// Package testpatterns provides a small set of built-in pattern
// generators: solid fill, corner markers, center cross, checkerboard,
// an index sweep for commissioning a new Layout, and a rainbow. Grounded on
// original_source/rpi_driver/test_patterns.py and the teacher's
// internal/render/scenes/calib calibration scene, reshaped into plain
// pattern.Generator functions per the spec's pure-function contract.
package testpatterns

import (
	"math"

	"github.com/coreman2200/ledpanel/internal/frame"
	"github.com/coreman2200/ledpanel/internal/pattern"
)

// Register installs every built-in generator into reg under its name.
func Register(reg *pattern.Registry) {
	reg.Register("solid", Solid)
	reg.Register("corners", Corners)
	reg.Register("cross", Cross)
	reg.Register("checkerboard", Checkerboard)
	reg.Register("index_sweep", IndexSweep)
	reg.Register("rainbow", Rainbow)
}

// Solid fills the canvas with one color, read from params "r","g","b"
// (0..255, default white).
func Solid(w, h, counter int, p pattern.Params) (*frame.Frame, error) {
	c := frame.RGB{
		R: byteParam(p, "r", 255),
		G: byteParam(p, "g", 255),
		B: byteParam(p, "b", 255),
	}
	f := frame.New(w, h)
	for i := range f.Pix {
		f.Pix[i] = c
	}
	return f, nil
}

// Corners lights the four corners red/green/blue/yellow with a small
// cross for visibility, grounded on create_test_frame's "corners" mode.
func Corners(w, h, counter int, p pattern.Params) (*frame.Frame, error) {
	f := frame.New(w, h)
	type mark struct{ x, y int; c frame.RGB }
	marks := []mark{
		{0, 0, frame.RGB{R: 255}},
		{w - 1, 0, frame.RGB{G: 255}},
		{0, h - 1, frame.RGB{B: 255}},
		{w - 1, h - 1, frame.RGB{R: 255, G: 255}},
	}
	for _, m := range marks {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				ny, nx := m.y+dy, m.x+dx
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				if ny == m.y || nx == m.x {
					f.Set(nx, ny, m.c)
				}
			}
		}
	}
	return f, nil
}

// Cross draws a white cross through the canvas center.
func Cross(w, h, counter int, p pattern.Params) (*frame.Frame, error) {
	f := frame.New(w, h)
	midX, midY := w/2, h/2
	white := frame.RGB{R: 255, G: 255, B: 255}
	for x := 0; x < w; x++ {
		f.Set(x, midY, white)
	}
	for y := 0; y < h; y++ {
		f.Set(midX, y, white)
	}
	return f, nil
}

// Checkerboard draws 4x4 white/black squares.
func Checkerboard(w, h, counter int, p pattern.Params) (*frame.Frame, error) {
	f := frame.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/4+y/4)%2 == 0 {
				f.Set(x, y, frame.RGB{R: 255, G: 255, B: 255})
			}
		}
	}
	return f, nil
}

// IndexSweep lights one virtual pixel white per tick, advancing
// raster-order by frame_counter. Wraps once every W*H ticks.
func IndexSweep(w, h, counter int, p pattern.Params) (*frame.Frame, error) {
	f := frame.New(w, h)
	n := w * h
	if n > 0 {
		idx := counter % n
		f.Pix[idx] = frame.RGB{R: 255, G: 255, B: 255}
	}
	return f, nil
}

// Rainbow rotates an HSV rainbow across the canvas, one step per tick.
// Params: "speed" (fraction of the wheel advanced per tick, default 0.01).
func Rainbow(w, h, counter int, p pattern.Params) (*frame.Frame, error) {
	speed := floatParam(p, "speed", 0.01)
	phase := float64(counter) * speed
	f := frame.New(w, h)
	for y := 0; y < h; y++ {
		v := float64(y) / float64(maxInt(1, h-1))
		for x := 0; x < w; x++ {
			u := float64(x) / float64(maxInt(1, w-1))
			hue := math.Mod(u+v+phase, 1.0)
			r, g, b := hsvToRGB(hue, 1.0, 1.0)
			f.Set(x, y, frame.RGB{R: to255(r), G: to255(g), B: to255(b)})
		}
	}
	return f, nil
}

func byteParam(p pattern.Params, key string, def uint8) uint8 {
	if v, ok := p[key]; ok {
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return uint8(v)
	}
	return def
}

func floatParam(p pattern.Params, key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func to255(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}

func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	i := int(h * 6.0)
	f := h*6.0 - float64(i)
	pp := v * (1.0 - s)
	q := v * (1.0 - f*s)
	t := v * (1.0 - (1.0-f)*s)
	switch i % 6 {
	case 0:
		return v, t, pp
	case 1:
		return q, v, pp
	case 2:
		return pp, v, t
	case 3:
		return pp, q, v
	case 4:
		return t, pp, v
	default:
		return v, pp, q
	}
}
