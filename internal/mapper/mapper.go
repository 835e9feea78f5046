// Package mapper precomputes the virtual-pixel-index to physical-LED-index
// lookup table from a layout.Layout. Grounded on the teacher's
// internal/led.BuildLUT (which builds a normalized-position LUT for a
// fixed cube) but generalized to per-unit rotation and per-grid wiring,
// matching original_source/rpi_driver/coordinate_mapper.py's
// _apply_rotation/_decode_led_index split.
package mapper

import "github.com/coreman2200/ledpanel/internal/layout"

// Table is a one-dimensional lookup: Table[v] gives the physical LED
// index for virtual index v = y*W + x. Canvas pixels that no unit
// covers hold -1; every other entry is a distinct index in [0, N).
type Table struct {
	W, H int
	Idx  []int
}

// Physical returns the physical LED index for virtual coordinate (x, y).
func (t Table) Physical(x, y int) int {
	return t.Idx[y*t.W+x]
}

type unitKey struct{ col, row int }

// Build computes the IndexTable for l. Pure and deterministic; callers
// must rebuild (never patch) whenever the Layout changes.
func Build(l layout.Layout) Table {
	w, h := layout.CanvasSize(l)
	t := Table{W: w, H: h, Idx: make([]int, w*h)}

	byPos := make(map[unitKey]layout.Unit, len(l.Units))
	for _, u := range l.Units {
		byPos[unitKey{u.Col, u.Row}] = u
	}

	pw, ph := l.PanelWidth, l.PanelHeight
	for y := 0; y < h; y++ {
		col := 0
		row := y / ph
		for x := 0; x < w; x++ {
			col = x / pw
			u, ok := byPos[unitKey{col, row}]
			if !ok {
				t.Idx[y*w+x] = -1
				continue
			}
			lx, ly := x%pw, y%ph
			cx, cy := unrotate(lx, ly, u.Rotation, pw, ph)
			// A 90/270 rotation swaps the chip's own width and height.
			cw, ch := pw, ph
			if u.Rotation == layout.Rotate90 || u.Rotation == layout.Rotate270 {
				cw, ch = ph, pw
			}
			k := wiredIndex(cx, cy, cw, ch, l.Wiring)
			t.Idx[y*w+x] = u.ChainIndex*(pw*ph) + k
		}
	}
	return t
}

// unrotate undoes the unit's physical rotation, mapping canvas-local
// coordinates (lx, ly) to chip-local coordinates (cx, cy).
func unrotate(lx, ly int, r layout.Rotation, pw, ph int) (cx, cy int) {
	switch r {
	case layout.Rotate0:
		return lx, ly
	case layout.Rotate90:
		return ly, pw - 1 - lx
	case layout.Rotate180:
		return pw - 1 - lx, ph - 1 - ly
	case layout.Rotate270:
		return ph - 1 - ly, lx
	default:
		return lx, ly
	}
}

// wiredIndex converts chip-local coordinates to a within-unit physical
// index under the grid's intra-unit wiring mode, for a chip pw wide and
// ph tall.
func wiredIndex(cx, cy, pw, ph int, wiring layout.Wiring) int {
	switch wiring {
	case layout.Snake:
		if cy%2 == 1 {
			cx = pw - 1 - cx
		}
		return cy*pw + cx
	case layout.VerticalSnake:
		if cx%2 == 1 {
			cy = ph - 1 - cy
		}
		return cx*ph + cy
	default: // Sequential
		return cy*pw + cx
	}
}
