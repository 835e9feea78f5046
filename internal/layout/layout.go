// Package layout holds the immutable description of a panel grid: unit
// positions, rotations, and intra-unit wiring. It is pure data plus a
// validator, grounded on the teacher's internal/layout.Layout but
// generalized from a fixed cube to an arbitrary described grid of
// independently-positioned, independently-rotated units.
package layout

import "fmt"

// Wiring names the intra-unit wiring mode.
type Wiring string

const (
	Sequential    Wiring = "sequential"
	Snake         Wiring = "snake"
	VerticalSnake Wiring = "vertical_snake"
)

// Rotation is the physical orientation of a unit relative to canvas up.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// Unit is one LED panel in the grid.
type Unit struct {
	ChainIndex int      // 0-based position in the physical data chain
	Col, Row   int      // grid position, 0 <= Col < GridWidth, 0 <= Row < GridHeight
	Rotation   Rotation // must be a multiple of 90
}

// Layout is an immutable grid description. Build it with Parse; never
// mutate a Layout in place — a changed grid is a new Layout.
type Layout struct {
	GridWidth, GridHeight   int
	PanelWidth, PanelHeight int
	Wiring                  Wiring
	Units                   []Unit
}

// GridDescription is the on-disk grid geometry, matching spec.md §6.
type GridDescription struct {
	GridWidth     int    `yaml:"grid_width" json:"grid_width"`
	GridHeight    int    `yaml:"grid_height" json:"grid_height"`
	PanelWidth    int    `yaml:"panel_width" json:"panel_width"`
	PanelHeight   int    `yaml:"panel_height" json:"panel_height"`
	WiringPattern string `yaml:"wiring_pattern" json:"wiring_pattern"`
}

// PanelDescription is one entry of the on-disk panels[] array.
type PanelDescription struct {
	ID       int    `yaml:"id" json:"id"`
	Position [2]int `yaml:"position" json:"position"`
	Rotation int    `yaml:"rotation" json:"rotation"`
}

// Description is the full persisted layout document.
type Description struct {
	Grid   GridDescription    `yaml:"grid" json:"grid"`
	Panels []PanelDescription `yaml:"panels" json:"panels"`
}

// ErrorKind enumerates the validation failures Parse can report.
type ErrorKind string

const (
	DuplicateChainIndex     ErrorKind = "duplicate_chain_index"
	DuplicateGridPosition   ErrorKind = "duplicate_grid_position"
	OutOfBoundsPosition     ErrorKind = "out_of_bounds_position"
	RotationNotMultipleOf90 ErrorKind = "rotation_not_multiple_of_90"
	ZeroDimension           ErrorKind = "zero_dimension"
	UnitCountMismatch       ErrorKind = "unit_count_mismatch"
	InvalidWiring           ErrorKind = "invalid_wiring_pattern"
)

// ValidationError reports why a Description failed to parse.
type ValidationError struct {
	Kind ErrorKind
	Msg  string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

func validationErr(kind ErrorKind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Parse validates a Description and builds an immutable Layout.
func Parse(d Description) (Layout, error) {
	g := d.Grid
	if g.GridWidth <= 0 || g.GridHeight <= 0 || g.PanelWidth <= 0 || g.PanelHeight <= 0 {
		return Layout{}, validationErr(ZeroDimension, "grid=%dx%d panel=%dx%d",
			g.GridWidth, g.GridHeight, g.PanelWidth, g.PanelHeight)
	}

	wiring := Wiring(g.WiringPattern)
	switch wiring {
	case Sequential, Snake, VerticalSnake:
	default:
		return Layout{}, validationErr(InvalidWiring, "unknown wiring_pattern %q", g.WiringPattern)
	}

	n := len(d.Panels)
	seenChain := make(map[int]bool, n)
	seenPos := make(map[[2]int]bool, n)
	units := make([]Unit, 0, n)

	for _, p := range d.Panels {
		if p.Rotation%90 != 0 {
			return Layout{}, validationErr(RotationNotMultipleOf90, "panel %d rotation=%d", p.ID, p.Rotation)
		}
		if seenChain[p.ID] {
			return Layout{}, validationErr(DuplicateChainIndex, "chain_index %d repeated", p.ID)
		}
		seenChain[p.ID] = true

		col, row := p.Position[0], p.Position[1]
		if col < 0 || col >= g.GridWidth || row < 0 || row >= g.GridHeight {
			return Layout{}, validationErr(OutOfBoundsPosition, "panel %d at (%d,%d) outside %dx%d grid",
				p.ID, col, row, g.GridWidth, g.GridHeight)
		}
		pos := [2]int{col, row}
		if seenPos[pos] {
			return Layout{}, validationErr(DuplicateGridPosition, "position (%d,%d) repeated", col, row)
		}
		seenPos[pos] = true

		units = append(units, Unit{
			ChainIndex: p.ID,
			Col:        col,
			Row:        row,
			Rotation:   Rotation(((p.Rotation % 360) + 360) % 360),
		})
	}

	// chain_index values must form a permutation of [0, |units|).
	for i := 0; i < n; i++ {
		if !seenChain[i] {
			return Layout{}, validationErr(UnitCountMismatch, "chain_index values are not a permutation of [0,%d)", n)
		}
	}

	return Layout{
		GridWidth:   g.GridWidth,
		GridHeight:  g.GridHeight,
		PanelWidth:  g.PanelWidth,
		PanelHeight: g.PanelHeight,
		Wiring:      wiring,
		Units:       units,
	}, nil
}

// CanvasSize returns the virtual canvas dimensions W, H in pixels.
func CanvasSize(l Layout) (w, h int) {
	return l.GridWidth * l.PanelWidth, l.GridHeight * l.PanelHeight
}

// LEDCount returns the total physical LED count N.
func LEDCount(l Layout) int {
	return len(l.Units) * l.PanelWidth * l.PanelHeight
}

// UnitAt returns the unit covering grid position (col, row), if any.
func (l Layout) UnitAt(col, row int) (Unit, bool) {
	for _, u := range l.Units {
		if u.Col == col && u.Row == row {
			return u, true
		}
	}
	return Unit{}, false
}
