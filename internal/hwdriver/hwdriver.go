// Package hwdriver defines the hardware render primitive the display
// controller calls once per tick, treated by the spec as a blocking
// external collaborator. Grounded on the teacher's internal/led.Driver
// and internal/render.Driver interfaces, unified into one signature
// that carries the already-indexed physical buffer and applied
// brightness together, matching spec.md §6's render(phys, brightness).
package hwdriver

import "github.com/coreman2200/ledpanel/internal/frame"

// Driver abstracts the on-device wire-protocol driver for the LED
// chain. Render is blocking and is called from the controller's
// dedicated goroutine only.
type Driver interface {
	Render(phys []frame.RGB, brightness uint8) error
	Close() error
}
