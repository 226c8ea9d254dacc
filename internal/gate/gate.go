// Package gate enables or disables merge controls based on checklist
// completion.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cexll/checklist-gate/internal/checklist"
)

const hintFormat = "Complete all checklist items before merging (%d%% done)"

// HintMessage is the text shown next to a disabled merge control.
func HintMessage(percentage int) string {
	return fmt.Sprintf(hintFormat, percentage)
}

// Control is one merge action the gate can enable or disable.
type Control interface {
	ID() string
	// SetEnabled applies the gate state. hint is empty when enabling.
	SetEnabled(ctx context.Context, enabled bool, hint string) error
}

// Hint is the single shared message shown while merging is blocked. Show
// creates it on first use and reuses it afterwards.
type Hint interface {
	Show(ctx context.Context, message string) error
	Remove(ctx context.Context) error
}

// Surface discovers merge controls on the host. It is owned by the host,
// not by the gate.
type Surface interface {
	Controls(ctx context.Context) ([]Control, error)
	Hint() Hint
}

// Action is what a gate pass did to the controls.
type Action string

const (
	ActionNone    Action = "none"
	ActionDisable Action = "disable"
	ActionEnable  Action = "enable"
)

// Decision describes a gate pass.
type Decision struct {
	Action     Action   `json:"action"`
	Percentage int      `json:"percentage"`
	Hint       string   `json:"hint,omitempty"`
	Controls   []string `json:"controls,omitempty"`
}

// Decide computes the gate action for the given totals without touching any
// control. An empty checklist yields ActionNone.
func Decide(total checklist.Stats) Decision {
	pct, ok := total.Percentage()
	if !ok {
		return Decision{Action: ActionNone}
	}
	if total.Complete() {
		return Decision{Action: ActionEnable, Percentage: pct}
	}
	return Decision{Action: ActionDisable, Percentage: pct, Hint: HintMessage(pct)}
}

// Controller reflects checklist completion onto a surface's controls.
type Controller struct {
	surface Surface
}

func NewController(surface Surface) *Controller {
	return &Controller{surface: surface}
}

// Apply runs one gate pass. With no checklist or no controls it does nothing
// and leaves the host state alone. Repeated passes with the same totals make
// the same writes.
func (c *Controller) Apply(ctx context.Context, total checklist.Stats) (Decision, error) {
	d := Decide(total)
	if d.Action == ActionNone {
		return d, nil
	}

	controls, err := c.surface.Controls(ctx)
	if err != nil {
		return Decision{Action: ActionNone, Percentage: d.Percentage}, fmt.Errorf("discover merge controls: %w", err)
	}
	if len(controls) == 0 {
		log.Printf("[Gate] No merge controls present, skipping (%d%% done)", d.Percentage)
		return Decision{Action: ActionNone, Percentage: d.Percentage}, nil
	}

	enabled := d.Action == ActionEnable
	var errs []error
	for _, ctl := range controls {
		d.Controls = append(d.Controls, ctl.ID())
		if err := ctl.SetEnabled(ctx, enabled, d.Hint); err != nil {
			errs = append(errs, fmt.Errorf("control %s: %w", ctl.ID(), err))
		}
	}

	if hint := c.surface.Hint(); hint != nil {
		if enabled {
			err = hint.Remove(ctx)
		} else {
			err = hint.Show(ctx, d.Hint)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("hint: %w", err))
		}
	}

	log.Printf("[Gate] %s %d control(s) at %d%%", d.Action, len(controls), d.Percentage)
	return d, errors.Join(errs...)
}
