package supervisor

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Status is a point-in-time snapshot of one camera's supervision state.
type Status struct {
	Slot       int
	Address    string
	Variant    string
	Resolution string
	FPS        float64
	State      string
	Reason     string
}

// Statuses snapshots the whole fleet. Call from the supervisor
// goroutine or before Run starts.
func (s *Supervisor) Statuses() []Status {
	statuses := make([]Status, 0, len(s.fleet))
	for _, sup := range s.fleet {
		st := Status{
			Slot:    sup.cam.Slot,
			Address: sup.cam.Address,
			State:   sup.state,
			Reason:  sup.reason,
		}
		if sup.selected != nil {
			st.Variant = sup.selected.Variant.Name
			st.Resolution = sup.selected.Result.Resolution()
			st.FPS = sup.selected.Result.FPS
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// RenderTable formats statuses as the aligned startup summary table.
// Every registered camera appears exactly once.
func RenderTable(statuses []Status) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "SLOT\tADDRESS\tVARIANT\tQUALITY\tSTATUS")
	for _, st := range statuses {
		variant := st.Variant
		if variant == "" {
			variant = "-"
		}
		quality := "-"
		if st.Resolution != "" && st.Resolution != "0x0" {
			quality = fmt.Sprintf("%s@%g", st.Resolution, st.FPS)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", st.Slot, st.Address, variant, quality, describe(st))
	}

	w.Flush()
	return b.String()
}

// describe renders the status column value.
func describe(st Status) string {
	switch st.State {
	case StateRunning:
		return StateRunning
	case StateSkipped:
		return StateSkipped + ": " + st.Reason
	case StateStopped:
		return StateStopped
	default:
		if st.Reason != "" {
			return "failed: " + st.Reason
		}
		return st.State
	}
}
