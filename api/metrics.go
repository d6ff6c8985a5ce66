package api

import (
	"expvar"

	"github.com/papercomputeco/mathpad/pkg/solver"
)

// streamStats counts settled solver calls by operation and outcome, e.g.
// "solve.succeeded". Served on /debug/vars.
var streamStats = expvar.NewMap("mathpad_streams")

// StateHook records solver transitions in streamStats. Pass it as
// solver.Config.StateHook.
func StateHook(op, _ string, _, to solver.State) {
	switch {
	case to == solver.StateSending:
		streamStats.Add(op+".started", 1)
	case to.Settled():
		streamStats.Add(op+"."+to.String(), 1)
	}
}
