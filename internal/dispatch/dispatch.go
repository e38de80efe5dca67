// Package dispatch implements propagate_results (spec component C7,
// §4.4): driving an event downstream through a stack with single-touch,
// OK/STOP/ERR termination semantics, followed by ownership cleanup of any
// needs-free-on-release output key touched during the walk. It is
// grounded on core.Orchestrator (internal/pipeline/core/
// orchestrator.go), generalized from that type's fixed two-stage run into
// a "continue from an arbitrary origin" walk and the explicit release
// pass the original pipeline has no equivalent for.
package dispatch

import (
	"github.com/google/uuid"

	"github.com/netlogd/netlogd/internal/key"
	"github.com/netlogd/netlogd/internal/logging"
	"github.com/netlogd/netlogd/internal/plugin"
	"github.com/netlogd/netlogd/internal/pluginstance"
	"github.com/netlogd/netlogd/internal/stack"
	"github.com/netlogd/netlogd/internal/statusserver"
)

// Dispatcher walks a Stack downstream from a producing instance,
// respecting spec.md invariants 5-7.
type Dispatcher struct {
	logger  *logging.Logger
	metrics *statusserver.Metrics
}

// New returns a Dispatcher that logs runtime ERR results through logger
// and, when metrics is non-nil, records dispatch/error counts for the
// optional status server.
func New(logger *logging.Logger, metrics *statusserver.Metrics) *Dispatcher {
	return &Dispatcher{logger: logger, metrics: metrics}
}

// Propagate walks s downstream starting immediately after originIndex,
// calling each stage's Interpret exactly once until a stage returns
// something other than OK, or the tail is reached. The origin itself is
// never re-invoked. clean_results runs unconditionally afterward,
// regardless of how propagation ended (spec.md §4.4).
func (d *Dispatcher) Propagate(s *stack.Stack, originIndex int) {
	if d.metrics != nil {
		d.metrics.DispatchTotal.Inc()
	}

	// corrID is an ambient debugging aid attached to log lines for this
	// event's traversal of the stack; it is never part of the wire
	// contract between stages.
	corrID := uuid.NewString()

	touched := []int{originIndex}

	for i := originIndex + 1; i < s.Len(); i++ {
		touched = append(touched, i)
		inst := s.At(i)

		copyResolvedInputs(s, inst)

		result, err := inst.Interpret()
		if err != nil {
			d.logf("[%s] interpret error in %q: %v", corrID, inst.ID(), err)
			if d.metrics != nil {
				d.metrics.StageErrorTotal.Inc()
			}
			break
		}

		if result == plugin.ResultErr {
			d.logf("[%s] stage %q returned ERR", corrID, inst.ID())
			if d.metrics != nil {
				d.metrics.StageErrorTotal.Inc()
			}
		} else if result != plugin.ResultOK && result != plugin.ResultStop {
			d.logf("[%s] stage %q returned unrecognized result %v, treating as STOP", corrID, inst.ID(), result)
		}

		if result != plugin.ResultOK {
			break
		}
	}

	CleanResults(s, touched)
}

// copyResolvedInputs fetches, for every input key of inst that resolution
// bound to an upstream output key (invariant 4), the upstream key's
// current value into inst's own input slot. A resolved input key does not
// alias its upstream output key's storage directly; this core's Key is a
// plain value held in each instance's own table, so moving data downstream
// requires an explicit copy performed once per stage, per event,
// immediately before Interpret runs.
func copyResolvedInputs(s *stack.Stack, inst *pluginstance.Instance) {
	input := inst.Input()
	changed := false
	for ki := range input {
		k := &input[ki]
		if !k.HasSource() {
			continue
		}
		upstream := s.At(k.Source.InstanceIndex).Output()
		if k.Source.KeyIndex < 0 || k.Source.KeyIndex >= len(upstream) {
			continue
		}
		k.Value = upstream[k.Source.KeyIndex].Value
		k.Flags = (k.Flags &^ key.FlagValid) | (upstream[k.Source.KeyIndex].Flags & key.FlagValid)
		changed = true
	}
	if changed {
		inst.SetInput(input)
	}
}

func (d *Dispatcher) logf(format string, args ...any) {
	if d.logger != nil {
		d.logger.Noticef(format, args...)
	}
}

// CleanResults releases every needs-free-on-release output key that was
// touched during this dispatch and marks the slot invalid, so the next
// event through the stack starts from a clean state (spec.md §4.4,
// invariant 7). This runs unconditionally after every propagation pass.
func CleanResults(s *stack.Stack, touchedIndices []int) {
	for _, idx := range touchedIndices {
		inst := s.At(idx)
		out := inst.Output()
		for i := range out {
			out[i].Release()
		}
		inst.SetOutput(out)
	}
}
