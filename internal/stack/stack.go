// Package stack implements the stack builder (spec component C6, §4.3):
// parsing a stack declaration, instantiating plugins, resolving
// key-by-name dataflow tail-to-head, and starting instances head-to-tail
// with reverse-order rollback on failure. It is grounded on
// core.Builder/core.Orchestrator pairing (internal/pipeline/core/builder.go,
// orchestrator.go), generalized from that package's fixed two-stage
// pipeline into the three-pass algorithm spec.md §4.3 specifies.
package stack

import (
	"fmt"
	"strings"

	"github.com/netlogd/netlogd/internal/key"
	"github.com/netlogd/netlogd/internal/plugin"
	"github.com/netlogd/netlogd/internal/pluginstance"
)

// Stack is one pipeline: an ordered, append-only sequence of
// pluginstances from a SOURCE through intermediates to a SINK
// (spec.md §3).
type Stack struct {
	Spec      string
	instances []*pluginstance.Instance
}

// Instances returns the stack's pluginstances in source-to-sink order.
// Callers must not retain the slice past the current dispatch.
func (s *Stack) Instances() []*pluginstance.Instance { return s.instances }

// Len returns the number of pluginstances in the stack.
func (s *Stack) Len() int { return len(s.instances) }

// At returns the instance at position i.
func (s *Stack) At(i int) *pluginstance.Instance { return s.instances[i] }

type token struct {
	id         string
	pluginName string
}

func tokenize(specLine string) ([]token, error) {
	specLine = strings.TrimSpace(specLine)
	if specLine == "" {
		return nil, ErrEmptySpec
	}
	parts := strings.Split(specLine, ",")
	tokens := make([]token, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		idx := strings.IndexByte(p, ':')
		if idx < 0 {
			return nil, &BuildError{Err: ErrMalformedToken, Detail: p}
		}
		id, name := strings.TrimSpace(p[:idx]), strings.TrimSpace(p[idx+1:])
		if id == "" || name == "" {
			return nil, &BuildError{Err: ErrMalformedToken, Detail: p}
		}
		if len(id) > pluginstance.MaxIDLength {
			return nil, &BuildError{Err: ErrIDTooLong, InstanceID: id}
		}
		tokens = append(tokens, token{id: id, pluginName: name})
	}
	return tokens, nil
}

// Build runs all three passes of spec.md §4.3 against specLine, using
// registry to resolve plugin names. On any failure the stack is
// discarded: instances whose Start already succeeded are Stopped in
// reverse order before the error is returned (spec.md §7, §9's second
// Open Question).
func Build(registry *plugin.Registry, specLine string) (*Stack, error) {
	tokens, err := tokenize(specLine)
	if err != nil {
		return nil, err
	}

	s := &Stack{Spec: specLine}

	// Pass 1 — instantiate. No partial build survives an unknown plugin.
	for i, t := range tokens {
		desc := registry.Find(t.pluginName)
		if desc == nil {
			return nil, &BuildError{Err: ErrUnknownPlugin, InstanceID: t.id, Plugin: t.pluginName}
		}
		s.instances = append(s.instances, pluginstance.Instantiate(desc, t.id, i))
	}

	if err := s.configureAndResolve(); err != nil {
		return nil, err
	}

	if err := s.start(); err != nil {
		return nil, err
	}

	return s, nil
}

// configureAndResolve is Pass 2: tail to head, configure hooks and
// key-by-name resolution (spec.md §4.3).
func (s *Stack) configureAndResolve() error {
	n := len(s.instances)
	for i := n - 1; i >= 0; i-- {
		inst := s.instances[i]
		desc := inst.Descriptor()

		if err := inst.Configure(); err != nil {
			return &BuildError{Err: ErrConfigureFailed, InstanceID: inst.ID(), Plugin: desc.Name, Detail: err.Error()}
		}

		if i == n-1 && !desc.OutputType.Compatible(plugin.DataSink) {
			return &BuildError{Err: ErrTailNotSink, InstanceID: inst.ID(), Plugin: desc.Name}
		}
		if i == 0 && !desc.InputType.Compatible(plugin.DataSource) {
			return &BuildError{Err: ErrHeadNotSource, InstanceID: inst.ID(), Plugin: desc.Name}
		}
		if i > 0 {
			prev := s.instances[i-1].Descriptor()
			if !prev.OutputType.Compatible(desc.InputType) {
				return &BuildError{
					Err: ErrTypeMismatch, InstanceID: inst.ID(), Plugin: desc.Name,
					Detail: fmt.Sprintf("%s outputs %s, %s expects %s", prev.Name, prev.OutputType, desc.Name, desc.InputType),
				}
			}
		}

		if err := s.resolveInputs(i); err != nil {
			return err
		}
	}
	return nil
}

// resolveInputs binds every unbound, non-inactive input key of
// instances[i] by scanning upstream from i-1 down to 0, first match wins
// (spec.md §4.3 step 4, invariant 4, scenario S2).
func (s *Stack) resolveInputs(i int) error {
	inst := s.instances[i]
	input := inst.Input()

	for ki := range input {
		k := &input[ki]
		if k.HasSource() || k.Flags.Has(key.FlagInactive) {
			continue
		}

		found := false
		for u := i - 1; u >= 0; u-- {
			upstream := s.instances[u]
			outIdx := upstream.Output().ByName(k.Name)
			if outIdx < 0 {
				continue
			}
			k.BindSource(u, outIdx)
			found = true
			break
		}

		if !found && !k.Flags.Has(key.FlagOptional) {
			return &BuildError{
				Err: ErrUnresolvedInput, InstanceID: inst.ID(), Plugin: inst.Descriptor().Name,
				Detail: fmt.Sprintf("cannot find key %q", k.Name),
			}
		}
	}
	inst.SetInput(input)
	return nil
}

// start is Pass 3: head to tail, invoking each Start hook. A failure
// rolls back every instance whose Start already succeeded, in reverse
// order, before discarding the stack (spec.md §7, §9).
func (s *Stack) start() error {
	started := make([]*pluginstance.Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		if err := inst.Start(); err != nil {
			for j := len(started) - 1; j >= 0; j-- {
				_ = started[j].Stop()
			}
			return &BuildError{Err: ErrStartFailed, InstanceID: inst.ID(), Plugin: inst.Descriptor().Name, Detail: err.Error()}
		}
		started = append(started, inst)
	}
	return nil
}

// Stop tears the stack down, invoking every instance's Stop hook in
// reverse (tail to head), the mirror of Start's head-to-tail order.
func (s *Stack) Stop() {
	for i := len(s.instances) - 1; i >= 0; i-- {
		_ = s.instances[i].Stop()
	}
}

// Signal broadcasts signum to every instance in the stack (spec.md §4.6).
func (s *Stack) Signal(signum int) {
	for _, inst := range s.instances {
		_ = inst.Signal(signum)
	}
}
