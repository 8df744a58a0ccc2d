// Package lifecycle implements the status state machine shared by orders,
// daycare bookings and adoption applications.
//
// A Machine is immutable after New and safe for concurrent use. It answers
// questions ("may X move to Y", "which states may reach Y") and never touches
// storage; callers turn the answers into conditional updates so that the
// precondition and the write happen in one store operation.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// Status is a lifecycle state name as persisted
type Status string

var (
	// ErrUnknownStatus is returned for names outside the machine's state set
	ErrUnknownStatus = errors.New("unknown status")
	// ErrIllegalTransition is returned when the transition table forbids a move
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrNotCancellable is returned when self-service cancel is not allowed
	ErrNotCancellable = errors.New("status does not allow cancellation")
	// ErrNotEditable is returned when mutable fields are locked
	ErrNotEditable = errors.New("status does not allow edits")
	// ErrNotDeletable is returned when a resource is still active
	ErrNotDeletable = errors.New("status does not allow deletion")
)

// Config describes a machine. Every state referenced by the other fields
// must appear in States.
type Config struct {
	Name        string
	States      []Status
	Initial     Status
	Terminal    []Status
	Transitions map[Status][]Status
	// Cancellable lists the states an owner may cancel from; CancelTo is the
	// resulting state.
	Cancellable []Status
	CancelTo    Status
	// CancelRefusals carries caller-facing reasons for specific states that
	// are not cancellable.
	CancelRefusals map[Status]string
	Editable       []Status
}

// Machine is a compiled Config
type Machine struct {
	name           string
	order          []Status
	states         map[Status]bool
	initial        Status
	terminal       map[Status]bool
	next           map[Status]map[Status]bool
	cancellable    map[Status]bool
	cancelTo       Status
	cancelRefusals map[Status]string
	editable       map[Status]bool
}

// New compiles cfg. It panics when cfg references undeclared states, since
// machines are package-level definitions and a bad table is a programming error.
func New(cfg Config) *Machine {
	m := &Machine{
		name:           cfg.Name,
		order:          append([]Status(nil), cfg.States...),
		states:         make(map[Status]bool, len(cfg.States)),
		initial:        cfg.Initial,
		terminal:       map[Status]bool{},
		next:           map[Status]map[Status]bool{},
		cancellable:    map[Status]bool{},
		cancelTo:       cfg.CancelTo,
		cancelRefusals: map[Status]string{},
		editable:       map[Status]bool{},
	}
	for _, s := range cfg.States {
		m.states[s] = true
	}

	mustKnow := func(s Status, what string) {
		if !m.states[s] {
			panic(fmt.Sprintf("lifecycle %s: %s references undeclared state %q", cfg.Name, what, s))
		}
	}

	mustKnow(cfg.Initial, "initial")
	for _, s := range cfg.Terminal {
		mustKnow(s, "terminal")
		m.terminal[s] = true
	}
	for from, tos := range cfg.Transitions {
		mustKnow(from, "transition source")
		if m.terminal[from] {
			panic(fmt.Sprintf("lifecycle %s: terminal state %q has outgoing transitions", cfg.Name, from))
		}
		set := make(map[Status]bool, len(tos))
		for _, to := range tos {
			mustKnow(to, "transition target")
			set[to] = true
		}
		m.next[from] = set
	}
	if cfg.CancelTo != "" {
		mustKnow(cfg.CancelTo, "cancel target")
	}
	for _, s := range cfg.Cancellable {
		mustKnow(s, "cancellable")
		m.cancellable[s] = true
	}
	for s, reason := range cfg.CancelRefusals {
		mustKnow(s, "cancel refusal")
		m.cancelRefusals[s] = reason
	}
	for _, s := range cfg.Editable {
		mustKnow(s, "editable")
		if m.terminal[s] {
			panic(fmt.Sprintf("lifecycle %s: terminal state %q marked editable", cfg.Name, s))
		}
		m.editable[s] = true
	}
	return m
}

// Name returns the resource name the machine governs
func (m *Machine) Name() string { return m.name }

// Initial returns the state new resources start in
func (m *Machine) Initial() Status { return m.initial }

// States returns all states in declaration order
func (m *Machine) States() []Status { return append([]Status(nil), m.order...) }

// Valid reports whether s belongs to the machine
func (m *Machine) Valid(s Status) bool { return m.states[s] }

// IsTerminal reports whether no lifecycle operation may leave s
func (m *Machine) IsTerminal(s Status) bool { return m.terminal[s] }

// Terminal returns the terminal states in declaration order
func (m *Machine) Terminal() []Status { return m.filter(m.terminal) }

// Cancellable returns the states an owner may cancel from
func (m *Machine) Cancellable() []Status { return m.filter(m.cancellable) }

// Editable returns the states in which mutable fields may change
func (m *Machine) Editable() []Status { return m.filter(m.editable) }

// CancelStatus returns the state a cancel moves to
func (m *Machine) CancelStatus() Status { return m.cancelTo }

// Parse converts a client-supplied name into a Status of this machine.
// Matching is case-insensitive and ignores surrounding spaces.
func (m *Machine) Parse(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !m.states[s] {
		return "", fmt.Errorf("%w %q for %s (valid: %s)", ErrUnknownStatus, raw, m.name, m.join(m.order))
	}
	return s, nil
}

// CanTransition reports whether the table allows from -> to
func (m *Machine) CanTransition(from, to Status) bool {
	return m.next[from][to]
}

// Predecessors returns every state that may move directly to target
func (m *Machine) Predecessors(target Status) []Status {
	var out []Status
	for _, s := range m.order {
		if m.next[s][target] {
			out = append(out, s)
		}
	}
	return out
}

// CheckTransition validates from -> to
func (m *Machine) CheckTransition(from, to Status) error {
	if !m.states[to] {
		return fmt.Errorf("%w %q for %s", ErrUnknownStatus, to, m.name)
	}
	if !m.CanTransition(from, to) {
		return fmt.Errorf("%w: %s cannot move from %s to %s", ErrIllegalTransition, m.name, from, to)
	}
	return nil
}

// CheckCancel validates a self-service cancel from the given state
func (m *Machine) CheckCancel(from Status) error {
	if m.cancellable[from] {
		return nil
	}
	if reason, ok := m.cancelRefusals[from]; ok {
		return fmt.Errorf("%w: %s", ErrNotCancellable, reason)
	}
	return fmt.Errorf("%w: %s is already %s", ErrNotCancellable, m.name, from)
}

// CheckEdit validates that mutable fields may change in the given state
func (m *Machine) CheckEdit(from Status) error {
	if m.editable[from] {
		return nil
	}
	return fmt.Errorf("%w: %s is %s", ErrNotEditable, m.name, from)
}

// CheckDelete validates that a resource in the given state may be removed.
// Only terminal resources may be deleted.
func (m *Machine) CheckDelete(from Status) error {
	if m.terminal[from] {
		return nil
	}
	return fmt.Errorf("%w: %s is still %s, cancel it first", ErrNotDeletable, m.name, from)
}

func (m *Machine) filter(set map[Status]bool) []Status {
	var out []Status
	for _, s := range m.order {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

func (m *Machine) join(states []Status) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
