package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	draft  Status = "draft"
	live   Status = "live"
	closed Status = "closed"
	voided Status = "voided"
)

func testMachine() *Machine {
	return New(Config{
		Name:     "ticket",
		States:   []Status{draft, live, closed, voided},
		Initial:  draft,
		Terminal: []Status{closed, voided},
		Transitions: map[Status][]Status{
			draft: {live, voided},
			live:  {closed, voided},
		},
		Cancellable:    []Status{draft},
		CancelTo:       voided,
		CancelRefusals: map[Status]string{live: "ticket is live, ask an operator"},
		Editable:       []Status{draft},
	})
}

func TestParse(t *testing.T) {
	m := testMachine()
	s, err := m.Parse("  LIVE ")
	require.NoError(t, err)
	assert.Equal(t, live, s)

	_, err = m.Parse("archived")
	assert.ErrorIs(t, err, ErrUnknownStatus)
	assert.Contains(t, err.Error(), "draft, live, closed, voided")
}

func TestTransitions(t *testing.T) {
	m := testMachine()
	assert.NoError(t, m.CheckTransition(draft, live))
	assert.ErrorIs(t, m.CheckTransition(closed, live), ErrIllegalTransition)
	assert.ErrorIs(t, m.CheckTransition(draft, "bogus"), ErrUnknownStatus)
	assert.Equal(t, []Status{draft, live}, m.Predecessors(voided))
	assert.Empty(t, m.Predecessors(draft))
}

func TestCancel(t *testing.T) {
	m := testMachine()
	assert.NoError(t, m.CheckCancel(draft))
	assert.Equal(t, voided, m.CancelStatus())

	err := m.CheckCancel(live)
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Contains(t, err.Error(), "ask an operator")

	err = m.CheckCancel(closed)
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Contains(t, err.Error(), "ticket is already closed")
}

func TestEditAndDelete(t *testing.T) {
	m := testMachine()
	assert.NoError(t, m.CheckEdit(draft))
	assert.ErrorIs(t, m.CheckEdit(live), ErrNotEditable)

	assert.NoError(t, m.CheckDelete(closed))
	assert.ErrorIs(t, m.CheckDelete(draft), ErrNotDeletable)
	assert.True(t, m.IsTerminal(voided))
	assert.Equal(t, []Status{closed, voided}, m.Terminal())
}

func TestNewRejectsBadTables(t *testing.T) {
	assert.Panics(t, func() {
		New(Config{Name: "x", States: []Status{draft}, Initial: live})
	})
	assert.Panics(t, func() {
		New(Config{
			Name: "x", States: []Status{draft, closed}, Initial: draft,
			Terminal:    []Status{closed},
			Transitions: map[Status][]Status{closed: {draft}},
		})
	})
	assert.Panics(t, func() {
		New(Config{
			Name: "x", States: []Status{draft, closed}, Initial: draft,
			Terminal: []Status{closed},
			Editable: []Status{closed},
		})
	})
}
