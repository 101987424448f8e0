package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Sink that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) ofType(typ string) []Event {
	var out []Event
	for _, e := range r.all() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestTable_AppendAndUpdate(t *testing.T) {
	rec := &recorder{}
	tbl := NewTable(rec)

	gen := tbl.Reset()
	require.True(t, tbl.Append(gen, HostRecord{FQDN: "a.example.com", IP: IPResolving}))
	require.True(t, tbl.Append(gen, HostRecord{FQDN: "b.example.com", IP: IPResolving}))
	require.True(t, tbl.UpdateIP(gen, "b.example.com", "10.0.0.2"))

	rows := tbl.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "a.example.com", rows[0].FQDN)
	assert.Equal(t, IPResolving, rows[0].IP)
	assert.Equal(t, "10.0.0.2", rows[1].IP)

	types := []string{}
	for _, e := range rec.all() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{EventClear, EventRow, EventRow, EventIP}, types)
}

func TestTable_DuplicateFQDNRejected(t *testing.T) {
	tbl := NewTable(nil)
	gen := tbl.Reset()
	require.True(t, tbl.Append(gen, HostRecord{FQDN: "a.example.com", Env: "first"}))
	assert.False(t, tbl.Append(gen, HostRecord{FQDN: "a.example.com", Env: "second"}))

	r, ok := tbl.Lookup("a.example.com")
	require.True(t, ok)
	assert.Equal(t, "first", r.Env)
}

func TestTable_UpdateMissingRowIsNoop(t *testing.T) {
	rec := &recorder{}
	tbl := NewTable(rec)
	gen := tbl.Reset()

	assert.False(t, tbl.UpdateIP(gen, "ghost.example.com", "10.0.0.1"))
	assert.Empty(t, rec.ofType(EventIP))
}

func TestTable_StaleGenerationIgnored(t *testing.T) {
	tbl := NewTable(nil)
	old := tbl.Reset()
	require.True(t, tbl.Append(old, HostRecord{FQDN: "a.example.com", IP: IPResolving}))

	cur := tbl.Reset()
	assert.Empty(t, tbl.Rows())
	require.True(t, tbl.Append(cur, HostRecord{FQDN: "a.example.com", IP: IPResolving}))

	// result from the previous cycle lands on a same-named row
	assert.False(t, tbl.UpdateIP(old, "a.example.com", "10.9.9.9"))
	assert.False(t, tbl.Append(old, HostRecord{FQDN: "late.example.com"}))

	r, _ := tbl.Lookup("a.example.com")
	assert.Equal(t, IPResolving, r.IP)
	assert.Len(t, tbl.Rows(), 1)
}

func TestTable_SnapshotIsCopy(t *testing.T) {
	tbl := NewTable(nil)
	gen := tbl.Reset()
	tbl.Append(gen, HostRecord{FQDN: "a.example.com", IP: IPResolving})

	g, rows := tbl.Snapshot()
	rows[0].IP = "mutated"
	assert.Equal(t, gen, g)
	r, _ := tbl.Lookup("a.example.com")
	assert.Equal(t, IPResolving, r.IP)
}
