package services

import "sync"

// Table is the render state: ordered rows keyed by FQDN, stamped with the
// generation of the load cycle that produced them. Every change is
// forwarded to the sink.
type Table struct {
	mu    sync.RWMutex
	gen   uint64
	rows  []HostRecord
	index map[string]int
	sink  Sink
}

func NewTable(sink Sink) *Table {
	if sink == nil {
		sink = discardSink{}
	}
	return &Table{index: map[string]int{}, sink: sink}
}

// Reset clears every row and starts a new generation.
func (t *Table) Reset() uint64 {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.rows = nil
	t.index = map[string]int{}
	t.mu.Unlock()

	t.sink.Publish(Event{Type: EventClear, Generation: gen})
	return gen
}

// Append adds rec as a new row. It reports false when gen is stale or the
// FQDN is already present in this generation.
func (t *Table) Append(gen uint64, rec HostRecord) bool {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return false
	}
	if _, dup := t.index[rec.FQDN]; dup {
		t.mu.Unlock()
		return false
	}
	t.index[rec.FQDN] = len(t.rows)
	t.rows = append(t.rows, rec)
	t.mu.Unlock()

	t.sink.Publish(Event{Type: EventRow, Generation: gen, Row: &rec})
	return true
}

// UpdateIP sets the IP cell of the row keyed by fqdn. Stale generations and
// missing rows are no-ops.
func (t *Table) UpdateIP(gen uint64, fqdn, ip string) bool {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return false
	}
	i, ok := t.index[fqdn]
	if !ok {
		t.mu.Unlock()
		return false
	}
	t.rows[i].IP = ip
	t.mu.Unlock()

	t.sink.Publish(Event{Type: EventIP, Generation: gen, FQDN: fqdn, IP: ip})
	return true
}

// Rows returns a copy of the current rows in display order.
func (t *Table) Rows() []HostRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]HostRecord, len(t.rows))
	copy(out, t.rows)
	return out
}

// Snapshot returns the generation together with a copy of its rows.
func (t *Table) Snapshot() (uint64, []HostRecord) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]HostRecord, len(t.rows))
	copy(out, t.rows)
	return t.gen, out
}

func (t *Table) Generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gen
}

// Lookup returns the row for fqdn, if present.
func (t *Table) Lookup(fqdn string) (HostRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[fqdn]
	if !ok {
		return HostRecord{}, false
	}
	return t.rows[i], true
}
