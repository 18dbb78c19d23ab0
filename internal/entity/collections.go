package entity

import "qms-mcp/internal/record"

// Collections holds raw entity collections by kind.
type Collections map[Kind][]record.Record

// Get returns the collection of k, or nil.
func (c Collections) Get(k Kind) []record.Record {
	if c == nil {
		return nil
	}
	return c[k]
}

// Counts returns the size of every collection.
func (c Collections) Counts() map[Kind]int {
	out := make(map[Kind]int, len(c))
	for k, rs := range c {
		out[k] = len(rs)
	}
	return out
}

// Total returns the number of records across all collections.
func (c Collections) Total() int {
	n := 0
	for _, rs := range c {
		n += len(rs)
	}
	return n
}
