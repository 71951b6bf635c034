// Package ledger records successfully uploaded instances.
package ledger

import (
	"slices"
	"sync"
)

// Tree maps StudyInstanceUID to SeriesInstanceUID to the SOPInstanceUIDs
// uploaded, in upload order.
type Tree map[string]map[string][]string

// Ledger is an append-only Tree. It is safe for concurrent use; a new
// send run starts from a fresh Ledger.
type Ledger struct {
	mu    sync.RWMutex
	tree  Tree
	count int
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{tree: make(Tree)}
}

// Record appends sop under study and series, creating either as needed.
func (l *Ledger) Record(study, series, sop string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.tree[study]
	if !ok {
		s = make(map[string][]string)
		l.tree[study] = s
	}
	s[series] = append(s[series], sop)
	l.count++
}

// Count is the number of recorded instances.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Tree returns a deep copy of the recorded instances.
func (l *Ledger) Tree() Tree {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(Tree, len(l.tree))
	for study, series := range l.tree {
		cp := make(map[string][]string, len(series))
		for uid, sops := range series {
			cp[uid] = slices.Clone(sops)
		}
		out[study] = cp
	}
	return out
}

