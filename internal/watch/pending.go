package watch

import (
	"sort"
	"sync"
)

// pendingSet collects changed paths between callbacks.
type pendingSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newPendingSet() *pendingSet {
	return &pendingSet{paths: make(map[string]struct{})}
}

func (p *pendingSet) add(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths[path] = struct{}{}
}

// drain returns the sorted paths and empties the set.
func (p *pendingSet) drain() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.paths))
	for path := range p.paths {
		out = append(out, path)
	}
	p.paths = make(map[string]struct{})
	sort.Strings(out)
	return out
}
