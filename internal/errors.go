package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStaleResource marks a resource result that lost to a later load or a cancel.
// It is reported to instruments and logs, never to callers.
var ErrStaleResource = errors.New("sig: stale resource result")

// CycleError is raised when a node is read while it is being evaluated.
type CycleError struct {
	Node string
	// evaluation frames from the first entry of Node to the re-entrant read
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("sig: circular dependency on %s", e.Node)
	}

	return fmt.Sprintf("sig: circular dependency: %s", strings.Join(e.Path, " -> "))
}

// ReentrancyLimitError is raised when an effect keeps rescheduling itself within one flush.
type ReentrancyLimitError struct {
	Node  string
	Limit int
}

func (e *ReentrancyLimitError) Error() string {
	return fmt.Sprintf("sig: %s re-ran more than %d times in one flush", e.Node, e.Limit)
}

func (r *Runtime) cycleError(n *node) *CycleError {
	frames := r.tracker.Path(n.id)

	path := make([]string, 0, len(frames)+1)
	for _, id := range frames {
		if id == 0 {
			continue
		}
		if f := r.get(id); f != nil {
			path = append(path, f.name)
		}
	}
	path = append(path, n.name)

	return &CycleError{Node: n.name, Path: path}
}
