package match

import (
	"context"
	"sync"
)

// Winner is the resolved value of a match.
type Winner struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Result resolves exactly once, when the high-score table has been shown.
type Result struct {
	once sync.Once
	done chan struct{}
	w    Winner
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

// resolve reports whether this call fulfilled the result.
func (r *Result) resolve(w Winner) bool {
	ok := false
	r.once.Do(func() {
		r.w = w
		close(r.done)
		ok = true
	})
	return ok
}

// Done is closed once the winner is known.
func (r *Result) Done() <-chan struct{} { return r.done }

func (r *Result) Winner() (Winner, bool) {
	select {
	case <-r.done:
		return r.w, true
	default:
		return Winner{}, false
	}
}

// Wait blocks until the match resolves or ctx ends.
func (r *Result) Wait(ctx context.Context) (Winner, error) {
	select {
	case <-r.done:
		return r.w, nil
	case <-ctx.Done():
		return Winner{}, ctx.Err()
	}
}
