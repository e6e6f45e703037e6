// Package healthcheck reports whether the runtime dependencies of the
// media pipeline are usable.
package healthcheck

import (
	"context"
	"sort"
)

const (
	// StatusOK indicates check passed.
	StatusOK = "ok"
	// StatusWarn indicates check completed with warning.
	StatusWarn = "warn"
	// StatusError indicates check failed.
	StatusError = "error"
)

// CheckResult is one runtime check item produced by a checker.
type CheckResult struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Summary string `json:"summary"`
	Detail  string `json:"detail,omitempty"`
}

// Checker evaluates one or more runtime checks.
type Checker interface {
	ListChecks(ctx context.Context) []CheckResult
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) []CheckResult

func (f CheckerFunc) ListChecks(ctx context.Context) []CheckResult { return f(ctx) }

// Run evaluates every checker and returns the results sorted by ID together
// with the worst status seen.
func Run(ctx context.Context, checkers ...Checker) ([]CheckResult, string) {
	results := make([]CheckResult, 0, len(checkers))
	for _, c := range checkers {
		if c == nil {
			continue
		}
		results = append(results, c.ListChecks(ctx)...)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	overall := StatusOK
	for _, r := range results {
		switch r.Status {
		case StatusError:
			overall = StatusError
		case StatusWarn:
			if overall == StatusOK {
				overall = StatusWarn
			}
		}
	}
	return results, overall
}
