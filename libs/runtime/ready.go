package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name     string
	Check    func(context.Context) error
	Optional bool
}

type readyReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func NewBaseMuxWithReady(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		report, ok := runChecks(r.Context(), checks)
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(report)
	})
	return mux
}

// runChecks evaluates checks concurrently. Optional checks are reported but
// never fail readiness.
func runChecks(ctx context.Context, checks []ReadyCheck) (readyReport, bool) {
	report := readyReport{Status: "ok", Checks: map[string]string{}}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
		ok = true
	)
	for _, check := range checks {
		if check.Check == nil {
			continue
		}
		name := check.Name
		if name == "" {
			name = "dependency"
		}
		wg.Add(1)
		go func(c ReadyCheck, name string) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := c.Check(checkCtx)
			cancel()

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				report.Checks[name] = "ok"
				return
			}
			report.Checks[name] = err.Error()
			if !c.Optional {
				ok = false
			}
		}(check, name)
	}
	wg.Wait()
	if !ok {
		report.Status = "unavailable"
	}
	return report, ok
}
