// Package health implements liveness and readiness probes in the Kubernetes
// style. Every probe runs on its own ticker; consecutive failure and success
// thresholds keep a flaky dependency from flapping the reported state.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 1
)

// probe is one registered check plus its runtime state. exec runs from a
// single goroutine, so the consecutive counters need no locking; state and
// lastErr are read by HTTP handlers and use atomics.
type probe struct {
	name    string
	timeout time.Duration
	check   CheckFunc

	state   atomic.Bool
	lastErr atomic.Pointer[error]

	fails     int
	successes int
}

func newProbe(name string, timeout time.Duration, check CheckFunc) *probe {
	p := &probe{name: name, timeout: timeout, check: check}
	p.state.Store(true)
	return p
}

func (p *probe) healthy() bool { return p.state.Load() }

func (p *probe) err() error {
	if e := p.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

func (p *probe) exec(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(ctx)
	p.lastErr.Store(&err)

	if err != nil {
		p.successes = 0
		if p.fails++; p.fails >= defaultFailureThreshold {
			p.state.Store(false)
		}
		return
	}
	p.fails = 0
	if p.successes++; p.successes >= defaultSuccessThreshold {
		p.state.Store(true)
	}
}

// Service tracks liveness and readiness probes for one process.
type Service struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// New returns a Service in the not-ready state. Call SetReady(true) once
// startup has finished.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a probe answering "is this process functional",
// such as a goroutine count or GC pause check.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, newProbe(name, timeout, check))
}

// AddReadinessCheck registers a probe answering "can this process serve
// traffic", such as database or cache connectivity.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, newProbe(name, timeout, check))
}

// Start launches one goroutine per registered probe, each firing at the given
// interval until the context is cancelled or Stop is called. Register all
// probes before calling Start.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	probes := make([]*probe, 0, len(s.liveness)+len(s.readiness))
	probes = append(probes, s.liveness...)
	probes = append(probes, s.readiness...)
	s.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			p.exec(ctx)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.exec(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels the probe goroutines. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Set false during graceful
// shutdown so load balancers stop routing new traffic.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness probe
// is passing.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}

	s.mu.RLock()
	probes := s.readiness
	s.mu.RUnlock()

	for _, p := range probes {
		if !p.healthy() {
			return false
		}
	}
	return true
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 when every liveness probe passes, 503 with
// the failing probes otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := make([]*probe, len(s.liveness))
	copy(probes, s.liveness)
	s.mu.RUnlock()

	writeStatus(w, failures(probes))
}

// ReadyEndpoint serves /readyz: 200 when the manual gate is open and every
// readiness probe passes, 503 with details otherwise.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	ready := s.ready.Load()

	s.mu.RLock()
	probes := make([]*probe, len(s.readiness))
	copy(probes, s.readiness)
	s.mu.RUnlock()

	f := failures(probes)
	if !ready {
		f["_readiness"] = "service is not ready"
	}
	writeStatus(w, f)
}

func failures(probes []*probe) map[string]string {
	f := make(map[string]string)
	for _, p := range probes {
		if p.healthy() {
			continue
		}
		if err := p.err(); err != nil {
			f[p.name] = err.Error()
		} else {
			f[p.name] = "check is unhealthy"
		}
	}
	return f
}

func writeStatus(w http.ResponseWriter, f map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(f) > 0 {
		resp = statusResponse{Status: "unhealthy", Checks: f}
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
