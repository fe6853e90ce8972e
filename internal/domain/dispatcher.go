package domain

import (
	"sync"

	"github.com/willibrandon/materializer/internal/dataflow"
)

// Dispatcher sends a domain request and waits for it to be applied. The
// planner never implements this itself — it only builds a MigrationPlan —
// so real deployments wire a Dispatcher backed by whatever transport moves
// messages to domain workers.
type Dispatcher interface {
	Dispatch(d dataflow.DomainIndex, req Request) error
}

// MemoryDispatcher is an in-memory reference Dispatcher used by tests and
// by the CLI's dry-run mode. It records every dispatched request and
// tracks which (domain, node) pairs have been told Ready or IsReady, so
// tests can assert on ordering without a real domain runtime.
//
// Guarded by a mutex purely for test and CLI concurrent-dry-run safety;
// the planner itself never calls Dispatch from more than one goroutine.
type MemoryDispatcher struct {
	mu       sync.Mutex
	log      []dispatched
	readyAt  map[dataflow.DomainIndex]map[dataflow.LocalNodeIndex]struct{}
}

type dispatched struct {
	Domain dataflow.DomainIndex
	Req    Request
}

// NewMemoryDispatcher creates an empty MemoryDispatcher.
func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{
		readyAt: make(map[dataflow.DomainIndex]map[dataflow.LocalNodeIndex]struct{}),
	}
}

// Dispatch records req against d and marks its node ready if req is a
// Ready or IsReady confirmation.
func (m *MemoryDispatcher) Dispatch(d dataflow.DomainIndex, req Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log = append(m.log, dispatched{Domain: d, Req: req})

	if req.Kind == Ready || req.Kind == IsReady {
		if m.readyAt[d] == nil {
			m.readyAt[d] = make(map[dataflow.LocalNodeIndex]struct{})
		}
		m.readyAt[d][req.Node] = struct{}{}
	}
	return nil
}

// IsReady reports whether node in domain d has been told Ready or IsReady
// by a previous Dispatch call.
func (m *MemoryDispatcher) IsReady(d dataflow.DomainIndex, node dataflow.LocalNodeIndex) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.readyAt[d][node]
	return ok
}

// Log returns every request dispatched so far, in dispatch order.
func (m *MemoryDispatcher) Log() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.log))
	for i, d := range m.log {
		out[i] = d.Req
	}
	return out
}

// Run dispatches every message in plan, domain by domain, in emission
// order. This is what a real migration driver does after the planner
// returns; it is exposed here so tests and the CLI's dry-run mode can
// exercise a full commit without a live domain runtime.
func Run(dispatcher Dispatcher, plan *MigrationPlan) error {
	for _, d := range plan.Domains() {
		for _, req := range plan.Messages(d) {
			if err := dispatcher.Dispatch(d, req); err != nil {
				return err
			}
		}
	}
	return nil
}
