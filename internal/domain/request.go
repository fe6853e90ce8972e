// Package domain models the domain executor the materialization planner
// dispatches messages to: the layer that actually moves replay traffic and
// flips nodes ready, as opposed to deciding what should happen. The
// planner treats it as an external collaborator; this package provides
// just enough of a reference implementation to drive and test the planner
// end to end.
package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/willibrandon/materializer/internal/dataflow"
)

// RequestKind tags the closed set of messages a domain can receive from a
// migration.
type RequestKind int

const (
	// Ready tells a domain that a node has finished being set up and
	// should start processing, optionally beyond the materialization
	// frontier, indexed by the given set.
	Ready RequestKind = iota
	// IsReady asks a domain to confirm a node has finished a prior Ready
	// or replay interaction before any dependent request proceeds.
	IsReady
	// StartReplay asks the domain owning the source node to begin
	// streaming its state along a tagged replay path.
	StartReplay
	// QueryReplayDone asks the target domain to wait for a tagged replay
	// into a node to finish before returning.
	QueryReplayDone
)

func (k RequestKind) String() string {
	switch k {
	case Ready:
		return "Ready"
	case IsReady:
		return "IsReady"
	case StartReplay:
		return "StartReplay"
	case QueryReplayDone:
		return "QueryReplayDone"
	default:
		return "Unknown"
	}
}

// Request is a single message destined for one domain's ordered queue.
// Only the fields relevant to Kind are populated; the rest are zero.
type Request struct {
	Kind RequestKind

	// Ready
	Node  dataflow.LocalNodeIndex
	Purge bool
	Index dataflow.LookupSet

	// IsReady / QueryReplayDone share Node above.

	// StartReplay
	Tag             uint32
	From            dataflow.LocalNodeIndex
	Replicas        *int
	TargetingDomain dataflow.DomainIndex
}

func (r Request) String() string {
	switch r.Kind {
	case Ready:
		return fmt.Sprintf("Ready{node=%d purge=%v indexes=%d}", r.Node, r.Purge, len(r.Index))
	case IsReady:
		return fmt.Sprintf("IsReady{node=%d}", r.Node)
	case StartReplay:
		return fmt.Sprintf("StartReplay{tag=%d from=%d -> domain=%d}", r.Tag, r.From, r.TargetingDomain)
	case QueryReplayDone:
		return fmt.Sprintf("QueryReplayDone{node=%d}", r.Node)
	default:
		return "Request{?}"
	}
}

// MigrationPlan accumulates the ordered, per-domain message queues a
// single migration produces. Messages within one domain's queue must be
// applied in the order they were appended; there is no ordering guarantee
// across domains.
type MigrationPlan struct {
	id       uuid.UUID
	recovery bool
	queues   map[dataflow.DomainIndex][]Request
	order    []dataflow.DomainIndex
}

// NewMigrationPlan starts a fresh plan. recovery marks this plan as
// rebuilding state after a restart and is reported by IsRecovery; the
// planner does not read it (Extend takes its own recovery argument).
func NewMigrationPlan(recovery bool) *MigrationPlan {
	return &MigrationPlan{
		id:       uuid.New(),
		recovery: recovery,
		queues:   make(map[dataflow.DomainIndex][]Request),
	}
}

// ID returns the migration's identifier.
func (p *MigrationPlan) ID() uuid.UUID { return p.id }

// IsRecovery reports whether this plan is rebuilding state after a
// restart.
func (p *MigrationPlan) IsRecovery() bool { return p.recovery }

// AddMessage appends req to d's queue, preserving emission order.
func (p *MigrationPlan) AddMessage(d dataflow.DomainIndex, req Request) {
	if _, ok := p.queues[d]; !ok {
		p.order = append(p.order, d)
	}
	p.queues[d] = append(p.queues[d], req)
}

// Domains returns every domain with at least one queued message, in the
// order each first received one.
func (p *MigrationPlan) Domains() []dataflow.DomainIndex {
	return append([]dataflow.DomainIndex(nil), p.order...)
}

// Messages returns d's queue in emission order.
func (p *MigrationPlan) Messages(d dataflow.DomainIndex) []Request {
	return p.queues[d]
}
