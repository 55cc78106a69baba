package services

import (
	"time"

	"bilancio/internal/core"
)

// LinkIndex answers whether an occurrence has a confirmed reconciliation.
type LinkIndex interface {
	IsLinked(occurrenceID string) bool
}

// LinkSet is a LinkIndex over an in-memory set of occurrence IDs.
type LinkSet map[string]struct{}

func (s LinkSet) IsLinked(occurrenceID string) bool {
	_, ok := s[occurrenceID]
	return ok
}

// NewLinkSet indexes reconciled events by occurrence ID.
func NewLinkSet(events []core.ReconciledEvent) LinkSet {
	set := make(LinkSet, len(events))
	for _, ev := range events {
		set[ev.OccurrenceID] = struct{}{}
	}
	return set
}

// StatusResolver decides the per-period status of a commitment. It is the
// single source of truth: no other component re-derives status, so views
// cannot drift apart.
type StatusResolver struct {
	links LinkIndex
	now   func() time.Time
}

func NewStatusResolver(links LinkIndex, now func() time.Time) *StatusResolver {
	if now == nil {
		now = time.Now
	}
	return &StatusResolver{links: links, now: now}
}

// StatusFor resolves, in order of precedence:
//  1. a manual override for (commitment, period), returned verbatim
//  2. not-applicable when the commitment has no occurrence in the period
//  3. paid when a reconciled event links the occurrence to a transaction
//  4. late when the period is strictly before the current one and unlinked
//  5. pending otherwise
func (r *StatusResolver) StatusFor(commitment core.Commitment, p core.Period) core.PeriodStatus {
	if status, ok := commitment.ManualStatus(p); ok {
		return status
	}
	occ, ok := commitment.OccurrenceIn(p)
	if !ok {
		return core.StatusNotApplicable
	}
	if r.links != nil && r.links.IsLinked(occ.OccurrenceID) {
		return core.StatusPaid
	}
	if p.Before(core.PeriodOf(r.now())) {
		return core.StatusLate
	}
	return core.StatusPending
}
