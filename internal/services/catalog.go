package services

import (
	"sort"

	"bilancio/internal/core"
)

// Catalog is the normalized view over a user's commitment set. It is a pure
// function of commitment state and period: no side effects, inactive
// commitments excluded, deterministic output order.
type Catalog struct {
	commitments []core.Commitment
}

func NewCatalog(commitments []core.Commitment) *Catalog {
	return &Catalog{commitments: commitments}
}

// OccurrencesFor returns every commitment occurrence expected in the period,
// sorted by name then commitment ID so repeated calls agree byte for byte.
func (c *Catalog) OccurrencesFor(p core.Period) []core.CommitmentOccurrence {
	var out []core.CommitmentOccurrence
	for _, commitment := range c.commitments {
		if occ, ok := commitment.OccurrenceIn(p); ok {
			out = append(out, occ)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CommitmentID < out[j].CommitmentID
	})
	return out
}

// Find returns the commitment with the given ID, or ErrNotFound.
func (c *Catalog) Find(commitmentID string) (core.Commitment, error) {
	for _, commitment := range c.commitments {
		if commitment.CommitmentID() == commitmentID {
			return commitment, nil
		}
	}
	return nil, ErrNotFound
}

// FindOccurrence resolves an occurrence ID ("<commitment>:<YYYY-MM>") to the
// concrete occurrence. ErrNotFound when the commitment is unknown or does not
// occur in the encoded period.
func (c *Catalog) FindOccurrence(occurrenceID string) (core.CommitmentOccurrence, error) {
	commitmentID, period, err := core.ParseOccurrenceID(occurrenceID)
	if err != nil {
		return core.CommitmentOccurrence{}, err
	}
	commitment, err := c.Find(commitmentID)
	if err != nil {
		return core.CommitmentOccurrence{}, err
	}
	occ, ok := commitment.OccurrenceIn(period)
	if !ok {
		return core.CommitmentOccurrence{}, ErrNotFound
	}
	return occ, nil
}

// ObligationSummaries reports the payoff state of every active installment
// plan, for dashboard consumption.
func (c *Catalog) ObligationSummaries() []core.ObligationSummary {
	var out []core.ObligationSummary
	for _, commitment := range c.commitments {
		obligation, ok := commitment.(core.InstallmentObligation)
		if !ok || !obligation.Active {
			continue
		}
		out = append(out, core.ObligationSummary{
			CommitmentID:          obligation.ID,
			Name:                  obligation.Name,
			PaidInstallments:      obligation.PaidInstallments,
			TotalInstallments:     obligation.TotalInstallments,
			RemainingInstallments: obligation.RemainingInstallments(),
			Outstanding:           obligation.OutstandingAmount(),
			TotalPayable:          obligation.TotalPayable(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
