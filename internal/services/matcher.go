package services

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"bilancio/internal/core"
)

// MatcherConfig tunes the reconciliation scoring. The weights are a policy,
// not a contract: they produce a bounded 0-100, ranked, explainable shortlist
// for human confirmation, never an automatic link.
type MatcherConfig struct {
	// WindowDays restricts candidates to transactions dated within ±WindowDays
	// of the occurrence's expected date.
	WindowDays int

	// MaxSuggestions caps the ranked shortlist.
	MaxSuggestions int

	// BaseScore is the starting confidence before penalties and rewards.
	BaseScore float64

	// DatePenaltyPerDay and DatePenaltyCap shape the date distance term.
	DatePenaltyPerDay float64
	DatePenaltyCap    float64

	// AmountPenaltyScale and AmountPenaltyCap shape the proportional value
	// mismatch term.
	AmountPenaltyScale float64
	AmountPenaltyCap   float64

	// TextReward scales the token overlap ratio between transaction text and
	// the occurrence's name and category.
	TextReward float64
}

// DefaultMatcherConfig returns the stock scoring policy.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		WindowDays:         10,
		MaxSuggestions:     3,
		BaseScore:          60,
		DatePenaltyPerDay:  3,
		DatePenaltyCap:     30,
		AmountPenaltyScale: 200,
		AmountPenaltyCap:   30,
		TextReward:         20,
	}
}

// Suggestion is one ranked candidate for reconciling an occurrence.
type Suggestion struct {
	TransactionID string
	Confidence    int // 0-100
	Reason        string
}

// Matcher scores actual transaction records against expected commitment
// occurrences. It is pure: persistence of confirmed links happens elsewhere.
type Matcher struct {
	cfg MatcherConfig
}

func NewMatcher(cfg MatcherConfig) *Matcher {
	def := DefaultMatcherConfig()
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = def.WindowDays
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = def.MaxSuggestions
	}
	if cfg.BaseScore == 0 {
		cfg.BaseScore = def.BaseScore
	}
	if cfg.DatePenaltyPerDay == 0 {
		cfg.DatePenaltyPerDay = def.DatePenaltyPerDay
	}
	if cfg.DatePenaltyCap == 0 {
		cfg.DatePenaltyCap = def.DatePenaltyCap
	}
	if cfg.AmountPenaltyScale == 0 {
		cfg.AmountPenaltyScale = def.AmountPenaltyScale
	}
	if cfg.AmountPenaltyCap == 0 {
		cfg.AmountPenaltyCap = def.AmountPenaltyCap
	}
	if cfg.TextReward == 0 {
		cfg.TextReward = def.TextReward
	}
	return &Matcher{cfg: cfg}
}

// Suggest ranks candidate transactions against the occurrence, descending by
// confidence, capped at the configured shortlist size. Transactions whose
// direction differs from the occurrence's, or dated outside the candidate
// window, are never considered.
func (m *Matcher) Suggest(occ core.CommitmentOccurrence, candidates []core.TransactionRecord) []Suggestion {
	var out []Suggestion
	for _, txn := range candidates {
		if txn.Direction != occ.Direction {
			continue
		}
		days := daysBetween(txn.Date, occ.ExpectedDate)
		if days > m.cfg.WindowDays {
			continue
		}
		confidence, reason := m.score(occ, txn, days)
		out = append(out, Suggestion{
			TransactionID: txn.ID,
			Confidence:    confidence,
			Reason:        reason,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > m.cfg.MaxSuggestions {
		out = out[:m.cfg.MaxSuggestions]
	}
	return out
}

// Score computes the confidence for a single pair without the candidate
// filter, used when recording a confirmation at the user's explicit request.
func (m *Matcher) Score(occ core.CommitmentOccurrence, txn core.TransactionRecord) int {
	confidence, _ := m.score(occ, txn, daysBetween(txn.Date, occ.ExpectedDate))
	return confidence
}

func (m *Matcher) score(occ core.CommitmentOccurrence, txn core.TransactionRecord, days int) (int, string) {
	score := m.cfg.BaseScore

	datePenalty := m.cfg.DatePenaltyPerDay * float64(days)
	if datePenalty > m.cfg.DatePenaltyCap {
		datePenalty = m.cfg.DatePenaltyCap
	}
	score -= datePenalty

	diff := txn.Amount.Sub(occ.Amount).Abs().Cents
	base := occ.Amount.Cents
	if base < 1 {
		base = 1
	}
	amountPenalty := m.cfg.AmountPenaltyScale * float64(diff) / float64(base)
	if amountPenalty > m.cfg.AmountPenaltyCap {
		amountPenalty = m.cfg.AmountPenaltyCap
	}
	score -= amountPenalty

	shared, ratio := tokenOverlap(txn.EstablishmentLabel+" "+txn.FreeText, occ.Name+" "+occ.Category)
	score += m.cfg.TextReward * ratio

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(score + 0.5), buildReason(days, diff, shared)
}

func buildReason(days int, amountDiffCents int64, shared []string) string {
	var parts []string
	switch days {
	case 0:
		parts = append(parts, "same day as expected")
	case 1:
		parts = append(parts, "1 day from expected date")
	default:
		parts = append(parts, fmt.Sprintf("%d days from expected date", days))
	}
	if amountDiffCents == 0 {
		parts = append(parts, "exact amount")
	} else {
		parts = append(parts, fmt.Sprintf("amount differs by %s", core.Money{Cents: amountDiffCents}))
	}
	if len(shared) > 0 {
		parts = append(parts, "shared words: "+strings.Join(shared, ", "))
	}
	return strings.Join(parts, "; ")
}

// daysBetween counts whole days between two dates, ignoring time of day.
func daysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(ad.Sub(bd).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// tokenOverlap extracts significant words (lowercased, punctuation stripped,
// at least 3 runes) from both texts and returns the shared ones plus the
// share of occurrence tokens found in the transaction text.
func tokenOverlap(transactionText, occurrenceText string) ([]string, float64) {
	txnTokens := tokenize(transactionText)
	occTokens := tokenize(occurrenceText)
	if len(occTokens) == 0 {
		return nil, 0
	}
	var shared []string
	for token := range occTokens {
		if _, ok := txnTokens[token]; ok {
			shared = append(shared, token)
		}
	}
	sort.Strings(shared)
	return shared, float64(len(shared)) / float64(len(occTokens))
}

func tokenize(text string) map[string]struct{} {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	tokens := make(map[string]struct{})
	for _, word := range strings.Fields(cleaned) {
		if len([]rune(word)) < 3 {
			continue
		}
		tokens[word] = struct{}{}
	}
	return tokens
}
