// Request parsing helpers shared by the API handlers: user resolution,
// period query parameters and JSON bodies.

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

const userHeader = "X-User-ID"

// the request body is bounded; the API carries small JSON documents only
const maxBodyBytes = 1 << 16

// userID resolves the acting user from the X-User-ID header, falling back to
// the server's default.
func (s *Server) userID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(userHeader)); v != "" {
		return v
	}
	return s.defaultUserID
}

// parsePeriodParam reads a "YYYY-MM" query parameter, defaulting to the
// current period when absent.
func parsePeriodParam(query url.Values, name string) (core.Period, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return core.PeriodOf(time.Now()), nil
	}
	p, err := core.ParsePeriodKey(v)
	if err != nil {
		return core.Period{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return p, nil
}

// parseCountParam reads a positive integer query parameter with a default.
func parseCountParam(query url.Values, name string, fallback int) (int, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s: %q", name, v)
	}
	return n, nil
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// balanceRequest is the payload for PUT /api/budget/balance. Amount is a
// decimal string ("1234.56"); negative balances are legal, unlike commitment
// amounts, so parsing happens here rather than through core.ParseAmount.
type balanceRequest struct {
	Period string `json:"period"`
	Amount string `json:"amount"`
}

func (b balanceRequest) parse() (core.Period, core.Money, error) {
	p, err := core.ParsePeriodKey(strings.TrimSpace(b.Period))
	if err != nil {
		return core.Period{}, core.Money{}, err
	}
	raw := strings.ReplaceAll(strings.TrimSpace(b.Amount), ",", ".")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return core.Period{}, core.Money{}, fmt.Errorf("invalid amount %q", b.Amount)
	}
	return p, core.Money{Cents: d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()}, nil
}

// commitmentRequest is the payload for POST /api/commitments. One request
// shape covers all three kinds; parse maps it onto the concrete type. A
// missing ID means create, a present one means replace.
type commitmentRequest struct {
	Kind              string            `json:"kind"`
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Category          string            `json:"category"`
	Amount            string            `json:"amount"`
	Active            *bool             `json:"active"`
	StartDate         string            `json:"start_date"`
	TotalInstallments int               `json:"total_installments"`
	PaidInstallments  int               `json:"paid_installments"`
	InterestRate      string            `json:"interest_rate"`
	ReceiptDay        int               `json:"receipt_day"`
	Overrides         map[string]string `json:"overrides"`
}

func (c commitmentRequest) parse() (core.Commitment, error) {
	id := strings.TrimSpace(c.ID)
	if id == "" {
		id = uuid.NewString()
	}
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return nil, err
	}
	active := true
	if c.Active != nil {
		active = *c.Active
	}
	overrides, err := c.parseOverrides()
	if err != nil {
		return nil, err
	}

	switch core.CommitmentKind(strings.TrimSpace(c.Kind)) {
	case core.KindFixedExpense:
		start, err := c.parseStartDate()
		if err != nil {
			return nil, err
		}
		out := core.FixedExpense{
			ID:            id,
			Name:          c.Name,
			Category:      c.Category,
			MonthlyAmount: amount,
			Active:        active,
			StartDate:     start,
			Overrides:     overrides,
		}
		return out, out.Validate()
	case core.KindInstallment:
		start, err := c.parseStartDate()
		if err != nil {
			return nil, err
		}
		rate := decimal.Zero
		if v := strings.TrimSpace(c.InterestRate); v != "" {
			rate, err = decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("invalid interest_rate %q", c.InterestRate)
			}
		}
		out := core.InstallmentObligation{
			ID:                   id,
			Name:                 c.Name,
			Category:             c.Category,
			InstallmentAmount:    amount,
			TotalInstallments:    c.TotalInstallments,
			PaidInstallments:     c.PaidInstallments,
			FirstInstallmentDate: start,
			Active:               active,
			InterestRatePerMonth: rate,
			Overrides:            overrides,
		}
		return out, out.Validate()
	case core.KindIncome:
		out := core.IncomeSource{
			ID:         id,
			Label:      c.Name,
			Amount:     amount,
			Active:     active,
			ReceiptDay: c.ReceiptDay,
			Overrides:  overrides,
		}
		return out, out.Validate()
	default:
		return nil, fmt.Errorf("unknown kind %q", c.Kind)
	}
}

func (c commitmentRequest) parseStartDate() (time.Time, error) {
	v := strings.TrimSpace(c.StartDate)
	if v == "" {
		return time.Time{}, fmt.Errorf("missing start_date")
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start_date %q", c.StartDate)
	}
	return t, nil
}

func (c commitmentRequest) parseOverrides() (core.StatusOverrides, error) {
	if len(c.Overrides) == 0 {
		return nil, nil
	}
	out := make(core.StatusOverrides, len(c.Overrides))
	for key, status := range c.Overrides {
		if _, err := core.ParsePeriodKey(key); err != nil {
			return nil, fmt.Errorf("invalid override period %q: %w", key, err)
		}
		s := core.PeriodStatus(status)
		if !s.Valid() {
			return nil, fmt.Errorf("invalid override status %q", status)
		}
		out[key] = s
	}
	return out, nil
}

// confirmRequest is the payload for POST /api/reconciliations.
type confirmRequest struct {
	OccurrenceID  string `json:"occurrence_id"`
	TransactionID string `json:"transaction_id"`
	Note          string `json:"note"`
}

func (c confirmRequest) validate() error {
	if strings.TrimSpace(c.OccurrenceID) == "" {
		return fmt.Errorf("missing occurrence_id")
	}
	if strings.TrimSpace(c.TransactionID) == "" {
		return fmt.Errorf("missing transaction_id")
	}
	return nil
}
