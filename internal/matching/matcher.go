package matching

import (
	"bytes"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/document"
	enc "github.com/MrJamesThe3rd/conciliador/internal/encoding"
	"github.com/MrJamesThe3rd/conciliador/internal/rut"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

// Reason tags explain which signals contributed to a candidate's score.
type Reason string

const (
	ReasonExactAmount   Reason = "exact_amount"
	ReasonNearAmount    Reason = "near_amount"
	ReasonSameDay       Reason = "same_day"
	ReasonDateProximity Reason = "date_proximity"
	ReasonSameIssuer    Reason = "same_issuer"
	ReasonSimilarName   Reason = "similar_name"
	ReasonTypePlausible Reason = "type_plausible"
	ReasonTypeMismatch  Reason = "type_mismatch"
)

// Candidate is a document proposed as the counterpart of a bank movement.
type Candidate struct {
	DocumentID uuid.UUID
	Score      float64
	Reasons    []Reason
	AmountDiff int64 // absolute, minor units
	DayDiff    int   // document date minus movement date
}

func (c Candidate) Has(r Reason) bool {
	return slices.Contains(c.Reasons, r)
}

// Matcher scores documents against movements. It holds no state besides its configuration.
type Matcher struct {
	cfg Config
}

func NewMatcher(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Match ranks docs against tx. Candidates under MinScore are left out; malformed documents are
// reported and skipped. The order is total: score desc, amount diff asc, day distance asc, document ID.
func (m *Matcher) Match(tx *transaction.Transaction, docs []*document.Document) ([]Candidate, []*DocumentError) {
	var (
		out  []Candidate
		errs []*DocumentError
	)

	txRUTs := rut.Find(tx.Description)

	desc := tx.NormalizedDescription
	if desc == "" {
		desc = enc.Fold(tx.Description)
	}

	for _, doc := range docs {
		if err := doc.Validate(); err != nil {
			errs = append(errs, &DocumentError{DocumentID: doc.ID, Err: err})
			continue
		}

		c := m.score(tx, desc, txRUTs, doc)
		if c.Score < m.cfg.MinScore || c.Score <= 0 {
			continue
		}

		out = append(out, c)
	}

	slices.SortFunc(out, compareCandidates)

	return out, errs
}

func compareCandidates(a, b Candidate) int {
	switch {
	case a.Score != b.Score:
		if a.Score > b.Score {
			return -1
		}

		return 1
	case a.AmountDiff != b.AmountDiff:
		return cmpInt64(a.AmountDiff, b.AmountDiff)
	case absInt(a.DayDiff) != absInt(b.DayDiff):
		return absInt(a.DayDiff) - absInt(b.DayDiff)
	}

	return bytes.Compare(a.DocumentID[:], b.DocumentID[:])
}

func (m *Matcher) score(tx *transaction.Transaction, desc string, txRUTs []string, doc *document.Document) Candidate {
	w := m.cfg.Weights

	c := Candidate{
		DocumentID: doc.ID,
		AmountDiff: absInt64(tx.AbsAmount() - doc.Total),
		DayDiff:    dayDiff(tx, doc),
	}

	score := 0.0

	if sameCurrency(tx.Currency, doc.Currency) {
		switch {
		case c.AmountDiff == 0:
			score += w.Amount
			c.Reasons = append(c.Reasons, ReasonExactAmount)
		case c.AmountDiff <= m.cfg.AmountTolerance:
			near := w.Amount * (1 - float64(c.AmountDiff)/float64(m.cfg.AmountTolerance))
			score += max(near, w.Amount/2)
			c.Reasons = append(c.Reasons, ReasonNearAmount)
		}
	}

	if days := absInt(c.DayDiff); days <= m.cfg.DateWindowDays {
		switch {
		case days == 0:
			score += w.Date
			c.Reasons = append(c.Reasons, ReasonSameDay)
		case days < m.cfg.DateWindowDays:
			score += w.Date * (1 - float64(days)/float64(m.cfg.DateWindowDays))
			c.Reasons = append(c.Reasons, ReasonDateProximity)
		}
	}

	if issuer, err := rut.Normalize(doc.IssuerRUT); err == nil && slices.Contains(txRUTs, issuer) {
		score += w.Issuer
		c.Reasons = append(c.Reasons, ReasonSameIssuer)
	}

	if sim := nameSimilarity(desc, enc.Fold(doc.IssuerName)); sim >= m.cfg.NameSimilarity {
		score += w.Name * sim
		c.Reasons = append(c.Reasons, ReasonSimilarName)
	}

	if plausible(tx.Direction(), doc.Type) {
		c.Reasons = append(c.Reasons, ReasonTypePlausible)
	} else {
		score = min(score, m.cfg.PlausibleCap)
		c.Reasons = append(c.Reasons, ReasonTypeMismatch)
	}

	c.Score = min(score, 1)

	return c
}

// plausible reports whether a document of type t can explain a movement in direction d.
// Payments out settle purchases; money in comes back through credit notes.
func plausible(d transaction.Direction, t document.Type) bool {
	if d == transaction.DirectionCargo {
		return t != document.TypeNotaCredito
	}

	return t == document.TypeNotaCredito
}

func sameCurrency(a, b string) bool {
	if a == "" {
		a = "CLP"
	}

	if b == "" {
		b = "CLP"
	}

	return strings.EqualFold(a, b)
}

func dayDiff(tx *transaction.Transaction, doc *document.Document) int {
	txDay := tx.Date.UTC().Truncate(24 * time.Hour)
	docDay := doc.EmissionDate.UTC().Truncate(24 * time.Hour)

	return int(docDay.Sub(txDay).Hours() / 24)
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}

	return n
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}

	return n
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}

	return 0
}
