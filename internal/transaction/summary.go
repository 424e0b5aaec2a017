package transaction

import (
	"context"
	"fmt"
)

// Summary aggregates reconciliation progress over a set of transactions.
type Summary struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Manual    int `json:"manual"`
	Partial   int `json:"partial"`
	Unmatched int `json:"unmatched"`
	Pending   int `json:"pending"`

	TotalAmount      int64 `json:"total_amount"`
	ReconciledAmount int64 `json:"reconciled_amount"`
	PendingAmount    int64 `json:"pending_amount"`

	// Rate is the percentage of transactions linked to a document.
	Rate float64 `json:"rate"`
}

func Summarize(txs []*Transaction) Summary {
	var s Summary

	for _, tx := range txs {
		if tx.SupersededBy != nil {
			continue
		}

		s.Total++
		s.TotalAmount += tx.AbsAmount()

		switch tx.Status {
		case StatusMatched:
			s.Matched++
		case StatusManual:
			s.Manual++
		case StatusPartial:
			s.Partial++
		case StatusUnmatched:
			s.Unmatched++
		case StatusPending:
			s.Pending++
		}

		if tx.Status.Linked() {
			s.ReconciledAmount += tx.AbsAmount()
		} else {
			s.PendingAmount += tx.AbsAmount()
		}
	}

	if s.Total > 0 {
		s.Rate = float64(s.Matched+s.Manual) * 100 / float64(s.Total)
	}

	return s
}

func (s *Service) Summary(ctx context.Context, filter ListFilter) (Summary, error) {
	txs, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return Summary{}, fmt.Errorf("listing transactions: %w", err)
	}

	return Summarize(txs), nil
}
