package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/conciliador/internal/logger"
	"github.com/MrJamesThe3rd/conciliador/internal/normalize"
	"github.com/MrJamesThe3rd/conciliador/internal/statement"
)

type record struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Normalized  string `json:"normalized"`
	Amount      int64  `json:"amount"`
	Display     string `json:"display"`
	DedupKey    string `json:"dedup_key"`
}

type output struct {
	Bank           statement.Bank `json:"bank"`
	Records        []record       `json:"records"`
	Skipped        []string       `json:"skipped,omitempty"`
	Duplicates     int            `json:"duplicates"`
	OpeningBalance *int64         `json:"opening_balance,omitempty"`
	ClosingBalance *int64         `json:"closing_balance,omitempty"`
	MovementsTotal int64          `json:"movements_total"`
	// BalanceGap is closing - opening - movements when both balances are printed on the statement.
	BalanceGap *int64 `json:"balance_gap,omitempty"`
}

func main() {
	var (
		bank     string
		filePath string
		currency string
	)

	banks := make([]string, 0, len(statement.Banks()))
	for _, b := range statement.Banks() {
		banks = append(banks, string(b))
	}

	flag.StringVar(&bank, "bank", "", "statement format: "+strings.Join(banks, ", ")+" (required)")
	flag.StringVar(&filePath, "file", "", "path to the statement file (required)")
	flag.StringVar(&currency, "currency", "CLP", "account currency")
	flag.Parse()

	log := logger.New(os.Getenv("LOG_LEVEL"))

	if bank == "" || filePath == "" {
		log.Fatal().Msg("usage: parse-statement -bank BANK -file /path/to/cartola [-currency CLP]")
	}

	opts := normalize.Options{Bank: statement.Bank(bank), Currency: currency}
	if !opts.Bank.Valid() {
		log.Fatal().Str("bank", bank).Msg("unknown bank")
	}

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open statement")
	}
	defer f.Close()

	parsed, err := normalize.ParseFile(opts, f)
	if err != nil {
		log.Fatal().Err(err).Str("file", filePath).Msg("failed to parse statement")
	}

	out := output{
		Bank:           opts.Bank,
		Records:        make([]record, len(parsed.Records)),
		Duplicates:     parsed.Duplicates,
		OpeningBalance: parsed.OpeningBalance,
		ClosingBalance: parsed.ClosingBalance,
		MovementsTotal: parsed.MovementsTotal,
	}

	for i, rec := range parsed.Records {
		out.Records[i] = record{
			Date:        rec.Date.Format(time.DateOnly),
			Description: rec.Description,
			Normalized:  rec.NormalizedDescription,
			Amount:      rec.Amount,
			Display:     normalize.Display(rec.Amount, rec.Currency),
			DedupKey:    rec.DedupKey,
		}
	}

	for _, skipped := range parsed.Skipped {
		out.Skipped = append(out.Skipped, skipped.Error())
	}

	if parsed.OpeningBalance != nil && parsed.ClosingBalance != nil {
		gap := *parsed.ClosingBalance - *parsed.OpeningBalance - parsed.MovementsTotal
		out.BalanceGap = &gap
	}

	log.Info().
		Int("records", len(out.Records)).
		Int("skipped", len(out.Skipped)).
		Int("duplicates", out.Duplicates).
		Msg("statement parsed")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write output: %v\n", err)
		os.Exit(1)
	}
}
