package statement

// amountMode determines how amounts are extracted from a row.
type amountMode int

const (
	// amountSingle means one signed column (e.g. "Monto" with value "-10.000").
	amountSingle amountMode = iota
	// amountSplit means separate debit and credit columns (e.g. "Cargos"/"Abonos").
	amountSplit
)

// Profile describes the column layout of a CSV export. Column names are compared folded
// (lower-case, no accents), so "Descripción" and "DESCRIPCION" are the same column.
type Profile struct {
	Name       string
	Bank       Bank
	Comma      rune // 0 sniffs the delimiter from the content
	DateCol    string
	DescCol    string
	AmountMode amountMode
	AmountCol  string // used when AmountMode == amountSingle
	DebitCol   string // used when AmountMode == amountSplit
	CreditCol  string // used when AmountMode == amountSplit
	BalanceCol string // optional
}

func (p Profile) requiredCols() []string {
	cols := []string{p.DateCol, p.DescCol}

	switch p.AmountMode {
	case amountSingle:
		cols = append(cols, p.AmountCol)
	case amountSplit:
		cols = append(cols, p.DebitCol, p.CreditCol)
	}

	return cols
}

// profiles is the ordered list of CSV formats tried during header detection.
// More specific profiles come first to avoid false matches.
var profiles = []Profile{
	{
		Name:       "cuentarut",
		Bank:       BankEstado,
		Comma:      ';',
		DateCol:    "fecha",
		DescCol:    "detalle",
		AmountMode: amountSplit,
		DebitCol:   "cargos",
		CreditCol:  "abonos",
		BalanceCol: "saldo",
	},
	{
		Name:       "cuenta",
		Bank:       BankEstado,
		Comma:      ';',
		DateCol:    "fecha",
		DescCol:    "descripcion",
		AmountMode: amountSingle,
		AmountCol:  "monto",
		BalanceCol: "saldo",
	},
	{
		Name:       "cartola",
		Bank:       BankChile,
		Comma:      ',',
		DateCol:    "fecha",
		DescCol:    "descripcion",
		AmountMode: amountSplit,
		DebitCol:   "cargo",
		CreditCol:  "abono",
		BalanceCol: "saldo",
	},
	{
		Name:       "generic",
		Bank:       BankGeneric,
		DateCol:    "fecha",
		DescCol:    "descripcion",
		AmountMode: amountSingle,
		AmountCol:  "monto",
		BalanceCol: "saldo",
	},
}

func profilesFor(bank Bank) []Profile {
	var out []Profile

	for _, p := range profiles {
		if p.Bank == bank {
			out = append(out, p)
		}
	}

	return out
}
