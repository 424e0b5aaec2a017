package matching

import "fmt"

// Weights are the score contributions of each signal. Their sum may exceed 1; scores are clamped.
type Weights struct {
	Amount float64
	Date   float64
	Issuer float64
	Name   float64
}

type Config struct {
	AmountTolerance int64 // absolute, minor units
	DateWindowDays  int
	MinScore        float64
	// ConfidentScore splits pending (worth confirming) from partial (weak) outcomes.
	ConfidentScore float64
	// PlausibleCap bounds the score of a pairing whose document type cannot explain the
	// movement's direction. It must stay below MinScore.
	PlausibleCap   float64
	NameSimilarity float64
	Weights        Weights
}

func DefaultConfig() Config {
	return Config{
		AmountTolerance: 100,
		DateWindowDays:  30,
		MinScore:        0.35,
		ConfidentScore:  0.7,
		PlausibleCap:    0.3,
		NameSimilarity:  0.6,
		Weights: Weights{
			Amount: 0.5,
			Date:   0.25,
			Issuer: 0.2,
			Name:   0.1,
		},
	}
}

// Validate checks that the thresholds are ordered and in range.
func (c Config) Validate() error {
	if c.AmountTolerance < 0 || c.DateWindowDays < 0 {
		return fmt.Errorf("negative tolerance %d or date window %d", c.AmountTolerance, c.DateWindowDays)
	}

	if c.MinScore <= 0 || c.MinScore > 1 {
		return fmt.Errorf("min score %v out of (0,1]", c.MinScore)
	}

	if c.ConfidentScore < c.MinScore || c.ConfidentScore > 1 {
		return fmt.Errorf("confident score %v must be between min score %v and 1", c.ConfidentScore, c.MinScore)
	}

	if c.PlausibleCap >= c.MinScore {
		return fmt.Errorf("plausible cap %v must stay below min score %v", c.PlausibleCap, c.MinScore)
	}

	return nil
}
