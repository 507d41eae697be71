package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Stats summarizes the amounts of one ledger sequence.
type Stats struct {
	Count int
	Total Money
	Mean  decimal.Decimal // in major units, not rounded
}

// ExpenseStats adds the range of expense amounts.
type ExpenseStats struct {
	Stats
	Max Money
	Min Money
}

// MeanMoney rounds the mean half-up to whole cents.
func (s Stats) MeanMoney() Money {
	return Money{Cents: s.Mean.Shift(2).Round(0).IntPart()}
}

// Share returns the percentage of total represented by part, rounded to one decimal.
func Share(part, total Money) decimal.Decimal {
	if total.Cents == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part.Cents).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total.Cents)).
		Round(1)
}
