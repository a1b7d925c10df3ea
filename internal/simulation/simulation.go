// Package simulation projects portfolio growth under compound interest for a
// chosen risk profile, optionally deflated by inflation, and derives the
// headline comparison metrics against a fixed savings benchmark.
package simulation

import (
	"fmt"
	"math"

	"marketengine/internal/market"
)

// Profile selects the risk multiplier applied over the base market rate.
type Profile string

const (
	Conservative Profile = "CONSERVATIVE"
	Moderate     Profile = "MODERATE"
	Aggressive   Profile = "AGGRESSIVE"
)

// Fixed historical spreads over the reference rate per risk class. A modeling
// assumption, not a guarantee: real products carry term structure and credit
// risk this ignores.
var profileMultipliers = map[Profile]float64{
	Conservative: 0.90,
	Moderate:     1.10,
	Aggressive:   1.30,
}

// SavingsAnnualRate is the fixed benchmark: the guaranteed-return savings
// account yield, in % a.a.
const SavingsAnnualRate = 6.17

// Config describes one projection run. Immutable once handed to Run.
type Config struct {
	InitialAmount       float64 `json:"initialAmount"`
	MonthlyContribution float64 `json:"monthlyContribution"`
	Years               int     `json:"years"`
	Profile             Profile `json:"profile"`
	// TargetAmount > 0 triggers the goal solver.
	TargetAmount     float64 `json:"targetAmount,omitempty"`
	IncludeInflation bool    `json:"includeInflation"`
	// CompareWithSavings only gates rendering downstream; the benchmark
	// series is always computed.
	CompareWithSavings bool `json:"compareWithSavings"`
}

// Validate rejects configs the engine cannot give a meaningful answer for.
func (c Config) Validate() error {
	if c.InitialAmount < 0 {
		return fmt.Errorf("initialAmount must be non-negative")
	}
	if c.MonthlyContribution < 0 {
		return fmt.Errorf("monthlyContribution must be non-negative")
	}
	if c.Years < 0 || c.Years > 100 {
		return fmt.Errorf("years must be between 0 and 100")
	}
	if c.TargetAmount < 0 {
		return fmt.Errorf("targetAmount must be non-negative")
	}
	switch c.Profile {
	case Conservative, Moderate, Aggressive:
		return nil
	default:
		return fmt.Errorf("unknown profile %q", c.Profile)
	}
}

// Projection is one year of the simulated series.
type Projection struct {
	Year          int     `json:"year"`
	TotalValue    float64 `json:"totalValue"`
	TotalInvested float64 `json:"totalInvested"`
	NetProfit     float64 `json:"netProfit"`
	// InflationAdjustedValue duplicates TotalValue; it is vestigial and kept
	// for interface compatibility only.
	InflationAdjustedValue float64 `json:"inflationAdjustedValue"`
	SavingsValue           float64 `json:"savingsValue"`
}

// Metrics are the derived summary values for the final projection entry.
type Metrics struct {
	FinalAmount     float64 `json:"finalAmount"`
	TotalInvested   float64 `json:"totalInvested"`
	NetProfit       float64 `json:"netProfit"`
	VsSavings       float64 `json:"vsSavings"`
	RealReturn      float64 `json:"realReturn"`
	RequiredMonthly float64 `json:"requiredMonthly"`
	CDIEquivalence  float64 `json:"cdiEquivalence"`
}

// Result is the engine's public output for one run.
type Result struct {
	Projections []Projection `json:"projections"`
	Metrics     Metrics      `json:"performanceMetrics"`
	AnnualRate  float64      `json:"annualRate"`
}

// EffectiveAnnualRate scales the base market rate by the risk profile
// multiplier. Unknown profiles resolve to the conservative multiplier.
func EffectiveAnnualRate(baseRate float64, profile Profile) float64 {
	m, ok := profileMultipliers[profile]
	if !ok {
		m = profileMultipliers[Conservative]
	}
	return baseRate * m
}

// Project simulates month-by-month compounding and returns one entry per
// year, 0 through cfg.Years inclusive. Year 0 is the state immediately after
// the initial contribution, before any compounding.
//
// Each month the contribution is added first and then the balance grows, so
// a contribution earns interest in its own month. When inflation is enabled,
// after every month both accumulators are divided by
// (1+monthlyInflation)^(monthsElapsed) — the cumulative exponent re-deflates
// the whole balance each month. Downstream totals depend on that exact
// behavior, so it must not be "fixed" to single-month deflation.
func Project(cfg Config, annualRate, annualInflation float64) []Projection {
	monthlyRate := annualRate / 100 / 12
	savingsRate := SavingsAnnualRate / 100 / 12
	monthlyInflation := annualInflation / 100 / 12

	balance := cfg.InitialAmount
	savings := cfg.InitialAmount
	months := 0

	out := make([]Projection, 0, cfg.Years+1)
	out = append(out, Projection{
		Year:                   0,
		TotalValue:             balance,
		TotalInvested:          cfg.InitialAmount,
		NetProfit:              0,
		InflationAdjustedValue: balance,
		SavingsValue:           savings,
	})

	for year := 1; year <= cfg.Years; year++ {
		for m := 0; m < 12; m++ {
			months++
			balance = (balance + cfg.MonthlyContribution) * (1 + monthlyRate)
			savings = (savings + cfg.MonthlyContribution) * (1 + savingsRate)
			if cfg.IncludeInflation {
				deflator := math.Pow(1+monthlyInflation, float64(months))
				balance /= deflator
				savings /= deflator
			}
		}
		// closed form, immune to drift from the monthly loop
		invested := cfg.InitialAmount + cfg.MonthlyContribution*12*float64(year)
		out = append(out, Projection{
			Year:                   year,
			TotalValue:             balance,
			TotalInvested:          invested,
			NetProfit:              balance - invested,
			InflationAdjustedValue: balance,
			SavingsValue:           savings,
		})
	}
	return out
}

// RequiredMonthly inverts the annuity formula: the monthly contribution
// needed to reach cfg.TargetAmount by the end of the horizon, assuming the
// initial amount compounds independently. Never negative; a target already
// covered by the initial amount alone needs no contributions at all.
func RequiredMonthly(cfg Config, annualRate float64) float64 {
	if cfg.TargetAmount <= 0 {
		return 0
	}
	months := cfg.Years * 12
	monthlyRate := annualRate / 100 / 12

	futureOfInitial := cfg.InitialAmount * math.Pow(1+monthlyRate, float64(months))
	needed := cfg.TargetAmount - futureOfInitial
	if needed <= 0 {
		return 0
	}
	// Degenerate horizon: no months to contribute over. Answer with the raw
	// shortfall instead of dividing by zero.
	if months == 0 {
		return needed
	}
	if monthlyRate == 0 {
		return needed / float64(months)
	}
	payment := needed * monthlyRate / (math.Pow(1+monthlyRate, float64(months)) - 1)
	if payment < 0 {
		return 0
	}
	return payment
}

// Summarize derives the headline metrics from a projection series. The
// series must be non-empty (Project always returns at least the year-0
// entry).
func Summarize(cfg Config, projections []Projection, annualRate float64, rates market.Rates) Metrics {
	final := projections[len(projections)-1]
	m := Metrics{
		FinalAmount:     final.TotalValue,
		TotalInvested:   final.TotalInvested,
		NetProfit:       final.NetProfit,
		VsSavings:       final.TotalValue - final.SavingsValue,
		RealReturn:      annualRate - rates.IPCA,
		RequiredMonthly: RequiredMonthly(cfg, annualRate),
	}
	if rates.CDI != 0 {
		m.CDIEquivalence = annualRate / rates.CDI * 100
	}
	return m
}

// Run executes one full projection: resolve the effective rate, simulate,
// summarize. Pure and deterministic per (cfg, rates) pair.
func Run(cfg Config, rates market.Rates) Result {
	annualRate := EffectiveAnnualRate(rates.CDI, cfg.Profile)
	projections := Project(cfg, annualRate, rates.IPCA)
	return Result{
		Projections: projections,
		Metrics:     Summarize(cfg, projections, annualRate, rates),
		AnnualRate:  annualRate,
	}
}
