package ml

import (
	"math"
	"sort"

	"aquitania/internal/dataset"
)

// AllCurrencies keys the row of a bet sizing table pooled over every currency.
const AllCurrencies = "ALL"

// BetSize is the outcome of taking the selected trades at one reward/risk ratio.
type BetSize struct {
	Ratio   float64 `json:"ratio"`
	WinRate float64 `json:"win_rate"`
	Kelly   float64 `json:"kelly"`
	Samples int     `json:"samples"`
}

// BetSizingTable maps currency to one BetSize per ratio, in ratio order.
type BetSizingTable map[string][]BetSize

// Lookup returns the entry for currency and ratio, falling back to the pooled
// row when the currency has none.
func (t BetSizingTable) Lookup(currency string, ratio float64) (BetSize, bool) {
	if b, ok := t.find(currency, ratio); ok {
		return b, true
	}
	return t.find(AllCurrencies, ratio)
}

func (t BetSizingTable) find(currency string, ratio float64) (BetSize, bool) {
	for _, b := range t[currency] {
		if math.Abs(b.Ratio-ratio) < 1e-9 {
			return b, true
		}
	}
	return BetSize{}, false
}

// Currencies returns the table's keys, sorted, with the pooled row last.
func (t BetSizingTable) Currencies() []string {
	out := make([]string, 0, len(t))
	for c := range t {
		if c != AllCurrencies {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	if _, ok := t[AllCurrencies]; ok {
		out = append(out, AllCurrencies)
	}
	return out
}

// Kelly returns the Kelly fraction for a win rate at reward/risk ratio r,
// clipped to [0, 1].
func Kelly(winRate, r float64) float64 {
	if r <= 0 {
		return 0
	}
	k := winRate - (1-winRate)/r
	return math.Max(0, math.Min(1, k))
}

// computeBetSizing builds a table from out-of-sample predictions. In the
// normal orientation the trades with p >= threshold are taken and win at r
// when their favorable excursion reaches r. In the inverse orientation the
// trades with p <= 1-threshold are taken the other way and win when the
// adverse excursion reaches r.
func computeBetSizing(test dataset.Dataset, probs []float64, ratios []float64, threshold float64, inverse bool) BetSizingTable {
	type counts struct {
		n    int
		wins []int
	}
	groups := make(map[string]*counts)
	get := func(c string) *counts {
		g, ok := groups[c]
		if !ok {
			g = &counts{wins: make([]int, len(ratios))}
			groups[c] = g
		}
		return g
	}

	// every currency in the test set gets a row, even with no selected trades
	for _, s := range test.Samples {
		get(s.Currency)
	}
	get(AllCurrencies)

	for i, s := range test.Samples {
		selected := probs[i] >= threshold
		excursion := s.MaxRatio
		if inverse {
			selected = probs[i] <= 1-threshold
			excursion = s.MinRatio
		}
		if !selected {
			continue
		}

		for _, g := range []*counts{get(s.Currency), get(AllCurrencies)} {
			g.n++
			for k, r := range ratios {
				if excursion >= r {
					g.wins[k]++
				}
			}
		}
	}

	table := make(BetSizingTable, len(groups))
	for currency, g := range groups {
		row := make([]BetSize, len(ratios))
		for k, r := range ratios {
			row[k] = BetSize{Ratio: r, Samples: g.n}
			if g.n > 0 {
				row[k].WinRate = float64(g.wins[k]) / float64(g.n)
				row[k].Kelly = Kelly(row[k].WinRate, r)
			}
		}
		table[currency] = row
	}
	return table
}
