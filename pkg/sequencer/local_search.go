package sequencer

import (
	"github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/util"
)

// twoOpt reverse-segment local search. costs are directed, so every candidate
// is re-priced over the full order instead of the symmetric delta shortcut.
func (sq *Sequencer) twoOpt(matrix *datastructure.CostMatrix, order []int) []int {
	best := append([]int(nil), order...)
	bestCost := RouteCost(matrix, best)
	bestMinSafety := MinSegmentSafety(matrix, best)
	n := len(best)

	for iter := 0; iter < sq.maxIterations; iter++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				candidate := twoOptSwap(best, i, k)
				cost := RouteCost(matrix, candidate)
				if betterOrder(matrix, candidate, cost, bestCost, bestMinSafety) {
					best = candidate
					bestCost = cost
					bestMinSafety = MinSegmentSafety(matrix, best)
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

// twoOptSwap copy of ord with ord[i..k] reversed.
func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

// orOpt relocate chains of 1..3 consecutive stops to another position,
// keeping any move that lowers combined cost.
func (sq *Sequencer) orOpt(matrix *datastructure.CostMatrix, order []int) []int {
	best := append([]int(nil), order...)
	bestCost := RouteCost(matrix, best)
	bestMinSafety := MinSegmentSafety(matrix, best)
	n := len(best)

	for iter := 0; iter < sq.maxIterations; iter++ {
		improved := false
		for chain := 1; chain <= util.MinInt(3, n-1); chain++ {
			for from := 0; from+chain <= n; from++ {
				for to := 0; to <= n-chain; to++ {
					if to == from {
						continue
					}
					candidate := relocate(best, from, chain, to)
					cost := RouteCost(matrix, candidate)
					if betterOrder(matrix, candidate, cost, bestCost, bestMinSafety) {
						best = candidate
						bestCost = cost
						bestMinSafety = MinSegmentSafety(matrix, best)
						improved = true
					}
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

// relocate move ord[from:from+chain] so that it starts at position to of the
// remaining sequence.
func relocate(ord []int, from, chain, to int) []int {
	chunk := append([]int(nil), ord[from:from+chain]...)
	rest := make([]int, 0, len(ord)-chain)
	rest = append(rest, ord[:from]...)
	rest = append(rest, ord[from+chain:]...)

	if to > len(rest) {
		to = len(rest)
	}

	out := make([]int, 0, len(ord))
	out = append(out, rest[:to]...)
	out = append(out, chunk...)
	out = append(out, rest[to:]...)
	return out
}
