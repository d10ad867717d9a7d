package sequencer

import (
	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/datastructure"
)

// solveExact held-karp dynamic program over subsets, open path from the fixed
// start. O(2^n * n^2), used only for small instances.
func solveExact(matrix *datastructure.CostMatrix, n int) []int {
	full := 1 << n

	// dp[mask][last] = cheapest cost visiting mask and ending at stop last
	dp := make([][]float64, full)
	parent := make([][]int, full)
	for mask := 0; mask < full; mask++ {
		dp[mask] = make([]float64, n)
		parent[mask] = make([]int, n)
		for last := 0; last < n; last++ {
			dp[mask][last] = pkg.INF_WEIGHT
			parent[mask][last] = -1
		}
	}

	for first := 0; first < n; first++ {
		dp[1<<first][first] = matrix.GetCombined(0, first+1)
	}

	for mask := 1; mask < full; mask++ {
		for last := 0; last < n; last++ {
			if mask&(1<<last) == 0 || dp[mask][last] >= pkg.INF_WEIGHT {
				continue
			}
			for next := 0; next < n; next++ {
				if mask&(1<<next) != 0 {
					continue
				}
				nextMask := mask | (1 << next)
				cost := dp[mask][last] + matrix.GetCombined(last+1, next+1)
				if cost < dp[nextMask][next] {
					dp[nextMask][next] = cost
					parent[nextMask][next] = last
				}
			}
		}
	}

	bestLast := 0
	bestCost := pkg.INF_WEIGHT
	for last := 0; last < n; last++ {
		if dp[full-1][last] < bestCost {
			bestCost = dp[full-1][last]
			bestLast = last
		}
	}

	order := make([]int, 0, n)
	mask := full - 1
	last := bestLast
	for last != -1 {
		order = append(order, last)
		prev := parent[mask][last]
		mask ^= 1 << last
		last = prev
	}

	// built backwards
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}
