package track

import (
	"math"
	"sort"
)

// pair is a candidate association between a track row and a detection column.
type pair struct {
	row, col int
	iou      float64
}

// greedyAssign matches rows to columns in descending IoU order, requiring
// iou >= minIoU. Ties break on row then column. Returns assignment[row] =
// col or -1.
func greedyAssign(iou [][]float64, cols int, minIoU float64) []int {
	var pairs []pair
	for r, row := range iou {
		for c, v := range row {
			if v >= minIoU {
				pairs = append(pairs, pair{row: r, col: c, iou: v})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].iou != pairs[j].iou {
			return pairs[i].iou > pairs[j].iou
		}
		if pairs[i].row != pairs[j].row {
			return pairs[i].row < pairs[j].row
		}
		return pairs[i].col < pairs[j].col
	})

	assignment := make([]int, len(iou))
	for i := range assignment {
		assignment[i] = -1
	}
	colUsed := make([]bool, cols)
	for _, p := range pairs {
		if assignment[p.row] >= 0 || colUsed[p.col] {
			continue
		}
		assignment[p.row] = p.col
		colUsed[p.col] = true
	}
	return assignment
}

// hungarianAssign finds the assignment maximizing total IoU among pairs with
// iou >= minIoU, using Kuhn-Munkres with row/column potentials. Admissible
// pairs cost -iou; everything else, padding included, costs 0, so leaving a
// row unassigned is never worse than taking an inadmissible pair. Returns
// assignment[row] = col or -1.
func hungarianAssign(iou [][]float64, cols int, minIoU float64) []int {
	n := len(iou)
	result := make([]int, n)
	for i := range result {
		result[i] = -1
	}
	if n == 0 || cols == 0 {
		return result
	}

	admissible := func(i, j int) bool {
		return i < n && j < cols && iou[i][j] >= minIoU
	}

	dim := max(n, cols)
	cost := make([][]float64, dim)
	for i := range cost {
		cost[i] = make([]float64, dim)
		for j := range cost[i] {
			if admissible(i, j) {
				cost[i][j] = -iou[i][j]
			}
		}
	}

	// 1-indexed potentials; column 0 is virtual.
	const inf = math.MaxFloat64 / 2
	u := make([]float64, dim+1)
	v := make([]float64, dim+1)
	owner := make([]int, dim+1) // owner[j] = row holding column j
	way := make([]int, dim+1)
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		owner[0] = i
		j0 := 0
		for j := range minv {
			minv[j] = inf
			used[j] = false
		}

		for owner[j0] != 0 {
			used[j0] = true
			i0 := owner[j0]
			delta := inf
			j1 := 0
			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				if cur := cost[i0-1][j-1] - u[i0] - v[j]; cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			if j1 == 0 {
				break
			}
			for j := 0; j <= dim; j++ {
				if used[j] {
					u[owner[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
		}

		for j0 != 0 {
			owner[j0] = owner[way[j0]]
			j0 = way[j0]
		}
	}

	for j := 1; j <= dim; j++ {
		row, col := owner[j]-1, j-1
		if row >= 0 && admissible(row, col) {
			result[row] = col
		}
	}
	return result
}
