package plackettluce

import (
	"cmp"
	"slices"
)

// normalizeFloor replaces a zero source range so a constant vector does not
// divide by zero.
const normalizeFloor = 0.0001

// RanksFromScores converts scores (higher is better) into competition
// ranks starting at 0. Equal scores share a rank and the next distinct score
// takes its position, so [10, 10, 3] becomes [0, 0, 2].
func RanksFromScores(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})

	ranks := make([]int, len(scores))
	current := 0
	for pos, idx := range order {
		if pos > 0 && scores[idx] < scores[order[pos-1]] {
			current = pos
		}
		ranks[idx] = current
	}
	return ranks
}

// Normalize linearly rescales v into [lo, hi]. A single value maps to hi.
func Normalize(v []float64, lo, hi float64) []float64 {
	if len(v) == 0 {
		return nil
	}
	if len(v) == 1 {
		return []float64{hi}
	}
	srcLo, srcHi := slices.Min(v), slices.Max(v)
	srcRange := srcHi - srcLo
	if srcRange == 0 {
		srcRange = normalizeFloor
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = (x-srcLo)/srcRange*(hi-lo) + lo
	}
	return out
}

// rankOrder returns the indices of ranks in ascending rank order. Equal
// ranks keep their input order.
func rankOrder(ranks []int) []int {
	order := make([]int, len(ranks))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(ranks[a], ranks[b])
	})
	return order
}

// permute returns s reordered so that out[k] = s[order[k]].
func permute[T any](s []T, order []int) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(order))
	for k, idx := range order {
		out[k] = s[idx]
	}
	return out
}

// unwind undoes permute.
func unwind[T any](s []T, order []int) []T {
	out := make([]T, len(order))
	for k, idx := range order {
		out[idx] = s[k]
	}
	return out
}

// positions maps sorted ranks to competition positions: tied entries share
// the position of the first of them.
func positions(sorted []int) []int {
	out := make([]int, len(sorted))
	for k := 1; k < len(sorted); k++ {
		if sorted[k-1] < sorted[k] {
			out[k] = k
		} else {
			out[k] = out[k-1]
		}
	}
	return out
}
