package repository

import (
	"math"
	"math/rand/v2"
)

// Treap ordered by ordinal DESC, then player ID ASC. In-order traversal
// yields the leaderboard from best to worst.

// ordinalScale controls fixed-point scaling from float64.
const ordinalScale = 1_000_000_000 // 9 decimal places

type ordinalFP int64

func toFixedPoint(x float64) ordinalFP {
	if math.IsNaN(x) {
		return 0
	}
	scaled := x * ordinalScale
	if scaled >= math.MaxInt64 {
		return ordinalFP(math.MaxInt64)
	}
	if scaled <= math.MinInt64 {
		return ordinalFP(math.MinInt64)
	}
	return ordinalFP(math.Round(scaled))
}

type node struct {
	id      string
	ordinal ordinalFP
	prio    uint64
	left    *node
	right   *node
	size    int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aOrd, aID) ranks before (bOrd, bID).
func less(aOrd ordinalFP, aID string, bOrd ordinalFP, bID string) bool {
	if aOrd != bOrd {
		return aOrd > bOrd
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, ord ordinalFP) *node {
	if n == nil {
		return &node{id: id, ordinal: ord, prio: rand.Uint64(), size: 1}
	}
	if less(ord, id, n.ordinal, n.id) {
		n.left = insert(n.left, id, ord)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, ord)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, ord ordinalFP) *node {
	if n == nil {
		return nil
	}
	switch {
	case ord == n.ordinal && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, ord)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, ord)
		}
	case less(ord, id, n.ordinal, n.id):
		n.left = deleteNode(n.left, id, ord)
	default:
		n.right = deleteNode(n.right, id, ord)
	}
	fix(n)
	return n
}

// countGreater returns the number of nodes with an ordinal strictly above ord.
func countGreater(n *node, ord ordinalFP) int {
	count := 0
	for n != nil {
		if n.ordinal > ord {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit nodes in rank order.
func collectTopN(n *node, limit int, out *[]*node) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}
