package merkle

import (
	"errors"
	"math/big"
)

// HashFunc merges two child nodes into their parent.
type HashFunc func(left, right *big.Int) *big.Int

// Fixed-size binary Merkle tree stored level-by-level.
type Tree struct {
	Depth  int          `json:"depth"`
	Levels [][]*big.Int `json:"levels"` // Levels[0]=leaves, Levels[Depth]=root
}

// BuildFixedTree pads leaves with padLeaf up to size (a power of two) and
// hashes upward with hashMerge.
func BuildFixedTree(leaves []*big.Int, size int, padLeaf *big.Int, hashMerge HashFunc) (*Tree, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, errors.New("size must be power of two")
	}
	if len(leaves) > size {
		return nil, errors.New("too many leaves")
	}

	levels := make([][]*big.Int, 0)

	L0 := make([]*big.Int, size)
	for i := 0; i < size; i++ {
		if i < len(leaves) && leaves[i] != nil {
			L0[i] = new(big.Int).Set(leaves[i])
		} else {
			L0[i] = new(big.Int).Set(padLeaf)
		}
	}
	levels = append(levels, L0)

	n := size
	for n > 1 {
		n2 := n / 2
		up := make([]*big.Int, n2)
		prev := levels[len(levels)-1]
		for i := 0; i < n2; i++ {
			up[i] = hashMerge(prev[2*i], prev[2*i+1])
		}
		levels = append(levels, up)
		n = n2
	}

	return &Tree{Depth: len(levels) - 1, Levels: levels}, nil
}

func (t *Tree) Root() *big.Int { return new(big.Int).Set(t.Levels[len(t.Levels)-1][0]) }
