package orderbook

import "github.com/google/btree"

const ladderDegree = 32

// ladder is the ordered index of price levels for one side of the book.
// Lookups do not write to the ladder, so readers may share it.
type ladder struct {
	tree *btree.BTreeG[*PriceLevel]
}

func newLadder() *ladder {
	return &ladder{
		tree: btree.NewG(ladderDegree, func(a, b *PriceLevel) bool {
			return a.price < b.price
		}),
	}
}

func (l *ladder) Size() int { return l.tree.Len() }

func (l *ladder) FindLevel(price Price) *PriceLevel {
	lvl, ok := l.tree.Get(&PriceLevel{price: price})
	if !ok {
		return nil
	}
	return lvl
}

func (l *ladder) UpsertLevel(price Price) *PriceLevel {
	if lvl := l.FindLevel(price); lvl != nil {
		return lvl
	}
	lvl := NewPriceLevel(price)
	l.tree.ReplaceOrInsert(lvl)
	return lvl
}

func (l *ladder) DeleteLevel(price Price) bool {
	_, ok := l.tree.Delete(&PriceLevel{price: price})
	return ok
}

func (l *ladder) MinLevel() *PriceLevel {
	lvl, ok := l.tree.Min()
	if !ok {
		return nil
	}
	return lvl
}

func (l *ladder) MaxLevel() *PriceLevel {
	lvl, ok := l.tree.Max()
	if !ok {
		return nil
	}
	return lvl
}

func (l *ladder) ForEachAscending(fn func(*PriceLevel) bool) {
	l.tree.Ascend(func(lvl *PriceLevel) bool { return fn(lvl) })
}

func (l *ladder) ForEachDescending(fn func(*PriceLevel) bool) {
	l.tree.Descend(func(lvl *PriceLevel) bool { return fn(lvl) })
}
