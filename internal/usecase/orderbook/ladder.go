package orderbook

import "sort"

// ladder keeps the price levels of one book side ordered best price first.
// Bids and asks are the same structure with opposite priority directions, so
// the matching walk stays symmetric across sides.
type ladder struct {
	levels  []*priceLevel // best price first
	byPrice map[int64]*priceLevel
	better  func(a, b int64) bool // strict: price a outranks price b
}

func newBidLadder() *ladder {
	return &ladder{
		byPrice: make(map[int64]*priceLevel),
		better:  func(a, b int64) bool { return a > b },
	}
}

func newAskLadder() *ladder {
	return &ladder{
		byPrice: make(map[int64]*priceLevel),
		better:  func(a, b int64) bool { return a < b },
	}
}

// best returns the highest-priority level, or nil for an empty side.
func (ld *ladder) best() *priceLevel {
	if len(ld.levels) == 0 {
		return nil
	}
	return ld.levels[0]
}

// find returns the level at an exact price, or nil.
func (ld *ladder) find(price int64) *priceLevel {
	return ld.byPrice[price]
}

// upsert returns the level at price, inserting a new one at its priority
// position if absent.
func (ld *ladder) upsert(price int64) *priceLevel {
	if level, ok := ld.byPrice[price]; ok {
		return level
	}

	level := newPriceLevel(price)
	i := sort.Search(len(ld.levels), func(i int) bool {
		return !ld.better(ld.levels[i].price, price)
	})
	ld.levels = append(ld.levels, nil)
	copy(ld.levels[i+1:], ld.levels[i:])
	ld.levels[i] = level
	ld.byPrice[price] = level

	return level
}

// remove prunes the level at price from the ladder.
func (ld *ladder) remove(price int64) {
	if _, ok := ld.byPrice[price]; !ok {
		return
	}
	delete(ld.byPrice, price)

	// prices are unique, so the search lands exactly on the level
	i := sort.Search(len(ld.levels), func(i int) bool {
		return !ld.better(ld.levels[i].price, price)
	})
	ld.levels = append(ld.levels[:i], ld.levels[i+1:]...)
}

// crosses reports whether a resting level at price satisfies the crossing
// condition against a taker limit on the opposite side: a buy taker crosses
// any ask at or below its limit, a sell taker any bid at or above it.
func (ld *ladder) crosses(price, limit int64) bool {
	return price == limit || ld.better(price, limit)
}

func (ld *ladder) size() int {
	return len(ld.levels)
}
