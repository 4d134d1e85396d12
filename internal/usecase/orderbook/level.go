package orderbook

import (
	orderbookv1 "limitbook/internal/domain/orderbook/v1"
)

// node is one resting order's slot in a price level's arrival list. The book's
// order index points at nodes, so a cancel can unlink in O(1) without touching
// the rest of the queue.
type node struct {
	order *orderbookv1.Order
	level *priceLevel
	prev  *node
	next  *node
}

// priceLevel holds the resting orders at one exact price in arrival order.
// The volume field is a running sum of remaining quantities, maintained on
// every insert, fill and cancel, so volume queries never walk the queue.
type priceLevel struct {
	price  int64
	head   *node
	tail   *node
	count  int
	volume int64
}

func newPriceLevel(price int64) *priceLevel {
	return &priceLevel{price: price}
}

// push appends an order to the tail of the arrival list and returns its node.
func (l *priceLevel) push(order *orderbookv1.Order) *node {
	n := &node{order: order, level: l}
	if l.tail == nil {
		l.head = n
		l.tail = n
	} else {
		n.prev = l.tail
		l.tail.next = n
		l.tail = n
	}
	l.count++
	l.volume += order.Remaining
	return n
}

// unlink removes n from the arrival list, preserving the relative order of
// every other node. The node's remaining quantity leaves the running volume.
func (l *priceLevel) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev = nil
	n.next = nil
	n.level = nil
	l.count--
	l.volume -= n.order.Remaining
}

func (l *priceLevel) isEmpty() bool {
	return l.head == nil
}
