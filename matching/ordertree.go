// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package matching

import (
	"encoding/binary"
	"math"

	"github.com/xmargin/xmargin/libs/crypto"
	"github.com/xmargin/xmargin/types"

	"github.com/google/btree"
)

// NodeHandle addresses a node of an order tree arena.
type NodeHandle uint32

const noHandle NodeHandle = math.MaxUint32

type NodeTag uint8

const (
	NodeFree NodeTag = iota
	NodeLeaf
)

// Node is a slot of the arena. Free nodes are chained through Next.
type Node struct {
	Tag  NodeTag
	Next NodeHandle
	Leaf types.LeafNode
}

type treeItem struct {
	key    types.OrderKey
	handle NodeHandle
}

func lessItem(a, b treeItem) bool {
	return a.key.Less(b.key)
}

type clientKey struct {
	owner    types.AccountID
	clientID uint64
}

// OrderTree holds the resting orders of one side and one tree type of a
// book. Leaves live in a fixed capacity arena and are indexed by key in
// a btree. Best order first is descending keys for bids and ascending
// keys for asks.
type OrderTree struct {
	side     types.Side
	treeType types.OrderTreeType
	capacity int

	nodes    []Node
	freeHead NodeHandle
	leaves   int

	index    *btree.BTreeG[treeItem]
	byClient map[clientKey]NodeHandle
}

// NewOrderTree creates an empty tree able to hold capacity orders.
func NewOrderTree(side types.Side, treeType types.OrderTreeType, capacity int) *OrderTree {
	return &OrderTree{
		side:     side,
		treeType: treeType,
		capacity: capacity,
		nodes:    make([]Node, 0, capacity),
		freeHead: noHandle,
		index:    btree.NewG[treeItem](8, lessItem),
		byClient: map[clientKey]NodeHandle{},
	}
}

func (t *OrderTree) Side() types.Side              { return t.side }
func (t *OrderTree) TreeType() types.OrderTreeType { return t.treeType }
func (t *OrderTree) Len() int                      { return t.leaves }
func (t *OrderTree) Capacity() int                 { return t.capacity }
func (t *OrderTree) IsFull() bool                  { return t.leaves >= t.capacity }

func (t *OrderTree) SideAndTree() types.SideAndOrderTree {
	return types.NewSideAndOrderTree(t.side, t.treeType)
}

func (t *OrderTree) alloc() (NodeHandle, bool) {
	if t.freeHead != noHandle {
		h := t.freeHead
		t.freeHead = t.nodes[h].Next
		return h, true
	}
	if len(t.nodes) >= t.capacity {
		return noHandle, false
	}
	t.nodes = append(t.nodes, Node{})
	return NodeHandle(len(t.nodes) - 1), true
}

func (t *OrderTree) release(h NodeHandle) {
	t.nodes[h] = Node{Tag: NodeFree, Next: t.freeHead}
	t.freeHead = h
}

// Insert adds a leaf to the tree.
func (t *OrderTree) Insert(leaf types.LeafNode) (NodeHandle, error) {
	if leaf.Quantity <= 0 {
		return noHandle, types.ErrInvalidQuantity
	}
	if _, ok := t.index.Get(treeItem{key: leaf.Key}); ok {
		return noHandle, types.ErrInvalidOrder.WithInvariant("duplicate order key")
	}
	h, ok := t.alloc()
	if !ok {
		return noHandle, types.ErrBookFull
	}
	t.nodes[h] = Node{Tag: NodeLeaf, Next: noHandle, Leaf: leaf}
	t.index.ReplaceOrInsert(treeItem{key: leaf.Key, handle: h})
	if leaf.ClientOrderID != 0 {
		t.byClient[clientKey{leaf.Owner, leaf.ClientOrderID}] = h
	}
	t.leaves++
	return h, nil
}

// Remove takes the leaf out of the tree and returns it.
func (t *OrderTree) Remove(h NodeHandle) (types.LeafNode, error) {
	if !t.valid(h) {
		return types.LeafNode{}, types.ErrOrderNotFound
	}
	leaf := t.nodes[h].Leaf
	t.index.Delete(treeItem{key: leaf.Key})
	if leaf.ClientOrderID != 0 {
		ck := clientKey{leaf.Owner, leaf.ClientOrderID}
		if t.byClient[ck] == h {
			delete(t.byClient, ck)
		}
	}
	t.release(h)
	t.leaves--
	return leaf, nil
}

// RemoveByKey removes the order with the given key.
func (t *OrderTree) RemoveByKey(key types.OrderKey) (types.LeafNode, error) {
	h, ok := t.FindByKey(key)
	if !ok {
		return types.LeafNode{}, types.ErrOrderNotFound
	}
	return t.Remove(h)
}

func (t *OrderTree) valid(h NodeHandle) bool {
	return int(h) < len(t.nodes) && t.nodes[h].Tag == NodeLeaf
}

// Get returns a copy of the leaf stored at h.
func (t *OrderTree) Get(h NodeHandle) (types.LeafNode, bool) {
	if !t.valid(h) {
		return types.LeafNode{}, false
	}
	return t.nodes[h].Leaf, true
}

func (t *OrderTree) FindByKey(key types.OrderKey) (NodeHandle, bool) {
	it, ok := t.index.Get(treeItem{key: key})
	if !ok {
		return noHandle, false
	}
	return it.handle, true
}

// FindByClientID returns the most recent order of owner carrying the
// client id. Client id zero is never indexed.
func (t *OrderTree) FindByClientID(owner types.AccountID, clientID uint64) (NodeHandle, bool) {
	if clientID == 0 {
		return noHandle, false
	}
	h, ok := t.byClient[clientKey{owner, clientID}]
	return h, ok
}

// UpdateQuantity changes the remaining quantity of a resting order.
func (t *OrderTree) UpdateQuantity(h NodeHandle, quantity int64) error {
	if !t.valid(h) {
		return types.ErrOrderNotFound
	}
	if quantity <= 0 {
		return types.ErrInvalidQuantity
	}
	t.nodes[h].Leaf.Quantity = quantity
	return nil
}

// Iterate walks the leaves best first until fn returns false.
func (t *OrderTree) Iterate(fn func(h NodeHandle, leaf *types.LeafNode) bool) {
	visit := func(it treeItem) bool {
		return fn(it.handle, &t.nodes[it.handle].Leaf)
	}
	if t.side == types.SideBid {
		t.index.Descend(visit)
		return
	}
	t.index.Ascend(visit)
}

// PeekBest returns the handle of the first leaf in priority order,
// expired or not.
func (t *OrderTree) PeekBest() (NodeHandle, bool) {
	it, ok := t.first()
	if !ok {
		return noHandle, false
	}
	return it.handle, true
}

// IterateMatching walks, best first, the orders that trade at priceLimit
// or better and calls fn for each one that is live. Expired orders are
// skipped and returned so the caller can evict them.
func (t *OrderTree) IterateMatching(now uint64, oraclePriceLots, priceLimit int64, fn func(h NodeHandle, leaf *types.LeafNode, priceLots int64) bool) []NodeHandle {
	expired := []NodeHandle{}
	t.Iterate(func(h NodeHandle, leaf *types.LeafNode) bool {
		price, valid := leaf.PriceLots(t.side, t.treeType, oraclePriceLots)
		if !t.side.Invert().IsPriceWithinLimit(price, priceLimit) {
			return false
		}
		if leaf.IsExpired(now) {
			expired = append(expired, h)
			return true
		}
		if !valid {
			return true
		}
		return fn(h, leaf, price)
	})
	return expired
}

// Best returns the first leaf in priority order, expired or not.
func (t *OrderTree) Best() (NodeHandle, types.LeafNode, bool) {
	var it treeItem
	var ok bool
	if t.side == types.SideBid {
		it, ok = t.index.Max()
	} else {
		it, ok = t.index.Min()
	}
	if !ok {
		return noHandle, types.LeafNode{}, false
	}
	return it.handle, t.nodes[it.handle].Leaf, true
}

// BestValid returns the first leaf that is not expired and, for pegged
// trees, has a usable price at the given oracle price.
func (t *OrderTree) BestValid(now uint64, oraclePriceLots int64) (NodeHandle, types.LeafNode, bool) {
	var (
		h     = noHandle
		found types.LeafNode
		ok    bool
	)
	t.Iterate(func(nh NodeHandle, leaf *types.LeafNode) bool {
		if leaf.IsExpired(now) {
			return true
		}
		if _, valid := leaf.PriceLots(t.side, t.treeType, oraclePriceLots); !valid {
			return true
		}
		h, found, ok = nh, *leaf, true
		return false
	})
	return h, found, ok
}

func (t *OrderTree) first() (treeItem, bool) {
	if t.side == types.SideBid {
		return t.index.Max()
	}
	return t.index.Min()
}

// after returns the item following key in priority order.
func (t *OrderTree) after(key types.OrderKey) (treeItem, bool) {
	var (
		next treeItem
		ok   bool
	)
	visit := func(it treeItem) bool {
		if it.key == key {
			return true
		}
		next, ok = it, true
		return false
	}
	if t.side == types.SideBid {
		t.index.DescendLessOrEqual(treeItem{key: key}, visit)
	} else {
		t.index.AscendGreaterOrEqual(treeItem{key: key}, visit)
	}
	return next, ok
}

// Expired lists up to limit expired orders, best first. Zero means no
// limit.
func (t *OrderTree) Expired(now uint64, limit int) []NodeHandle {
	out := []NodeHandle{}
	t.Iterate(func(h NodeHandle, leaf *types.LeafNode) bool {
		if leaf.IsExpired(now) {
			out = append(out, h)
		}
		return limit <= 0 || len(out) < limit
	})
	return out
}

// EvictExpired removes up to limit expired orders and returns them.
func (t *OrderTree) EvictExpired(now uint64, limit int) []types.LeafNode {
	out := []types.LeafNode{}
	for _, h := range t.Expired(now, limit) {
		if leaf, err := t.Remove(h); err == nil {
			out = append(out, leaf)
		}
	}
	return out
}

// Leaves returns copies of every leaf, best first.
func (t *OrderTree) Leaves() []types.LeafNode {
	out := make([]types.LeafNode, 0, t.leaves)
	t.Iterate(func(_ NodeHandle, leaf *types.LeafNode) bool {
		out = append(out, *leaf)
		return true
	})
	return out
}

// Clone returns an independent copy of the tree. The btree is copied
// lazily.
func (t *OrderTree) Clone() *OrderTree {
	cpy := &OrderTree{
		side:     t.side,
		treeType: t.treeType,
		capacity: t.capacity,
		nodes:    make([]Node, len(t.nodes), t.capacity),
		freeHead: t.freeHead,
		leaves:   t.leaves,
		index:    t.index.Clone(),
		byClient: make(map[clientKey]NodeHandle, len(t.byClient)),
	}
	copy(cpy.nodes, t.nodes)
	for k, v := range t.byClient {
		cpy.byClient[k] = v
	}
	return cpy
}

// Hash digests the leaves in priority order. Arena layout does not
// contribute.
func (t *OrderTree) Hash() []byte {
	buf := make([]byte, 0, t.leaves*72)
	var w [8]byte
	t.Iterate(func(_ NodeHandle, l *types.LeafNode) bool {
		binary.BigEndian.PutUint64(w[:], l.Key.PriceData)
		buf = append(buf, w[:]...)
		binary.BigEndian.PutUint64(w[:], l.Key.SeqData)
		buf = append(buf, w[:]...)
		buf = append(buf, l.Owner[:]...)
		binary.BigEndian.PutUint64(w[:], uint64(l.Quantity))
		buf = append(buf, w[:]...)
		binary.BigEndian.PutUint64(w[:], l.Timestamp)
		buf = append(buf, w[:]...)
		binary.BigEndian.PutUint64(w[:], l.ClientOrderID)
		buf = append(buf, w[:]...)
		binary.BigEndian.PutUint64(w[:], uint64(l.PegLimit))
		buf = append(buf, w[:]...)
		buf = append(buf, l.OwnerSlot, byte(l.OrderType))
		binary.BigEndian.PutUint16(w[:2], l.TimeInForce)
		buf = append(buf, w[:2]...)
		return true
	})
	return crypto.Hash(buf)
}
