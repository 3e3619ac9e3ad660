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

package matching_test

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/xmargin/xmargin/matching"
	"github.com/xmargin/xmargin/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = types.AccountID{1}
	bob   = types.AccountID{2}
	carol = types.AccountID{3}
)

func leaf(side types.Side, price int64, seq uint64, qty int64) types.LeafNode {
	return types.LeafNode{
		Key:      types.NewOrderKey(side, price, seq),
		Owner:    alice,
		Quantity: qty,
		PegLimit: types.NoPegLimit,
	}
}

func TestOrderTreeInsertRemove(t *testing.T) {
	tree := matching.NewOrderTree(types.SideAsk, types.OrderTreeFixed, 2)

	h1, err := tree.Insert(leaf(types.SideAsk, 100, 1, 5))
	require.NoError(t, err)
	_, err = tree.Insert(leaf(types.SideAsk, 101, 2, 5))
	require.NoError(t, err)
	assert.True(t, tree.IsFull())

	_, err = tree.Insert(leaf(types.SideAsk, 102, 3, 5))
	assert.ErrorIs(t, err, types.ErrBookFull)
	assert.True(t, types.IsKind(err, types.KindCapacity))

	removed, err := tree.Remove(h1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), removed.Key.Price())
	assert.Equal(t, 1, tree.Len())

	_, err = tree.Remove(h1)
	assert.ErrorIs(t, err, types.ErrOrderNotFound)

	// the freed node is reused
	h3, err := tree.Insert(leaf(types.SideAsk, 102, 3, 5))
	require.NoError(t, err)
	assert.Equal(t, h1, h3)

	_, err = tree.Insert(leaf(types.SideAsk, 102, 3, 1))
	assert.Error(t, err)
}

func TestOrderTreeRejectsEmptyOrders(t *testing.T) {
	tree := matching.NewOrderTree(types.SideBid, types.OrderTreeFixed, 2)
	_, err := tree.Insert(leaf(types.SideBid, 100, 1, 0))
	assert.ErrorIs(t, err, types.ErrInvalidQuantity)

	h, err := tree.Insert(leaf(types.SideBid, 100, 1, 3))
	require.NoError(t, err)
	assert.ErrorIs(t, tree.UpdateQuantity(h, 0), types.ErrInvalidQuantity)
	require.NoError(t, tree.UpdateQuantity(h, 1))
	l, ok := tree.Get(h)
	require.True(t, ok)
	assert.Equal(t, int64(1), l.Quantity)
}

func TestOrderTreeBestAgreesWithSort(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, side := range []types.Side{types.SideBid, types.SideAsk} {
		tree := matching.NewOrderTree(side, types.OrderTreeFixed, 256)
		all := []types.LeafNode{}
		for seq := uint64(0); seq < 200; seq++ {
			l := leaf(side, 90+r.Int63n(20), seq, 1+r.Int63n(10))
			_, err := tree.Insert(l)
			require.NoError(t, err)
			all = append(all, l)
		}
		// remove a few at random
		for i := 0; i < 50; i++ {
			j := r.Intn(len(all))
			_, err := tree.RemoveByKey(all[j].Key)
			require.NoError(t, err)
			all = append(all[:j], all[j+1:]...)
		}

		sort.Slice(all, func(i, j int) bool {
			a, b := all[i], all[j]
			if a.Key.Price() != b.Key.Price() {
				return side.IsPriceBetter(a.Key.Price(), b.Key.Price())
			}
			return a.Key.Seq(side) < b.Key.Seq(side)
		})

		_, best, ok := tree.Best()
		require.True(t, ok)
		assert.Equal(t, all[0].Key, best.Key, "side %v", side)
		got := tree.Leaves()
		require.Len(t, got, len(all))
		for i := range all {
			assert.Equal(t, all[i].Key, got[i].Key)
		}
	}
}

func TestOrderTreeClientIndex(t *testing.T) {
	tree := matching.NewOrderTree(types.SideBid, types.OrderTreeFixed, 4)
	l := leaf(types.SideBid, 100, 1, 2)
	l.ClientOrderID = 77
	h, err := tree.Insert(l)
	require.NoError(t, err)

	got, ok := tree.FindByClientID(alice, 77)
	require.True(t, ok)
	assert.Equal(t, h, got)

	_, ok = tree.FindByClientID(bob, 77)
	assert.False(t, ok)
	_, ok = tree.FindByClientID(alice, 0)
	assert.False(t, ok)

	_, err = tree.Remove(h)
	require.NoError(t, err)
	_, ok = tree.FindByClientID(alice, 77)
	assert.False(t, ok)
}

func TestOrderTreeExpiry(t *testing.T) {
	tree := matching.NewOrderTree(types.SideAsk, types.OrderTreeFixed, 4)
	l := leaf(types.SideAsk, 100, 1, 2)
	l.Timestamp, l.TimeInForce = 10, 5
	_, err := tree.Insert(l)
	require.NoError(t, err)
	_, err = tree.Insert(leaf(types.SideAsk, 101, 2, 2))
	require.NoError(t, err)

	_, best, ok := tree.BestValid(14, 0)
	require.True(t, ok)
	assert.Equal(t, int64(100), best.Key.Price())

	_, best, ok = tree.BestValid(15, 0)
	require.True(t, ok)
	assert.Equal(t, int64(101), best.Key.Price())
	assert.Len(t, tree.Expired(15, 0), 1)
}

func TestOrderTreeCloneIsIndependent(t *testing.T) {
	tree := matching.NewOrderTree(types.SideAsk, types.OrderTreeFixed, 4)
	h, err := tree.Insert(leaf(types.SideAsk, 100, 1, 2))
	require.NoError(t, err)
	hash := tree.Hash()

	cpy := tree.Clone()
	_, err = cpy.Remove(h)
	require.NoError(t, err)
	_, err = cpy.Insert(leaf(types.SideAsk, 99, 2, 2))
	require.NoError(t, err)

	assert.Equal(t, 1, tree.Len())
	_, best, _ := tree.Best()
	assert.Equal(t, int64(100), best.Key.Price())
	assert.Equal(t, hash, tree.Hash())
	assert.NotEqual(t, hash, cpy.Hash())
}

func TestOrderTreeIterateMatching(t *testing.T) {
	tree := matching.NewOrderTree(types.SideAsk, types.OrderTreeFixed, 8)
	expiring := leaf(types.SideAsk, 100, 1, 1)
	expiring.TimeInForce, expiring.Timestamp = 1, 1
	_, err := tree.Insert(expiring)
	require.NoError(t, err)
	for i, p := range []int64{101, 102, 105} {
		_, err := tree.Insert(leaf(types.SideAsk, p, uint64(i+2), 1))
		require.NoError(t, err)
	}

	h, ok := tree.PeekBest()
	require.True(t, ok)
	l, _ := tree.Get(h)
	assert.Equal(t, int64(100), l.Key.Price())

	prices := []int64{}
	expired := tree.IterateMatching(5, 0, 102, func(_ matching.NodeHandle, _ *types.LeafNode, price int64) bool {
		prices = append(prices, price)
		return true
	})
	assert.Equal(t, []int64{101, 102}, prices)
	assert.Len(t, expired, 1)

	evicted := tree.EvictExpired(5, 0)
	require.Len(t, evicted, 1)
	assert.Equal(t, 3, tree.Len())
}
