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
	"github.com/xmargin/xmargin/types"
)

// EventQueue is a bounded FIFO of fill and out events. Every pushed
// event is stamped with the next sequence number.
type EventQueue struct {
	buf    []types.Event
	head   int
	count  int
	seqNum uint64
}

func NewEventQueue(capacity int) *EventQueue {
	return &EventQueue{buf: make([]types.Event, capacity)}
}

func (q *EventQueue) Len() int      { return q.count }
func (q *EventQueue) Capacity() int { return len(q.buf) }
func (q *EventQueue) Free() int     { return len(q.buf) - q.count }
func (q *EventQueue) Empty() bool   { return q.count == 0 }
func (q *EventQueue) Full() bool    { return q.count == len(q.buf) }

// SeqNum is the sequence number the next pushed event will get.
func (q *EventQueue) SeqNum() uint64 { return q.seqNum }

func (q *EventQueue) Push(e types.Event) error {
	if q.Full() {
		return types.ErrEventQueueFull
	}
	e.SetSeq(q.seqNum)
	q.seqNum++
	q.buf[(q.head+q.count)%len(q.buf)] = e
	q.count++
	return nil
}

// PushAll pushes every event or none of them.
func (q *EventQueue) PushAll(events []types.Event) error {
	if len(events) > q.Free() {
		return types.ErrEventQueueFull
	}
	for _, e := range events {
		// cannot fail, room was checked
		_ = q.Push(e)
	}
	return nil
}

func (q *EventQueue) Peek() (types.Event, bool) {
	return q.PeekAt(0)
}

// PeekAt returns the i-th oldest event.
func (q *EventQueue) PeekAt(i int) (types.Event, bool) {
	if i < 0 || i >= q.count {
		return nil, false
	}
	return q.buf[(q.head+i)%len(q.buf)], true
}

func (q *EventQueue) Pop() (types.Event, bool) {
	if q.count == 0 {
		return nil, false
	}
	e := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return e, true
}

// Events returns the queued events, oldest first.
func (q *EventQueue) Events() []types.Event {
	out := make([]types.Event, 0, q.count)
	for i := 0; i < q.count; i++ {
		out = append(out, q.buf[(q.head+i)%len(q.buf)])
	}
	return out
}

// Clone copies the queue. Events are never mutated once queued so they
// are shared.
func (q *EventQueue) Clone() *EventQueue {
	cpy := &EventQueue{
		buf:    make([]types.Event, len(q.buf)),
		head:   q.head,
		count:  q.count,
		seqNum: q.seqNum,
	}
	copy(cpy.buf, q.buf)
	return cpy
}

// RestoreEventQueue rebuilds a queue from persisted state.
func RestoreEventQueue(capacity int, seqNum uint64, events []types.Event) (*EventQueue, error) {
	if len(events) > capacity {
		return nil, types.ErrEventQueueFull
	}
	q := NewEventQueue(capacity)
	for i, e := range events {
		q.buf[i] = e
	}
	q.count = len(events)
	q.seqNum = seqNum
	return q, nil
}
