// Implements the PacketQueue used for Q1 (awaiting tokens) and Q2 (awaiting service).
// Packets are appended on entry and unlinked from the head on exit.

package sim

import (
	"container/list"
	"fmt"
	"strings"
)

// PacketQueue is an ordered, doubly-linked queue of packets.
// Traversal order equals insertion order as modified by the insert and unlink
// operations. It is not safe for concurrent use: the Emulator guards Q1 and Q2
// with a single mutex.
type PacketQueue struct {
	l *list.List
}

// NewPacketQueue returns an empty queue.
func NewPacketQueue() *PacketQueue {
	return &PacketQueue{l: list.New()}
}

// Len returns the number of packets in the queue.
func (q *PacketQueue) Len() int {
	return q.l.Len()
}

// Empty reports whether the queue holds no packets.
func (q *PacketQueue) Empty() bool {
	return q.l.Len() == 0
}

// Append adds a packet to the tail of the queue.
func (q *PacketQueue) Append(p *Packet) *list.Element {
	if p == nil {
		panic("Append: packet must not be nil")
	}
	return q.l.PushBack(p)
}

// Prepend inserts a packet at the head of the queue.
func (q *PacketQueue) Prepend(p *Packet) *list.Element {
	if p == nil {
		panic("Prepend: packet must not be nil")
	}
	return q.l.PushFront(p)
}

// InsertBefore inserts p immediately before mark. mark must belong to q.
func (q *PacketQueue) InsertBefore(p *Packet, mark *list.Element) *list.Element {
	if p == nil || mark == nil {
		panic("InsertBefore: packet and mark must not be nil")
	}
	return q.l.InsertBefore(p, mark)
}

// InsertAfter inserts p immediately after mark. mark must belong to q.
func (q *PacketQueue) InsertAfter(p *Packet, mark *list.Element) *list.Element {
	if p == nil || mark == nil {
		panic("InsertAfter: packet and mark must not be nil")
	}
	return q.l.InsertAfter(p, mark)
}

// Unlink removes el from the queue and returns its packet. el must belong to q.
func (q *PacketQueue) Unlink(el *list.Element) *Packet {
	if el == nil {
		panic("Unlink: element must not be nil")
	}
	return q.l.Remove(el).(*Packet)
}

// UnlinkAll empties the queue and returns the removed packets in order.
func (q *PacketQueue) UnlinkAll() []*Packet {
	out := make([]*Packet, 0, q.l.Len())
	for !q.Empty() {
		out = append(out, q.Dequeue())
	}
	return out
}

// First returns the head element, or nil if the queue is empty.
func (q *PacketQueue) First() *list.Element { return q.l.Front() }

// Last returns the tail element, or nil if the queue is empty.
func (q *PacketQueue) Last() *list.Element { return q.l.Back() }

// Next returns the element after el, or nil at the tail.
func (q *PacketQueue) Next(el *list.Element) *list.Element { return el.Next() }

// Prev returns the element before el, or nil at the head.
func (q *PacketQueue) Prev(el *list.Element) *list.Element { return el.Prev() }

// Find returns the element holding p, or nil if p is not queued.
func (q *PacketQueue) Find(p *Packet) *list.Element {
	for el := q.l.Front(); el != nil; el = el.Next() {
		if el.Value.(*Packet) == p {
			return el
		}
	}
	return nil
}

// Peek returns the packet at the head of the queue without removing it.
// Returns nil if the queue is empty.
func (q *PacketQueue) Peek() *Packet {
	if el := q.l.Front(); el != nil {
		return el.Value.(*Packet)
	}
	return nil
}

// Dequeue removes and returns the packet at the head of the queue.
// Returns nil if the queue is empty.
func (q *PacketQueue) Dequeue() *Packet {
	el := q.l.Front()
	if el == nil {
		return nil
	}
	return q.Unlink(el)
}

// Items returns the queued packets in order. The slice is a copy.
func (q *PacketQueue) Items() []*Packet {
	out := make([]*Packet, 0, q.l.Len())
	for el := q.l.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Packet))
	}
	return out
}

func (q *PacketQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for el := q.l.Front(); el != nil; el = el.Next() {
		sb.WriteString(fmt.Sprintf("p%d", el.Value.(*Packet).ID))
		if el.Next() != nil {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
