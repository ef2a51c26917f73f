// Package lsq implements the Load/Store Queue (spec §4.3): an in-order
// ring buffer of pending memory ops that resolves its own address,
// drives the dcache port from its head entry once ready, and retires
// loads and stores strictly in allocation order.
//
// Grounded on _examples/original_source/lsq.py. That source reserves one
// ring-buffer slot to disambiguate full from empty without a separate
// flag — full is defined as (size+1 == Size), so at most Size-1 entries
// are ever resident at once. This is carried forward unchanged (spec
// §4.3, §9) rather than "fixed", since it is the queue's actual
// contract, not an incidental bug.
//
// Step follows the same two-phase old/next discipline as package rs:
// execute-gating and retirement reporting read the previous tick's
// committed head entry ("old"); the resident wake-up sweep and
// allocation both write "next", with allocation additionally applying
// same-tick forwarding to its own incoming operands (spec §4.1) before
// storing them, exactly like RS.
package lsq

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/supraxcore/ooo/dcache"
	"github.com/supraxcore/ooo/fwd"
	"github.com/supraxcore/ooo/internal/assert"
	"github.com/supraxcore/ooo/signals"
)

// DefaultSize is LSQ_SIZE from spec §6. Because of the reserved-slot
// full/empty disambiguation, DefaultSize-1 is the real occupancy cap.
const DefaultSize = 8

// DepthLog is the data-cache word-address width LSQ truncates resolved
// addresses to before driving dcache.Request.Addr (spec §6, "addr[2:2+
// DepthLog-1]"). Truncation/out-of-range behavior beyond this width is
// left to the dcache.Port collaborator (spec §9 Open Question).
const DepthLog = 10

// Entry is one LSQ slot.
type Entry struct {
	Allocated bool
	ROBIndex  uint8
	PC        int32 // used to compute the retired-pc-plus-4 result

	IsLoad  bool
	IsStore bool

	RS1Reg uint8
	RS2Reg uint8
	HasRS1 bool
	HasRS2 bool
	RS1    fwd.Operand
	RS2    fwd.Operand

	Imm int32

	Ready bool
}

func (e *Entry) computeReady() bool {
	return fwd.Ready(e.HasRS1, e.RS1) && fwd.Ready(e.HasRS2, e.RS2)
}

// AllocRequest is the allocation-time input (spec §4.3 "allocate").
type AllocRequest struct {
	Write    bool
	ROBIndex uint8
	PC       int32
	Signals  signals.Decoded
	RS1      fwd.Operand
	RS2      fwd.Operand
}

// Retire reports the head entry's retirement bundle for this tick,
// computed from the entry that was at head BEFORE this tick's execute
// advance (spec §4.3 "retirement reporting").
type Retire struct {
	Valid    bool
	ROBIndex uint8
	NextPC   int32 // pc + 4
}

// StepInput bundles everything LSQ consumes on one tick.
type StepInput struct {
	Alloc        AllocRequest
	Broadcast    fwd.Broadcast
	ROBHeadIndex uint8 // store-gating reference (spec §4.3)
	Clear        bool
}

// StepOutput bundles everything LSQ produces on one tick.
type StepOutput struct {
	Cache     dcache.Request
	Retire    Retire
	Allocated bool
	Full      bool
}

// Queue is the Load/Store Queue ring buffer.
type Queue struct {
	entries []Entry
	head    int
	tail    int
	size    int
	log     *logrus.Entry
}

// New builds a Queue with the default (8-slot) size.
func New(log *logrus.Entry) *Queue {
	q, err := NewSized(DefaultSize, log)
	if err != nil {
		panic(err)
	}
	return q
}

// NewSized builds a Queue with a caller-chosen size.
func NewSized(size int, log *logrus.Entry) (*Queue, error) {
	if size <= 1 || size > 256 {
		return nil, fmt.Errorf("lsq: size must be in [2,256], got %d", size)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Queue{entries: make([]Entry, size), log: log.WithField("component", "lsq")}, nil
}

func operandOrZero(reg uint8, val int32) int32 {
	if reg == 0 {
		return 0
	}
	return val
}

// Step advances the LSQ by one tick. See the package doc comment for
// the two-phase old/next semantics this implements.
func (q *Queue) Step(in StepInput) StepOutput {
	n := len(q.entries)
	var out StepOutput

	if in.Clear {
		q.entries = make([]Entry, n)
		q.head, q.tail, q.size = 0, 0, 0
		q.log.Debug("lsq clear")
		return out
	}

	oldHead, oldSize, oldTail := q.head, q.size, q.tail
	old := q.entries

	// Execute (head-only, in-order): reads `old` only.
	headEntry := old[oldHead]
	canIssueStore := headEntry.ROBIndex == in.ROBHeadIndex
	executeValid := oldSize > 0 && headEntry.Allocated && headEntry.Ready && (!headEntry.IsStore || canIssueStore)

	if executeValid {
		addr := operandOrZero(headEntry.RS1Reg, headEntry.RS1.Value) + headEntry.Imm
		out.Cache = dcache.Request{
			We:          headEntry.IsStore,
			Re:          headEntry.IsLoad,
			Addr:        uint32(addr>>2) & ((1 << DepthLog) - 1),
			WData:       operandOrZero(headEntry.RS2Reg, headEntry.RS2.Value),
			MemoryPlace: uint8(addr & 0x3),
		}
	}
	out.Retire = Retire{Valid: executeValid, ROBIndex: headEntry.ROBIndex, NextPC: headEntry.PC + 4}

	// Resident wake-up sweep: writes `next`, reads only `old`/`in`.
	next := make([]Entry, n)
	copy(next, old)
	for i := 0; i < n; i++ {
		if !old[i].Allocated {
			continue
		}
		next[i].RS1 = fwd.Apply(in.Broadcast, old[i].RS1)
		next[i].RS2 = fwd.Apply(in.Broadcast, old[i].RS2)
		next[i].Ready = fwd.Ready(old[i].HasRS1, next[i].RS1) && fwd.Ready(old[i].HasRS2, next[i].RS2)
	}

	// Advance head if this tick's execute retires the head entry.
	newHead, newSize := oldHead, oldSize
	if executeValid {
		next[oldHead].Allocated = false
		newHead = (oldHead + 1) % n
		newSize--
		q.log.WithField("slot", oldHead).Debug("lsq execute")
	}

	// Allocation: full is defined on `oldSize`, matching the reserved
	// extra-slot full/empty disambiguation (see package doc comment).
	full := oldSize+1 == n
	out.Full = full
	if in.Alloc.Write {
		if full {
			q.log.Debug("lsq allocate: queue full, dropped")
		} else {
			rs1 := fwd.Apply(in.Broadcast, in.Alloc.RS1)
			rs2 := fwd.Apply(in.Broadcast, in.Alloc.RS2)
			sig := in.Alloc.Signals
			e := Entry{
				Allocated: true,
				ROBIndex:  in.Alloc.ROBIndex,
				PC:        in.Alloc.PC,
				IsLoad:    sig.IsLoad,
				IsStore:   sig.IsStore,
				RS1Reg:    sig.RS1,
				RS2Reg:    sig.RS2,
				HasRS1:    sig.RS1Valid,
				HasRS2:    sig.RS2Valid,
				RS1:       rs1,
				RS2:       rs2,
				Imm:       sig.Imm,
			}
			e.Ready = e.computeReady()
			next[oldTail] = e
			q.tail = (oldTail + 1) % n
			newSize++
			out.Allocated = true
			q.log.WithField("slot", oldTail).Debug("lsq allocate")
		}
	}

	q.entries = next
	q.head = newHead
	q.size = newSize
	assert.Invariant(q.size >= 0 && q.size < n, "lsq: size %d out of range [0,%d)", q.size, n)

	return out
}

// Snapshot returns a copy of the live entries, for tests and debugging.
func (q *Queue) Snapshot() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Size reports the current occupancy.
func (q *Queue) Size() int { return q.size }

// Capacity reports the configured ring-buffer width (not the usable
// occupancy cap, which is Capacity()-1 — see package doc comment).
func (q *Queue) Capacity() int { return len(q.entries) }
