// Package rs implements the Reservation Station (spec §4.2): an indexed
// table of pending ALU/MUL instructions with operand forwarding, which
// selects one ready integer op and one ready mul op per tick.
//
// This is a generalization of the teacher's proto/ooo/ooo.go bitmap/CLZ
// scheduler (ComputeReadyBitmap + the "last valid index wins" selection
// loop) onto the recorder-tag wake-up scheme and fixed ROB-tag-indexed
// slotting of src/RS.py, rather than ooo.go's 32-wide dependency-matrix
// scheduler — RS here has no dependency matrix because recorder tags
// already encode the one producer an entry can be waiting on per operand
// (spec §9, "RS slot = ROB tag").
//
// Every tick is two-phase, matching spec §2/§5: Step reads an immutable
// snapshot of the previous tick's committed entries ("old"), computes
// selection and allocation purely from that snapshot, and only then
// commits the next tick's entries ("next") atomically. This matters for
// a subtle reason the original src/RS.py gets right and a naive
// translation gets wrong: the resident wake-up sweep (applied to `next`)
// must NOT feed back into this tick's selection — selection and
// allocation both read `old`, so an entry woken this tick cannot issue
// until the following tick, while a freshly allocated entry also cannot
// be selected the very tick it is allocated (its `old` allocated bit was
// false). The one intentional exception is the allocation write path
// itself, which applies wake-up to its *own* incoming operands before
// storing them (spec §4.1's same-tick forwarding) — without this, the
// generic resident sweep structurally cannot reach an index that was
// unallocated in `old`, and a newly dispatched consumer would miss a
// one-shot broadcast pulse forever.
package rs

import (
	"fmt"
	"math/bits"

	"github.com/sirupsen/logrus"

	"github.com/supraxcore/ooo/fwd"
	"github.com/supraxcore/ooo/internal/assert"
	"github.com/supraxcore/ooo/signals"
)

// DefaultSize is RS_SIZE from spec §6 — also the ROB tag width
// (log2(DefaultSize) = 3 bits), since RS is indexed by ROB tag (I1).
const DefaultSize = 8

// Entry is one RS slot (spec §3 "RS entry"). Allocated implies
// ROBIndex == the slot's own index (invariant I1).
type Entry struct {
	Allocated bool
	ROBIndex  uint8

	RS1Reg uint8
	RS2Reg uint8
	HasRS1 bool
	HasRS2 bool
	RS1    fwd.Operand
	RS2    fwd.Operand

	Imm    int32
	HasImm bool

	LinkPC     bool
	IsJALR     bool
	ALUType    signals.ALUOp
	Cond       signals.ALUOp
	Flip       bool
	IsBranch   bool
	Addr       int32 // pc
	GetHighBit bool
	RS1Sign    bool
	RS2Sign    bool
}

// ready reports whether both operands this entry actually uses are
// resolved — spec I4's "operands-ready" predicate.
func (e *Entry) ready() bool {
	return fwd.Ready(e.HasRS1, e.RS1) && fwd.Ready(e.HasRS2, e.RS2)
}

// AllocRequest is the allocation-time input (spec §4.2 "allocate").
// RS1/RS2 carry the operand value/recorder state as resolved by the
// caller (typically the ROB/rename stage) BEFORE this tick's broadcast
// is applied — Station.Step applies the wake-up rule to them internally,
// satisfying spec §4.1's same-tick forwarding requirement.
type AllocRequest struct {
	Write    bool
	ROBIndex uint8
	Signals  signals.Decoded
	RS1      fwd.Operand
	RS2      fwd.Operand
	PC       int32
}

// ALUIssue is the issue bundle handed to the scalar ALU collaborator
// (spec §4.2 "Issue bundle for ALU").
type ALUIssue struct {
	Valid    bool
	ROBIndex uint8
	A, B     int32
	ALUA     int32
	ALUB     int32
	Cond     signals.ALUOp
	Flip     bool
	IsBranch bool
	LinkPC   bool
	IsJALR   bool
	ALUType  signals.ALUOp
	PC       int32
}

// MulIssue is the issue bundle handed to the multiplier collaborator
// (spec §4.2 "Issue bundle for MUL").
type MulIssue struct {
	Valid      bool
	ROBIndex   uint8
	ALUA, ALUB int32
	ALUType    signals.ALUOp
	PC         int32
	GetHighBit bool
	RS1Sign    bool
	RS2Sign    bool
	Clear      bool
}

// StepInput bundles everything RS consumes on one tick.
type StepInput struct {
	Alloc     AllocRequest
	Broadcast fwd.Broadcast
	Clear     bool
}

// StepOutput bundles everything RS produces on one tick.
type StepOutput struct {
	ALU       ALUIssue
	Mul       MulIssue
	Allocated bool // true iff the AllocRequest was accepted this tick
}

// Station is the Reservation Station: DefaultSize (or a caller-chosen
// power-of-two size) entries indexed by ROB tag.
type Station struct {
	entries []Entry
	log     *logrus.Entry
}

// New builds a Station with the default (8-entry) size.
func New(log *logrus.Entry) *Station {
	s, err := NewSized(DefaultSize, log)
	if err != nil {
		panic(err)
	}
	return s
}

// NewSized builds a Station with a caller-chosen power-of-two size,
// supporting spec §6's "RS_SIZE ... coupled [to ROB tag width]"
// configuration knob. size must be a power of two in [1,256] since ROB
// tags are stored in a uint8.
func NewSized(size int, log *logrus.Entry) (*Station, error) {
	if size <= 0 || size > 256 || size&(size-1) != 0 {
		return nil, fmt.Errorf("rs: size must be a power of two in [1,256], got %d", size)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Station{entries: make([]Entry, size), log: log.WithField("component", "rs")}, nil
}

func operandOrZero(reg uint8, val int32) int32 {
	if reg == 0 {
		return 0
	}
	return val
}

// Step advances the Reservation Station by one tick. See the package
// doc comment for the two-phase old/next semantics this implements.
func (s *Station) Step(in StepInput) StepOutput {
	n := len(s.entries)
	old := s.entries // read-only for the duration of this call
	var out StepOutput

	if in.Clear {
		s.entries = make([]Entry, n)
		s.log.Debug("rs clear")
		return out
	}

	next := make([]Entry, n)
	copy(next, old)

	// Resident wake-up sweep: writes `next`, reads only `old`/`in`.
	for i := 0; i < n; i++ {
		if !old[i].Allocated {
			continue
		}
		next[i].RS1 = fwd.Apply(in.Broadcast, old[i].RS1)
		next[i].RS2 = fwd.Apply(in.Broadcast, old[i].RS2)
		if (old[i].RS1.HasRecorder && !next[i].RS1.HasRecorder) || (old[i].RS2.HasRecorder && !next[i].RS2.HasRecorder) {
			s.log.WithFields(logrus.Fields{"slot": i, "tag": in.Broadcast.Tag, "value": in.Broadcast.Value}).Debug("rs wake-up")
		}
	}

	// Selection: reads only `old` (spec: selection observes the prior
	// tick's committed readiness, not this tick's wake-up). Scan 0..n-1,
	// "last/highest index wins" per spec §9 — expressed as a ready
	// bitmask + highest-set-bit extraction, in the style of the
	// teacher's proto/ooo/ooo.go SelectIssueBundle.
	var readyALU, readyMul [4]uint64 // one bit per slot, up to 256 slots
	for i := 0; i < n; i++ {
		if !old[i].Allocated || !old[i].ready() {
			continue
		}
		if old[i].ALUType.IsMul() {
			readyMul[i/64] |= 1 << uint(i%64)
		} else {
			readyALU[i/64] |= 1 << uint(i%64)
		}
	}
	highest := func(m [4]uint64) int {
		for w := len(m) - 1; w >= 0; w-- {
			if m[w] != 0 {
				return w*64 + 63 - bits.LeadingZeros64(m[w])
			}
		}
		return -1
	}

	if idx := highest(readyALU); idx >= 0 {
		e := &old[idx]
		a := operandOrZero(e.RS1Reg, e.RS1.Value)
		b := operandOrZero(e.RS2Reg, e.RS2.Value)
		aluA := a
		if e.IsBranch {
			aluA = e.Addr
		}
		aluB := b
		if e.HasImm {
			aluB = e.Imm
		}
		out.ALU = ALUIssue{
			Valid: true, ROBIndex: e.ROBIndex, A: a, B: b, ALUA: aluA, ALUB: aluB,
			Cond: e.Cond, Flip: e.Flip, IsBranch: e.IsBranch, LinkPC: e.LinkPC,
			IsJALR: e.IsJALR, ALUType: e.ALUType, PC: e.Addr,
		}
		next[idx].Allocated = false
		s.log.WithField("slot", idx).Debug("rs issue alu")
	}

	if idx := highest(readyMul); idx >= 0 {
		e := &old[idx]
		a := operandOrZero(e.RS1Reg, e.RS1.Value)
		b := operandOrZero(e.RS2Reg, e.RS2.Value)
		out.Mul = MulIssue{
			Valid: true, ROBIndex: e.ROBIndex, ALUA: a, ALUB: b, ALUType: e.ALUType,
			PC: e.Addr, GetHighBit: e.GetHighBit, RS1Sign: e.RS1Sign, RS2Sign: e.RS2Sign,
		}
		next[idx].Allocated = false
		s.log.WithField("slot", idx).Debug("rs issue mul")
	}

	// Allocation: gated on `old` occupancy, applies same-tick wake-up to
	// the incoming operands before storing (spec §4.1).
	if in.Alloc.Write {
		idx := in.Alloc.ROBIndex
		if int(idx) >= n {
			s.log.WithField("rob_index", idx).Warn("rs allocate: rob index out of range, dropped")
		} else if old[idx].Allocated {
			s.log.WithField("slot", idx).Debug("rs allocate: slot occupied, dropped")
		} else {
			rs1 := fwd.Apply(in.Broadcast, in.Alloc.RS1)
			rs2 := fwd.Apply(in.Broadcast, in.Alloc.RS2)
			sig := in.Alloc.Signals
			next[idx] = Entry{
				Allocated:  true,
				ROBIndex:   idx,
				RS1Reg:     sig.RS1,
				RS2Reg:     sig.RS2,
				HasRS1:     sig.RS1Valid,
				HasRS2:     sig.RS2Valid,
				RS1:        rs1,
				RS2:        rs2,
				Imm:        sig.Imm,
				HasImm:     sig.ImmValid,
				LinkPC:     sig.LinkPC,
				IsJALR:     sig.IsJALR,
				ALUType:    sig.ALU,
				Cond:       sig.Cond,
				Flip:       sig.Flip,
				IsBranch:   sig.IsBranch,
				Addr:       in.Alloc.PC,
				GetHighBit: sig.GetHighBit,
				RS1Sign:    sig.RS1Sign,
				RS2Sign:    sig.RS2Sign,
			}
			assert.Invariant(next[idx].ROBIndex == idx, "rs: allocated[%d].rob_index must equal slot index", idx)
			out.Allocated = true
			s.log.WithField("slot", idx).Debug("rs allocate")
		}
	}

	s.entries = next
	return out
}

// Snapshot returns a copy of the live entries, for tests and debugging.
func (s *Station) Snapshot() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Size returns the number of RS slots.
func (s *Station) Size() int { return len(s.entries) }
