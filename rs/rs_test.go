// These tests of package rs double as functional verification of the Go model
// and a specification of expected scheduler behavior: the scenarios
// named here (S1, S6) correspond to the worked scenarios a hardware
// implementation of the same contract must also satisfy.
package rs

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/supraxcore/ooo/fwd"
	"github.com/supraxcore/ooo/signals"
)

// deadbeef is the 32-bit pattern 0xDEADBEEF as an int32 operand value.
const deadbeef int32 = -0x21524111

func allocReq(rob uint8, alu signals.ALUOp, rs1 fwd.Operand, rs2 fwd.Operand) AllocRequest {
	return AllocRequest{
		Write: true, ROBIndex: rob,
		Signals: signals.Decoded{RS1: 1, RS2: 2, RS1Valid: true, RS2Valid: true, ALU: alu},
		RS1:     rs1, RS2: rs2,
	}
}

func TestStep_AllocateThenIssueNextTick(t *testing.T) {
	s := New(nil)

	out := s.Step(StepInput{Alloc: allocReq(5, signals.ALUAdd, fwd.Operand{Value: 1}, fwd.Operand{Value: 2})})
	require.True(t, out.Allocated)
	require.False(t, out.ALU.Valid, "freshly allocated entry cannot issue the same tick it is allocated")

	out = s.Step(StepInput{})
	require.True(t, out.ALU.Valid)
	require.EqualValues(t, 5, out.ALU.ROBIndex)
}

// S1 — RS wake-up on allocation.
func TestStep_S1_WakeUpOnAllocation(t *testing.T) {
	s := New(nil)

	broadcast := fwd.Broadcast{Valid: true, Tag: 3, Value: deadbeef}
	alloc := allocReq(5, signals.ALUAdd, fwd.Operand{Recorder: 3, HasRecorder: true}, fwd.Operand{Value: 2})

	out := s.Step(StepInput{Alloc: alloc, Broadcast: broadcast})
	require.True(t, out.Allocated)

	snap := s.Snapshot()
	require.False(t, snap[5].RS1.HasRecorder)
	require.EqualValues(t, deadbeef, snap[5].RS1.Value)
}

func TestStep_AllocatedEntryMatchesExpectedShape(t *testing.T) {
	s := New(nil)
	alloc := allocReq(5, signals.ALUAdd, fwd.Operand{Recorder: 3, HasRecorder: true}, fwd.Operand{Value: 2})
	s.Step(StepInput{Alloc: alloc, Broadcast: fwd.Broadcast{Valid: true, Tag: 3, Value: deadbeef}})

	want := Entry{
		Allocated: true, ROBIndex: 5,
		RS1Reg: 1, RS2Reg: 2, HasRS1: true, HasRS2: true,
		RS1:     fwd.Operand{Value: deadbeef, Recorder: 3, HasRecorder: false},
		RS2:     fwd.Operand{Value: 2},
		ALUType: signals.ALUAdd,
	}
	got := s.Snapshot()[5]
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("allocated entry mismatch (-want +got):\n%s", diff)
	}
}

func TestStep_ResidentWakeUpResolvesNextTick(t *testing.T) {
	s := New(nil)
	s.Step(StepInput{Alloc: allocReq(2, signals.ALUAdd, fwd.Operand{Recorder: 1, HasRecorder: true}, fwd.Operand{Value: 0})})

	broadcast := fwd.Broadcast{Valid: true, Tag: 1, Value: 42}
	out := s.Step(StepInput{Broadcast: broadcast})
	require.False(t, out.ALU.Valid, "a resident entry woken this tick must not issue the same tick")

	out = s.Step(StepInput{})
	require.True(t, out.ALU.Valid)
	require.EqualValues(t, 42, out.ALU.A)
}

// S6 — RS mul vs ALU: two ready entries, one MUL one ALU, both fire and
// deallocate on the same tick. Entry 2 waits on a broadcast that arrives
// on the tick entry 5 is allocated, so both first become ready together.
func TestStep_S6_MulAndALUIssueTogether(t *testing.T) {
	s := New(nil)
	s.Step(StepInput{Alloc: allocReq(2, signals.ALUMul, fwd.Operand{Recorder: 7, HasRecorder: true}, fwd.Operand{Value: 4})})
	s.Step(StepInput{
		Alloc:     allocReq(5, signals.ALUAdd, fwd.Operand{Value: 1}, fwd.Operand{Value: 2}),
		Broadcast: fwd.Broadcast{Valid: true, Tag: 7, Value: 3},
	})

	out := s.Step(StepInput{})
	require.True(t, out.ALU.Valid)
	require.EqualValues(t, 5, out.ALU.ROBIndex)
	require.True(t, out.Mul.Valid)
	require.EqualValues(t, 2, out.Mul.ROBIndex)

	snap := s.Snapshot()
	require.False(t, snap[2].Allocated)
	require.False(t, snap[5].Allocated)
}

func TestStep_SelectionPrefersHighestIndexAmongReady(t *testing.T) {
	s := New(nil)
	// Entry 1 is woken on the tick entry 6 is allocated, so both are ready
	// on the following tick.
	s.Step(StepInput{Alloc: allocReq(1, signals.ALUAdd, fwd.Operand{Recorder: 7, HasRecorder: true}, fwd.Operand{Value: 1})})
	s.Step(StepInput{
		Alloc:     allocReq(6, signals.ALUAdd, fwd.Operand{Value: 1}, fwd.Operand{Value: 1}),
		Broadcast: fwd.Broadcast{Valid: true, Tag: 7, Value: 1},
	})

	out := s.Step(StepInput{})
	require.True(t, out.ALU.Valid)
	require.EqualValues(t, 6, out.ALU.ROBIndex, "last/highest-index-wins tie-break")
}

func TestStep_AllocationDroppedWhenSlotOccupied(t *testing.T) {
	s := New(nil)
	s.Step(StepInput{Alloc: allocReq(3, signals.ALUAdd, fwd.Operand{Value: 1}, fwd.Operand{Value: 1})})

	out := s.Step(StepInput{Alloc: allocReq(3, signals.ALUSub, fwd.Operand{Value: 9}, fwd.Operand{Value: 9})})
	require.False(t, out.Allocated)

	snap := s.Snapshot()
	require.Equal(t, signals.ALUAdd, snap[3].ALUType, "second write to an occupied slot must be a silent no-op")
}

func TestStep_ClearDeallocatesEverythingAndSuppressesActivity(t *testing.T) {
	s := New(nil)
	s.Step(StepInput{Alloc: allocReq(4, signals.ALUAdd, fwd.Operand{Value: 1}, fwd.Operand{Value: 1})})

	out := s.Step(StepInput{Clear: true, Alloc: allocReq(1, signals.ALUAdd, fwd.Operand{Value: 1}, fwd.Operand{Value: 1})})
	require.False(t, out.ALU.Valid)
	require.False(t, out.Allocated)

	for i, e := range s.Snapshot() {
		require.False(t, e.Allocated, "slot %d still allocated after clear", i)
	}
}

// I1: allocated[i] implies rob_index[i] == i, across a randomized trace.
func TestProperty_AllocatedSlotAlwaysMatchesItsOwnROBTag(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := New(nil)

	for tick := 0; tick < 2000; tick++ {
		var in StepInput
		if rng.Intn(2) == 0 {
			rob := uint8(rng.Intn(s.Size()))
			alu := signals.ALUAdd
			if rng.Intn(3) == 0 {
				alu = signals.ALUMul
			}
			in.Alloc = allocReq(rob, alu, fwd.Operand{Value: int32(rng.Int31())}, fwd.Operand{Value: int32(rng.Int31())})
		}
		if rng.Intn(20) == 0 {
			in.Clear = true
		}
		s.Step(in)

		for i, e := range s.Snapshot() {
			if e.Allocated {
				require.EqualValues(t, i, e.ROBIndex, "tick %d: slot %d violates I1", tick, i)
			}
		}
	}
}
