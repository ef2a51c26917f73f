package fwd

import "testing"

// deadbeef is the 32-bit pattern 0xDEADBEEF as an int32 operand value.
const deadbeef int32 = -0x21524111

func TestApply_MatchingTagResolves(t *testing.T) {
	b := Broadcast{Valid: true, Tag: 3, Value: deadbeef}
	op := Operand{Recorder: 3, HasRecorder: true}

	got := Apply(b, op)

	if got.HasRecorder {
		t.Fatalf("expected operand to resolve, still has recorder")
	}
	if got.Value != deadbeef {
		t.Fatalf("value = %#x, want %#x", got.Value, deadbeef)
	}
}

func TestApply_MismatchedTagPassesThrough(t *testing.T) {
	b := Broadcast{Valid: true, Tag: 3, Value: deadbeef}
	op := Operand{Recorder: 4, HasRecorder: true, Value: 7}

	got := Apply(b, op)

	if !got.HasRecorder || got.Value != 7 {
		t.Fatalf("operand should pass through unchanged, got %+v", got)
	}
}

func TestApply_InvalidBroadcastPassesThrough(t *testing.T) {
	op := Operand{Recorder: 3, HasRecorder: true, Value: 9}
	got := Apply(Broadcast{}, op)
	if !got.HasRecorder || got.Value != 9 {
		t.Fatalf("invalid broadcast must never resolve an operand, got %+v", got)
	}
}

func TestApply_ResolvedOperandIgnoresFurtherBroadcasts(t *testing.T) {
	op := Operand{Value: 1}
	got := Apply(Broadcast{Valid: true, Tag: 0, Value: 99}, op)
	if got.Value != 1 {
		t.Fatalf("operand without a pending recorder must not be touched, got %+v", got)
	}
}

func TestReady_UnusedOperandAlwaysReady(t *testing.T) {
	if !Ready(false, Operand{HasRecorder: true}) {
		t.Fatalf("an operand the instruction does not use must be trivially ready")
	}
}

func TestReady_UsedOperandTracksRecorder(t *testing.T) {
	if Ready(true, Operand{HasRecorder: true}) {
		t.Fatalf("used operand still waiting on a recorder must not be ready")
	}
	if !Ready(true, Operand{HasRecorder: false}) {
		t.Fatalf("used operand with no pending recorder must be ready")
	}
}
