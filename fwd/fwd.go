// Package fwd implements the single broadcast/wake-up contract shared by
// RS and LSQ (spec §3 "Forwarding broadcast", §4.1 "Forwarding / Wake-up
// Rule").
//
// Both src/RS.py and lsq.py implement byte-for-byte the same
// "coincidence" snippet against their own modify-recorder bus:
//
//	rs1_coincidence = rs1_has_recorder & (rs1_recorder == rs_recorder) & rs_modify_recorder
//	rs1_has_recorder = rs1_coincidence.select(0, rs1_has_recorder)
//	rs1_value = rs1_coincidence.select(rs_modify_value, rs1_value)
//
// spec §9 flags this as an Open Question: "if multiple writeback sources
// exist in a fuller design, the forwarding fabric ... must be widened
// accordingly". This package is that widening, done once, so RS and LSQ
// consume one shared type instead of re-deriving the coincidence check.
package fwd

// Tag is a producer tag — the 3-bit ROB index a waiting consumer matches
// a broadcast against (spec §3, "Recorder" in GLOSSARY).
type Tag uint8

// Broadcast is the single-writer, multi-reader forwarding bus value for
// one tick: (fwd_tag, fwd_value, fwd_valid) in spec §3.
type Broadcast struct {
	Valid bool
	Tag   Tag
	Value int32
}

// Operand is a waiting operand latch: "has recorder" (still pending) and
// the recorder tag it is waiting on, paired with its current value.
type Operand struct {
	Value       int32
	Recorder    Tag
	HasRecorder bool
}

// Apply implements the wake-up rule of spec §4.1: if the broadcast is
// valid, the operand is still waiting, and its recorder tag matches, the
// operand resolves to the broadcast value this tick. Otherwise the
// operand passes through unchanged.
//
// This same call services both the resident-entry wake-up sweep AND the
// new-allocation path within the same tick (spec §4.1's "same-tick
// forwarding" requirement) — callers must invoke Apply on an
// about-to-be-allocated operand before storing it, not after.
func Apply(b Broadcast, op Operand) Operand {
	if b.Valid && op.HasRecorder && op.Recorder == b.Tag {
		return Operand{Value: b.Value, HasRecorder: false, Recorder: op.Recorder}
	}
	return op
}

// Ready reports whether an operand that is actually used by the owning
// instruction is resolved (spec I4): an unused operand (used=false) is
// trivially ready regardless of its recorder state.
func Ready(used bool, op Operand) bool {
	return !used || !op.HasRecorder
}
