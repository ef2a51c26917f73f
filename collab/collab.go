// Package collab defines the opaque scalar-ALU and multiplier
// collaborator boundaries RS issues against (spec §4.2, §6). Both units
// are external to this module; this package only carries the request
// shapes core.Core hands them and the interfaces it calls.
package collab

import "github.com/supraxcore/ooo/signals"

// ALURequest is the issue bundle a scalar ALU collaborator consumes,
// the collaborator-facing projection of rs.ALUIssue.
type ALURequest struct {
	ROBIndex uint8
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

// ALUResult is the value the scalar ALU broadcasts back this tick.
type ALUResult struct {
	ROBIndex uint8
	Value    int32
	Taken    bool // branch resolution, when IsBranch
}

// ALU is the opaque scalar-ALU collaborator (spec §6). Implementations
// are expected to be purely combinational: Step's result is valid on
// the same tick it is called.
type ALU interface {
	Step(req ALURequest) ALUResult
}

// MulRequest is the issue bundle a multiplier collaborator consumes,
// the collaborator-facing projection of rs.MulIssue.
type MulRequest struct {
	ROBIndex   uint8
	ALUA, ALUB int32
	ALUType    signals.ALUOp
	GetHighBit bool
	RS1Sign    bool
	RS2Sign    bool
}

// MulResult is the value a multiplier collaborator broadcasts back.
type MulResult struct {
	ROBIndex uint8
	Value    int32
}

// Mul is the opaque multiplier collaborator (spec §6). Unlike DIV, spec
// treats the multiplier as single-cycle/combinational from the core's
// point of view, so Mul has no pipeline depth of its own here.
type Mul interface {
	Step(req MulRequest) MulResult
}
