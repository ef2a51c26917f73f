// Package signals defines the decoder signal bundle and the one-hot ALU
// opcode vector consumed by RS and LSQ at allocation time.
//
// This is the Go expression of the `decoder_signals` struct referenced by
// the original assassyn sources (src/RS.py, lsq.py) and of RV32I_ALU, the
// one-hot opcode enum those modules import. Fetch/decode itself lives
// outside this module (see spec §1's scope); this package only carries
// the bundle decode is expected to hand off.
package signals

// ALUOp is a one-hot encoded ALU/MUL/DIV opcode vector, CNT bits wide.
// Exactly one bit is set for a valid decode; ALUNone is the explicit
// no-operation position. An issue bundle for a port that goes unused on
// a tick carries the zero ALUOp alongside Valid=false.
type ALUOp uint32

// RV32I/M opcode positions. Widened from SuperH's binary OpXXX encoding
// in the teacher's SupraX.go into RISC-V's integer and M-extension ops,
// one-hot per spec §3 ("alu: one-hot ALU opcode, width = RV32I_ALU.CNT").
const (
	ALUAdd ALUOp = 1 << iota
	ALUSub
	ALUAnd
	ALUOr
	ALUXor
	ALUSll
	ALUSrl
	ALUSra
	ALUSlt
	ALUSltu
	ALUMul
	ALUMulh
	ALUMulhu
	ALUMulhsu
	ALUDiv
	ALUDivu
	ALURem
	ALURemu
	ALUNone

	// CNT is the one-hot vector width (RV32I_ALU.CNT in the original).
	CNT = iota
)

// IsMul reports whether op is the one-hot multiply opcode — the
// distinguished position RS uses to route an entry to the multiplier
// port instead of the scalar ALU port (spec §4.2).
func (op ALUOp) IsMul() bool { return op == ALUMul }

// IsDiv reports whether op is one of the one-hot divide/remainder
// opcodes — the distinguished positions the glue layer (core) uses to
// route an entry to the DIV unit instead of the scalar ALU port.
func (op ALUOp) IsDiv() bool {
	return op == ALUDiv || op == ALUDivu || op == ALURem || op == ALURemu
}

// GetRemainder reports whether a one-hot divide opcode wants the
// remainder rather than the quotient (REM/REMU vs DIV/DIVU).
func (op ALUOp) GetRemainder() bool {
	return op == ALURem || op == ALURemu
}

// Signed reports whether a one-hot divide opcode operates on signed
// magnitudes (DIV/REM) as opposed to unsigned (DIVU/REMU).
func (op ALUOp) Signed() bool {
	return op == ALUDiv || op == ALURem
}

// Decoded is the decoder signal bundle carried by rs.AllocRequest and
// lsq.AllocRequest — the Go shape of `decoder_signals` in the original
// sources. Register numbers are 5 bits (0-31); IsLoad/IsStore correspond
// to `signals.memory[0]`/`signals.memory[1]`.
type Decoded struct {
	RS1, RS2           uint8
	RS1Valid, RS2Valid bool

	Imm      int32
	ImmValid bool

	IsLoad  bool
	IsStore bool

	ALU ALUOp

	Cond       ALUOp
	Flip       bool
	IsBranch   bool
	LinkPC     bool
	IsJALR     bool
	GetHighBit bool
	RS1Sign    bool
	RS2Sign    bool
}
