// Package div implements the 4-stage pipelined restoring Division Unit
// (spec §4.4), grounded on _examples/original_source/src/div_alu.py.
//
// Stage 1 latches the request and converts both operands to unsigned
// magnitude plus sign bits, and latches whether the divisor is zero.
// Stages 2 and 3 each perform 16 iterations of restoring
// shift/subtract/restore (bits 31..16, then 15..0) over a 33-bit
// remainder-quotient register, matching div_alu.py's two 16-iteration
// unrolled stages. Stage 4 reapplies the sign and — per spec §9's
// resolution of the divide-by-zero Open Question — on a zero divisor
// forces quotient=-1 and remainder=dividend (RISC-V M-extension
// semantics), rather than div_alu.py's literal raw partial remainder.
//
// Like rs and lsq, Step reads the previous tick's committed pipeline
// registers and commits next-tick registers atomically; clear zeroes
// the valid bit of every in-flight stage and this tick's output, per
// div_alu.py's "valid = valid_prev & ~clear" propagation at each stage.
package div

// Request is one tick's issue into stage 1 (spec §4.4 "issue").
type Request struct {
	Valid        bool
	ROBIndex     uint8
	PC           int32
	A, B         int32
	Signed       bool // DIV/REM vs DIVU/REMU
	GetRemainder bool // REM/REMU vs DIV/DIVU
}

// Result is the stage-4 output, valid exactly 3 ticks after a Request
// with Valid=true was issued on a clear-free path (spec §4.4).
type Result struct {
	Valid    bool
	ROBIndex uint8
	PC       int32
	Value    int32
}

// latch is the pipeline register shape shared by stage1->2->3.
type latch struct {
	Valid        bool
	ROBIndex     uint8
	PC           int32
	Quotient     uint32
	Remainder    uint64 // 33-bit remainder, stored widened
	Divisor      uint32
	DividendNeg  bool
	DivisorNeg   bool
	DivByZero    bool
	Dividend     int32
	GetRemainder bool
}

// Unit is the 4-stage pipelined divider. s1/s2/s3 are the registers
// committed after stage 1, 2 and 3 respectively; stage 4 is purely
// combinational over s3 and has no register of its own.
type Unit struct {
	s1, s2, s3 latch
}

// New builds an idle Unit.
func New() *Unit { return &Unit{} }

func abs32(signed bool, v int32) (mag uint32, neg bool) {
	if !signed {
		return uint32(v), false
	}
	if v < 0 {
		return uint32(-v), true
	}
	return uint32(v), false
}

func stage1(in Request) latch {
	if !in.Valid {
		return latch{}
	}
	dividendMag, dividendNeg := abs32(in.Signed, in.A)
	divisorMag, divisorNeg := abs32(in.Signed, in.B)
	return latch{
		Valid:        true,
		ROBIndex:     in.ROBIndex,
		PC:           in.PC,
		Quotient:     dividendMag,
		Remainder:    0,
		Divisor:      divisorMag,
		DividendNeg:  dividendNeg,
		DivisorNeg:   divisorNeg,
		DivByZero:    divisorMag == 0,
		Dividend:     in.A,
		GetRemainder: in.GetRemainder,
	}
}

// iterate runs `count` restoring-division steps, shifting the top bit
// of the (shrinking) quotient register into the bottom of the (growing)
// remainder register each step, then subtracting the divisor and either
// keeping the subtracted value (no borrow: set the quotient bit) or
// restoring it (borrow: leave remainder as the pre-subtract shift).
func iterate(l latch, count int) latch {
	if !l.Valid {
		return l
	}
	remainder := l.Remainder
	quotient := l.Quotient
	divisor := uint64(l.Divisor)
	for i := 0; i < count; i++ {
		topBit := (quotient >> 31) & 1
		quotient <<= 1
		remainder = ((remainder << 1) | uint64(topBit)) & 0x1FFFFFFFF // 33 bits
		diff := remainder - divisor
		if remainder >= divisor {
			remainder = diff & 0x1FFFFFFFF
			quotient |= 1
		}
	}
	l.Remainder = remainder
	l.Quotient = quotient
	return l
}

func finalize(l latch) Result {
	if !l.Valid {
		return Result{}
	}
	quotient := l.Quotient
	remainder := uint32(l.Remainder)
	quotientNeg := l.DividendNeg != l.DivisorNeg
	remainderNeg := l.DividendNeg

	var value int32
	switch {
	case l.DivByZero:
		if l.GetRemainder {
			value = l.Dividend
		} else {
			value = -1
		}
	case l.GetRemainder:
		if remainderNeg {
			value = -int32(remainder)
		} else {
			value = int32(remainder)
		}
	default:
		if quotientNeg {
			value = -int32(quotient)
		} else {
			value = int32(quotient)
		}
	}
	return Result{Valid: true, ROBIndex: l.ROBIndex, PC: l.PC, Value: value}
}

// Step advances the divider by one tick.
func (u *Unit) Step(in Request, clear bool) Result {
	newS1 := stage1(in)
	newS2 := iterate(u.s1, 16)
	newS3 := iterate(u.s2, 16)
	out := finalize(u.s3)

	if clear {
		newS1.Valid = false
		newS2.Valid = false
		newS3.Valid = false
		out.Valid = false
	}

	u.s1, u.s2, u.s3 = newS1, newS2, newS3
	return out
}

// Busy reports whether any pipeline stage holds an in-flight division.
func (u *Unit) Busy() bool {
	return u.s1.Valid || u.s2.Valid || u.s3.Valid
}
