// Package refunit provides reference implementations of the collab.ALU,
// collab.Mul and dcache.Port collaborator boundaries, used only to drive
// core's integration tests (spec §6) — not a production execution unit
// or cache model.
//
// ALU is adapted from SupraX.go's ExecuteALU/BarrelShift: the switch
// dispatch and the sequential conditionally-shift-by-2^k barrel shifter
// are kept, re-targeted from SuperH's binary OpXXX opcodes onto the
// one-hot RV32I_ALU table signals carries. Sim is adapted from
// SupraX.go's flat-array Memory, widened to a word-addressed int32 slice
// and wired to the dcache.Port boundary's one-tick-later read latency
// (spec §6: "the cache returns read data on the next tick").
package refunit

import (
	"github.com/supraxcore/ooo/collab"
	"github.com/supraxcore/ooo/dcache"
	"github.com/supraxcore/ooo/signals"
)

// ALU is a reference scalar-ALU collaborator.
type ALU struct{}

// barrelShift performs a sequential conditionally-shift-by-2^k shift,
// the software form of SupraX.go's BarrelShift staged mux chain.
func barrelShift(data uint32, amount uint8, left bool) uint32 {
	amount &= 0x1F
	for stage := uint(0); stage < 5; stage++ {
		bit := uint8(1) << stage
		if amount&bit == 0 {
			continue
		}
		shift := uint(bit)
		if left {
			data <<= shift
		} else {
			data >>= shift
		}
	}
	return data
}

func arithShiftRight(v int32, amount uint8) int32 {
	amount &= 0x1F
	return v >> amount
}

// Step computes the RV32I ALU result for one issued op, including
// branch-condition evaluation when IsBranch is set.
func (ALU) Step(req collab.ALURequest) collab.ALUResult {
	a, b := req.ALUA, req.ALUB
	if req.Flip {
		a, b = b, a
	}

	var value int32
	switch req.ALUType {
	case signals.ALUAdd:
		value = a + b
	case signals.ALUSub:
		value = a - b
	case signals.ALUAnd:
		value = a & b
	case signals.ALUOr:
		value = a | b
	case signals.ALUXor:
		value = a ^ b
	case signals.ALUSll:
		value = int32(barrelShift(uint32(a), uint8(b), true))
	case signals.ALUSrl:
		value = int32(barrelShift(uint32(a), uint8(b), false))
	case signals.ALUSra:
		value = arithShiftRight(a, uint8(b))
	case signals.ALUSlt:
		if a < b {
			value = 1
		}
	case signals.ALUSltu:
		if uint32(a) < uint32(b) {
			value = 1
		}
	default:
		value = 0
	}

	result := collab.ALUResult{ROBIndex: req.ROBIndex, Value: value}
	if req.LinkPC {
		result.Value = req.PC + 4
	}
	if req.IsBranch {
		result.Taken = value != 0
	}
	return result
}

// Mul is a reference multiplier collaborator covering MUL/MULH/MULHU/
// MULHSU (spec §3's one-hot opcode table, supplemented per SPEC_FULL §3
// from RV32M).
type Mul struct{}

func (Mul) Step(req collab.MulRequest) collab.MulResult {
	a, b := req.ALUA, req.ALUB
	switch req.ALUType {
	case signals.ALUMulh:
		wide := int64(a) * int64(b)
		return collab.MulResult{ROBIndex: req.ROBIndex, Value: int32(wide >> 32)}
	case signals.ALUMulhu:
		wide := uint64(uint32(a)) * uint64(uint32(b))
		return collab.MulResult{ROBIndex: req.ROBIndex, Value: int32(uint32(wide >> 32))}
	case signals.ALUMulhsu:
		wide := int64(a) * int64(uint32(b))
		return collab.MulResult{ROBIndex: req.ROBIndex, Value: int32(wide >> 32)}
	default: // ALUMul
		return collab.MulResult{ROBIndex: req.ROBIndex, Value: a * b}
	}
}

// Sim is a reference dcache.Port: a flat word-addressed memory with a
// one-tick read latency, the software form of SupraX.go's Memory.
type Sim struct {
	words   []int32
	pending dcache.ReadResult
}

// NewSim builds a Sim with room for wordCount 32-bit words.
func NewSim(wordCount int) *Sim {
	return &Sim{words: make([]int32, wordCount)}
}

// Step services one tick: it applies req (if We/Re set) and returns the
// ReadResult corresponding to the PRIOR tick's request, matching
// dcache.Port's one-tick latency contract.
func (s *Sim) Step(req dcache.Request) dcache.ReadResult {
	out := s.pending
	s.pending = dcache.ReadResult{}

	if int(req.Addr) >= len(s.words) {
		return out
	}
	if req.We {
		shift := uint(req.MemoryPlace&0x3) * 8
		mask := int32(0xFF) << shift
		s.words[req.Addr] = (s.words[req.Addr] &^ mask) | ((req.WData << shift) & mask)
	}
	if req.Re {
		s.pending = dcache.ReadResult{Data: s.words[req.Addr], Valid: true}
	}
	return out
}
