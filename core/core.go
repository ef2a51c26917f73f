// Package core wires RS, LSQ, DIV and the shared forwarding bus into
// one per-tick Step call (spec §2 "Glue contracts", §6), the direct
// analogue of the teacher's SUPRAXCore.Cycle()/OoOScheduler.
// ScheduleCycle0/1 split, generalized from "one pipeline" to "three
// independently-allocating units sharing one single-writer broadcast
// bus", per spec §5's note that arbitrating multiple same-tick
// completions is the caller's responsibility.
//
// Arbitration policy (a decision this package makes, not spec §9 — see
// DESIGN.md): when more than one of {DIV completion, ALU result, MUL
// result} would want the shared bus on the same tick, DIV wins (it has
// been waiting the longest, having already occupied the pipeline for
// three prior ticks), then ALU, then MUL. A suppressed result is
// logged and otherwise silently dropped, matching spec §7's "no
// recoverable errors" stance — a fuller design would need per-unit
// completion buffering, explicitly out of scope here.
package core

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/supraxcore/ooo/collab"
	"github.com/supraxcore/ooo/dcache"
	"github.com/supraxcore/ooo/div"
	"github.com/supraxcore/ooo/fwd"
	"github.com/supraxcore/ooo/lsq"
	"github.com/supraxcore/ooo/rs"
	"github.com/supraxcore/ooo/signals"
)

// Config carries the compile-time-ish sizing knobs spec §6 calls for at
// this layer (no file/env/CLI config surface — see SPEC_FULL §2.3).
type Config struct {
	RSSize  int // 0 means rs.DefaultSize
	LSQSize int // 0 means lsq.DefaultSize
}

// AllocRequest is one tick's dispatch request from the external
// ROB/rename stage. A request routes to LSQ when the decode is a
// load/store, otherwise to RS (spec §2's allocate/dispatch contract).
type AllocRequest struct {
	Write    bool
	ROBIndex uint8
	PC       int32
	Signals  signals.Decoded
	RS1      fwd.Operand
	RS2      fwd.Operand
}

// StepInput bundles everything Core consumes on one tick.
type StepInput struct {
	Alloc        AllocRequest
	ROBHeadIndex uint8
	Clear        bool
}

// StepOutput bundles everything Core produces on one tick.
type StepOutput struct {
	Broadcast   fwd.Broadcast
	Cache       dcache.Request
	CacheResult dcache.ReadResult // this tick's response to the PRIOR tick's Cache request
	Retire      lsq.Retire
	BranchTaken bool // only meaningful when Broadcast is sourced from a branch ALU op
	Allocated   bool // whether StepInput.Alloc was accepted this tick, by whichever unit it targeted
	LSQFull     bool
}

// Core wires together the Reservation Station, Load/Store Queue,
// Division Unit, and the opaque ALU/Mul/dcache collaborators.
type Core struct {
	RS  *rs.Station
	LSQ *lsq.Queue
	Div *div.Unit

	alu   collab.ALU
	mul   collab.Mul
	cache dcache.Port

	pendingBroadcast fwd.Broadcast
	log              *logrus.Entry
}

// New builds a Core from the given collaborators and sizing config.
func New(cfg Config, alu collab.ALU, mul collab.Mul, cache dcache.Port, log *logrus.Entry) (*Core, error) {
	if alu == nil || mul == nil || cache == nil {
		return nil, fmt.Errorf("core: alu, mul and cache collaborators must all be non-nil")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "core")

	rsSize := cfg.RSSize
	if rsSize == 0 {
		rsSize = rs.DefaultSize
	}
	lsqSize := cfg.LSQSize
	if lsqSize == 0 {
		lsqSize = lsq.DefaultSize
	}

	rStation, err := rs.NewSized(rsSize, log)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	lQueue, err := lsq.NewSized(lsqSize, log)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	return &Core{
		RS: rStation, LSQ: lQueue, Div: div.New(),
		alu: alu, mul: mul, cache: cache, log: log,
	}, nil
}

// Step advances RS, LSQ and DIV by one tick and arbitrates the shared
// forwarding bus among whatever completes this tick.
func (c *Core) Step(in StepInput) StepOutput {
	isMem := in.Alloc.Write && (in.Alloc.Signals.IsLoad || in.Alloc.Signals.IsStore)

	var rsAlloc rs.AllocRequest
	var lsqAlloc lsq.AllocRequest
	if in.Alloc.Write && isMem {
		lsqAlloc = lsq.AllocRequest{
			Write: true, ROBIndex: in.Alloc.ROBIndex, PC: in.Alloc.PC,
			Signals: in.Alloc.Signals, RS1: in.Alloc.RS1, RS2: in.Alloc.RS2,
		}
	} else if in.Alloc.Write {
		rsAlloc = rs.AllocRequest{
			Write: true, ROBIndex: in.Alloc.ROBIndex, PC: in.Alloc.PC,
			Signals: in.Alloc.Signals, RS1: in.Alloc.RS1, RS2: in.Alloc.RS2,
		}
	}

	// RS/LSQ wake-up this tick observes the broadcast that WON
	// arbitration last tick, held in pendingBroadcast. There's no
	// same-tick cycle here even though ALU/MUL results are
	// combinational: RS's wake-up sweep is defined over the prior
	// tick's broadcast (spec §4.1/§5), never the one its own issue
	// bundle is about to produce this tick.
	broadcastIn := c.pendingBroadcast

	rsOut := c.RS.Step(rs.StepInput{Alloc: rsAlloc, Broadcast: broadcastIn, Clear: in.Clear})
	lsqOut := c.LSQ.Step(lsq.StepInput{Alloc: lsqAlloc, Broadcast: broadcastIn, ROBHeadIndex: in.ROBHeadIndex, Clear: in.Clear})

	var divReq div.Request
	var aluResult collab.ALUResult
	var aluFired bool
	if rsOut.ALU.Valid {
		if rsOut.ALU.ALUType.IsDiv() {
			divReq = div.Request{
				Valid: true, ROBIndex: rsOut.ALU.ROBIndex, PC: rsOut.ALU.PC,
				A: rsOut.ALU.ALUA, B: rsOut.ALU.ALUB,
				Signed: rsOut.ALU.ALUType.Signed(), GetRemainder: rsOut.ALU.ALUType.GetRemainder(),
			}
		} else {
			aluResult = c.alu.Step(collab.ALURequest{
				ROBIndex: rsOut.ALU.ROBIndex, ALUA: rsOut.ALU.ALUA, ALUB: rsOut.ALU.ALUB,
				Cond: rsOut.ALU.Cond, Flip: rsOut.ALU.Flip, IsBranch: rsOut.ALU.IsBranch,
				LinkPC: rsOut.ALU.LinkPC, IsJALR: rsOut.ALU.IsJALR, ALUType: rsOut.ALU.ALUType, PC: rsOut.ALU.PC,
			})
			aluFired = true
		}
	}
	divResult := c.Div.Step(divReq, in.Clear)

	var mulResult collab.MulResult
	var mulFired bool
	if rsOut.Mul.Valid {
		mulResult = c.mul.Step(collab.MulRequest{
			ROBIndex: rsOut.Mul.ROBIndex, ALUA: rsOut.Mul.ALUA, ALUB: rsOut.Mul.ALUB,
			ALUType: rsOut.Mul.ALUType, GetHighBit: rsOut.Mul.GetHighBit,
			RS1Sign: rsOut.Mul.RS1Sign, RS2Sign: rsOut.Mul.RS2Sign,
		})
		mulFired = true
	}

	var out StepOutput
	switch {
	case divResult.Valid:
		out.Broadcast = fwd.Broadcast{Valid: true, Tag: fwd.Tag(divResult.ROBIndex), Value: divResult.Value}
		if aluFired || mulFired {
			c.log.Warn("core: div completion collided with alu/mul result, alu/mul result dropped")
		}
	case aluFired:
		out.Broadcast = fwd.Broadcast{Valid: true, Tag: fwd.Tag(aluResult.ROBIndex), Value: aluResult.Value}
		out.BranchTaken = aluResult.Taken
		if mulFired {
			c.log.Warn("core: alu result collided with mul result, mul result dropped")
		}
	case mulFired:
		out.Broadcast = fwd.Broadcast{Valid: true, Tag: fwd.Tag(mulResult.ROBIndex), Value: mulResult.Value}
	}

	out.Cache = lsqOut.Cache
	out.CacheResult = c.cache.Step(lsqOut.Cache)
	out.Retire = lsqOut.Retire
	out.Allocated = rsOut.Allocated || lsqOut.Allocated
	out.LSQFull = lsqOut.Full

	c.pendingBroadcast = out.Broadcast
	return out
}
