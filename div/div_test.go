// These tests of package div double as functional verification and a
// specification of the four-stage pipeline's expected timing and
// divide-by-zero behavior (scenarios S3-S5).
package div

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func stepN(u *Unit, n int, clear bool) Result {
	var out Result
	for i := 0; i < n; i++ {
		out = u.Step(Request{}, clear)
	}
	return out
}

// S3 — DIV signed: -2/3 truncates toward zero (quotient 0), remainder -2.
func TestStep_S3_SignedDivision(t *testing.T) {
	u := New()
	u.Step(Request{Valid: true, A: -2, B: 3, Signed: true}, false)
	out := stepN(u, 3, false)

	require.True(t, out.Valid)
	require.EqualValues(t, 0, out.Value)

	u = New()
	u.Step(Request{Valid: true, A: -2, B: 3, Signed: true, GetRemainder: true}, false)
	out = stepN(u, 3, false)
	require.True(t, out.Valid)
	require.EqualValues(t, -2, out.Value)
}

// S4 — DIV by zero: quotient saturates to -1 (0xFFFFFFFF), remainder is
// the dividend unchanged (RISC-V M-extension semantics, per the Open
// Question resolution recorded in DESIGN.md).
func TestStep_S4_DivideByZero(t *testing.T) {
	u := New()
	u.Step(Request{Valid: true, A: 0x12345678, B: 0, Signed: true}, false)
	out := stepN(u, 3, false)
	require.True(t, out.Valid)
	require.EqualValues(t, -1, out.Value)

	u = New()
	u.Step(Request{Valid: true, A: 0x12345678, B: 0, Signed: true, GetRemainder: true}, false)
	out = stepN(u, 3, false)
	require.True(t, out.Valid)
	require.EqualValues(t, 0x12345678, out.Value)
}

// S5 — Flush mid-divide: a clear before the pipeline drains suppresses
// the result permanently.
func TestStep_S5_FlushMidDivide(t *testing.T) {
	u := New()
	u.Step(Request{Valid: true, A: 100, B: 7}, false) // tick 0
	u.Step(Request{}, false)                          // tick 1
	out := u.Step(Request{}, true)                    // tick 2: clear
	require.False(t, out.Valid)
	require.False(t, u.Busy(), "clear must invalidate every in-flight stage")

	out = u.Step(Request{}, false) // tick 3
	require.False(t, out.Valid, "no output must ever emerge for a flushed input")
}

func TestStep_UnsignedDivision(t *testing.T) {
	u := New()
	u.Step(Request{Valid: true, A: 100, B: 7}, false)
	out := stepN(u, 3, false)
	require.True(t, out.Valid)
	require.EqualValues(t, 14, out.Value)

	u = New()
	u.Step(Request{Valid: true, A: 100, B: 7, GetRemainder: true}, false)
	out = stepN(u, 3, false)
	require.True(t, out.Valid)
	require.EqualValues(t, 2, out.Value)
}

func TestStep_LatencyIsExactlyFourTicks(t *testing.T) {
	u := New()
	u.Step(Request{Valid: true, A: 10, B: 2}, false) // tick 0

	for tick := 1; tick < 3; tick++ {
		out := u.Step(Request{}, false)
		require.False(t, out.Valid, "tick %d: result must not appear before the 4th tick", tick)
	}
	out := u.Step(Request{}, false) // tick 3 (4th tick overall)
	require.True(t, out.Valid)
	require.EqualValues(t, 5, out.Value)
}

func TestStep_FullyPipelinedOnePerTick(t *testing.T) {
	u := New()
	u.Step(Request{Valid: true, A: 10, B: 2, ROBIndex: 1}, false)
	u.Step(Request{Valid: true, A: 20, B: 4, ROBIndex: 2}, false)
	u.Step(Request{Valid: true, A: 30, B: 5, ROBIndex: 3}, false)
	out := u.Step(Request{Valid: true, A: 40, B: 8, ROBIndex: 4}, false)
	require.True(t, out.Valid)
	require.EqualValues(t, 1, out.ROBIndex)
	require.EqualValues(t, 5, out.Value)

	out = u.Step(Request{}, false)
	require.EqualValues(t, 2, out.ROBIndex)
	require.EqualValues(t, 5, out.Value)
}
