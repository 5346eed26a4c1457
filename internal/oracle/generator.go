// Package oracle implements the differential testing harness named in
// spec.md section 8: a random W program generator biased toward heap and
// output instructions, and a property runner that interprets a generated
// program and compares its output against the assembled-and-run ARM64
// lowering of the same program.
package oracle

import (
	"fmt"
	"math/rand"

	wsvm "github.com/tuneerroy/whitespace-compiler"
)

// magnitudeCap bounds every literal the generator produces, so the
// repeated-add/repeated-subtract arithmetic lowering (see DESIGN.md)
// terminates in a reasonable number of loop iterations.
const magnitudeCap = 200

// heapCells is the number of valid heap addresses under the 8-byte stride
// the ARM64 backend uses (30,000 bytes / 8, see DESIGN.md's heap-width
// note), so generated Store/Retrieve addresses never run past `array`.
const heapCells = 3750

type action int

const (
	actArith action = iota
	actDup
	actSwap
	actOutputNum
	actOutputChar
	actStore
	actRetrieve
	actPush
)

// Generate produces a random straight-line W program: no Label/Jump/Call/
// Branch, so ValidateStackHeight can certify well-formedness with a single
// forward scan instead of a full control-flow analysis. Every generated
// program ends in End, having Discard'd back down to the generator's own
// starting height first.
func Generate(rng *rand.Rand, size int) *wsvm.Program {
	if size < 1 {
		size = 1
	}
	var instrs []wsvm.WInstr
	height := 0

	emitPush := func() {
		instrs = append(instrs, wsvm.Push{N: int64(rng.Intn(2*magnitudeCap+1) - magnitudeCap)})
		height++
	}
	emitPush()

	for i := 0; i < size; i++ {
		switch act := action(rng.Intn(int(actPush) + 1)); {
		case act == actArith && height >= 2:
			op := wsvm.ArithOp(rng.Intn(5))
			if op == wsvm.Div || op == wsvm.Mod {
				// Div/Mod by zero has no Euclidean quotient/remainder and
				// no ARM64 analogue of the interpreter's ErrDivByZero (see
				// DESIGN.md), so force a fresh nonzero divisor onto the top
				// of the stack rather than trust whatever's already there.
				divisor := int64(rng.Intn(magnitudeCap) + 1)
				if rng.Intn(2) == 0 {
					divisor = -divisor
				}
				instrs = append(instrs, wsvm.Push{N: divisor})
				height++
			}
			instrs = append(instrs, wsvm.Arith{Op: op})
			height--

		case act == actDup && height >= 1:
			instrs = append(instrs, wsvm.Dup{})
			height++

		case act == actSwap && height >= 2:
			instrs = append(instrs, wsvm.Swap{})

		case act == actOutputNum && height >= 1:
			instrs = append(instrs, wsvm.OutputNum{})
			height--

		case act == actOutputChar && height >= 1:
			instrs = append(instrs, wsvm.OutputChar{})
			height--

		case act == actStore && height >= 1:
			// stack is [..., v]; push an address then swap so Store (which
			// pops value then address) sees [..., addr, v].
			instrs = append(instrs,
				wsvm.Push{N: int64(rng.Intn(heapCells))},
				wsvm.Swap{},
				wsvm.Store{},
			)
			height--

		case act == actRetrieve:
			instrs = append(instrs,
				wsvm.Push{N: int64(rng.Intn(heapCells))},
				wsvm.Retrieve{},
			)
			height++

		default:
			emitPush()
		}
	}

	for ; height > 0; height-- {
		instrs = append(instrs, wsvm.Discard{})
	}
	instrs = append(instrs, wsvm.End{})

	prog, err := wsvm.NewProgram(instrs)
	if err != nil {
		// Generate never emits a Label, so NewProgram's only failure mode
		// (a duplicate label) cannot trigger; a failure here is a bug in
		// this function, not a property of the random input.
		panic(fmt.Sprintf("oracle: generated program rejected: %v", err))
	}
	return prog
}

// ValidateStackHeight performs a conservative forward scan checking that
// every instruction's static stack effect never underflows, starting from
// the single zero-sentinel slot the ARM64 backend pushes before the first
// instruction runs. The interpreter starts with an empty stack instead, so
// a program that pops that slot passes here and fails in ExecW with
// ErrValStackEmpty. Label/Jump/Call/Branch/Return have no
// single static stack effect -- certifying them would need a full control-
// flow analysis, a concern this generator avoids entirely by never
// emitting one -- so any such instruction fails validation outright rather
// than being silently trusted.
func ValidateStackHeight(prog *wsvm.Program) bool {
	height := 1
	for i := 0; i < prog.Len(); i++ {
		instr, err := prog.At(i)
		if err != nil {
			return false
		}
		switch v := instr.(type) {
		case wsvm.Label, wsvm.Jump, wsvm.Call, wsvm.Branch, wsvm.Return:
			return false
		case wsvm.Push:
			height++
		case wsvm.Dup:
			if height < 1 {
				return false
			}
			height++
		case wsvm.Swap:
			if height < 2 {
				return false
			}
		case wsvm.Discard:
			if height < 1 {
				return false
			}
			height--
		case wsvm.Copy:
			if height < v.K+1 {
				return false
			}
			height++
		case wsvm.Slide:
			if height < v.K+1 {
				return false
			}
			height -= v.K
		case wsvm.Arith:
			if height < 2 {
				return false
			}
			height--
		case wsvm.Store:
			if height < 2 {
				return false
			}
			height -= 2
		case wsvm.Retrieve:
			if height < 1 {
				return false
			}
		case wsvm.OutputNum, wsvm.OutputChar, wsvm.InputNum, wsvm.InputChar:
			if height < 1 {
				return false
			}
			height--
		case wsvm.End:
			return height >= 0
		}
	}
	return true
}
