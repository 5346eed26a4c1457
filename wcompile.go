package wsvm

import (
	"encoding/hex"
	"fmt"
)

// Runtime memory model (the binding contract between this emitter and the
// interpreter's semantics, per spec.md section 4.4):
//
//   - the operand stack lives on the architectural stack (SP), one W value
//     per 16-byte-aligned slot, low 64 bits significant;
//   - X29 holds the base address of the shared 30,000-byte `array` region;
//     the W heap is widened to an 8-byte stride (see DESIGN.md), so each
//     heap cell occupies 8 bytes of that region;
//   - X28/X27 hold the base and byte-offset of a dedicated `retstack`
//     region, the software call stack Call/Return push to and pop from;
//   - `buf` is the 20-byte scratch buffer `_output_char`/`_input_char` use
//     for their single-byte syscalls.
//
// _output_char and _input_char are leaf routines with a private ABI, not
// the platform calling convention: they take/return their byte in t0 and
// clobber t0/t1/X0/X1/X2/X16. Any value that must survive a Bl to either
// one is kept in t2/t3/t4 or spilled onto the operand stack first.
const (
	heapBaseReg = 29 // X29
	retBaseReg  = 28 // X28
	retPtrReg   = 27 // X27
	heapStride  = 8
)

var (
	regHeapBase = X(heapBaseReg)
	regRetBase  = X(retBaseReg)
	regRetPtr   = X(retPtrReg)
)

// scratch registers used throughout the lowering; none of these are the
// reserved base/pointer registers above.
var (
	t0 = X(9)
	t1 = X(10)
	t2 = X(11)
	t3 = X(12)
	t4 = X(13)
)

// tScale is mulByConst's own internal doubling register. It is never the
// destination or source of any value a caller needs to survive the call --
// unlike t0-t4, nothing outside mulByConst ever pops a value into it or
// reads it back out, so mulByConst can never clobber a live operand the way
// hardcoding one of the shared scratch registers once did (see DESIGN.md).
var tScale = X(14)

// wCompiler holds the mutable state threaded through W-to-ARM64 lowering:
// a counter minting fresh internal labels for call sites and the
// digit-printing/runtime-arithmetic loops, none of which ever collide
// with a source-level W label because those are rendered through wLabel's
// disjoint "w_" + hex-encoded namespace.
type wCompiler struct {
	next int
}

func (c *wCompiler) fresh(tag string) string {
	c.next++
	return fmt.Sprintf("w__%s_%d", tag, c.next)
}

// wLabel renders a source W label into an assembly symbol disjoint from
// both the emitter's own internal labels (prefix "w__") and the B
// compiler's "while_"/"whileend_" namespace (section 9's label-naming
// note): hex-encoding the label text guarantees a valid, collision-free
// symbol regardless of what characters the label contains.
func wLabel(l string) string {
	return "w_" + hex.EncodeToString([]byte(l))
}

// CompileW lowers a validated W program to ARM64, per spec.md section 4.4.
// Unresolved labels are the only compile-time failure mode; execution of
// programs the interpreter would reject is undefined below the Program
// boundary, exactly as spec.md specifies.
func CompileW(program *Program) ([]ARM64Instr, error) {
	if err := program.Validate(); err != nil {
		return nil, err
	}

	c := &wCompiler{}
	var out []ARM64Instr
	out = append(out, wHeader()...)

	for pc := 0; pc < program.Len(); pc++ {
		instr, err := program.At(pc)
		if err != nil {
			return nil, err
		}
		out = append(out, Comment{Text: "w: " + instr.String()})
		frag, err := c.compileInstr(instr)
		if err != nil {
			return nil, err
		}
		out = append(out, frag...)
	}

	out = append(out, wFooter()...)
	return out, nil
}

// wHeader emits the W backend's fixed prologue (bcompile.go's bHeader
// repeats its data layout and leaf routines for B): data section layout
// (buf/array/retstack), then _start initializing X29 (heap/tape base),
// X28/X27 (return-stack base/pointer), pushing a zero sentinel slot onto
// the operand stack and branching past the two byte-IO leaf routines and
// _div_zero to the _program label the lowered instructions follow.
func wHeader() []ARM64Instr {
	return []ARM64Instr{
		DataSection{},
		Balign{N: 4},
		Skip{Label: "buf", N: 20},
		Balign{N: 4},
		Skip{Label: "array", N: 30000},
		Balign{N: 4},
		Skip{Label: "retstack", N: 4096},
		TextSection{},
		GlobalSym{Symbol: "_start"},
		GlobalSym{Symbol: "_output_char"},
		GlobalSym{Symbol: "_input_char"},
		GlobalSym{Symbol: "_div_zero"},
		Balign{N: 16},

		LabelDef{Name: "_start"},
		Adrp{Dst: regHeapBase, Symbol: "array"},
		AddPageOff{Dst: regHeapBase, Src: regHeapBase, Symbol: "array"},
		Adrp{Dst: regRetBase, Symbol: "retstack"},
		AddPageOff{Dst: regRetBase, Src: regRetBase, Symbol: "retstack"},
		MovImm{Dst: regRetPtr, Imm: 0},
		MovImm{Dst: t0, Imm: 0},
		Psh{Reg: t0}, // zero sentinel, never popped past by a well-formed program
		Branch_{Label: "_program"},

		Comment{Text: "_output_char: t0 holds the byte to write"},
		LabelDef{Name: "_output_char"},
		Adrp{Dst: t1, Symbol: "buf"},
		AddPageOff{Dst: t1, Src: t1, Symbol: "buf"},
		Strb{Src: t0, Base: t1, Offset: 0},
		MovImm{Dst: X(16), Imm: 4}, // SYS_write
		MovImm{Dst: X(0), Imm: 1},  // fd = stdout
		MovReg{Dst: X(1), Src: t1},
		MovImm{Dst: X(2), Imm: 1},
		Svc{Imm: 0x80},
		Ret{},

		Comment{Text: "_input_char: returns the byte read in t0"},
		LabelDef{Name: "_input_char"},
		Adrp{Dst: t1, Symbol: "buf"},
		AddPageOff{Dst: t1, Src: t1, Symbol: "buf"},
		MovImm{Dst: X(16), Imm: 3}, // SYS_read
		MovImm{Dst: X(0), Imm: 0},  // fd = stdin
		MovReg{Dst: X(1), Src: t1},
		MovImm{Dst: X(2), Imm: 1},
		Svc{Imm: 0x80},
		Ldrb{Dst: t0, Base: t1, Offset: 0},
		Ret{},

		Comment{Text: "_div_zero: Div/Mod's divisor was zero, which has no Euclidean quotient/remainder; exit rather than loop forever"},
		LabelDef{Name: "_div_zero"},
		MovImm{Dst: X(0), Imm: 1},
		MovImm{Dst: X(16), Imm: 1}, // SYS_exit
		Svc{Imm: 0x80},

		LabelDef{Name: "_program"},
	}
}

func wFooter() []ARM64Instr {
	return []ARM64Instr{
		Comment{Text: "fell off the end without an explicit End"},
		MovImm{Dst: X(0), Imm: 0},
		MovImm{Dst: X(16), Imm: 1}, // SYS_exit
		Svc{Imm: 0x80},
	}
}

// mulByConst emits dst = src * k for a compile-time-constant k >= 0, by
// binary-decomposing k and doubling tScale via AddReg -- the same doubling
// idiom DESIGN.md documents for power-of-two constants, generalized to any
// constant since heap-address scaling (k=8) and decimal conversion (k=10)
// both need it. No MUL instruction is used, consistent with spec.md's
// literal opcode list. dst and src may be any registers, including ones
// live in the caller's other scratch registers -- mulByConst only ever
// reads src and writes dst/tScale.
func mulByConst(dst, src Reg, k int64) []ARM64Instr {
	out := []ARM64Instr{
		MovReg{Dst: tScale, Src: src},
		MovImm{Dst: dst, Imm: 0},
	}
	for k > 0 {
		if k&1 == 1 {
			out = append(out, AddReg{Dst: dst, A: dst, B: tScale})
		}
		k >>= 1
		if k > 0 {
			out = append(out, AddReg{Dst: tScale, A: tScale, B: tScale})
		}
	}
	return out
}

// heapIndex scales a heap address by the 8-byte cell stride, leaving the
// byte offset in dst. Safe to call with any value live in t0-t4, including
// the case (Store) where the just-popped value being stored is held in t1
// at the same time addr is being scaled.
func heapIndex(dst, addr Reg) []ARM64Instr {
	return mulByConst(dst, addr, heapStride)
}

func (c *wCompiler) compileInstr(instr WInstr) ([]ARM64Instr, error) {
	switch i := instr.(type) {
	case Push:
		return []ARM64Instr{
			MovImm{Dst: t0, Imm: i.N},
			Psh{Reg: t0},
		}, nil

	case Dup:
		return []ARM64Instr{
			Ldr{Dst: t0, Base: SP, Offset: 0},
			Psh{Reg: t0},
		}, nil

	case Swap:
		return []ARM64Instr{
			Pop{Reg: t0},
			Pop{Reg: t1},
			Psh{Reg: t0},
			Psh{Reg: t1},
		}, nil

	case Discard:
		return []ARM64Instr{
			AddImm{Dst: SP, Src: SP, Imm: 16},
		}, nil

	case Copy:
		return []ARM64Instr{
			Ldr{Dst: t0, Base: SP, Offset: int64(i.K) * 16},
			Psh{Reg: t0},
		}, nil

	case Slide:
		return []ARM64Instr{
			Ldr{Dst: t0, Base: SP, Offset: 0},
			AddImm{Dst: SP, Src: SP, Imm: int64(i.K+1) * 16},
			Psh{Reg: t0},
		}, nil

	case Arith:
		return c.compileArith(i.Op)

	case Label:
		return []ARM64Instr{LabelDef{Name: wLabel(i.L)}}, nil

	case Call:
		return c.compileCall(i.L)

	case Jump:
		return []ARM64Instr{Branch_{Label: wLabel(i.L)}}, nil

	case Branch:
		cond := "eq"
		if i.Cond == Neg {
			cond = "lt"
		}
		return []ARM64Instr{
			Pop{Reg: t0},
			CmpImm{A: t0, Imm: 0},
			BCond{Cond: cond, Label: wLabel(i.L)},
		}, nil

	case Return:
		return []ARM64Instr{
			SubImm{Dst: regRetPtr, Src: regRetPtr, Imm: 8},
			LdrOff{Dst: t0, Base: regRetBase, Index: regRetPtr},
			Br{Reg: t0},
		}, nil

	case End:
		return []ARM64Instr{
			MovImm{Dst: X(0), Imm: 0},
			MovImm{Dst: X(16), Imm: 1}, // SYS_exit
			Svc{Imm: 0x80},
		}, nil

	case Store:
		frag := []ARM64Instr{
			Pop{Reg: t1}, // value
			Pop{Reg: t2}, // address
		}
		frag = append(frag, heapIndex(t3, t2)...)
		frag = append(frag, StrOff{Src: t1, Base: regHeapBase, Index: t3})
		return frag, nil

	case Retrieve:
		frag := []ARM64Instr{
			Pop{Reg: t2}, // address
		}
		frag = append(frag, heapIndex(t3, t2)...)
		frag = append(frag,
			LdrOff{Dst: t0, Base: regHeapBase, Index: t3},
			Psh{Reg: t0},
		)
		return frag, nil

	case OutputChar:
		return []ARM64Instr{
			Pop{Reg: t0},
			Bl{Label: "_output_char"},
		}, nil

	case OutputNum:
		return c.compileOutputNum()

	case InputChar:
		frag := []ARM64Instr{
			Pop{Reg: t2}, // address, survives the call in t2
			Bl{Label: "_input_char"},
		}
		frag = append(frag, heapIndex(t3, t2)...)
		frag = append(frag, StrOff{Src: t0, Base: regHeapBase, Index: t3})
		return frag, nil

	case InputNum:
		return c.compileInputNum()

	default:
		return nil, fmt.Errorf("wcompile: unhandled W instruction %T", instr)
	}
}

// compileArith lowers Add/Sub directly to hardware ADD/SUB, and Mul/Div/Mod
// to repeated-add/repeated-subtract loops over the runtime operands, per
// DESIGN.md's "no MUL/SDIV instruction in spec.md's list" note. Mul/Div/Mod
// work over arbitrary-sign operands (see compileMul/compileDivMod), mirroring
// interp.go's arith() and its Euclidean Div/Mod convention (DESIGN.md).
func (c *wCompiler) compileArith(op ArithOp) ([]ARM64Instr, error) {
	switch op {
	case Add:
		return []ARM64Instr{
			Pop{Reg: t1},
			Pop{Reg: t0},
			AddReg{Dst: t0, A: t0, B: t1},
			Psh{Reg: t0},
		}, nil

	case Sub:
		return []ARM64Instr{
			Pop{Reg: t1},
			Pop{Reg: t0},
			SubReg{Dst: t0, A: t0, B: t1},
			Psh{Reg: t0},
		}, nil

	case Mul:
		return c.compileMul()

	case Div, Mod:
		return c.compileDivMod(op)

	default:
		return nil, fmt.Errorf("wcompile: unhandled arithmetic op %v", op)
	}
}

// compileMul lowers Mul via repeated addition over the *magnitudes* of both
// operands, then restores the product's true sign. Looping on a raw,
// possibly-negative operand (the previous lowering's bug) either exits
// immediately via the "le" guard or never terminates; negating both
// operands up front and fixing up the sign afterward sidesteps that
// entirely, using only CmpImm/AddReg/SubReg/AddImm, no MUL instruction.
func (c *wCompiler) compileMul() ([]ARM64Instr, error) {
	loop := c.fresh("mul_loop")
	done := c.fresh("mul_done")
	askip := c.fresh("mul_a_nonneg")
	bskip := c.fresh("mul_b_nonneg")
	noneg := c.fresh("mul_noneg")

	return []ARM64Instr{
		Pop{Reg: t1}, // b
		Pop{Reg: t0}, // a

		// t3 counts how many of {a, b} were negated below; odd means the
		// true product is negative.
		MovImm{Dst: t3, Imm: 0},

		CmpImm{A: t0, Imm: 0},
		BCond{Cond: "ge", Label: askip},
		MovImm{Dst: t4, Imm: 0},
		SubReg{Dst: t0, A: t4, B: t0}, // a = -a
		AddImm{Dst: t3, Src: t3, Imm: 1},
		LabelDef{Name: askip},

		CmpImm{A: t1, Imm: 0},
		BCond{Cond: "ge", Label: bskip},
		MovImm{Dst: t4, Imm: 0},
		SubReg{Dst: t1, A: t4, B: t1}, // b = -b
		AddImm{Dst: t3, Src: t3, Imm: 1},
		LabelDef{Name: bskip},

		MovImm{Dst: t2, Imm: 0}, // accumulator, |a|*|b|
		LabelDef{Name: loop},
		CmpImm{A: t1, Imm: 0},
		BCond{Cond: "le", Label: done},
		AddReg{Dst: t2, A: t2, B: t0},
		SubImm{Dst: t1, Src: t1, Imm: 1},
		Branch_{Label: loop},
		LabelDef{Name: done},

		CmpImm{A: t3, Imm: 1},
		BCond{Cond: "ne", Label: noneg},
		MovImm{Dst: t4, Imm: 0},
		SubReg{Dst: t2, A: t4, B: t2}, // product = -product
		LabelDef{Name: noneg},

		Psh{Reg: t2},
	}, nil
}

// compileDivMod lowers Div/Mod to match interp.go's Euclidean DivMod
// convention: 0 <= remainder < |divisor|, quotient = (dividend-remainder)/
// divisor. bPos = |divisor| is computed once; the dividend is nudged by
// +/- bPos (never by the signed divisor directly) until it lands in
// [0, bPos), counting the adjustment in the quotient, and the quotient's
// sign is flipped at the end iff the divisor was negative -- remainder is
// unaffected by the divisor's sign, exactly as big.Int.DivMod defines it.
// A zero divisor has no such quotient/remainder, so control jumps to the
// shared _div_zero exit instead of spinning forever (the oracle's generator
// is responsible for never feeding a well-formed program one, but the
// lowering itself must not hang regardless).
func (c *wCompiler) compileDivMod(op ArithOp) ([]ARM64Instr, error) {
	absSkip := c.fresh("divmod_absb_skip")
	absDone := c.fresh("divmod_absb_done")
	negLoop := c.fresh("divmod_negloop")
	negDone := c.fresh("divmod_negloop_done")
	subLoop := c.fresh("divmod_subloop")
	subDone := c.fresh("divmod_subloop_done")
	qdone := c.fresh("divmod_qdone")

	frag := []ARM64Instr{
		Pop{Reg: t1}, // divisor, kept intact for the final sign check
		Pop{Reg: t0}, // dividend, becomes the remainder in place

		CmpImm{A: t1, Imm: 0},
		BCond{Cond: "eq", Label: "_div_zero"},

		// t3 = |t1|
		CmpImm{A: t1, Imm: 0},
		BCond{Cond: "ge", Label: absSkip},
		MovImm{Dst: t4, Imm: 0},
		SubReg{Dst: t3, A: t4, B: t1},
		Branch_{Label: absDone},
		LabelDef{Name: absSkip},
		MovReg{Dst: t3, Src: t1},
		LabelDef{Name: absDone},

		MovImm{Dst: t2, Imm: 0}, // quotient

		LabelDef{Name: negLoop},
		CmpImm{A: t0, Imm: 0},
		BCond{Cond: "ge", Label: negDone},
		AddReg{Dst: t0, A: t0, B: t3},
		SubImm{Dst: t2, Src: t2, Imm: 1},
		Branch_{Label: negLoop},
		LabelDef{Name: negDone},

		LabelDef{Name: subLoop},
		CmpReg{A: t0, B: t3},
		BCond{Cond: "lt", Label: subDone},
		SubReg{Dst: t0, A: t0, B: t3},
		AddImm{Dst: t2, Src: t2, Imm: 1},
		Branch_{Label: subLoop},
		LabelDef{Name: subDone},

		CmpImm{A: t1, Imm: 0},
		BCond{Cond: "ge", Label: qdone},
		MovImm{Dst: t4, Imm: 0},
		SubReg{Dst: t2, A: t4, B: t2}, // quotient = -quotient
		LabelDef{Name: qdone},
	}
	if op == Div {
		frag = append(frag, Psh{Reg: t2})
	} else {
		frag = append(frag, Psh{Reg: t0})
	}
	return frag, nil
}

// compileCall lowers Call by recording a return label's own address onto
// the software retstack (regRetBase/regRetPtr) before branching, mirroring
// Return's pop-and-Br in interp.go's Call/Return pair.
func (c *wCompiler) compileCall(label string) ([]ARM64Instr, error) {
	retLabel := c.fresh("ret")
	return []ARM64Instr{
		Adr{Dst: t0, Label: retLabel},
		StrOff{Src: t0, Base: regRetBase, Index: regRetPtr},
		AddImm{Dst: regRetPtr, Src: regRetPtr, Imm: 8},
		Branch_{Label: wLabel(label)},
		LabelDef{Name: retLabel},
	}, nil
}

// compileOutputNum prints the popped value in decimal, per spec.md's
// "write number" table entry. Digits are produced least-significant-first
// by repeated divide-by-10 (itself a repeated-subtraction loop, see
// compileArith) and pushed onto the operand stack above a -1 sentinel, so
// popping them back off prints most-significant-first with no separate
// reversal pass.
func (c *wCompiler) compileOutputNum() ([]ARM64Instr, error) {
	posLabel := c.fresh("outnum_pos")
	divLoop := c.fresh("outnum_divloop")
	divDone := c.fresh("outnum_divdone")
	printLoop := c.fresh("outnum_printloop")
	printDone := c.fresh("outnum_printdone")

	return []ARM64Instr{
		Pop{Reg: t2}, // value, kept in t2 across any Bl calls
		CmpImm{A: t2, Imm: 0},
		BCond{Cond: "ge", Label: posLabel},
		MovImm{Dst: t0, Imm: '-'},
		Bl{Label: "_output_char"},
		MovImm{Dst: t1, Imm: 0},
		SubReg{Dst: t2, A: t1, B: t2}, // t2 = -t2

		LabelDef{Name: posLabel},
		MovImm{Dst: t1, Imm: -1},
		Psh{Reg: t1}, // digit-stack sentinel

		CmpImm{A: t2, Imm: 0},
		BCond{Cond: "ne", Label: divLoop},
		MovImm{Dst: t1, Imm: '0'},
		Psh{Reg: t1},
		Branch_{Label: printLoop},

		LabelDef{Name: divLoop},
		CmpImm{A: t2, Imm: 0},
		BCond{Cond: "eq", Label: printLoop},
		MovImm{Dst: t3, Imm: 0}, // quotient accumulator
		LabelDef{Name: divLoop + "_inner"},
		CmpImm{A: t2, Imm: 10},
		BCond{Cond: "lt", Label: divDone},
		SubImm{Dst: t2, Src: t2, Imm: 10},
		AddImm{Dst: t3, Src: t3, Imm: 1},
		Branch_{Label: divLoop + "_inner"},
		LabelDef{Name: divDone},
		AddImm{Dst: t1, Src: t2, Imm: '0'}, // t2 now holds the digit (remainder)
		Psh{Reg: t1},
		MovReg{Dst: t2, Src: t3}, // value = quotient
		Branch_{Label: divLoop},

		LabelDef{Name: printLoop},
		Pop{Reg: t0},
		CmpImm{A: t0, Imm: -1},
		BCond{Cond: "eq", Label: printDone},
		Bl{Label: "_output_char"},
		Branch_{Label: printLoop},
		LabelDef{Name: printDone},
	}, nil
}

// compileInputNum reads a line of ASCII decimal digits character-by-
// character via _input_char (spec.md's "read a line of digits" rule),
// accumulating value = value*10 + digit until a newline, then stores it
// to the popped heap address. Restricted to non-negative input, the
// oracle's generator never feeds InputNum a negative-looking line.
func (c *wCompiler) compileInputNum() ([]ARM64Instr, error) {
	loop := c.fresh("innum_loop")
	done := c.fresh("innum_done")

	frag := []ARM64Instr{
		Pop{Reg: t4}, // heap address, held across every call in t4
		MovImm{Dst: t2, Imm: 0}, // accumulator

		LabelDef{Name: loop},
		Bl{Label: "_input_char"},
		CmpImm{A: t0, Imm: '\n'},
		BCond{Cond: "eq", Label: done},
		SubImm{Dst: t3, Src: t0, Imm: '0'}, // digit value
	}
	frag = append(frag, mulByConst(t1, t2, 10)...) // t1 = t2*10
	frag = append(frag,
		AddReg{Dst: t2, A: t1, B: t3},
		Branch_{Label: loop},

		LabelDef{Name: done},
	)
	frag = append(frag, heapIndex(t3, t4)...)
	frag = append(frag, StrOff{Src: t2, Base: regHeapBase, Index: t3})
	return frag, nil
}
