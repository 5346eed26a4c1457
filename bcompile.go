package wsvm

import (
	"fmt"
	"strconv"
	"strings"
)

// B's runtime layout shares array/buf/_output_char/_input_char with the W
// backend (wcompile.go's wHeader): X29 is still the base of the shared
// array region (now read as B's 30,000-byte tape, one byte per cell, not
// W's 8-byte-strided heap). Per spec.md section 4.5, the tape pointer is
// "maintained on the architectural stack as a 64-bit index", not in a
// dedicated register: _start pushes a single zero-initialized slot, and
// every tape operation loads/stores that slot in place at [sp, #0].
func (c *bCompiler) ptrFrag(dst Reg) ARM64Instr {
	return Ldr{Dst: dst, Base: SP, Offset: 0}
}

// bCompiler mints while_<path>/whileend_<path> labels, per spec.md section
// 4.5: the top-level loop at position i is "while_i"; a loop nested j deep
// inside it is "while_i.j", and so on, one counter per nesting depth,
// reset each time a new sibling block starts at that depth.
type bCompiler struct {
	counters []int
}

func (c *bCompiler) nextIndex(depth int) int {
	for len(c.counters) <= depth {
		c.counters = append(c.counters, 0)
	}
	idx := c.counters[depth]
	c.counters[depth]++
	return idx
}

func pathLabel(prefix string, path []int) string {
	parts := make([]string, len(path))
	for i, n := range path {
		parts[i] = strconv.Itoa(n)
	}
	return prefix + strings.Join(parts, ".")
}

// CompileB lowers a parsed Brainfuck program to ARM64, per spec.md section
// 4.5/9. The tape occupies the same `array` region the W backend declares;
// `buf`/`_output_char`/`_input_char` are reused unchanged.
func CompileB(program *BProgram) ([]ARM64Instr, error) {
	if err := program.Validate(); err != nil {
		return nil, err
	}

	c := &bCompiler{}
	var out []ARM64Instr
	out = append(out, bHeader()...)

	frag, err := c.compileBlock(program.Instrs, 0, nil)
	if err != nil {
		return nil, err
	}
	out = append(out, frag...)

	out = append(out, bFooter()...)
	return out, nil
}

// bHeader mirrors wHeader's data layout and shared leaf routines, but
// initializes only what B's semantics need: X29 (tape base) and a single
// pushed stack slot holding the pointer index, zero per spec.md's "pushes
// a zero sentinel" (generalized here from W's operand-stack sentinel to
// B's pointer slot, the analogous "one fixed initial stack cell" idiom).
// retstack is declared for data-layout parity with the W backend (a single
// combined script.sh assembles either output against the same linker
// script) but is never touched by B-lowered code.
func bHeader() []ARM64Instr {
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
		Balign{N: 16},

		LabelDef{Name: "_start"},
		Adrp{Dst: regHeapBase, Symbol: "array"},
		AddPageOff{Dst: regHeapBase, Src: regHeapBase, Symbol: "array"},
		MovImm{Dst: t0, Imm: 0},
		Psh{Reg: t0}, // tape pointer index, starts at cell 0
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

		LabelDef{Name: "_program"},
	}
}

func bFooter() []ARM64Instr {
	return []ARM64Instr{
		AddImm{Dst: SP, Src: SP, Imm: 16}, // drop the pointer slot
		MovImm{Dst: X(0), Imm: 0},
		MovImm{Dst: X(16), Imm: 1}, // SYS_exit
		Svc{Imm: 0x80},
	}
}

func (c *bCompiler) compileBlock(instrs []BInstr, depth int, path []int) ([]ARM64Instr, error) {
	var out []ARM64Instr
	for _, instr := range instrs {
		out = append(out, Comment{Text: "b: " + instr.String()})
		frag, err := c.compileInstr(instr, depth, path)
		if err != nil {
			return nil, err
		}
		out = append(out, frag...)
	}
	return out, nil
}

func (c *bCompiler) compileInstr(instr BInstr, depth int, path []int) ([]ARM64Instr, error) {
	switch i := instr.(type) {
	case IncrPtr:
		return []ARM64Instr{
			c.ptrFrag(t4),
			AddImm{Dst: t4, Src: t4, Imm: 1},
			Str{Src: t4, Base: SP, Offset: 0},
		}, nil

	case DecrPtr:
		return []ARM64Instr{
			c.ptrFrag(t4),
			SubImm{Dst: t4, Src: t4, Imm: 1},
			Str{Src: t4, Base: SP, Offset: 0},
		}, nil

	case IncrByte:
		return []ARM64Instr{
			c.ptrFrag(t4),
			LdrbOff{Dst: t0, Base: regHeapBase, Index: t4},
			AddImm{Dst: t0, Src: t0, Imm: 1},
			StrbOff{Src: t0, Base: regHeapBase, Index: t4},
		}, nil

	case DecrByte:
		return []ARM64Instr{
			c.ptrFrag(t4),
			LdrbOff{Dst: t0, Base: regHeapBase, Index: t4},
			SubImm{Dst: t0, Src: t0, Imm: 1},
			StrbOff{Src: t0, Base: regHeapBase, Index: t4},
		}, nil

	case Output:
		return []ARM64Instr{
			c.ptrFrag(t4),
			LdrbOff{Dst: t0, Base: regHeapBase, Index: t4},
			Bl{Label: "_output_char"},
		}, nil

	case Input:
		return []ARM64Instr{
			c.ptrFrag(t4),
			Bl{Label: "_input_char"},
			StrbOff{Src: t0, Base: regHeapBase, Index: t4},
		}, nil

	case While:
		idx := c.nextIndex(depth)
		c.counters = c.counters[:depth+1] // this loop's children count from 0
		loopPath := append(append([]int{}, path...), idx)
		enter := pathLabel("while_", loopPath)
		exit := pathLabel("whileend_", loopPath)

		body, err := c.compileBlock(i.Body, depth+1, loopPath)
		if err != nil {
			return nil, err
		}
		frag := []ARM64Instr{
			LabelDef{Name: enter},
			c.ptrFrag(t4),
			LdrbOff{Dst: t0, Base: regHeapBase, Index: t4},
			CmpImm{A: t0, Imm: 0},
			BCond{Cond: "eq", Label: exit},
		}
		frag = append(frag, body...)
		frag = append(frag,
			Branch_{Label: enter},
			LabelDef{Name: exit},
		)
		return frag, nil

	default:
		return nil, fmt.Errorf("bcompile: unhandled B instruction %T", instr)
	}
}
