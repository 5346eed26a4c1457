package wsvm

import "fmt"

// Program is an immutable, indexable array of W instructions plus the
// label-to-index map built once at load time. Construction is the only
// place label uniqueness is checked; everything downstream trusts it.
type Program struct {
	instrs []WInstr
	labels map[string]int
}

// DuplicateLabelError reports that a label was defined more than once.
type DuplicateLabelError struct{ Label string }

func (err DuplicateLabelError) Error() string {
	return fmt.Sprintf("duplicate label %q", err.Label)
}

// NoSuchLabelError reports a reference to an undefined label.
type NoSuchLabelError struct{ Label string }

func (err NoSuchLabelError) Error() string {
	return fmt.Sprintf("no such label %q", err.Label)
}

// OutOfBoundsError reports a program counter outside the instruction array.
type OutOfBoundsError struct{ PC int }

func (err OutOfBoundsError) Error() string {
	return fmt.Sprintf("program counter %d out of bounds", err.PC)
}

// NewProgram scans instrs, recording each Label's index, and fails if any
// label is defined twice. The returned Program is immutable.
func NewProgram(instrs []WInstr) (*Program, error) {
	labels := make(map[string]int)
	for i, instr := range instrs {
		if lbl, ok := instr.(Label); ok {
			if _, dup := labels[lbl.L]; dup {
				return nil, DuplicateLabelError{lbl.L}
			}
			labels[lbl.L] = i
		}
	}
	return &Program{instrs: instrs, labels: labels}, nil
}

// Len returns the number of instructions in the program.
func (p *Program) Len() int { return len(p.instrs) }

// At returns the instruction at pc, or OutOfBoundsError if pc is outside
// the instruction array.
func (p *Program) At(pc int) (WInstr, error) {
	if pc < 0 || pc >= len(p.instrs) {
		return nil, OutOfBoundsError{pc}
	}
	return p.instrs[pc], nil
}

// Lookup resolves a label to its instruction index, or NoSuchLabelError if
// the label was never defined.
func (p *Program) Lookup(label string) (int, error) {
	idx, ok := p.labels[label]
	if !ok {
		return 0, NoSuchLabelError{label}
	}
	return idx, nil
}

// Validate resolves every label reference made by Jump/Call/Branch
// instructions against the label table, surfacing the first unresolved one.
// This is the load-time check spec.md assigns to "the compiler" and "the
// interpreter" alike -- both call it before doing anything else.
func (p *Program) Validate() error {
	for _, instr := range p.instrs {
		var l string
		switch i := instr.(type) {
		case Jump:
			l = i.L
		case Call:
			l = i.L
		case Branch:
			l = i.L
		default:
			continue
		}
		if _, err := p.Lookup(l); err != nil {
			return err
		}
	}
	return nil
}

// BProgram wraps a parsed Brainfuck instruction tree. Unlike W, B has no
// labels -- While nests structurally, so there is nothing to index.
type BProgram struct {
	Instrs []BInstr
}

// NewBProgram wraps instrs with no further validation: an empty While body
// is a legal (if useless) loop, not a load-time error.
func NewBProgram(instrs []BInstr) *BProgram {
	return &BProgram{Instrs: instrs}
}

// Validate always succeeds: B has no labels to resolve and no invariant
// (including an empty While body) that a load-time check would reject. It
// exists so CompileB can call p.Validate() symmetrically with CompileW's
// call to (*Program).Validate, even though there is nothing here to check.
func (p *BProgram) Validate() error {
	return nil
}
