package wsvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWInstrStringTotality(t *testing.T) {
	cases := []struct {
		instr WInstr
		want  string
	}{
		{Push{N: 42}, "Push 42"},
		{Dup{}, "Dup"},
		{Swap{}, "Swap"},
		{Discard{}, "Discard"},
		{Copy{K: 2}, "Copy 2"},
		{Slide{K: 3}, "Slide 3"},
		{Arith{Op: Add}, "Arith +"},
		{Arith{Op: Sub}, "Arith -"},
		{Arith{Op: Mul}, "Arith *"},
		{Arith{Op: Div}, "Arith /"},
		{Arith{Op: Mod}, "Arith %"},
		{Label{L: "loop"}, "Label loop"},
		{Call{L: "f"}, "Call f"},
		{Jump{L: "l"}, "Jump l"},
		{Branch{Cond: Zero, L: "l"}, "Branch zero l"},
		{Branch{Cond: Neg, L: "l"}, "Branch neg l"},
		{Return{}, "Return"},
		{End{}, "End"},
		{Store{}, "Store"},
		{Retrieve{}, "Retrieve"},
		{OutputChar{}, "OutputChar"},
		{OutputNum{}, "OutputNum"},
		{InputChar{}, "InputChar"},
		{InputNum{}, "InputNum"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.instr.String())
	}
}

func TestArithOpStringUnknown(t *testing.T) {
	assert.Equal(t, "ArithOp(99)", ArithOp(99).String())
}

func TestBranchCondStringUnknown(t *testing.T) {
	assert.Equal(t, "BranchCond(99)", BranchCond(99).String())
}

func TestBInstrStringTotality(t *testing.T) {
	cases := []struct {
		instr BInstr
		want  string
	}{
		{IncrPtr{}, ">"},
		{DecrPtr{}, "<"},
		{IncrByte{}, "+"},
		{DecrByte{}, "-"},
		{Output{}, "."},
		{Input{}, ","},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.instr.String())
	}

	w := While{Body: []BInstr{IncrByte{}, DecrByte{}}}
	assert.Equal(t, "[2 instrs]", w.String())
}
