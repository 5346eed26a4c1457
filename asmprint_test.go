package wsvm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPrinterTotality exercises spec.md section 8's property 7: every
// ARM64Instr kind renders to exactly one non-empty line.
func TestPrinterTotality(t *testing.T) {
	instrs := []ARM64Instr{
		DataSection{},
		TextSection{},
		Balign{N: 4},
		GlobalSym{Symbol: "_start"},
		Skip{Label: "buf", N: 20},
		LabelDef{Name: "loop"},
		Comment{Text: "a comment"},
		MovReg{Dst: X(0), Src: X(1)},
		MovImm{Dst: X(0), Imm: 5},
		AddReg{Dst: X(0), A: X(1), B: X(2)},
		AddImm{Dst: X(0), Src: X(1), Imm: 5},
		SubReg{Dst: X(0), A: X(1), B: X(2)},
		SubImm{Dst: X(0), Src: X(1), Imm: 5},
		Ldr{Dst: X(0), Base: X(1), Offset: 8},
		Str{Src: X(0), Base: X(1), Offset: 8},
		Ldrb{Dst: X(0), Base: X(1), Offset: 0},
		Strb{Src: X(0), Base: X(1), Offset: 0},
		LdrOff{Dst: X(0), Base: X(1), Index: X(2)},
		StrOff{Src: X(0), Base: X(1), Index: X(2)},
		LdrbOff{Dst: X(0), Base: X(1), Index: X(2)},
		StrbOff{Src: X(0), Base: X(1), Index: X(2)},
		CmpReg{A: X(0), B: X(1)},
		CmpImm{A: X(0), Imm: 5},
		BCond{Cond: "eq", Label: "loop"},
		Branch_{Label: "loop"},
		Bl{Label: "f"},
		Br{Reg: X(0)},
		Ret{},
		Svc{Imm: 0x80},
		Psh{Reg: X(0)},
		Pop{Reg: X(0)},
		Adrp{Dst: X(0), Symbol: "array"},
		AddPageOff{Dst: X(0), Src: X(0), Symbol: "array"},
		Adr{Dst: X(0), Label: "loop"},
	}

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, instrs))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, len(instrs))
	for _, line := range lines {
		assert.NotEmpty(t, line)
	}
}

func TestPrinterUnknownInstruction(t *testing.T) {
	var buf bytes.Buffer
	err := Print(&buf, []ARM64Instr{unknownInstr{}})
	assert.Error(t, err)
}

type unknownInstr struct{}

func (unknownInstr) arm64Instr() {}

func TestRegStringSP(t *testing.T) {
	assert.Equal(t, "sp", SP.String())
	assert.Equal(t, "x3", X(3).String())
	assert.Equal(t, "w3", W(3).String())
}
