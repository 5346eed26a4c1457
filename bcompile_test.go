package wsvm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileBScenarioS7(t *testing.T) {
	prog, err := ParseB([]byte("++++++[>++++++++<-]>."))
	require.NoError(t, err)
	instrs, err := CompileB(prog)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, instrs))
	out := buf.String()

	assert.Contains(t, out, "while_0:")
	assert.Contains(t, out, "whileend_0:")
	assert.Contains(t, out, "bl _output_char")
}

// TestCompileBLoopLabelsUnique exercises spec.md section 8 property 6: no
// two distinct While bodies produce the same loop label, across siblings
// and nesting.
func TestCompileBLoopLabelsUnique(t *testing.T) {
	// [+][+[+]][+]  -- three top-level loops, the middle one nested once.
	src := "[+][+[+]][+]"
	prog, err := ParseB([]byte(src))
	require.NoError(t, err)

	instrs, err := CompileB(prog)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, instr := range instrs {
		ld, ok := instr.(LabelDef)
		if !ok {
			continue
		}
		if !strings.HasPrefix(ld.Name, "while_") && !strings.HasPrefix(ld.Name, "whileend_") {
			continue
		}
		require.False(t, seen[ld.Name], "duplicate loop label %q", ld.Name)
		seen[ld.Name] = true
	}

	for _, want := range []string{
		"while_0", "whileend_0",
		"while_1", "whileend_1",
		"while_1.0", "whileend_1.0",
		"while_2", "whileend_2",
	} {
		assert.True(t, seen[want], "missing loop label %q", want)
	}
}

func TestCompileBTapePointerLivesOnStack(t *testing.T) {
	prog, err := ParseB([]byte("+>+"))
	require.NoError(t, err)
	instrs, err := CompileB(prog)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, instrs))
	out := buf.String()

	// The tape pointer is a 64-bit index at [sp, #0], per spec.md section
	// 4.5/9 -- never a dedicated register held across the whole lowering.
	assert.Contains(t, out, "ldr x13, [sp, #0]")
	assert.Contains(t, out, "str x13, [sp, #0]")
}

func TestParseBUnbalancedBrackets(t *testing.T) {
	_, err := ParseB([]byte("[+"))
	var ub UnbalancedBracketsError
	require.ErrorAs(t, err, &ub)

	_, err = ParseB([]byte("+]"))
	require.ErrorAs(t, err, &ub)
}

func TestParseBSkipsComments(t *testing.T) {
	prog, err := ParseB([]byte("hello + world"))
	require.NoError(t, err)
	assert.Equal(t, []BInstr{IncrByte{}}, prog.Instrs)
}
