package wsvm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgramDuplicateLabel(t *testing.T) {
	_, err := NewProgram([]WInstr{
		Label{L: "loop"},
		Push{N: 1},
		Label{L: "loop"},
	})
	var dup DuplicateLabelError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "loop", dup.Label)
}

func TestProgramAtOutOfBounds(t *testing.T) {
	prog, err := NewProgram([]WInstr{Push{N: 1}, End{}})
	require.NoError(t, err)

	_, err = prog.At(-1)
	var oob OutOfBoundsError
	assert.True(t, errors.As(err, &oob))

	_, err = prog.At(2)
	assert.True(t, errors.As(err, &oob))

	instr, err := prog.At(0)
	require.NoError(t, err)
	assert.Equal(t, Push{N: 1}, instr)
}

func TestProgramLookup(t *testing.T) {
	prog, err := NewProgram([]WInstr{
		Label{L: "start"},
		Jump{L: "start"},
	})
	require.NoError(t, err)

	idx, err := prog.Lookup("start")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = prog.Lookup("nope")
	var nsl NoSuchLabelError
	assert.True(t, errors.As(err, &nsl))
	assert.Equal(t, "nope", nsl.Label)
}

func TestProgramValidate(t *testing.T) {
	prog, err := NewProgram([]WInstr{
		Jump{L: "missing"},
	})
	require.NoError(t, err)
	err = prog.Validate()
	var nsl NoSuchLabelError
	assert.True(t, errors.As(err, &nsl))

	prog, err = NewProgram([]WInstr{
		Call{L: "f"},
		Branch{Cond: Zero, L: "f"},
		Label{L: "f"},
		Return{},
	})
	require.NoError(t, err)
	assert.NoError(t, prog.Validate())
}

func TestNewBProgramEmptyWhile(t *testing.T) {
	prog := NewBProgram([]BInstr{While{}})
	assert.Len(t, prog.Instrs, 1)
	assert.Empty(t, prog.Instrs[0].(While).Body)
}

func TestBProgramValidateAlwaysSucceeds(t *testing.T) {
	assert.NoError(t, NewBProgram(nil).Validate())
	assert.NoError(t, NewBProgram([]BInstr{While{}}).Validate())
}
