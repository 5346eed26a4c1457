package oracle

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wsvm "github.com/tuneerroy/whitespace-compiler"
)

func TestGenerateProducesValidatableProgram(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		prog := Generate(rng, 20)
		require.NotNil(t, prog)
		assert.True(t, ValidateStackHeight(prog), "generated program %d failed validation", i)
	}
}

func TestGenerateAlwaysEndsWithEnd(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	prog := Generate(rng, 10)
	last, err := prog.At(prog.Len() - 1)
	require.NoError(t, err)
	assert.Equal(t, "End", last.String())
}

func TestGenerateSmallSizeClampedToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	prog := Generate(rng, 0)
	assert.True(t, ValidateStackHeight(prog))
	assert.GreaterOrEqual(t, prog.Len(), 2) // at least the initial Push and End
}

func TestValidateStackHeightRejectsControlFlow(t *testing.T) {
	// The generator never emits Label/Jump/Call/Branch/Return (see
	// Generate's doc comment), but ValidateStackHeight must still reject a
	// program containing one outright rather than silently trust it.
	prog, err := wsvm.NewProgram([]wsvm.WInstr{
		wsvm.Push{N: 1},
		wsvm.Label{L: "l"},
		wsvm.End{},
	})
	require.NoError(t, err)
	assert.False(t, ValidateStackHeight(prog))
}

func TestValidateStackHeightRejectsUnderflow(t *testing.T) {
	// The sentinel slot covers exactly one Discard; a second one underflows.
	prog, err := wsvm.NewProgram([]wsvm.WInstr{
		wsvm.Discard{},
		wsvm.Discard{},
		wsvm.End{},
	})
	require.NoError(t, err)
	assert.False(t, ValidateStackHeight(prog))
}
