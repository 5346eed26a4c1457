package wsvm

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDumpShape(t *testing.T) {
	prog, err := NewProgram([]WInstr{Push{N: 1}, End{}})
	if err != nil {
		t.Fatal(err)
	}
	vm := New(prog)
	vm.push(big.NewInt(7))
	vm.pushRet(3)
	vm.store(5, big.NewInt(99))

	out := vm.Dump()
	assert.True(t, strings.HasPrefix(out, "# VM Dump\n"))
	assert.Contains(t, out, "pc: 0")
	assert.Contains(t, out, "## stack (1)")
	assert.Contains(t, out, "[0] 7")
	assert.Contains(t, out, "## call stack (1)")
	assert.Contains(t, out, "[0] pc=3")
	assert.Contains(t, out, "## heap (1 cells)")
	assert.Contains(t, out, "5: 99")
}
