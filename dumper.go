package wsvm

import (
	"fmt"
	"sort"
	"strings"
)

// Dump renders a snapshot of the VM's stack, sparse heap, and call stack,
// in the teacher's own "# <section>\n..." structured-dump shape
// (originally written for Forth-dictionary state, generalized here to
// W's disjoint stack/heap/call-stack containers), for the CLI's -dump
// flag and for debugging failing oracle runs.
func (vm *VM) Dump() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# VM Dump\n")
	fmt.Fprintf(&b, "pc: %d\n", vm.pc)
	fmt.Fprintf(&b, "halted: %v\n", vm.halted)

	fmt.Fprintf(&b, "## stack (%d)\n", len(vm.stack))
	for i := len(vm.stack) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "  [%d] %v\n", i, vm.stack[i])
	}

	fmt.Fprintf(&b, "## call stack (%d)\n", len(vm.callStack))
	for i := len(vm.callStack) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "  [%d] pc=%d\n", i, vm.callStack[i])
	}

	addrs := make([]int64, 0, len(vm.heap))
	for addr := range vm.heap {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	fmt.Fprintf(&b, "## heap (%d cells)\n", len(addrs))
	for _, addr := range addrs {
		fmt.Fprintf(&b, "  %d: %v\n", addr, vm.heap[addr])
	}

	return b.String()
}
