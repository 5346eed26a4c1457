package wsvm

import (
	"context"
	"errors"
	"math/big"
	"strconv"

	"github.com/tuneerroy/whitespace-compiler/internal/ioutil"
	"github.com/tuneerroy/whitespace-compiler/internal/panicerr"
)

// Step executes exactly one instruction, advancing pc by one unless the
// instruction overrides it (Call/Jump/Branch/Return). It returns the normal
// "halt" signal -- (true, nil) -- when End is executed.
func (vm *VM) Step() (halted bool, err error) {
	instr, err := vm.prog.At(vm.pc)
	if err != nil {
		return false, err
	}

	vm.logf("@", "%d %v s:%v r:%v", vm.pc, instr, vm.stack, vm.callStack)

	next := vm.pc + 1
	switch i := instr.(type) {
	case Push:
		vm.push(big.NewInt(i.N))

	case Dup:
		top, e := vm.peek(0)
		if e != nil {
			return false, e
		}
		vm.push(new(big.Int).Set(top))

	case Swap:
		n := len(vm.stack)
		if n < 2 {
			return false, ErrValStackEmpty
		}
		vm.stack[n-1], vm.stack[n-2] = vm.stack[n-2], vm.stack[n-1]

	case Discard:
		if _, e := vm.pop(); e != nil {
			return false, e
		}

	case Copy:
		v, e := vm.peek(i.K)
		if e != nil {
			return false, e
		}
		vm.push(new(big.Int).Set(v))

	case Slide:
		top, e := vm.pop()
		if e != nil {
			return false, e
		}
		if len(vm.stack) < i.K {
			return false, ErrValStackEmpty
		}
		vm.stack = vm.stack[:len(vm.stack)-i.K]
		vm.push(top)

	case Arith:
		b, e := vm.pop()
		if e != nil {
			return false, e
		}
		a, e := vm.pop()
		if e != nil {
			return false, e
		}
		v, e := arith(i.Op, a, b)
		if e != nil {
			return false, e
		}
		vm.push(v)

	case Label:
		// no-op; resolved once at load time

	case Call:
		target, e := vm.prog.Lookup(i.L)
		if e != nil {
			return false, e
		}
		vm.pushRet(next)
		next = target

	case Jump:
		target, e := vm.prog.Lookup(i.L)
		if e != nil {
			return false, e
		}
		next = target

	case Branch:
		v, e := vm.pop()
		if e != nil {
			return false, e
		}
		take := false
		switch i.Cond {
		case Zero:
			take = v.Sign() == 0
		case Neg:
			take = v.Sign() < 0
		}
		if take {
			target, e := vm.prog.Lookup(i.L)
			if e != nil {
				return false, e
			}
			next = target
		}

	case Return:
		target, e := vm.popRet()
		if e != nil {
			return false, e
		}
		next = target

	case End:
		return true, nil

	case Store:
		val, e := vm.pop()
		if e != nil {
			return false, e
		}
		addr, e := vm.pop()
		if e != nil {
			return false, e
		}
		vm.store(addr.Int64(), val)

	case Retrieve:
		addr, e := vm.pop()
		if e != nil {
			return false, e
		}
		vm.push(new(big.Int).Set(vm.load(addr.Int64())))

	case OutputNum:
		v, e := vm.pop()
		if e != nil {
			return false, e
		}
		vm.io.WriteString(v.String())

	case OutputChar:
		v, e := vm.pop()
		if e != nil {
			return false, e
		}
		code := new(big.Int).Mod(v, big.NewInt(256)).Int64()
		vm.io.WriteString(string(rune(code)))

	case InputNum:
		addr, e := vm.pop()
		if e != nil {
			return false, e
		}
		line, e := vm.io.ReadLine()
		if e != nil {
			return false, e
		}
		n, ok := new(big.Int).SetString(line, 10)
		if !ok {
			return false, MalformedNumberError{line}
		}
		vm.store(addr.Int64(), n)

	case InputChar:
		addr, e := vm.pop()
		if e != nil {
			return false, e
		}
		r, e := vm.io.ReadChar()
		if e != nil {
			return false, e
		}
		vm.store(addr.Int64(), big.NewInt(int64(r)))

	default:
		return false, OutOfBoundsError{vm.pc}
	}

	vm.pc = next
	return false, nil
}

// arith applies op to a and b per the Euclidean (non-negative remainder)
// division convention documented in DESIGN.md.
func arith(op ArithOp, a, b *big.Int) (*big.Int, error) {
	switch op {
	case Add:
		return new(big.Int).Add(a, b), nil
	case Sub:
		return new(big.Int).Sub(a, b), nil
	case Mul:
		return new(big.Int).Mul(a, b), nil
	case Div:
		if b.Sign() == 0 {
			return nil, ErrDivByZero
		}
		q, _ := new(big.Int).DivMod(a, b, new(big.Int))
		return q, nil
	case Mod:
		if b.Sign() == 0 {
			return nil, ErrDivByZero
		}
		m := new(big.Int)
		new(big.Int).DivMod(a, b, m)
		return m, nil
	default:
		return nil, strconv.ErrSyntax
	}
}

// Run steps the VM until End, a runtime error, or ctx is done.
func (vm *VM) Run(ctx context.Context) error {
	for {
		halted, err := vm.Step()
		if halted || err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// ExecW is the public interpreter entrypoint from spec.md section 6: run
// program to completion against io, recovering any internal panic (e.g. a
// deliberate halt) into a normal error return.
func ExecW(ctx context.Context, program *Program, io ioutil.IO) error {
	if err := program.Validate(); err != nil {
		return err
	}
	vm := New(program, withIO(io))
	err := panicerr.Recover("VM", func() error {
		return vm.Run(ctx)
	})
	var he haltError
	if errors.As(err, &he) {
		return he.error
	}
	return err
}
