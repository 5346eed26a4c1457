package wsvm

import (
	"github.com/tuneerroy/whitespace-compiler/internal/ioutil"
)

// Option configures a VM at construction time, in the teacher's own
// functional-options shape: small unexported types implementing apply,
// folded together by Options so New(prog, opts...) never special-cases
// the number of options passed.
type Option interface{ apply(vm *VM) }

var defaultOptions = Options(
	withIO(ioutil.NewScriptIO("")),
)

// Options folds opts into a single Option, flattening any nested Options
// value so repeated composition stays cheap.
func Options(opts ...Option) Option {
	var res options
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil, noption:
		case options:
			res = append(res, impl...)
		default:
			res = append(res, opt)
		}
	}
	switch len(res) {
	case 0:
		return noption{}
	case 1:
		return res[0]
	default:
		return res
	}
}

type noption struct{}

func (noption) apply(*VM) {}

type options []Option

func (opts options) apply(vm *VM) {
	for _, opt := range opts {
		if opt != nil {
			opt.apply(vm)
		}
	}
}

type ioOption struct{ ioutil.IO }

// WithIO supplies the I/O capability (real or scripted) the VM reads and
// writes through.
func WithIO(io ioutil.IO) Option { return withIO(io) }
func withIO(io ioutil.IO) Option { return ioOption{io} }
func (o ioOption) apply(vm *VM)  { vm.io = o.IO }

type memLimitOption uint

// WithMemLimit caps heap addresses, halting with a memLimitError past it.
// Zero (the default) means unlimited.
func WithMemLimit(limit uint) Option   { return memLimitOption(limit) }
func (lim memLimitOption) apply(vm *VM) { vm.memLimit = uint(lim) }

type logfOption func(mess string, args ...interface{})

// WithLogf enables per-step trace logging through logfn.
func WithLogf(logfn func(mess string, args ...interface{})) Option {
	return logfOption(logfn)
}
func (logfn logfOption) apply(vm *VM) { vm.logfn = logfn }

// WithTrace is a convenience wrapper that prefixes every trace line, mostly
// useful from cmd/wsc where the prefix distinguishes VM trace lines from
// other logger output.
func WithTrace(logfn func(mess string, args ...interface{})) Option {
	return logfOption(func(mess string, args ...interface{}) {
		logfn("TRACE "+mess, args...)
	})
}
