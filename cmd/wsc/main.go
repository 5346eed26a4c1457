// Command wsc is the CLI entrypoint for the W/B toolchain: interpret a W
// program, or lower a W or B program to ARM64 assembly, per the flag set
// below. Source files are read in the repository's own line-oriented
// instruction listing for W (see wparse.go) or raw Brainfuck source for B
// (see bparse.go) -- B has no stepping interpreter of its own, only the
// ARM64 lowering spec.md section 9 describes.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	wsvm "github.com/tuneerroy/whitespace-compiler"
	"github.com/tuneerroy/whitespace-compiler/internal/ioutil"
	"github.com/tuneerroy/whitespace-compiler/internal/logio"
	"github.com/tuneerroy/whitespace-compiler/internal/panicerr"
)

func main() {
	var (
		interp   bool
		compileW bool
		compileB bool
		memLimit uint
		timeout  time.Duration
		trace    bool
		dump     bool
	)
	flag.BoolVar(&interp, "interp", false, "interpret a W program and print its output")
	flag.BoolVar(&compileW, "compile-w", false, "lower a W program to ARM64 assembly")
	flag.BoolVar(&compileB, "compile-b", false, "lower a B (Brainfuck) program to ARM64 assembly")
	flag.UintVar(&memLimit, "mem-limit", 0, "cap heap addresses (0 = unlimited)")
	flag.DurationVar(&timeout, "timeout", 0, "interpreter time limit (0 = unlimited)")
	flag.BoolVar(&trace, "trace", false, "enable per-step trace logging")
	flag.BoolVar(&dump, "dump", false, "print a VM state dump after execution")
	flag.Parse()

	log := logio.Logger{}
	log.SetOutput(os.Stderr)
	defer func() { os.Exit(log.ExitCode()) }()

	if flag.NArg() != 1 {
		log.Errorf("usage: wsc [flags] <file>")
		return
	}
	src, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Errorf("%v", err)
		return
	}

	switch {
	case interp:
		runInterpW(&log, src, memLimit, timeout, trace, dump)
	case compileW:
		runCompileW(&log, src)
	case compileB:
		runCompileB(&log, src)
	default:
		log.Errorf("one of -interp, -compile-w, -compile-b is required")
	}
}

func runInterpW(log *logio.Logger, src []byte, memLimit uint, timeout time.Duration, trace, dump bool) {
	prog, err := wsvm.ParseWText(src)
	if err != nil {
		log.Errorf("%v", err)
		return
	}

	stdio := ioutil.NewStdIO(os.Stdin, os.Stdout)
	opts := []wsvm.Option{
		wsvm.WithIO(stdio),
		wsvm.WithMemLimit(memLimit),
	}
	if trace {
		opts = append(opts, wsvm.WithTrace(log.Leveledf("TRACE")))
	}
	vm := wsvm.New(prog, opts...)

	ctx := context.Background()
	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	runErr := panicerr.Recover("VM", func() error {
		return vm.Run(ctx)
	})
	log.ErrorIf(stdio.Flush())
	if dump {
		log.Printf("DUMP", "%s", vm.Dump())
	}
	log.ErrorIf(runErr)
}

func runCompileW(log *logio.Logger, src []byte) {
	prog, err := wsvm.ParseWText(src)
	if err != nil {
		log.Errorf("%v", err)
		return
	}
	instrs, err := wsvm.CompileW(prog)
	if err != nil {
		log.Errorf("%v", err)
		return
	}
	if err := wsvm.Print(os.Stdout, instrs); err != nil {
		log.Errorf("%v", err)
	}
}

func runCompileB(log *logio.Logger, src []byte) {
	prog, err := wsvm.ParseB(src)
	if err != nil {
		log.Errorf("%v", err)
		return
	}
	instrs, err := wsvm.CompileB(prog)
	if err != nil {
		log.Errorf("%v", err)
		return
	}
	if err := wsvm.Print(os.Stdout, instrs); err != nil {
		log.Errorf("%v", err)
	}
}
