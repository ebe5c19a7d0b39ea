package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ogoncas/apolo/compiler"
	"github.com/ogoncas/apolo/lexer"
	"github.com/ogoncas/apolo/vm"
)

// runCmd executes a single source file, generalized from the teacher's
// runCompiledCmd (cmd_run_compiled.go) from its AST-compiler pipeline to
// Apolo's single-pass token-to-bytecode Compiler.
type runCmd struct {
	disassemble bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Execute an Apolo source file" }
func (*runCmd) Usage() string {
	return "apolo run [-disassemble] <file>\n"
}

func (cmd *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.disassemble, "disassemble", false, "print the compiled bytecode before running it")
}

func (cmd *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(stderr, "💥 no source file provided")
		return exitUsageError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "💥 failed to read file: %v\n", err)
		return exitIOFailure
	}

	machine := vm.New(stdout, stdin)
	tokens := lexer.Scan(string(data))

	c := compiler.New(tokens, machine.Heap())
	chunk, compileErr := c.Compile()
	if compileErr != nil {
		fmt.Fprintln(stderr, compileErr.Error())
		return exitCompileError
	}

	if cmd.disassemble {
		fmt.Fprint(stdout, compiler.Disassemble(chunk, args[0]))
	}

	if runtimeErr := machine.Interpret(chunk); runtimeErr != nil {
		fmt.Fprintln(stderr, runtimeErr.Error())
		return exitRuntimeError
	}

	return subcommands.ExitSuccess
}
