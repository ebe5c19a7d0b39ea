package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"github.com/ogoncas/apolo/compiler"
	"github.com/ogoncas/apolo/heap"
	"github.com/ogoncas/apolo/lexer"
)

// emitCmd disassembles a source file's compiled bytecode without running
// it, generalized from the teacher's emitBytecodeCmd (cmd_emit_bytecode.go)
// down to the one output format that survives here: human-readable
// disassembly (the teacher's separate AST-dump and raw-hex-dump modes have
// no equivalent once there is no AST and no persisted bytecode format).
type emitCmd struct {
	outFile string
}

func (*emitCmd) Name() string     { return "emit" }
func (*emitCmd) Synopsis() string { return "Disassemble a source file's compiled bytecode" }
func (*emitCmd) Usage() string {
	return "apolo emit [-out file] <file>\n"
}

func (cmd *emitCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.outFile, "out", "", "write the disassembly to this file instead of stdout")
}

func (cmd *emitCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	tokens := lexer.Scan(string(data))
	c := compiler.New(tokens, heap.New())
	chunk, compileErr := c.Compile()
	if compileErr != nil {
		fmt.Fprintln(stderr, compileErr.Error())
		return exitCompileError
	}

	name := strings.TrimSuffix(args[0], filepath.Ext(args[0]))
	listing := compiler.Disassemble(chunk, name)

	if cmd.outFile == "" {
		fmt.Fprint(stdout, listing)
		return subcommands.ExitSuccess
	}

	if err := os.WriteFile(cmd.outFile, []byte(listing), 0644); err != nil {
		fmt.Fprintf(stderr, "💥 failed to write disassembly: %v\n", err)
		return exitIOFailure
	}
	return subcommands.ExitSuccess
}
