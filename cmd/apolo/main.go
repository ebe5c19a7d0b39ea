// Command apolo is the process-level front-end for the Apolo bytecode
// interpreter: a REPL, a file-execution mode, and a disassembly dump,
// dispatched through github.com/google/subcommands. It supersedes the
// teacher's collection of parallel, unwired cmd_*.go files (cmd_repl.go,
// cmd_repl_compiled.go, cmd_run.go, cmd_run_compiled.go,
// cmd_emit_bytecode.go) with one set of subcommands that are actually
// registered and actually share a single VM-construction path.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// Process exit codes per the CLI's process-surface contract.
const (
	exitUsageError   = subcommands.ExitStatus(64)
	exitCompileError = subcommands.ExitStatus(65)
	exitRuntimeError = subcommands.ExitStatus(70)
	exitIOFailure    = subcommands.ExitStatus(74)
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	stdin  io.Reader = os.Stdin
)

// builtinCommands are the names subcommands.Execute dispatches on directly,
// plus the ones it always registers for free (help, flags, commands).
var builtinCommands = map[string]bool{
	"help": true, "flags": true, "commands": true,
	"repl": true, "run": true, "emit": true,
}

func main() {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&replCmd{}, "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&emitCmd{}, "")

	// No args at all (beyond the binary name) means "start a REPL", matching
	// the process-surface contract's "no args -> REPL" rule; subcommands
	// itself has no notion of a default command.
	switch {
	case len(os.Args) == 1:
		os.Args = append(os.Args, "repl")
	case !strings.HasPrefix(os.Args[1], "-") && !builtinCommands[os.Args[1]]:
		// One arg that isn't a flag and isn't a known subcommand name is the
		// other documented process-surface shape: "apolo <file>" runs it,
		// same as "apolo run <file>".
		os.Args = append([]string{os.Args[0], "run"}, os.Args[1:]...)
	}

	flag.Parse()
	log.Debug("starting apolo")
	os.Exit(int(subcommands.Execute(context.Background())))
}
