package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"github.com/ogoncas/apolo/compiler"
	"github.com/ogoncas/apolo/lexer"
	"github.com/ogoncas/apolo/token"
	"github.com/ogoncas/apolo/vm"
)

// replCmd starts an interactive session, generalized from the teacher's
// replCompiledCmd (cmd_repl_compiled.go) from its AST-dump REPL to Apolo's
// single-pass token-to-bytecode pipeline. Line editing comes from
// github.com/chzyer/readline instead of the teacher's bufio.Scanner.
type replCmd struct {
	disassemble bool
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive Apolo session" }
func (*replCmd) Usage() string {
	return "apolo repl [-disassemble]\n"
}

func (cmd *replCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.disassemble, "disassemble", false, "print the compiled bytecode for each line before running it")
}

// exitSentinels are the REPL lines that end the session; "sair" is carried
// over from the distilled spec's bilingual sentinel alongside "exit".
var exitSentinels = map[string]bool{"exit": true, "sair": true}

func (cmd *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(stderr, "💥 failed to start line editor: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	fmt.Fprintln(stdout, "Apolo")

	machine := vm.New(stdout, stdin)
	var buffer strings.Builder

	for {
		if buffer.Len() == 0 {
			rl.SetPrompt(">>> ")
		} else {
			rl.SetPrompt("... ")
		}

		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				return subcommands.ExitSuccess
			}
			fmt.Fprintf(stderr, "💥 %v\n", err)
			return subcommands.ExitFailure
		}

		if exitSentinels[strings.TrimSpace(line)] && buffer.Len() == 0 {
			return subcommands.ExitSuccess
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		tokens := lexer.Scan(source)
		if !isInputReady(tokens) {
			continue
		}

		c := compiler.New(tokens, machine.Heap())
		chunk, compileErr := c.Compile()
		if compileErr != nil {
			fmt.Fprintln(stderr, compileErr.Error())
			buffer.Reset()
			continue
		}

		if cmd.disassemble {
			fmt.Fprint(stdout, compiler.Disassemble(chunk, "repl"))
		}

		if runtimeErr := machine.Interpret(chunk); runtimeErr != nil {
			fmt.Fprintln(stderr, runtimeErr.Error())
		}
		buffer.Reset()
	}
}

// isInputReady reports whether the buffered source is a complete statement
// sequence, so the REPL can accept a multi-line if/while/block typed
// incrementally. Adapted from the teacher's isInputReady/lastNonEOF
// (cmd_repl_compiled.go), re-targeted to Apolo's token vocabulary: RETURN and
// FOR are both dropped from the "expects more input" set, since neither
// opens a statement in Apolo — RETURN is reserved-only, and FOR has no
// statement grammar bound to it at all.
func isInputReady(tokens []token.Token) bool {
	braceBalance := 0
	for _, tok := range tokens {
		switch tok.Type {
		case token.LCUR:
			braceBalance++
		case token.RCUR:
			braceBalance--
		}
	}
	if braceBalance > 0 {
		return false
	}

	last := lastNonEOF(tokens)
	if last == nil {
		return true
	}

	switch last.Type {
	case token.ASSIGN, token.ADD, token.SUB, token.MULT, token.DIV, token.BANG,
		token.EQUAL_EQUAL, token.NOT_EQUAL, token.LESS, token.LESS_EQUAL,
		token.LARGER, token.LARGER_EQUAL, token.COMMA, token.LPA, token.LCUR,
		token.IF, token.ELSE, token.WHILE, token.VAR, token.AND,
		token.OR, token.PRINT:
		return false
	}
	return true
}

func lastNonEOF(tokens []token.Token) *token.Token {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Type != token.EOF {
			return &tokens[i]
		}
	}
	return nil
}
