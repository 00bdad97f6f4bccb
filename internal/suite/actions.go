package suite

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/roach88/steprun/internal/dialect"
	"github.com/roach88/steprun/internal/runner"
)

// DefaultShell runs step commands.
const DefaultShell = "sh"

// shellBuiltins never resolve through PATH but are always available.
var shellBuiltins = map[string]bool{
	"cd": true, "exit": true, "export": true, "set": true, "unset": true,
	":": true, ".": true, "source": true, "eval": true, "exec": true,
	"read": true, "shift": true, "trap": true, "wait": true, "return": true,
	"break": true, "continue": true, "local": true, "readonly": true,
	"umask": true, "alias": true, "command": true, "type": true, "getopts": true,
}

// shellReserved are grammar words, not programs.
var shellReserved = map[string]bool{
	"if": true, "then": true, "else": true, "elif": true, "fi": true,
	"for": true, "while": true, "until": true, "do": true, "done": true,
	"case": true, "esac": true, "in": true, "function": true, "select": true,
	"time": true,
}

// CommandError is a step command that exited unsuccessfully.
type CommandError struct {
	Command  string
	ExitCode int
	// Output is the last line the command printed, ANSI-stripped.
	Output string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("command %q exited with status %d: %s", e.Command, e.ExitCode, e.Output)
	}
	return fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitCode)
}

// ShellAction runs a shell command.
//
// Run executes the command and writes its combined output, ANSI-stripped,
// to the scenario context line by line. DryRun checks syntax and that a
// plain leading program resolves, so a typo fails the step without running it.
type ShellAction struct {
	Command string
	Dir     string
	Shell   string
}

// Run executes the command with the scenario's context.
func (a ShellAction) Run(ctx context.Context, d *dialect.Dialect, sc *runner.Scenario) error {
	shell := a.Shell
	if shell == "" {
		shell = DefaultShell
	}

	cmd := exec.CommandContext(ctx, shell, "-c", a.Command)
	cmd.Dir = a.Dir
	cmd.Env = append(os.Environ(),
		"STEPRUN_SCENARIO_ID="+sc.ID(),
		"STEPRUN_SCENARIO_NAME="+sc.Name(),
	)
	if d != nil {
		cmd.Env = append(cmd.Env, "STEPRUN_DIALECT="+d.Code())
	}

	out, err := cmd.CombinedOutput()
	last := writeLines(sc, out)
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{Command: a.Command, ExitCode: exitErr.ExitCode(), Output: last}
	}
	return fmt.Errorf("run %q: %w", a.Command, err)
}

// DryRun checks the command's syntax with the shell's -n flag, then
// resolves its program on PATH when the command starts with a plain word.
// Nothing is executed.
func (a ShellAction) DryRun(ctx context.Context, _ *dialect.Dialect, _ *runner.Scenario) error {
	program := firstWord(a.Command)
	if program == "" {
		return fmt.Errorf("empty command")
	}

	shell := a.Shell
	if shell == "" {
		shell = DefaultShell
	}
	out, err := exec.CommandContext(ctx, shell, "-n", "-c", a.Command).CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &CommandError{Command: a.Command, ExitCode: exitErr.ExitCode(), Output: lastLine(out)}
		}
		return fmt.Errorf("check %q: %w", a.Command, err)
	}

	if !isPlainWord(program) || shellBuiltins[program] || shellReserved[program] {
		return nil
	}
	if strings.Contains(program, "/") && !filepath.IsAbs(program) && a.Dir != "" {
		program = filepath.Join(a.Dir, program)
	}
	if _, err := exec.LookPath(program); err != nil {
		return fmt.Errorf("resolve %q: %w", program, err)
	}
	return nil
}

// isPlainWord reports whether word can only name a program: no quoting,
// expansion, assignment, redirection or grouping.
func isPlainWord(word string) bool {
	for _, r := range word {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("_-./+", r):
		default:
			return false
		}
	}
	return true
}

func lastLine(out []byte) string {
	var last string
	for _, line := range strings.Split(stripansi.Strip(string(out)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			last = line
		}
	}
	return last
}

// writeLines appends each non-empty output line to the scenario and
// returns the last one.
func writeLines(sc *runner.Scenario, out []byte) string {
	var last string
	scanner := bufio.NewScanner(strings.NewReader(stripansi.Strip(string(out))))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		sc.Write(line)
		last = line
	}
	return last
}

func firstWord(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// PendingAction marks a step as not implemented yet.
// Its dry run succeeds: there is nothing to validate.
type PendingAction struct {
	Text string
}

// Run returns the pending marker.
func (a PendingAction) Run(context.Context, *dialect.Dialect, *runner.Scenario) error {
	return runner.Pending(a.Text)
}

// DryRun succeeds.
func (PendingAction) DryRun(context.Context, *dialect.Dialect, *runner.Scenario) error {
	return nil
}

// UndefinedAction stands in for a step with no implementation.
// Both modes return the undefined marker since nothing can be bound.
type UndefinedAction struct {
	Text string
}

// Run returns the undefined marker.
func (a UndefinedAction) Run(context.Context, *dialect.Dialect, *runner.Scenario) error {
	return &runner.UndefinedError{StepText: a.Text}
}

// DryRun returns the undefined marker.
func (a UndefinedAction) DryRun(context.Context, *dialect.Dialect, *runner.Scenario) error {
	return &runner.UndefinedError{StepText: a.Text}
}
