package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/parleyhq/parley/errors"
)

// RunCommandTool runs OS commands. The invocation input is the command line.
type RunCommandTool struct {
	allowedCommands []string
}

func (t *RunCommandTool) Name() string { return "run_command" }
func (t *RunCommandTool) Description() string {
	if len(t.allowedCommands) == 0 {
		return "Runs a shell command. No commands are currently allowed. Input: the command line."
	}

	allowedList := "Allowed command patterns:\n"
	for _, cmd := range t.allowedCommands {
		allowedList += fmt.Sprintf("- %s\n", cmd)
	}

	return fmt.Sprintf("Runs a shell command. Input: the command line.\n%s", allowedList)
}

func (t *RunCommandTool) Execute(ctx context.Context, input string) (string, error) {
	command := strings.TrimSpace(input)
	if command == "" {
		return "", errors.New("run_command input must be a command line")
	}

	allowed, err := isCommandAllowed(command, t.allowedCommands)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", errors.New("command '%s' is not in the list of allowed commands", command)
	}

	parts := strings.Fields(command)
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, "command execution failed. Output:\n%s", string(output))
	}

	return fmt.Sprintf("Command executed successfully. Output:\n%s", string(output)), nil
}
