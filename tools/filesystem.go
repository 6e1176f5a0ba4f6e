package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/parleyhq/parley/config"
	"github.com/parleyhq/parley/errors"
)

// ReadFileTool reads a file. The invocation input is the file path.
type ReadFileTool struct {
	fsAccess *config.FilesystemAccess
}

func (t *ReadFileTool) Name() string { return "read_file" }
func (t *ReadFileTool) Description() string {
	return "Reads the entire content of a file. Input: the file path."
}

func (t *ReadFileTool) Execute(ctx context.Context, input string) (string, error) {
	path := strings.TrimSpace(input)
	if path == "" {
		return "", errors.New("read_file input must be a file path")
	}

	hidden, err := isPathRestricted(path, t.fsAccess.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.New("access denied: path '%s' is hidden", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file '%s'", path)
	}
	return string(content), nil
}

// WriteFileTool writes a file. The invocation input carries the path on its
// first line and the file content on the remaining lines.
type WriteFileTool struct {
	fsAccess *config.FilesystemAccess
}

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Writes content to a file, replacing it entirely. Input: the file path on the first line, the content on the lines after it."
}

func (t *WriteFileTool) Execute(ctx context.Context, input string) (string, error) {
	path, content, found := strings.Cut(strings.TrimLeft(input, "\n"), "\n")
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("write_file input must start with a file path line")
	}
	if !found {
		content = ""
	}

	hidden, err := isPathRestricted(path, t.fsAccess.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.New("access denied: path '%s' is hidden", path)
	}

	readOnly, err := isPathRestricted(path, t.fsAccess.ReadOnly)
	if err != nil {
		return "", err
	}
	if readOnly {
		return "", errors.New("access denied: path '%s' is read-only", path)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write to file '%s'", path)
	}
	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
}
