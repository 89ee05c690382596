package taskwarrior

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os/exec"
	"unicode"

	"github.com/pkg/errors"
)

type Client struct {
	binary string
}

func NewClient() *Client {
	return &Client{binary: "task"}
}

// Export runs `task <filter> export` and parses its output.
func (c *Client) Export(ctx context.Context, filter []string) ([]Task, error) {
	args := append(append([]string{}, filter...), "export", "rc.hooks=0")
	slog.DebugContext(ctx, "running taskwarrior export", slog.Any("args", args))

	cmd := exec.CommandContext(ctx, c.binary, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, errors.Errorf("taskwarrior command failed: exit code %d, stderr: %s", exitErr.ExitCode(), exitErr.Stderr)
		}
		return nil, errors.Wrap(err, "taskwarrior command failed")
	}

	return ParseTasks(bytes.NewReader(output))
}

// ParseTasks reads either a JSON array, as produced by `task export`, or a
// stream of JSON objects, as handed to hooks.
func ParseTasks(r io.Reader) ([]Task, error) {
	br := bufio.NewReader(r)

	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	decoder := json.NewDecoder(br)
	if first == '[' {
		var tasks []Task
		if err := decoder.Decode(&tasks); err != nil {
			return nil, errors.Wrap(err, "failed to decode task export")
		}
		return tasks, nil
	}

	var tasks []Task
	for {
		var task Task
		if err := decoder.Decode(&task); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "failed to decode task json")
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !unicode.IsSpace(rune(b)) {
			return b, br.UnreadByte()
		}
	}
}
