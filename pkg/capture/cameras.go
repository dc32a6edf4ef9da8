package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
)

// OutputPlaceholder is replaced by the destination path in command arguments.
const OutputPlaceholder = "{output}"

// FileCamera "captures" by copying an existing image file.
type FileCamera struct {
	Source string
}

// Capture copies Source to dest.
func (c *FileCamera) Capture(ctx context.Context, dest string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureCancelled, err)
	}

	src, err := os.Open(c.Source)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s does not exist", ErrCameraUnavailable, c.Source)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("capture: create %s: %w", dest, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("capture: copy %s: %w", c.Source, err)
	}
	return dst.Close()
}

// CommandCamera runs an external program that writes a photo to a path.
// Arguments containing {output} get the destination substituted; if none
// does, the destination is appended as the last argument.
type CommandCamera struct {
	Name string
	Args []string

	// Stderr receives the program's stderr. Nil discards it.
	Stderr io.Writer
}

// ParseCommand splits a command line on whitespace into a CommandCamera.
func ParseCommand(line string) (*CommandCamera, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty camera command", ErrCameraUnavailable)
	}
	return &CommandCamera{Name: fields[0], Args: fields[1:]}, nil
}

// Capture runs the program and waits for it. Killing the program through ctx
// reports ErrCaptureCancelled.
func (c *CommandCamera) Capture(ctx context.Context, dest string) error {
	cmd := exec.CommandContext(ctx, c.Name, c.args(dest)...)
	cmd.Stderr = c.Stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrCaptureCancelled, ctx.Err())
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("capture: %s exited with status %d", c.Name, exitErr.ExitCode())
	}
	return fmt.Errorf("capture: run %s: %w", c.Name, err)
}

func (c *CommandCamera) args(dest string) []string {
	out := make([]string, 0, len(c.Args)+1)
	substituted := false
	for _, a := range c.Args {
		if strings.Contains(a, OutputPlaceholder) {
			a = strings.ReplaceAll(a, OutputPlaceholder, dest)
			substituted = true
		}
		out = append(out, a)
	}
	if !substituted {
		out = append(out, dest)
	}
	return out
}
