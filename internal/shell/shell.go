// Package shell provides the interactive command shell for BigFS. The
// shell is a client of the gateway's public operations, nothing more: it
// does not start services, own goroutines, or touch cluster state directly.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Wender13/BigFS/internal/client"
)

// Shell is an interactive read-eval-print loop over a BigFS client.
type Shell struct {
	client *client.Client

	in  *bufio.Scanner
	out io.Writer

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a shell over an existing client.
func New(c *client.Client, in io.Reader, out io.Writer) *Shell {
	ctx, cancel := context.WithCancel(context.Background())
	return &Shell{
		client: c,
		in:     bufio.NewScanner(in),
		out:    out,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run starts the loop. It blocks until the user exits or input ends.
func (s *Shell) Run() error {
	defer s.cancel()
	s.printf("BigFS shell. Type 'help' for commands.\n")
	s.printf("bfs> ")

	for s.in.Scan() {
		if err := s.ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			s.printf("bfs> ")
			continue
		}

		if exit := s.execute(line); exit {
			return nil
		}

		s.printf("bfs> ")
	}

	return s.in.Err()
}

// execute parses and runs a single command. Returns true when the shell
// should exit.
func (s *Shell) execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "help":
		s.cmdHelp()
	case "cp":
		s.cmdCp(args)
	case "get":
		s.cmdGet(args)
	case "ls":
		s.cmdLs(args)
	case "rm":
		s.cmdRm(args)
	case "exit", "quit":
		return true
	default:
		s.printf("Unknown command: %s. Type 'help' for commands.\n", cmd)
	}

	return false
}

func (s *Shell) cmdHelp() {
	s.printf(`Commands:
  help                     Show this help
  cp <local> <bfs-path>    Upload a local file
  get <bfs-path> <local>   Download a file to a local path
  ls [pattern]             List files, optionally filtered by glob pattern
  rm <bfs-path>            Remove a file (asks for confirmation)
  quit                     Exit the shell

Paths may carry a bfs:// prefix: cp report.log bfs://reports/today.log
`)
}

func (s *Shell) cmdCp(args []string) {
	if len(args) != 2 {
		s.printf("Usage: cp <local> <bfs-path>\n")
		return
	}
	remote := ParsePath(args[1])
	if remote == "" {
		s.printf("Invalid destination path: %s\n", args[1])
		return
	}
	if err := s.client.Upload(s.ctx, args[0], remote); err != nil {
		s.printf("Upload failed: %v\n", err)
		return
	}
	s.printf("Uploaded %s -> %s\n", args[0], remote)
}

func (s *Shell) cmdGet(args []string) {
	if len(args) != 2 {
		s.printf("Usage: get <bfs-path> <local>\n")
		return
	}
	remote := ParsePath(args[0])
	if remote == "" {
		s.printf("Invalid source path: %s\n", args[0])
		return
	}
	f, err := os.Create(args[1])
	if err != nil {
		s.printf("Create %s: %v\n", args[1], err)
		return
	}
	if err := s.client.Download(s.ctx, remote, f); err != nil {
		f.Close()
		os.Remove(args[1])
		s.printf("Download failed: %v\n", err)
		return
	}
	if err := f.Close(); err != nil {
		s.printf("Close %s: %v\n", args[1], err)
		return
	}
	s.printf("Downloaded %s -> %s\n", remote, args[1])
}

func (s *Shell) cmdLs(args []string) {
	pattern := ""
	if len(args) > 0 {
		pattern = ParsePath(args[0])
	}
	files, err := s.client.List(s.ctx, pattern)
	if err != nil {
		s.printf("List failed: %v\n", err)
		return
	}
	files = FilterFiles(pattern, files)
	if len(files) == 0 {
		s.printf("No files.\n")
		return
	}
	for _, f := range files {
		s.printf("%12d  %s\n", f.Size, f.Filename)
	}
}

func (s *Shell) cmdRm(args []string) {
	if len(args) != 1 {
		s.printf("Usage: rm <bfs-path>\n")
		return
	}
	remote := ParsePath(args[0])
	if remote == "" {
		s.printf("Invalid path: %s\n", args[0])
		return
	}

	s.printf("Remove %s? [y/N] ", remote)
	if !s.in.Scan() {
		return
	}
	answer := strings.ToLower(strings.TrimSpace(s.in.Text()))
	if answer != "y" && answer != "yes" {
		s.printf("Aborted.\n")
		return
	}

	resp, err := s.client.Remove(s.ctx, remote)
	if err != nil {
		s.printf("Remove failed: %v\n", err)
		return
	}
	s.printf("%s\n", resp.Message)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
