// Command paydesk manages the saved paydesk session from a terminal. It
// shares the session entry with the desktop and browser shells.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"paydesk/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := bufio.NewReader(os.Stdin)
	c := &cli{
		stdin:  in,
		stdout: os.Stdout,
		stderr: os.Stderr,
		readPassword: func() (string, error) {
			fd := int(os.Stdin.Fd())
			if !term.IsTerminal(fd) {
				line, err := in.ReadString('\n')
				if err != nil && err != io.EOF {
					return "", err
				}
				return strings.TrimRight(line, "\r\n"), nil
			}
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			return string(b), err
		},
		configPath: config.GetConfigFilePath(),
	}
	os.Exit(c.run(ctx, os.Args[1:]))
}
