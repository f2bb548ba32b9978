package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/agentdesk/internal/auth"
	"golang.org/x/term"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage dashboard accounts",
	}

	cmd.AddCommand(newUserSignupCmd())
	return cmd
}

func newUserSignupCmd() *cobra.Command {
	var (
		configPath string
		name       string
	)

	cmd := &cobra.Command{
		Use:   "signup <email>",
		Short: "Register a dashboard account",
		Long:  "Creates a dashboard account. The password is prompted for twice, or read as two lines from stdin when stdin is not a terminal.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserSignup(cmd, configPath, args[0], name)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&name, "name", "", "display name (default: local part of the email)")
	return cmd
}

func runUserSignup(cmd *cobra.Command, configPath, email, name string) error {
	prompt := newPasswordPrompt(cmd.InOrStdin(), cmd.ErrOrStderr())
	password, err := prompt.read("Password: ")
	if err != nil {
		return err
	}
	confirm, err := prompt.read("Confirm password: ")
	if err != nil {
		return err
	}

	return withApp(cmd, configPath, appOpts{Offline: true}, func(ctx context.Context, a *app) error {
		user, err := auth.SignUp(ctx, a.db, auth.SignUpInput{
			Email:       email,
			Password:    password,
			Confirm:     confirm,
			DisplayName: name,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Email, user.ID)
		return nil
	})
}

// passwordPrompt reads passwords without echo from a terminal, or line by
// line from any other reader.
type passwordPrompt struct {
	out    io.Writer
	lines  *bufio.Reader
	isTerm bool
	fd     int
}

func newPasswordPrompt(in io.Reader, out io.Writer) *passwordPrompt {
	p := &passwordPrompt{out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.isTerm = true
		p.fd = int(f.Fd())
	} else {
		p.lines = bufio.NewReader(in)
	}
	return p
}

func (p *passwordPrompt) read(label string) (string, error) {
	if p.isTerm {
		fmt.Fprint(p.out, label)
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := p.lines.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
