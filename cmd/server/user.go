package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zekret/zekret/internal/common"
	"github.com/zekret/zekret/internal/server/models"
	"golang.org/x/term"
)

// userAdmin is the account management surface used by the user commands.
type userAdmin interface {
	RegisterUser(ctx context.Context, email, username, password string) (*models.User, error)
	SetUserEnabled(ctx context.Context, identifier string, enabled bool) (*models.User, error)
}

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// NewUserCmd creates the user subcommand.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var email, username string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a new user; the password is read from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUserCreate(cmd, email, username)
		},
	}
	create.Flags().StringVar(&email, "email", "", "email address")
	create.Flags().StringVar(&username, "username", "", "username")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("username")

	cmd.AddCommand(create)
	cmd.AddCommand(&cobra.Command{
		Use:   "disable <email|username>",
		Short: "Disable a user and revoke their sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserSetEnabled(cmd, args[0], false)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "enable <email|username>",
		Short: "Re-enable a disabled user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserSetEnabled(cmd, args[0], true)
		},
	})

	return cmd
}

func runUserCreate(cmd *cobra.Command, email, username string) error {
	password, err := promptPassword(cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	app, _, err := bootstrap(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	u, err := app.RegisterUser(cmd.Context(), email, username, password)
	if err != nil {
		return err
	}

	cmd.Printf("User %s (%s) created\n", u.Username, u.Email)
	return nil
}

func runUserSetEnabled(cmd *cobra.Command, identifier string, enabled bool) error {
	app, _, err := bootstrap(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	u, err := app.SetUserEnabled(cmd.Context(), identifier, enabled)
	if err != nil {
		return err
	}

	state := "disabled"
	if u.Enabled {
		state = "enabled"
	}
	cmd.Printf("User %s is now %s\n", u.Username, state)
	return nil
}

// promptPassword reads the password twice without echo when stdin is a
// terminal, and a single line otherwise.
func promptPassword(in io.Reader, out io.Writer) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(out, "Enter password: ")
	first, err := readPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(first)

	fmt.Fprint(out, "Repeat password: ")
	second, err := readPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(second)

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
