package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/campusshare/campusshare/internal/auth"
	"github.com/campusshare/campusshare/internal/service"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var username, email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := readPassword(cmd.ErrOrStderr(), opts.stdin, "Password: ")
				if err != nil {
					return err
				}
				password = p
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			repo, err := openRepository(ctx, opts)
			if err != nil {
				return err
			}
			defer repo.Close()

			users, err := service.NewUserService(repo, auth.NewHasher(auth.DefaultParams), nil, nil, nil, nil)
			if err != nil {
				return err
			}

			user, err := users.Register(ctx, service.RegisterInput{
				Username: username,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}

			return printResult(cmd.OutOrStdout(), opts.format, map[string]any{
				"id":       user.ID,
				"username": user.Username,
				"email":    user.Email,
			}, func() string {
				return fmt.Sprintf("created user %s (%s) id=%s", user.Username, user.Email, user.ID)
			})
		},
	}
	create.Flags().StringVar(&username, "username", "", "Display name")
	create.Flags().StringVar(&email, "email", "", "Login email")
	create.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}

// readPassword prompts on w and reads a password from in. A terminal is
// read without echo; piped input is read up to the first newline.
func readPassword(w io.Writer, in io.Reader, prompt string) (string, error) {
	fmt.Fprint(w, prompt)

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password is required")
	}
	return line, nil
}
