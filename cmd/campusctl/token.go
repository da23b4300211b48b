package main

import (
	"context"
	"fmt"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/campusshare/campusshare/internal/auth"
	"github.com/campusshare/campusshare/internal/service"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Log in and print a bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is required")
			}
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

			tokens := auth.NewTokenManager(opts.cfg.JWTIssuer, opts.cfg.JWTAudience, opts.cfg.JWTSecret, opts.cfg.JWTTTL)
			users, err := service.NewUserService(repo, auth.NewHasher(auth.DefaultParams), tokens, nil, nil, nil)
			if err != nil {
				return err
			}

			res, err := users.Login(ctx, service.LoginInput{Email: email, Password: password})
			if err != nil {
				return err
			}

			return printResult(cmd.OutOrStdout(), opts.format, map[string]any{
				"token":     res.Token,
				"username":  res.User.Username,
				"expiresAt": res.ExpiresAt.Format(time.RFC3339),
			}, func() string {
				return res.Token
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// printResult writes v as JSON, or plain() as a line of text.
func printResult(w io.Writer, format string, v any, plain func() string) error {
	if format == "json" {
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, plain())
	return err
}
