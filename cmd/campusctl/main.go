// Command campusctl is the operator CLI: schema migrations, account
// bootstrap and token minting for scripted testing.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/campusshare/campusshare/internal/logging"
	"github.com/campusshare/campusshare/internal/repository"
)

// ctlConfig is the subset of the server environment campusctl needs.
type ctlConfig struct {
	DatabaseURL string        `env:"DATABASE_URL"`
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTIssuer   string        `env:"JWT_ISSUER" envDefault:"campusshare"`
	JWTAudience string        `env:"JWT_AUDIENCE" envDefault:"campusshare-api"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

type rootOptions struct {
	cfg     ctlConfig
	format  string
	timeout time.Duration
	stdin   io.Reader
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{stdin: os.Stdin}

	root := &cobra.Command{
		Use:           "campusctl",
		Short:         "Operate a campusshare deployment",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var fromEnv ctlConfig
			if err := env.Parse(&fromEnv); err != nil {
				return fmt.Errorf("read environment: %w", err)
			}
			if !cmd.Flags().Changed("database-url") {
				opts.cfg.DatabaseURL = fromEnv.DatabaseURL
			}
			opts.cfg.JWTSecret = fromEnv.JWTSecret
			opts.cfg.JWTIssuer = fromEnv.JWTIssuer
			opts.cfg.JWTAudience = fromEnv.JWTAudience
			opts.cfg.JWTTTL = fromEnv.JWTTTL

			if opts.format != "plain" && opts.format != "json" {
				return fmt.Errorf("--format must be plain or json, got %q", opts.format)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.cfg.DatabaseURL, "database-url", "", "PostgreSQL connection string (default $DATABASE_URL)")
	flags.StringVar(&opts.format, "format", "plain", "Output format: plain or json")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Overall command timeout")

	root.AddCommand(
		newMigrateCmd(opts),
		newUserCmd(opts),
		newTokenCmd(opts),
	)

	return root
}

// openRepository connects to the database named by opts.
func openRepository(ctx context.Context, opts *rootOptions) (*repository.Repository, error) {
	if opts.cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or --database-url is required")
	}
	repo, err := repository.New(ctx, opts.cfg.DatabaseURL, repository.PoolConfig{MaxConns: 2, MinConns: 0})
	if err != nil {
		return nil, fmt.Errorf("connect database %s: %s",
			logging.RedactURL(opts.cfg.DatabaseURL), logging.SanitizeError(err, opts.cfg.DatabaseURL))
	}
	return repo, nil
}
