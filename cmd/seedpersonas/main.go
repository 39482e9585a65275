// Command seedpersonas imports a persona export into the persona store.
//
//	seedpersonas ./personas.json
//	seedpersonas s3://bucket/exports/personas.json --dry-run
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cwal8202/chill-tuna-web/cmd/mainconfig"
	appconfig "github.com/cwal8202/chill-tuna-web/internal/config"
	"github.com/cwal8202/chill-tuna-web/internal/persona"
	"github.com/dustin/go-humanize"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// repoOpener yields the target repository and a func releasing it.
type repoOpener func(ctx context.Context, databaseURL string) (persona.Repository, func(), error)

func openPostgres(ctx context.Context, databaseURL string) (persona.Repository, func(), error) {
	if databaseURL == "" {
		return nil, nil, errors.New("DATABASE_URL is required (or pass --database-url)")
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}
	return persona.NewPostgresRepository(db), func() { _ = db.Close() }, nil
}

func newRootCmd(cfg *appconfig.Config, loader *persona.SeedLoader, open repoOpener, out io.Writer) *cobra.Command {
	var (
		databaseURL string
		dryRun      bool
	)
	cmd := &cobra.Command{
		Use:   "seedpersonas <file|s3://bucket/key>",
		Short: "Import a persona export into the persona store",
		Long: `Reads a JSON array of personas keyed by the export's Korean column names
(이름, 연령대, 페르소나 요약 태그, ...) and inserts every row in one transaction.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			source := args[0]

			if dryRun {
				personas, err := loader.Load(ctx, source)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "parsed %s personas from %s (dry run)\n", humanize.Comma(int64(len(personas))), source)
				return nil
			}

			repo, closeRepo, err := open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer closeRepo()

			n, err := persona.Import(ctx, loader, repo, source)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "imported %s personas from %s\n", humanize.Comma(int64(n)), source)
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", cfg.DatabaseURL, "Postgres connection string")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse the source without writing")
	cmd.SetOut(out)
	return cmd
}

func main() {
	cfg := appconfig.Load()
	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load aws config: %v\n", err)
		os.Exit(1)
	}
	loader := persona.NewSeedLoader(s3.NewFromConfig(awsCfg))

	if err := newRootCmd(cfg, loader, openPostgres, os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "seedpersonas: %v\n", err)
		os.Exit(1)
	}
}
