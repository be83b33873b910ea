// patrimctl drives the asset import pipeline from the command line,
// talking straight to the database the way the HTTP server does.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/config"
	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/core"
	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/extract"
	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/logging"
	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/store"
)

func main() {
	var cmdRoot = &cobra.Command{
		Use:   "patrimctl",
		Short: "asset import pipeline utility",
		Long:  `Import, review, confirm, and cancel bulk asset import batches.`,
	}
	cmdRoot.AddCommand(cmdImport())
	cmdRoot.AddCommand(cmdStatus())
	cmdRoot.AddCommand(cmdSummary())
	cmdRoot.AddCommand(cmdConfirm())
	cmdRoot.AddCommand(cmdCancel())

	if err := cmdRoot.Execute(); err != nil {
		os.Exit(1)
	}
}

// openService connects to the database and builds the core service. The
// returned cleanup closes the pool.
func openService(ctx context.Context) (*core.Service, func(), error) {
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	st := store.New(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}

	return core.NewService(st, cfg), pool.Close, nil
}

func printBatch(b *core.ImportBatch) {
	log.Printf("batch %s: status %s, rows %d (created %d, skipped %d, errored %d)\n",
		b.ID, b.Status, b.RowCount, b.Created, b.Skipped, b.Errored)
	if b.Error != "" {
		log.Printf("batch %s: error: %s\n", b.ID, b.Error)
	}
}

func cmdImport() *cobra.Command {
	var noWait bool
	var cmd = &cobra.Command{
		Use:          "import <file>",
		Short:        "upload an inventory file and start a new import batch",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			extractor, err := extract.ForFile(filepath.Base(path), "")
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			rows, err := extractor.Extract(ctx, f)
			f.Close()
			if err != nil {
				return fmt.Errorf("extract %s: %w", path, err)
			}

			source := func(ctx context.Context) ([]core.RawRow, error) {
				return rows, nil
			}
			batch, err := svc.StartImport(ctx, core.UploadMeta{
				FileName: filepath.Base(path),
				Size:     info.Size(),
			}, source)
			if err != nil {
				return err
			}
			log.Printf("batch %s: started from %s (%d rows)\n", batch.ID, path, len(rows))

			if noWait {
				return nil
			}
			started := time.Now()
			batch, err = core.WaitProcessed(ctx, svc, batch.ID)
			if err != nil {
				return err
			}
			log.Printf("batch %s: processed in %v\n", batch.ID, time.Since(started))
			printBatch(batch)
			return printSummary(ctx, svc, batch.ID)
		},
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "return after starting the batch instead of waiting for processing")
	return cmd
}

func cmdStatus() *cobra.Command {
	var waitProcessed, waitTerminal bool
	var cmd = &cobra.Command{
		Use:          "status <batch-id>",
		Short:        "show the state of an import batch",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var batch *core.ImportBatch
			switch {
			case waitTerminal:
				batch, err = core.WaitTerminal(ctx, svc, args[0])
			case waitProcessed:
				batch, err = core.WaitProcessed(ctx, svc, args[0])
			default:
				batch, err = svc.GetBatch(ctx, args[0])
			}
			if err != nil {
				return err
			}
			printBatch(batch)
			return nil
		},
	}
	cmd.Flags().BoolVar(&waitProcessed, "wait", false, "poll until extraction and normalization finish")
	cmd.Flags().BoolVar(&waitTerminal, "wait-terminal", false, "poll until the batch reaches a terminal status")
	return cmd
}

func cmdSummary() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "summary <batch-id>",
		Short:        "show unresolved mappings and row problems for a batch",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			return printSummary(ctx, svc, args[0])
		},
	}
	return cmd
}

func printSummary(ctx context.Context, svc *core.Service, batchID string) error {
	summary, err := svc.Summary(ctx, batchID)
	if err != nil {
		return err
	}

	for _, group := range []struct {
		label    string
		mappings []core.FieldMapping
	}{
		{"location", summary.Locations},
		{"category", summary.Categories},
	} {
		for _, m := range group.mappings {
			if m.ResolvedID != "" {
				continue
			}
			log.Printf("unresolved %s %q (%d rows)\n", group.label, m.Text, m.RowCount)
			for _, c := range m.Candidates {
				log.Printf("  candidate: %s (%.2f)\n", c.Name, c.Score)
			}
		}
	}

	log.Printf("problems: %d, can confirm: %v\n", summary.Problems, summary.CanConfirm)
	return nil
}

func cmdConfirm() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "confirm <batch-id>",
		Short:        "commit the ready rows of a batch into the asset registry",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.Confirm(ctx, args[0])
			if err != nil {
				return err
			}
			log.Printf("batch %s: created %d, skipped %d, failed %d\n",
				args[0], result.Created, result.Skipped, len(result.Failures))
			for _, f := range result.Failures {
				log.Printf("  row %d (%s): %s\n", f.RowIndex, f.Patrimony, f.Reason)
			}
			return nil
		},
	}
	return cmd
}

func cmdCancel() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "cancel <batch-id>",
		Short:        "cancel a pending batch without creating assets",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Cancel(ctx, args[0]); err != nil {
				return err
			}
			batch, err := svc.GetBatch(ctx, args[0])
			if err != nil {
				return err
			}
			printBatch(batch)
			return nil
		},
	}
	return cmd
}
