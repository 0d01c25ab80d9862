package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	app "github.com/mohammadpnp/catalog-import/internal/application/catalogimport"
	"github.com/mohammadpnp/catalog-import/internal/bootstrap"
	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errImportFailed = errors.New("import failed")

type importFlags struct {
	batchSize           int
	delimiter           string
	encoding            string
	disableTransactions bool
	clearExisting       bool
	skipRows            int64
	testLines           int64
	mode                string
	sanitize            string
}

func (f importFlags) options() catalog.ImportOptions {
	return catalog.ImportOptions{
		BatchSize:           f.batchSize,
		Delimiter:           f.delimiter,
		Encoding:            f.encoding,
		DisableTransactions: f.disableTransactions,
		ClearExisting:       f.clearExisting,
		SkipRows:            f.skipRows,
		TestLines:           f.testLines,
		Mode:                catalog.ImportMode(f.mode),
		Sanitize:            catalog.SanitizeMode(f.sanitize),
	}
}

func newImportCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a catalog export and wait for it to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *bootstrap.Container, log *zap.Logger) error {
				return runImport(ctx, cmd, c, log, args[0], flags)
			})
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&flags.batchSize, "batch-size", 0, "rows per batch (default from IMPORT_BATCH_SIZE)")
	fs.StringVar(&flags.delimiter, "delimiter", "", `field delimiter, detected when empty ("\t" for tab)`)
	fs.StringVar(&flags.encoding, "encoding", "auto", "source encoding or auto")
	fs.BoolVar(&flags.disableTransactions, "disable-transactions", false, "write batches without a transaction")
	fs.BoolVar(&flags.clearExisting, "clear-existing", false, "delete all products before importing")
	fs.Int64Var(&flags.skipRows, "skip-rows", 0, "data rows to skip at the start")
	fs.Int64Var(&flags.testLines, "test-lines", 0, "stop after this many data rows (0 = all)")
	fs.StringVar(&flags.mode, "mode", "", "duplicate or update (default from IMPORT_MODE)")
	fs.StringVar(&flags.sanitize, "sanitize", "", "off, strip or reject (default from IMPORT_SANITIZE)")

	return cmd
}

func runImport(ctx context.Context, cmd *cobra.Command, c *bootstrap.Container, log *zap.Logger, path string, flags importFlags) error {
	out, err := c.StartImport.Execute(ctx, app.StartImportInput{SourcePath: path, Options: flags.options()})
	if err != nil {
		if errors.Is(err, catalog.ErrImportAlreadyRunning) && out.JobID != "" {
			return fmt.Errorf("%w (job %s)", err, out.JobID)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "import job %s started\n", out.JobID)

	done := make(chan struct{})
	go func() {
		c.Launcher.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("interrupt received, cancelling import", zap.String("job_id", out.JobID))
		if _, err := c.CancelImport.Execute(context.WithoutCancel(ctx), out.JobID); err != nil && !errors.Is(err, app.ErrJobAlreadyFinished) {
			log.Error("cancel request failed", zap.Error(err))
		}
		<-done
	}

	job, err := c.GetImportJob.Execute(context.WithoutCancel(ctx), out.JobID)
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), job); err != nil {
		return err
	}

	elapsed := time.Duration(0)
	if job.StartedAt != nil && job.FinishedAt != nil {
		elapsed = job.FinishedAt.Sub(*job.StartedAt)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d created, %d updated, %d skipped, %d errors in %s\n",
		job.Status, job.CreatedProducts, job.UpdatedProducts, job.SkippedProducts, job.ErrorCount, elapsed.Round(time.Millisecond))

	if job.Status == catalog.JobFailed {
		return fmt.Errorf("%w: %s", errImportFailed, job.ErrorLog)
	}
	return nil
}
