package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsynth/internal/audit"
	"github.com/ziadkadry99/docsynth/internal/documents"
	"github.com/ziadkadry99/docsynth/internal/ingest"
	"github.com/ziadkadry99/docsynth/internal/progress"
	"github.com/ziadkadry99/docsynth/internal/walker"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest documents from files or directories",
	Long: `Walks each path, honouring .gitignore and the include/exclude patterns from
the config, and registers, chunks and indexes every readable document.
Files whose content is already registered are reported as duplicates.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("author", "", "author recorded for every ingested document")
	ingestCmd.Flags().String("date", "", "document date (YYYY-MM-DD or RFC 3339)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	meta := ingest.Metadata{}
	meta.Author, _ = cmd.Flags().GetString("author")
	if date, _ := cmd.Flags().GetString("date"); date != "" {
		t, err := documents.ParseDate(date, false)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
		meta.DocDate = &t
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	var files []walker.FileInfo
	for _, root := range args {
		found, err := walker.Walk(walker.WalkerConfig{
			RootDir: root,
			Include: a.cfg.Ingest.Include,
			Exclude: a.cfg.Ingest.Exclude,
		})
		if err != nil {
			return err
		}
		files = append(files, found...)
	}

	counts := make(map[ingest.Status]int)
	reporter := progress.NewReporter("Ingesting documents")
	reporter.Start(len(files))
	for i, f := range files {
		if ctx.Err() != nil {
			break
		}
		res := a.ingest.IngestFile(ctx, f, meta)
		counts[res.Status]++
		reporter.Update(i+1, fmt.Sprintf("%s: %s", res.Filename, res.Status))
		switch res.Status {
		case ingest.StatusIndexed:
			a.record(ctx, audit.Entry{
				Action:  audit.ActionDocumentIngested,
				DocIDs:  []string{res.DocID},
				Summary: fmt.Sprintf("%s: %s", f.Path, res.Detail),
			})
		case ingest.StatusError:
			a.logger.Warn("ingest failed", "file", res.Filename, "detail", res.Detail)
		}
	}
	reporter.Finish(fmt.Sprintf("%d indexed, %d duplicate, %d skipped, %d failed",
		counts[ingest.StatusIndexed], counts[ingest.StatusDuplicate],
		counts[ingest.StatusSkipped], counts[ingest.StatusError]))

	if err := ctx.Err(); err != nil {
		return err
	}
	if counts[ingest.StatusError] > 0 {
		return fmt.Errorf("%d file(s) failed to ingest", counts[ingest.StatusError])
	}
	return nil
}
