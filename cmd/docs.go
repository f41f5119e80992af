package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsynth/internal/audit"
	"github.com/ziadkadry99/docsynth/internal/documents"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List or delete ingested documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	RunE:  runDocsList,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id...]",
	Short: "Delete documents and their embeddings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocsDelete,
}

func init() {
	docsListCmd.Flags().String("author", "", "only documents by this author")
	docsListCmd.Flags().String("type", "", "only documents of this type")
	docsListCmd.Flags().String("from", "", "earliest document date (YYYY-MM-DD)")
	docsListCmd.Flags().String("to", "", "latest document date (YYYY-MM-DD)")
	docsListCmd.Flags().Bool("json", false, "output as JSON")
	docsCmd.AddCommand(docsListCmd, docsDeleteCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	filter := documents.Filter{}
	filter.Author, _ = cmd.Flags().GetString("author")
	filter.DocType, _ = cmd.Flags().GetString("type")
	for _, bound := range []struct {
		flag  string
		upper bool
		dst   **time.Time
	}{
		{"from", false, &filter.From},
		{"to", true, &filter.To},
	} {
		v, _ := cmd.Flags().GetString(bound.flag)
		if v == "" {
			continue
		}
		t, err := documents.ParseDate(v, bound.upper)
		if err != nil {
			return fmt.Errorf("--%s: %w", bound.flag, err)
		}
		*bound.dst = &t
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := a.store.List(ctx, filter)
	if err != nil {
		return err
	}
	if jsonOutput {
		if docs == nil {
			docs = []documents.Document{}
		}
		return printJSON(os.Stdout, docs)
	}
	if len(docs) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOC ID\tFILENAME\tTYPE\tAUTHOR\tDATE\tCHUNKS")
	for _, d := range docs {
		date := ""
		if d.DocDate != nil {
			date = d.DocDate.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", d.ID, d.Filename, d.DocType, d.Author, date, d.ChunkCount)
	}
	return tw.Flush()
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, id := range args {
		if err := a.ingest.Delete(ctx, id); err != nil {
			return fmt.Errorf("deleting %s: %w", id, err)
		}
		a.record(ctx, audit.Entry{
			Action:  audit.ActionDocumentDeleted,
			DocIDs:  []string{id},
			Summary: "document and embeddings deleted",
		})
		fmt.Printf("Document %s and its embeddings have been deleted.\n", id)
	}
	return nil
}
