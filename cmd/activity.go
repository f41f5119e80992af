package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsynth/internal/audit"
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show the activity log",
	Long:  `Lists recent uploads, ingests, deletions, queries and theme runs, newest first. With --prune, entries older than the given age are removed instead.`,
	RunE:  runActivity,
}

func init() {
	activityCmd.Flags().Int("limit", 20, "maximum number of entries")
	activityCmd.Flags().String("action", "", "only entries with this action, e.g. document_deleted")
	activityCmd.Flags().String("doc", "", "only entries touching this document ID")
	activityCmd.Flags().Duration("prune", 0, "delete entries older than this age (e.g. 720h) and exit")
	activityCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(activityCmd)
}

func runActivity(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	limit, _ := cmd.Flags().GetInt("limit")
	action, _ := cmd.Flags().GetString("action")
	docID, _ := cmd.Flags().GetString("doc")
	prune, _ := cmd.Flags().GetDuration("prune")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if prune > 0 {
		n, err := a.activity.DeleteBefore(ctx, time.Now().Add(-prune))
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d activity entries.\n", n)
		return nil
	}

	entries, err := a.activity.Query(ctx, audit.QueryFilter{
		Action: audit.Action(action),
		DocID:  docID,
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(os.Stdout, entries)
	}
	if len(entries) == 0 {
		fmt.Println("No activity recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTOR\tACTION\tDOCUMENTS\tSUMMARY")
	for _, e := range entries {
		summary := e.Summary
		if e.Question != "" {
			summary = fmt.Sprintf("%q: %s", e.Question, summary)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.ActorType, e.Action, strings.Join(e.DocIDs, ","), summary)
	}
	return tw.Flush()
}
