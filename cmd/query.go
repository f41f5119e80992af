package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docsynth/internal/audit"
	"github.com/ziadkadry99/docsynth/internal/research"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question across the indexed documents",
	Long:  `Retrieves the most relevant paragraphs of each document, extracts a cited answer from each and prints the answers grouped by document.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var themesCmd = &cobra.Command{
	Use:   "themes [question]",
	Short: "Group answers across documents into cited themes",
	Long:  `Answers the question in every selected document, clusters the answers by meaning and prints at most four themes with a summary and citations each.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runThemes,
}

func init() {
	for _, c := range []*cobra.Command{queryCmd, themesCmd} {
		c.Flags().StringSlice("doc", nil, "restrict to these document IDs (repeatable)")
		c.Flags().Int("top-k", 0, "chunks retrieved per document (default from config)")
		c.Flags().Bool("json", false, "output results as JSON")
		rootCmd.AddCommand(c)
	}
}

func researchRequest(cmd *cobra.Command, question string) research.QueryRequest {
	docIDs, _ := cmd.Flags().GetStringSlice("doc")
	topK, _ := cmd.Flags().GetInt("top-k")
	return research.QueryRequest{Question: question, DocIDs: docIDs, TopKPerDoc: topK}
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	req := researchRequest(cmd, args[0])
	answers, err := a.research.QueryDocuments(ctx, req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	answered := make([]string, len(answers))
	for i, d := range answers {
		answered[i] = d.DocID
	}
	a.record(ctx, audit.Entry{
		Action:   audit.ActionDocumentsQueried,
		DocIDs:   answered,
		Question: req.Question,
		Summary:  fmt.Sprintf("%d document(s) answered", len(answers)),
	})

	if jsonOutput {
		if answers == nil {
			answers = []research.DocumentAnswers{}
		}
		return printJSON(os.Stdout, map[string]any{"individual_answers": answers})
	}
	printAnswers(os.Stdout, answers)
	return nil
}

func runThemes(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	req := researchRequest(cmd, args[0])
	themes, err := a.research.IdentifyThemes(ctx, req)
	if err != nil {
		return fmt.Errorf("theme identification failed: %w", err)
	}
	a.record(ctx, audit.Entry{
		Action:   audit.ActionThemesIdentified,
		DocIDs:   req.DocIDs,
		Question: req.Question,
		Summary:  fmt.Sprintf("%d theme(s) identified", len(themes)),
	})

	if jsonOutput {
		if themes == nil {
			themes = []research.Theme{}
		}
		return printJSON(os.Stdout, map[string]any{"themes": themes})
	}
	printThemes(os.Stdout, themes)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAnswers(w io.Writer, answers []research.DocumentAnswers) {
	if len(answers) == 0 {
		fmt.Fprintln(w, "No document contained an answer.")
		return
	}
	heading := color.New(color.Bold, color.FgCyan)
	cite := color.New(color.Faint)
	for i, doc := range answers {
		if i > 0 {
			fmt.Fprintln(w)
		}
		heading.Fprintln(w, doc.DocID)
		for _, a := range doc.Answers {
			fmt.Fprintf(w, "  - %s\n", a.Text)
			cite.Fprintf(w, "    [%s]\n", a.Citation)
		}
	}
}

func printThemes(w io.Writer, themes []research.Theme) {
	if len(themes) == 0 {
		fmt.Fprintln(w, "No themes found.")
		return
	}
	heading := color.New(color.Bold, color.FgMagenta)
	cite := color.New(color.Faint)
	for i, th := range themes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		heading.Fprintln(w, th.Name)
		if th.Summary != "" {
			fmt.Fprintf(w, "  %s\n", th.Summary)
		}
		cite.Fprintf(w, "  %s\n", strings.Join(th.Citations, "; "))
	}
}
