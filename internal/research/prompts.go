package research

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/docsynth/internal/vectordb"
)

const systemPrompt = "You are a helpful assistant."

func extractPrompt(question string, chunk vectordb.Chunk) string {
	citation := FormatCitation(chunk)
	var b strings.Builder
	fmt.Fprintf(&b, "You are a research assistant. The user asked:\n\n%q\n\n", question)
	fmt.Fprintf(&b, "Below is a document excerpt (%s):\n\n\"\"\"%s\"\"\"\n\n", citation, chunk.Text)
	b.WriteString("If this excerpt contains a relevant answer, extract a concise snippet (1-2 sentences). ")
	fmt.Fprintf(&b, "Otherwise respond with %q.\n\n", NoAnswer)
	b.WriteString("Return exactly JSON: {\n")
	fmt.Fprintf(&b, "  \"answer\": \"<text or %s>\",\n", NoAnswer)
	fmt.Fprintf(&b, "  \"citation\": %q\n", citation)
	b.WriteString("}")
	return b.String()
}

func themePrompt(snippets []SnippetRecord, themeID int, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a research assistant. The user asked: %q\n\n", question)
	fmt.Fprintf(&b, "Below are the excerpts belonging to Theme %d:\n\n", themeID)
	for _, s := range snippets {
		fmt.Fprintf(&b, "[%s] %q\n", s.Citation, s.Text)
	}
	b.WriteString("\nTask:\n")
	fmt.Fprintf(&b, "1) Provide a short label: \"Theme %d - <name>\".\n", themeID)
	b.WriteString("2) Write a 2-3 sentence synthesis of the main idea across these excerpts.\n")
	b.WriteString("3) Return all citations in a JSON array.\n\n")
	b.WriteString("Return exactly JSON:\n{\n")
	b.WriteString("  \"theme_name\": \"<short label>\",\n")
	b.WriteString("  \"summary\": \"<synthesis>\",\n")
	b.WriteString("  \"citations\": [\"<cit1>\", \"<cit2>\", ...]\n")
	b.WriteString("}")
	return b.String()
}
