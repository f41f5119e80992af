package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/docsynth/internal/audit"
	"github.com/ziadkadry99/docsynth/internal/documents"
	"github.com/ziadkadry99/docsynth/internal/research"
)

func (s *Server) handleQueryDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, errResult := queryRequest(request)
	if errResult != nil {
		return errResult, nil
	}

	answers, err := s.research.QueryDocuments(ctx, req)
	if err != nil {
		return researchError("query", err), nil
	}
	answered := make([]string, len(answers))
	for i, a := range answers {
		answered[i] = a.DocID
	}
	s.record(ctx, audit.Entry{
		Action:   audit.ActionDocumentsQueried,
		DocIDs:   answered,
		Question: req.Question,
		Summary:  fmt.Sprintf("%d document(s) answered", len(answers)),
	})
	if len(answers) == 0 {
		return mcp.NewToolResultText("No document contained an answer to this question."), nil
	}
	return mcp.NewToolResultText(formatAnswers(answers)), nil
}

func (s *Server) handleIdentifyThemes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, errResult := queryRequest(request)
	if errResult != nil {
		return errResult, nil
	}

	themes, err := s.research.IdentifyThemes(ctx, req)
	if err != nil {
		return researchError("theme identification", err), nil
	}
	s.record(ctx, audit.Entry{
		Action:   audit.ActionThemesIdentified,
		DocIDs:   req.DocIDs,
		Question: req.Question,
		Summary:  fmt.Sprintf("%d theme(s) identified", len(themes)),
	})
	if len(themes) == 0 {
		return mcp.NewToolResultText("No themes found: no document contained an answer to this question."), nil
	}
	return mcp.NewToolResultText(formatThemes(themes)), nil
}

func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.store.List(ctx, documents.Filter{
		Author:  request.GetString("author", ""),
		DocType: request.GetString("doc_type", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing documents failed: %v", err)), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("No documents found. Upload or ingest documents first."), nil
	}
	return mcp.NewToolResultText(formatDocuments(docs)), nil
}

func (s *Server) record(ctx context.Context, e audit.Entry) {
	if s.activity == nil {
		return
	}
	e.ActorType = audit.ActorMCP
	if err := s.activity.Log(ctx, e); err != nil {
		s.logger.Warn("recording activity failed", "action", e.Action, "error", err)
	}
}

func queryRequest(request mcp.CallToolRequest) (research.QueryRequest, *mcp.CallToolResult) {
	question, err := request.RequireString("question")
	if err != nil {
		return research.QueryRequest{}, mcp.NewToolResultError("missing required parameter: question")
	}
	return research.QueryRequest{
		Question:   question,
		DocIDs:     splitIDs(request.GetString("doc_ids", "")),
		TopKPerDoc: request.GetInt("top_k_per_doc", 0),
	}, nil
}

func researchError(op string, err error) *mcp.CallToolResult {
	if errors.Is(err, research.ErrNoDocuments) {
		return mcp.NewToolResultError("No documents available. Upload or ingest documents first.")
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", op, err))
}

func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func formatAnswers(answers []research.DocumentAnswers) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Answers from %d document(s):\n", len(answers))
	for _, doc := range answers {
		fmt.Fprintf(&sb, "\n--- %s ---\n", doc.DocID)
		for _, a := range doc.Answers {
			fmt.Fprintf(&sb, "- %s [%s]\n", a.Text, a.Citation)
		}
	}
	return sb.String()
}

func formatThemes(themes []research.Theme) string {
	var sb strings.Builder
	for i, th := range themes {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "## %s\n", th.Name)
		if th.Summary != "" {
			sb.WriteString(th.Summary)
			sb.WriteString("\n")
		}
		for _, c := range th.Citations {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}
	return sb.String()
}

func formatDocuments(docs []documents.Document) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d document(s):\n", len(docs))
	for _, d := range docs {
		fmt.Fprintf(&sb, "- %s  %s  type=%s", d.ID, d.Filename, d.DocType)
		if d.Author != "" {
			fmt.Fprintf(&sb, "  author=%s", d.Author)
		}
		if d.DocDate != nil {
			fmt.Fprintf(&sb, "  date=%s", d.DocDate.Format("2006-01-02"))
		}
		fmt.Fprintf(&sb, "  chunks=%d\n", d.ChunkCount)
	}
	return sb.String()
}
