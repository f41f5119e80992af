package mcp

import "github.com/mark3labs/mcp-go/mcp"

// queryDocumentsTool defines the query_documents MCP tool.
var queryDocumentsTool = mcp.NewTool("query_documents",
	mcp.WithDescription("Ask a question across the uploaded documents. Returns per-document answers, each with a DocID/Page/Para citation."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Natural language question"),
	),
	mcp.WithString("doc_ids",
		mcp.Description("Comma-separated document IDs to restrict the search to (default: all documents)"),
	),
	mcp.WithNumber("top_k_per_doc",
		mcp.Description("Number of chunks retrieved per document (default 3)"),
	),
)

// identifyThemesTool defines the identify_themes MCP tool.
var identifyThemesTool = mcp.NewTool("identify_themes",
	mcp.WithDescription("Answer a question across documents and group the answers into at most four cited themes."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Natural language question"),
	),
	mcp.WithString("doc_ids",
		mcp.Description("Comma-separated document IDs to restrict the search to (default: all documents)"),
	),
	mcp.WithNumber("top_k_per_doc",
		mcp.Description("Number of chunks retrieved per document (default 3)"),
	),
)

// listDocumentsTool defines the list_documents MCP tool.
var listDocumentsTool = mcp.NewTool("list_documents",
	mcp.WithDescription("List uploaded documents and their metadata."),
	mcp.WithString("author",
		mcp.Description("Only documents by this author"),
	),
	mcp.WithString("doc_type",
		mcp.Description("Only documents of this type, e.g. pdf or text"),
	),
)
