package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a11yomatic/a11y-engine/internal/bootstrap"
	"github.com/a11yomatic/a11y-engine/internal/config"
	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

// The MCP server exposes the analysis engine to local agent tooling over
// stdio. All tool calls act on behalf of one configured owner.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	owner := os.Getenv("MCP_OWNER_ID")
	if owner == "" {
		owner = "mcp-local"
	}

	ctx := context.Background()
	app, err := bootstrap.New(ctx, "mcp", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	s := server.NewMCPServer("a11y-engine", "1.0.0")

	analyzeTool := mcp.NewTool("analyze_document",
		mcp.WithDescription("Queue an accessibility analysis run for an uploaded document."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Id of the document to analyze.")),
	)
	s.AddTool(analyzeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		documentID, err := request.RequireString("document_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := app.AnalyzeUC.Trigger(ctx, owner, documentID); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("analysis queued for document %s", documentID)), nil
	})

	resultTool := mcp.NewTool("get_analysis_result",
		mcp.WithDescription("Latest accessibility report and issues for a document."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Id of the analyzed document.")),
	)
	s.AddTool(resultTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		documentID, err := request.RequireString("document_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := app.AnalyzeUC.Result(ctx, owner, documentID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonToolResult(result)
	})

	issuesTool := mcp.NewTool("list_issues",
		mcp.WithDescription("Detected accessibility issues for a document, optionally filtered by severity."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Id of the analyzed document.")),
		mcp.WithString("severity", mcp.Description("Optional filter: critical, high, medium or low.")),
	)
	s.AddTool(issuesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		documentID, err := request.RequireString("document_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		severity := domain.Severity(request.GetString("severity", ""))
		issues, err := app.AnalyzeUC.Issues(ctx, owner, documentID, severity)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonToolResult(issues)
	})

	remediateTool := mcp.NewTool("generate_remediation",
		mcp.WithDescription("Generate (or fetch the existing) remediation plan for an issue."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Id of the issue to remediate.")),
	)
	s.AddTool(remediateTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		issueID, err := request.RequireString("issue_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		plan, err := app.RemediationUC.Generate(ctx, owner, issueID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonToolResult(plan)
	})

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}

func jsonToolResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
