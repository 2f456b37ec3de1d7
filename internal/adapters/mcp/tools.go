// Package mcp exposes the widget engine as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tessera/internal/application/commands"
	"tessera/internal/domain"
)

// IssueSource provides the health issues collected so far
type IssueSource interface {
	Issues() []domain.Issue
}

// RegisterEngineTools adds the widget tools to the MCP server.
// issues may be nil, in which case the health tool is not registered.
func RegisterEngineTools(s *server.MCPServer, engine commands.Engine, issues IssueSource) {
	s.AddTool(groundTool(), groundHandler(engine))
	s.AddTool(recallTool(), recallHandler(engine))
	s.AddTool(similarTool(), similarHandler(engine))
	s.AddTool(planTool(), planHandler(engine))
	s.AddTool(invalidateTool(), invalidateHandler(engine))
	s.AddTool(filesChangedTool(), filesChangedHandler(engine))
	s.AddTool(cacheStatsTool(), cacheStatsHandler(engine))
	s.AddTool(listWidgetsTool(), listWidgetsHandler(engine))
	if issues != nil {
		s.AddTool(healthTool(), healthHandler(issues))
	}
}

// --- ground_widgets ---

func groundTool() mcp.Tool {
	return mcp.NewTool("ground_widgets",
		mcp.WithDescription("Compute every vault-wide (ground) widget. Cached results may be returned while a refresh runs in the background; isStale tells when."),
		mcp.WithBoolean("force",
			mcp.Description("Skip the cache and compute fresh results"),
		),
	)
}

func groundHandler(engine commands.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := commands.NewGroundCommand(engine, req.GetBool("force", false)).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(resp)
	}
}

// --- recall_widgets ---

func recallTool() mcp.Tool {
	return mcp.NewTool("recall_widgets",
		mcp.WithDescription("Compute the widgets shown alongside one document (recall location)."),
		mcp.WithString("path",
			mcp.Description("Vault-relative path of the document (e.g. books/dune.md)"),
			mcp.Required(),
		),
		mcp.WithBoolean("force",
			mcp.Description("Skip the cache and compute fresh results"),
		),
	)
}

func recallHandler(engine commands.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewRecallCommand(engine, req.GetString("path", ""), req.GetBool("force", false))
		results, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(results)
	}
}

// --- similar_documents ---

func similarTool() mcp.Tool {
	return mcp.NewTool("similar_documents",
		mcp.WithDescription("Rank the documents most similar to a source document using a similarity widget."),
		mcp.WithString("widget_id",
			mcp.Description("ID of a similarity widget"),
			mcp.Required(),
		),
		mcp.WithString("path",
			mcp.Description("Vault-relative path of the source document"),
			mcp.Required(),
		),
	)
}

func similarHandler(engine commands.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewSimilarCommand(engine, nil, req.GetString("widget_id", ""), req.GetString("path", ""), false)
		res, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(res.Result)
	}
}

// --- widget_plan ---

func planTool() mcp.Tool {
	return mcp.NewTool("widget_plan",
		mcp.WithDescription("Show the evaluation phases of an aggregate widget's fields, including cycle warnings."),
		mcp.WithString("widget_id",
			mcp.Description("ID of an aggregate widget"),
			mcp.Required(),
		),
	)
}

func planHandler(engine commands.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		plan, err := commands.NewPlanCommand(engine, req.GetString("widget_id", "")).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(plan)
	}
}

// --- invalidate ---

func invalidateTool() mcp.Tool {
	return mcp.NewTool("invalidate",
		mcp.WithDescription("Drop cached results of one widget, or of every widget with all=true."),
		mcp.WithString("widget_id",
			mcp.Description("Widget to invalidate"),
		),
		mcp.WithBoolean("all",
			mcp.Description("Invalidate every cached result of the vault"),
		),
	)
}

func invalidateHandler(engine commands.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewInvalidateCommand(engine, req.GetString("widget_id", ""), req.GetBool("all", false))
		res, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(res.Message), nil
	}
}

// --- files_changed ---

func filesChangedTool() mcp.Tool {
	return mcp.NewTool("files_changed",
		mcp.WithDescription("Report changed documents so the widgets that read them are invalidated."),
		mcp.WithArray("paths",
			mcp.Description("Vault-relative paths of the changed documents"),
			mcp.Required(),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithBoolean("recompute",
			mcp.Description("Recompute invalidated ground widgets in the background"),
		),
	)
}

func filesChangedHandler(engine commands.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		paths := req.GetStringSlice("paths", nil)
		report, err := commands.NewFilesChangedCommand(engine, paths, req.GetBool("recompute", false)).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(report)
	}
}

// --- cache_stats ---

func cacheStatsTool() mcp.Tool {
	return mcp.NewTool("cache_stats",
		mcp.WithDescription("Count cached widget results and report whether the cache is persistent."),
	)
}

func cacheStatsHandler(engine commands.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := commands.NewStatsCommand(engine).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(stats)
	}
}

// --- list_widgets ---

func listWidgetsTool() mcp.Tool {
	return mcp.NewTool("list_widgets",
		mcp.WithDescription("List the configured widgets and any configuration errors."),
	)
}

type widgetSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
	Pattern  string `json:"pattern"`
}

func listWidgetsHandler(engine commands.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := commands.NewListWidgetsCommand(engine).Execute(ctx)
		if err != nil {
			return toolError(err)
		}

		out := struct {
			Widgets []widgetSummary `json:"widgets"`
			Errors  []string        `json:"errors"`
		}{Widgets: []widgetSummary{}, Errors: []string{}}
		for _, w := range list.Widgets {
			out.Widgets = append(out.Widgets, widgetSummary{
				ID:       w.ID,
				Name:     w.Name,
				Type:     string(w.Type),
				Location: string(w.Location),
				Pattern:  w.Source.Pattern,
			})
		}
		for _, e := range list.Errors {
			out.Errors = append(out.Errors, e.Error())
		}
		return jsonResult(out)
	}
}

// --- health ---

func healthTool() mcp.Tool {
	return mcp.NewTool("health",
		mcp.WithDescription("List current warnings: dependency cycles, failing expressions and configuration errors."),
	)
}

func healthHandler(issues IssueSource) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list := issues.Issues()
		if len(list) == 0 {
			return mcp.NewToolResultText("No issues."), nil
		}
		return jsonResult(list)
	}
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(fmt.Errorf("encoding result: %w", err))
	}
	return mcp.NewToolResultText(string(data)), nil
}
