// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/pairwise/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the Pairwise MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, fitter contract.Fitter, mgr contract.RunManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Pairwise Contrast Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		fitter:  fitter,
		mgr:     mgr,
	}

	// --- 1. Tool: run_contrasts ---
	s.AddTool(mcp.NewTool("run_contrasts",
		mcp.WithDescription("Compare every pair of levels of a categorical column and report one corrected contrast per pair and response."),
		mcp.WithString("data_path", mcp.Description("Path to a CSV file with a header row."), mcp.Required()),
		mcp.WithString("formula", mcp.Description("Model formula, e.g. 'count ~ group + age + offset(log(depth))'."), mcp.Required()),
		mcp.WithString("column", mcp.Description("Categorical column whose levels are compared."), mcp.Required()),
		mcp.WithString("levels", mcp.Description("Comma-separated level set. Defaults to every level present in the data.")),
		mcp.WithString("pairs", mcp.Description("Direction table as comma-separated base:other entries, one per unordered pair.")),
		mcp.WithBoolean("auto_directions", mcp.Description("Use level order for every pair when no pairs are given.")),
		mcp.WithString("family", mcp.Description("Model family. Defaults to 'count'."), mcp.Enum("count", "logratio")),
		mcp.WithString("method", mcp.Description("Multiplicity correction. Defaults to 'fdr'."), mcp.Enum("fdr", "holm", "bonferroni", "none")),
		mcp.WithString("correction_scope", mcp.Description("Correction family. Defaults to 'response'."), mcp.Enum("response", "level-set")),
		mcp.WithNumber("alpha", mcp.Description("Significance level for adjusted p-values.")),
	), h.handleRunContrasts)

	// --- 2. Tool: estimate_baselines ---
	s.AddTool(mcp.NewTool("estimate_baselines",
		mcp.WithDescription("Estimate the expected count of every level of a categorical column at the covariate reference point."),
		mcp.WithString("data_path", mcp.Description("Path to a CSV file with a header row."), mcp.Required()),
		mcp.WithString("formula", mcp.Description("Count model formula."), mcp.Required()),
		mcp.WithString("column", mcp.Description("Categorical column whose levels are estimated."), mcp.Required()),
		mcp.WithString("levels", mcp.Description("Comma-separated level set.")),
	), h.handleEstimateBaselines)

	return s
}

// StartMCPServer starts the Pairwise MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, fitter contract.Fitter, mgr contract.RunManager) error {
	s := NewMCPServer(baseCfg, fitter, mgr)
	return server.ServeStdio(s)
}
