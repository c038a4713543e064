package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/pairwise/core"
	"github.com/huangsam/pairwise/internal/contract"
	"github.com/huangsam/pairwise/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	fitter  contract.Fitter
	mgr     contract.RunManager
}

// configFromRequest overlays the shared model arguments of request on the base config.
// Levels and directions of the base config belong to its own column, so a call only
// gets the ones it passes.
func (h *toolHandler) configFromRequest(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	cfg.Levels = nil
	cfg.Directions = nil
	cfg.DataPath = request.GetString("data_path", "")
	cfg.Formula = strings.TrimSpace(request.GetString("formula", ""))
	cfg.Column = strings.TrimSpace(request.GetString("column", ""))
	if l := request.GetString("levels", ""); l != "" {
		cfg.Levels = schema.ParseLevels(l)
		if err := schema.ValidateLevelSet(cfg.Column, cfg.Levels); err != nil {
			return nil, err
		}
	}
	if err := contract.ValidateDataPath(cfg.DataPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (h *toolHandler) handleRunContrasts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid contrast parameters: %v", err)), nil
	}
	if p := request.GetString("pairs", ""); p != "" {
		pairs, err := schema.ParsePairs(p)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid contrast parameters: %v", err)), nil
		}
		cfg.Directions = pairs
	}
	cfg.AutoDirections = request.GetBool("auto_directions", cfg.AutoDirections)
	if f := request.GetString("family", ""); f != "" {
		cfg.Family = schema.ModelFamily(f)
	}
	if m := request.GetString("method", ""); m != "" {
		cfg.Method = schema.CorrectionMethod(m)
	}
	if s := request.GetString("correction_scope", ""); s != "" {
		cfg.Scope = schema.CorrectionScope(s)
	}
	if a := request.GetFloat("alpha", 0); a != 0 {
		cfg.Alpha = a
	}

	if err := contract.ValidateAnalysis(cfg); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid contrast parameters: %v", err)), nil
	}

	result, _, err := core.GetContrastResults(core.WithSuppressHeader(ctx), cfg, h.fitter, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("contrast run failed: %v", err)), nil
	}

	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleEstimateBaselines(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid baseline parameters: %v", err)), nil
	}
	cfg.Family = schema.CountFamily
	if err := contract.ValidateAnalysis(cfg); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid baseline parameters: %v", err)), nil
	}

	result, _, err := core.GetBaselineResults(core.WithSuppressHeader(ctx), cfg, h.fitter, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("baseline run failed: %v", err)), nil
	}

	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
