package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jankiebot/jankie/internal/logging"
	"github.com/jankiebot/jankie/internal/scanner"
	"github.com/jankiebot/jankie/internal/trigger"
)

// PreviewReplyParams defines the input parameters for preview_reply
type PreviewReplyParams struct {
	ID   string `json:"id" jsonschema:"The comment id used to pick the response"`
	Body string `json:"body" jsonschema:"The comment text to match against trigger phrases"`
}

// DryRunScanParams takes no input
type DryRunScanParams struct{}

// tools holds what the handlers share. scan is resolved lazily so that
// preview_reply works without forum credentials.
type tools struct {
	table  *trigger.Table
	scan   func(ctx context.Context) (*scanner.Result, error)
	logger logging.Logger
}

type previewResult struct {
	Matched bool   `json:"matched"`
	Phrase  string `json:"phrase,omitempty"`
	Reply   string `json:"reply,omitempty"`
}

// HandlePreviewReply reports which phrase body matches and the reply the bot
// would post for a comment with the given id.
func (t *tools) HandlePreviewReply(
	ctx context.Context,
	req *mcp.CallToolRequest,
	params PreviewReplyParams,
) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(params.ID) == "" {
		return nil, nil, fmt.Errorf("id parameter is required")
	}

	phrase, ok := t.table.Match(params.Body)
	if !ok {
		return textResult(previewResult{Matched: false})
	}
	reply, err := t.table.ChooseResponse(phrase, trigger.Seed(params.ID))
	if err != nil {
		return nil, nil, err
	}
	t.logger.WithFields(logging.Fields{"comment_id": params.ID, "phrase": phrase}).Info("Previewed reply")
	return textResult(previewResult{Matched: true, Phrase: phrase, Reply: reply})
}

// HandleDryRunScan runs one full pass in dry-run mode.
func (t *tools) HandleDryRunScan(
	ctx context.Context,
	req *mcp.CallToolRequest,
	_ DryRunScanParams,
) (*mcp.CallToolResult, any, error) {
	res, err := t.scan(ctx)
	if err != nil {
		t.logger.WithError(err).Error("Dry run scan failed")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)},
			},
			IsError: true,
		}, nil, nil
	}
	return textResult(res)
}

func textResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}
