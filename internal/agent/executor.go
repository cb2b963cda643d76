package agent

import (
	"context"
	"time"

	"github.com/SamuelSchlesinger/generalist/internal/message"
	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// executor runs the tool invocations of one round sequentially, in the
// order the model proposed them, so each tool observes the effects of the
// ones before it.
type executor struct {
	registry *tool.Registry
}

// run executes calls one at a time and returns a record per call in input
// order. Failures and denials become error results; they never abort the
// round.
func (e *executor) run(ctx context.Context, calls []message.ToolUse) []ToolCallRecord {
	records := make([]ToolCallRecord, 0, len(calls))
	for _, call := range calls {
		records = append(records, e.runOne(ctx, call))
	}
	return records
}

func (e *executor) runOne(ctx context.Context, call message.ToolUse) ToolCallRecord {
	record := ToolCallRecord{
		ID:    call.ID,
		Name:  call.Name,
		Input: call.Input,
	}

	start := time.Now()
	result, err := e.registry.Execute(ctx, tool.Request{
		ID:    call.ID,
		Name:  call.Name,
		Input: call.Input,
	})
	record.Duration = time.Since(start)

	if err != nil {
		record.Content = err.Error()
		record.IsError = true
		return record
	}

	record.Content = result.Content
	record.IsError = result.IsError
	return record
}

// resultsMessage packs a round's records into the single user message the
// model expects all tool results in.
func resultsMessage(records []ToolCallRecord) message.Message {
	blocks := make([]message.ContentBlock, 0, len(records))
	for _, rec := range records {
		blocks = append(blocks, message.NewToolResultBlock(rec.ID, rec.Content, rec.IsError))
	}
	return message.User(blocks...)
}
