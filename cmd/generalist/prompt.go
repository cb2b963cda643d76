package main

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/charmbracelet/huh"

	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// terminalPrompter asks the operator for a permission decision with a
// four-way terminal select.
type terminalPrompter struct{}

var _ tool.Prompter = (*terminalPrompter)(nil)

func (terminalPrompter) Ask(ctx context.Context, req tool.Request, def tool.Definition) (tool.Answer, error) {
	var answer tool.Answer

	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[tool.Answer]().
			Title(fmt.Sprintf("Allow tool %q?", req.Name)).
			Description(def.Description+"\n\nInput: "+previewInput(req.Input)).
			Options(
				huh.NewOption("Allow once", tool.AnswerAllowOnce),
				huh.NewOption("Always allow", tool.AnswerAllowAlways),
				huh.NewOption("Deny once", tool.AnswerDenyOnce),
				huh.NewOption("Never allow", tool.AnswerDenyAlways),
			).
			Value(&answer),
	))

	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("permission prompt: %w", err)
	}
	return answer, nil
}

// previewInput renders the invocation arguments compactly, elided past
// 400 bytes so a huge payload cannot flood the prompt.
func previewInput(input json.RawMessage) string {
	var compact any
	if err := json.Unmarshal(input, &compact); err != nil {
		return string(input)
	}
	data, err := json.Marshal(compact)
	if err != nil {
		return string(input)
	}
	const max = 400
	if len(data) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(data[cut]) {
			cut--
		}
		return string(data[:cut]) + "..."
	}
	return string(data)
}
