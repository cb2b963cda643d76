package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// SystemInfo reports the local clock and host platform.
type SystemInfo struct {
	now func() time.Time
}

var _ tool.Tool = (*SystemInfo)(nil)

func (s *SystemInfo) Name() string { return "system_info" }

func (s *SystemInfo) Description() string {
	return "Returns local system information: current time, date, or the " +
		"operating system and architecture."
}

func (s *SystemInfo) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"info_type": {
				"type": "string",
				"enum": ["time", "date", "datetime", "os", "all"],
				"description": "Which piece of information to return"
			}
		},
		"required": ["info_type"]
	}`)
}

func (s *SystemInfo) Execute(_ context.Context, input json.RawMessage) (string, error) {
	var args struct {
		InfoType string `json:"info_type"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	now := s.clock()()
	switch args.InfoType {
	case "time":
		return "Current time: " + now.Format("15:04:05"), nil
	case "date":
		return "Current date: " + now.Format("2006-01-02"), nil
	case "datetime":
		return "Current date and time: " + now.Format("2006-01-02 15:04:05 MST"), nil
	case "os":
		return fmt.Sprintf("Operating system: %s/%s", runtime.GOOS, runtime.GOARCH), nil
	case "all":
		lines := []string{
			"Current date and time: " + now.Format("2006-01-02 15:04:05 MST"),
			fmt.Sprintf("Operating system: %s/%s", runtime.GOOS, runtime.GOARCH),
		}
		return strings.Join(lines, "\n"), nil
	default:
		return "", fmt.Errorf("unknown info_type %q: expected time, date, datetime, os, or all", args.InfoType)
	}
}

func (s *SystemInfo) clock() func() time.Time {
	if s.now != nil {
		return s.now
	}
	return time.Now
}
