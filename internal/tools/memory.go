package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

const memoryFileName = "memories.json"

// Memory stores tagged notes persisted as JSON next to the workspace, so
// facts survive across sessions. Entries carry free-form metadata and are
// searchable by substring and tag.
type Memory struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

var _ tool.Tool = (*Memory)(nil)

// NewMemory stores the memory file under root, or the working directory
// when root is empty.
func NewMemory(root string) *Memory {
	if root == "" {
		root = "."
	}
	return &Memory{path: filepath.Join(root, memoryFileName), now: time.Now}
}

func (m *Memory) Name() string { return "enhanced_memory" }

func (m *Memory) Description() string {
	return "Persistent memory with search and tagging. Stores and retrieves " +
		"information across sessions."
}

func (m *Memory) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"enum": ["store", "search", "update", "delete", "list_tags"],
				"description": "The memory operation to perform"
			},
			"content": {
				"type": "string",
				"description": "Content to store, required for store"
			},
			"id": {
				"type": "string",
				"description": "Entry id, required for update and delete"
			},
			"tags": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Tags to associate with an entry or filter by"
			},
			"metadata": {
				"type": "object",
				"additionalProperties": {"type": "string"},
				"description": "Additional metadata as key-value pairs"
			},
			"query": {
				"type": "string",
				"description": "Substring to search for in content, tags, and metadata"
			},
			"limit": {
				"type": "integer",
				"description": "Maximum number of search results (default: 10)"
			}
		},
		"required": ["action"]
	}`)
}

type memoryEntry struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Tags      []string          `json:"tags"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type memoryArgs struct {
	Action   string            `json:"action"`
	Content  string            `json:"content"`
	ID       string            `json:"id"`
	Tags     []string          `json:"tags"`
	Metadata map[string]string `json:"metadata"`
	Query    string            `json:"query"`
	Limit    int               `json:"limit"`
}

func (m *Memory) Execute(_ context.Context, input json.RawMessage) (string, error) {
	var args memoryArgs
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := m.load()
	if err != nil {
		return "", err
	}

	switch args.Action {
	case "store":
		return m.store(entries, args)
	case "search":
		return m.search(entries, args)
	case "update":
		return m.update(entries, args)
	case "delete":
		return m.delete(entries, args)
	case "list_tags":
		return m.listTags(entries)
	default:
		return "", fmt.Errorf("unknown action %q", args.Action)
	}
}

func (m *Memory) store(entries []memoryEntry, args memoryArgs) (string, error) {
	if strings.TrimSpace(args.Content) == "" {
		return "", errors.New("'store' requires a 'content' field")
	}
	now := m.now().UTC()
	entry := memoryEntry{
		ID:        uuid.NewString(),
		Content:   args.Content,
		Tags:      args.Tags,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  args.Metadata,
	}
	if entry.Tags == nil {
		entry.Tags = []string{}
	}
	entries = append(entries, entry)
	if err := m.save(entries); err != nil {
		return "", err
	}
	return renderMemoryResult(map[string]any{
		"success": true,
		"id":      entry.ID,
		"message": "Memory stored",
	})
}

func (m *Memory) search(entries []memoryEntry, args memoryArgs) (string, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}

	matched := make([]memoryEntry, 0, len(entries))
	for _, entry := range entries {
		if len(args.Tags) > 0 && !hasAnyTag(entry, args.Tags) {
			continue
		}
		if args.Query != "" && !matchesMemoryQuery(entry, args.Query) {
			continue
		}
		matched = append(matched, entry)
	}

	// Most recently updated first.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}

	return renderMemoryResult(map[string]any{
		"success": true,
		"count":   len(matched),
		"results": matched,
	})
}

func (m *Memory) update(entries []memoryEntry, args memoryArgs) (string, error) {
	idx, err := findMemory(entries, args.ID)
	if err != nil {
		return "", err
	}
	entry := &entries[idx]
	if args.Content != "" {
		entry.Content = args.Content
	}
	if args.Tags != nil {
		entry.Tags = args.Tags
	}
	if args.Metadata != nil {
		entry.Metadata = args.Metadata
	}
	entry.UpdatedAt = m.now().UTC()
	if err := m.save(entries); err != nil {
		return "", err
	}
	return renderMemoryResult(map[string]any{
		"success": true,
		"message": fmt.Sprintf("Memory entry %q updated", entry.ID),
	})
}

func (m *Memory) delete(entries []memoryEntry, args memoryArgs) (string, error) {
	idx, err := findMemory(entries, args.ID)
	if err != nil {
		return "", err
	}
	removed := entries[idx]
	entries = append(entries[:idx], entries[idx+1:]...)
	if err := m.save(entries); err != nil {
		return "", err
	}
	return renderMemoryResult(map[string]any{
		"success": true,
		"message": fmt.Sprintf("Memory entry %q deleted", removed.ID),
	})
}

func (m *Memory) listTags(entries []memoryEntry) (string, error) {
	counts := map[string]int{}
	for _, entry := range entries {
		for _, tag := range entry.Tags {
			counts[tag]++
		}
	}

	type tagCount struct {
		Tag   string `json:"tag"`
		Count int    `json:"count"`
	}
	tags := make([]tagCount, 0, len(counts))
	for tag, count := range counts {
		tags = append(tags, tagCount{Tag: tag, Count: count})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})

	return renderMemoryResult(map[string]any{
		"success": true,
		"tags":    tags,
	})
}

// findMemory matches by full id or unique prefix, like the todo list.
func findMemory(entries []memoryEntry, id string) (int, error) {
	if strings.TrimSpace(id) == "" {
		return 0, errors.New("this action requires an 'id' field")
	}
	found := -1
	for i, entry := range entries {
		if strings.HasPrefix(entry.ID, id) {
			if found >= 0 {
				return 0, fmt.Errorf("id %q is ambiguous", id)
			}
			found = i
		}
	}
	if found < 0 {
		return 0, fmt.Errorf("no memory entry with id %q", id)
	}
	return found, nil
}

func hasAnyTag(entry memoryEntry, tags []string) bool {
	for _, want := range tags {
		for _, have := range entry.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

func matchesMemoryQuery(entry memoryEntry, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(entry.Content), q) {
		return true
	}
	for _, tag := range entry.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	for _, v := range entry.Metadata {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

func renderMemoryResult(out map[string]any) (string, error) {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("cannot encode response: %w", err)
	}
	return string(data), nil
}

func (m *Memory) load() ([]memoryEntry, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read memory file: %w", err)
	}
	var entries []memoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("memory file is corrupt: %w", err)
	}
	return entries, nil
}

func (m *Memory) save(entries []memoryEntry) error {
	if entries == nil {
		entries = []memoryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode memory file: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write memory file: %w", err)
	}
	return nil
}
