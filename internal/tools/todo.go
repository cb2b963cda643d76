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

const todoFileName = "todos.json"

// Todo maintains a task list persisted as JSON next to the workspace, so it
// survives across sessions.
type Todo struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

var _ tool.Tool = (*Todo)(nil)

// NewTodo stores the todo file under root, or the working directory when
// root is empty.
func NewTodo(root string) *Todo {
	if root == "" {
		root = "."
	}
	return &Todo{path: filepath.Join(root, todoFileName), now: time.Now}
}

func (t *Todo) Name() string { return "todo" }

func (t *Todo) Description() string {
	return "Manages a persistent todo list. Supports adding, completing, " +
		"uncompleting, removing, and listing items."
}

func (t *Todo) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"enum": ["add", "remove", "complete", "uncomplete", "list", "clear_completed"],
				"description": "The operation to perform"
			},
			"title": {
				"type": "string",
				"description": "Item title, required for add"
			},
			"id": {
				"type": "string",
				"description": "Item id or unique id prefix, required for remove, complete, and uncomplete"
			}
		},
		"required": ["action"]
	}`)
}

type todoItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *Todo) Execute(_ context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Action string `json:"action"`
		Title  string `json:"title"`
		ID     string `json:"id"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	items, err := t.load()
	if err != nil {
		return "", err
	}

	switch args.Action {
	case "add":
		if strings.TrimSpace(args.Title) == "" {
			return "", errors.New("'add' requires a 'title' field")
		}
		item := todoItem{
			ID:        uuid.NewString(),
			Title:     strings.TrimSpace(args.Title),
			CreatedAt: t.now().UTC(),
		}
		items = append(items, item)
		if err := t.save(items); err != nil {
			return "", err
		}
		return fmt.Sprintf("Added [%s] %s", shortID(item.ID), item.Title), nil

	case "complete", "uncomplete":
		idx, err := findTodo(items, args.ID)
		if err != nil {
			return "", err
		}
		items[idx].Done = args.Action == "complete"
		if err := t.save(items); err != nil {
			return "", err
		}
		verb := "Completed"
		if args.Action == "uncomplete" {
			verb = "Reopened"
		}
		return fmt.Sprintf("%s [%s] %s", verb, shortID(items[idx].ID), items[idx].Title), nil

	case "remove":
		idx, err := findTodo(items, args.ID)
		if err != nil {
			return "", err
		}
		removed := items[idx]
		items = append(items[:idx], items[idx+1:]...)
		if err := t.save(items); err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed [%s] %s", shortID(removed.ID), removed.Title), nil

	case "clear_completed":
		kept := items[:0]
		cleared := 0
		for _, item := range items {
			if item.Done {
				cleared++
				continue
			}
			kept = append(kept, item)
		}
		if err := t.save(kept); err != nil {
			return "", err
		}
		return fmt.Sprintf("Cleared %d completed item(s)", cleared), nil

	case "list":
		return renderTodos(items), nil

	default:
		return "", fmt.Errorf("unknown action %q", args.Action)
	}
}

func renderTodos(items []todoItem) string {
	if len(items) == 0 {
		return "The todo list is empty"
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	var b strings.Builder
	for _, item := range items {
		mark := "○"
		if item.Done {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%s [%s] %s\n", mark, shortID(item.ID), item.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

// findTodo matches by full id or unique prefix.
func findTodo(items []todoItem, id string) (int, error) {
	if strings.TrimSpace(id) == "" {
		return 0, errors.New("this action requires an 'id' field")
	}
	found := -1
	for i, item := range items {
		if strings.HasPrefix(item.ID, id) {
			if found >= 0 {
				return 0, fmt.Errorf("id %q is ambiguous", id)
			}
			found = i
		}
	}
	if found < 0 {
		return 0, fmt.Errorf("no todo item with id %q", id)
	}
	return found, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (t *Todo) load() ([]todoItem, error) {
	data, err := os.ReadFile(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read todo file: %w", err)
	}
	var items []todoItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("todo file is corrupt: %w", err)
	}
	return items, nil
}

func (t *Todo) save(items []todoItem) error {
	if items == nil {
		items = []todoItem{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode todo file: %w", err)
	}
	if err := os.WriteFile(t.path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write todo file: %w", err)
	}
	return nil
}
