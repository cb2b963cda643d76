package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SamuelSchlesinger/generalist/internal/agent"
	"github.com/SamuelSchlesinger/generalist/internal/message"
	"github.com/SamuelSchlesinger/generalist/internal/session"
)

const defaultSystemPrompt = `You are a capable general-purpose assistant with access to tools.
Use them when they help: prefer the calculator over mental arithmetic,
check files before describing them, and think before long multi-step work.
Be concise and direct. If a tool invocation is denied, respect the refusal
and explain what you would have done.`

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			resume, _ := cmd.Flags().GetString("resume")
			system, _ := cmd.Flags().GetString("system")
			if system == "" {
				system = defaultSystemPrompt
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, terminalPrompter{})
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			state := session.New()
			if resume != "" {
				loaded, err := loadSession(ctx, a, resume)
				if err != nil {
					return err
				}
				state = loaded
			}

			return runREPL(ctx, a, state, system)
		},
	}
	cmd.Flags().String("resume", "", "Session id (or unique prefix) to resume")
	cmd.Flags().String("system", "", "Override the system prompt")
	return cmd
}

func runREPL(ctx context.Context, a *app, state *session.State, system string) error {
	fmt.Printf("generalist %s, model %s, %d tools. Type /help for commands.\n",
		version, a.provider.ModelName(), len(a.registry.Names()))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if ctx.Err() != nil {
			fmt.Println()
			return nil
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := runSlashCommand(ctx, a, state, input)
			if err != nil {
				fmt.Println("error:", err)
			}
			if quit {
				return nil
			}
			continue
		}

		res, err := a.turn.Run(ctx, agent.Request{
			History:  state.Messages,
			UserText: input,
			System:   system,
		})

		// Whatever happened, keep the rounds that ran.
		state.Append(res.Appended...)
		state.Usage.Add(res.Usage)

		if res.Text != "" {
			fmt.Println(res.Text)
		}
		switch res.StopReason {
		case agent.StopComplete, "":
		case agent.StopCancelled:
			fmt.Println("[turn cancelled]")
		default:
			fmt.Printf("[turn stopped: %s]\n", res.StopReason)
		}
		if err != nil && !errors.Is(err, context.Canceled) &&
			res.StopReason != agent.StopRoundLimit && res.StopReason != agent.StopLoopDetected {
			fmt.Println("error:", err)
		}
	}
}

func runSlashCommand(ctx context.Context, a *app, state *session.State, input string) (quit bool, err error) {
	fields := strings.Fields(input)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Println(`Commands:
  /save              Save the conversation
  /load <id>         Load a saved conversation (id or unique prefix)
  /sessions          List saved conversations
  /history           Show the conversation so far
  /tools             List available tools
  /stats             Show token usage and execution counts
  /grants            Show sticky permission grants
  /clear-grants      Forget all sticky grants
  /quit              Exit`)
		return false, nil

	case "/save":
		state.SetGrants(a.grants.Snapshot())
		if err := a.store.Save(ctx, state); err != nil {
			return false, err
		}
		fmt.Printf("saved session %s (%d messages)\n", state.ID, len(state.Messages))
		return false, nil

	case "/load":
		if len(args) != 1 {
			return false, errors.New("usage: /load <id>")
		}
		loaded, err := loadSession(ctx, a, args[0])
		if err != nil {
			return false, err
		}
		*state = *loaded
		fmt.Printf("loaded session %s (%d messages)\n", state.ID, len(state.Messages))
		return false, nil

	case "/sessions":
		summaries, err := a.store.List(ctx)
		if err != nil {
			return false, err
		}
		if len(summaries) == 0 {
			fmt.Println("no saved sessions")
			return false, nil
		}
		for _, s := range summaries {
			fmt.Printf("%s  %3d msgs  %s  %s\n",
				s.ID[:8], s.MessageCount, s.UpdatedAt.Format("2006-01-02 15:04"), s.Title)
		}
		return false, nil

	case "/history":
		printHistory(state.Messages)
		return false, nil

	case "/tools":
		for _, def := range a.registry.Definitions() {
			fmt.Printf("%-24s %s\n", def.Name, def.Description)
		}
		return false, nil

	case "/stats":
		stats := a.registry.ExecutionStats()
		fmt.Printf("tokens: %d in, %d out\n", state.Usage.InputTokens, state.Usage.OutputTokens)
		fmt.Printf("tool executions: %d total (%d completed, %d failed, %d denied)\n",
			stats.Total, stats.Completed, stats.Failed, stats.Denied)
		return false, nil

	case "/grants":
		grants := a.grants.Snapshot()
		if len(grants) == 0 {
			fmt.Println("no sticky grants")
			return false, nil
		}
		for name, grant := range grants {
			fmt.Printf("%-24s %s\n", name, grant)
		}
		return false, nil

	case "/clear-grants":
		a.grants.Clear()
		fmt.Println("sticky grants cleared")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// loadSession resolves an id or unique prefix against the store.
func loadSession(ctx context.Context, a *app, idOrPrefix string) (*session.State, error) {
	summaries, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	id := ""
	for _, s := range summaries {
		if !strings.HasPrefix(s.ID, idOrPrefix) {
			continue
		}
		if id != "" {
			return nil, fmt.Errorf("session id %q is ambiguous", idOrPrefix)
		}
		id = s.ID
	}
	if id == "" {
		return nil, fmt.Errorf("no session matching %q", idOrPrefix)
	}

	state, err := a.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	a.grants.Restore(state.Grants)
	return state, nil
}

func printHistory(msgs []message.Message) {
	for _, msg := range msgs {
		for _, block := range msg.Blocks {
			switch block.Type {
			case message.BlockText:
				fmt.Printf("[%s] %s\n", msg.Role, block.Text)
			case message.BlockToolUse:
				fmt.Printf("[%s] → %s(%s)\n", msg.Role, block.Name, previewInput(block.Input))
			case message.BlockToolResult:
				status := "ok"
				if block.IsError {
					status = "error"
				}
				fmt.Printf("[%s] ← %s: %s\n", msg.Role, status, block.Content)
			}
		}
	}
}
