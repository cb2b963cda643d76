package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestPolicyDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		allowed      []string
		defaultAllow bool
		tool         string
		want         bool
	}{
		{"in allow list", []string{"calculator", "weather"}, false, "calculator", true},
		{"outside list default deny", []string{"calculator"}, false, "bash", false},
		{"outside list default allow", []string{"calculator"}, true, "bash", true},
		{"empty list default deny", nil, false, "calculator", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := NewPolicy(tc.allowed, tc.defaultAllow)
			d, err := p.Decide(context.Background(), Request{Name: tc.tool}, Definition{Name: tc.tool})
			if err != nil {
				t.Fatalf("decide: %v", err)
			}
			if d.Allowed != tc.want {
				t.Fatalf("allowed = %v, want %v", d.Allowed, tc.want)
			}
			if !d.Allowed && d.Reason == "" {
				t.Fatal("denial must carry a reason")
			}
		})
	}
}

type scriptedPrompter struct {
	answers []Answer
	err     error
	asked   []string
}

func (p *scriptedPrompter) Ask(_ context.Context, req Request, _ Definition) (Answer, error) {
	p.asked = append(p.asked, req.Name)
	if p.err != nil {
		return "", p.err
	}
	answer := p.answers[0]
	if len(p.answers) > 1 {
		p.answers = p.answers[1:]
	}
	return answer, nil
}

func TestInteractiveAnswers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		answer      Answer
		wantAllowed bool
		wantGrant   Grant
		grantSet    bool
	}{
		{"allow once", AnswerAllowOnce, true, "", false},
		{"allow always", AnswerAllowAlways, true, GrantAlwaysAllow, true},
		{"deny once", AnswerDenyOnce, false, "", false},
		{"deny always", AnswerDenyAlways, false, GrantAlwaysDeny, true},
		{"garbage answer denies", Answer("maybe"), false, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			grants := NewGrants()
			h := NewInteractive(&scriptedPrompter{answers: []Answer{tc.answer}}, grants)

			d, err := h.Decide(context.Background(), Request{Name: "bash"}, Definition{Name: "bash"})
			if err != nil {
				t.Fatalf("decide: %v", err)
			}
			if d.Allowed != tc.wantAllowed {
				t.Fatalf("allowed = %v, want %v", d.Allowed, tc.wantAllowed)
			}

			grant, ok := grants.Get("bash")
			if ok != tc.grantSet {
				t.Fatalf("grant set = %v, want %v", ok, tc.grantSet)
			}
			if tc.grantSet && grant != tc.wantGrant {
				t.Fatalf("grant = %s, want %s", grant, tc.wantGrant)
			}
		})
	}
}

func TestInteractivePrompterError(t *testing.T) {
	t.Parallel()

	promptErr := errors.New("stdin closed")
	h := NewInteractive(&scriptedPrompter{err: promptErr}, NewGrants())

	_, err := h.Decide(context.Background(), Request{Name: "bash"}, Definition{Name: "bash"})
	if !errors.Is(err, promptErr) {
		t.Fatalf("expected prompter error, got %v", err)
	}
}

func TestInteractiveNilGrantsDegradesToOnce(t *testing.T) {
	t.Parallel()

	h := NewInteractive(&scriptedPrompter{answers: []Answer{AnswerAllowAlways}}, nil)
	d, err := h.Decide(context.Background(), Request{Name: "bash"}, Definition{Name: "bash"})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if !d.Allowed {
		t.Fatal("allow always must still allow without a grant store")
	}
}

type recordingSink struct {
	tools     []string
	decisions []Decision
}

func (s *recordingSink) RecordDecision(toolName string, _ []byte, decision Decision) {
	s.tools = append(s.tools, toolName)
	s.decisions = append(s.decisions, decision)
}

func TestLoggingRecordsDecisions(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	h := NewLogging(DenyAll{}, sink)

	input := json.RawMessage(`{"cmd":"ls"}`)
	d, err := h.Decide(context.Background(), Request{Name: "bash", Input: input}, Definition{Name: "bash"})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Allowed {
		t.Fatal("DenyAll delegate must deny")
	}

	if len(sink.tools) != 1 || sink.tools[0] != "bash" {
		t.Fatalf("unexpected sink tools %v", sink.tools)
	}
	if sink.decisions[0].Allowed {
		t.Fatal("sink recorded wrong decision")
	}
}

func TestLoggingRecordsDelegateError(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	delegate := handlerFunc(func(context.Context, Request, Definition) (Decision, error) {
		return Decision{}, errors.New("no prompter attached")
	})
	h := NewLogging(delegate, sink)

	_, err := h.Decide(context.Background(), Request{Name: "bash"}, Definition{Name: "bash"})
	if err == nil {
		t.Fatal("expected delegate error to propagate")
	}
	if len(sink.decisions) != 1 || sink.decisions[0].Allowed {
		t.Fatalf("expected one recorded denial, got %+v", sink.decisions)
	}
}

type blockingPrompter struct{}

func (blockingPrompter) Ask(ctx context.Context, _ Request, _ Definition) (Answer, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestInteractiveApprovalTimeout(t *testing.T) {
	t.Parallel()

	h := NewInteractive(blockingPrompter{}, NewGrants())
	h.timeout = 10 * time.Millisecond

	d, err := h.Decide(context.Background(), Request{Name: "bash"}, Definition{Name: "bash"})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Allowed {
		t.Fatal("timed-out prompt must deny")
	}
}
