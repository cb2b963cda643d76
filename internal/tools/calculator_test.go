package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestCalculatorExpressions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr string
		want string
	}{
		{"2 + 2", "4"},
		{"2 * (3 + 4)", "14"},
		{"10 / 4", "2.5"},
		{"10 % 3", "1"},
		{"2 ^ 10", "1024"},
		{"2^3^2", "512"},
		{"-5 + 3", "-2"},
		{"-(2 + 3)", "-5"},
		{"sqrt(16)", "4"},
		{"abs(-7)", "7"},
		{"min(3, 9)", "3"},
		{"max(3, 9)", "9"},
		{"pow(2, 8)", "256"},
		{"floor(3.7)", "3"},
		{"ceil(3.2)", "4"},
		{"1.5e2", "150"},
		{"cos(0)", "1"},
	}

	calc := &Calculator{}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			t.Parallel()
			input, _ := json.Marshal(map[string]string{"expression": tc.expr})
			out, err := calc.Execute(context.Background(), input)
			if err != nil {
				t.Fatalf("Execute(%q): %v", tc.expr, err)
			}
			want := fmt.Sprintf("%s = %s", tc.expr, tc.want)
			if out != want {
				t.Fatalf("Execute(%q) = %q, want %q", tc.expr, out, want)
			}
		})
	}
}

func TestCalculatorErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
	}{
		{"division by zero", "1 / 0"},
		{"modulo by zero", "1 % 0"},
		{"unbalanced parens", "(2 + 3"},
		{"trailing garbage", "2 + 3)"},
		{"unknown identifier", "foo(1)"},
		{"empty expression", "   "},
		{"bare function", "sqrt"},
		{"sqrt of negative", "sqrt(-1)"},
	}

	calc := &Calculator{}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			input, _ := json.Marshal(map[string]string{"expression": tc.expr})
			if _, err := calc.Execute(context.Background(), input); err == nil {
				t.Fatalf("Execute(%q) succeeded, want error", tc.expr)
			}
		})
	}
}

func TestCalculatorConstants(t *testing.T) {
	t.Parallel()

	calc := &Calculator{}
	input := json.RawMessage(`{"expression": "pi"}`)
	out, err := calc.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out, "pi = 3.14159") {
		t.Fatalf("Execute(pi) = %q", out)
	}
}
