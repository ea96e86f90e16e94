package studio

import (
	"context"
	"errors"
	"strings"
	"testing"

	"atelier/internal/domain"
	"atelier/internal/domain/models/studio"
	domainllm "atelier/internal/domain/services/llm"
)

func TestGenerateNames(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{responses: []*domainllm.GenerateResponse{
		textResponse(`{"candidates": [
			{"name": "Keyflow", "tagline": "Type without thinking", "rationale": "Evokes effortless typing"},
			{"name": "Fingertip"}
		]}`),
	}}
	svc, _ := newTestService(t, provider, testServiceOpts{})

	resp, _, err := svc.GenerateNames(ctx, "user-1", &studio.NamesRequest{
		Keywords: "ergonomic keyboards",
		Industry: "hardware",
	})
	if err != nil {
		t.Fatalf("GenerateNames() error = %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1 for valid first output", provider.calls)
	}
	if len(resp.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(resp.Candidates))
	}
	if resp.Candidates[0].Name != "Keyflow" || resp.Candidates[0].Tagline != "Type without thinking" {
		t.Errorf("Candidates[0] = %+v", resp.Candidates[0])
	}
	if resp.Candidates[1].Name != "Fingertip" || resp.Candidates[1].Tagline != "" {
		t.Errorf("Candidates[1] = %+v", resp.Candidates[1])
	}

	prompt := *provider.requests[0].Messages[0].Content[0].TextContent
	if !strings.Contains(prompt, "Suggest 5 names") {
		t.Errorf("prompt should ask for the default count:\n%s", prompt)
	}
	for _, want := range []string{"ergonomic keyboards", "hardware"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerateNamesRepairRetry(t *testing.T) {
	ctx := context.Background()
	// First reply violates the schema (empty candidates), second is valid.
	provider := &fakeProvider{responses: []*domainllm.GenerateResponse{
		textResponse(`Sure, here you go: {"candidates": []}`),
		textResponse(`{"candidates": [{"name": "Lumen"}]}`),
	}}
	svc, _ := newTestService(t, provider, testServiceOpts{})

	resp, _, err := svc.GenerateNames(ctx, "user-1", &studio.NamesRequest{Keywords: "lighting", Count: 1})
	if err != nil {
		t.Fatalf("GenerateNames() error = %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (original + repair)", provider.calls)
	}
	if len(resp.Candidates) != 1 || resp.Candidates[0].Name != "Lumen" {
		t.Errorf("Candidates = %+v", resp.Candidates)
	}

	// Usage accumulates across both attempts.
	if resp.Usage.InputTokens != 20 || resp.Usage.OutputTokens != 40 {
		t.Errorf("Usage = %+v, want summed 20/40", resp.Usage)
	}

	repairPrompt := *provider.requests[1].Messages[0].Content[0].TextContent
	if !strings.Contains(repairPrompt, "Your previous reply was:") {
		t.Error("repair prompt should quote the rejected reply")
	}
	if !strings.Contains(repairPrompt, "It was rejected:") {
		t.Error("repair prompt should include the validation errors")
	}
}

func TestGenerateNamesRepairFails(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{responses: []*domainllm.GenerateResponse{
		textResponse("I would rather write a poem."),
		textResponse("Still not JSON, sorry."),
	}}
	svc, _ := newTestService(t, provider, testServiceOpts{})

	_, _, err := svc.GenerateNames(ctx, "user-1", &studio.NamesRequest{Keywords: "lighting"})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream when repair also fails", err)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want exactly one repair attempt", provider.calls)
	}
}

func TestReviewCode(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{responses: []*domainllm.GenerateResponse{
		textResponse(`{
			"verdict": "request_changes",
			"comments": [
				{"file": "main.go", "line": 42, "severity": "warning", "comment": "unchecked error return"}
			],
			"summary": "One issue found."
		}`),
	}}
	svc, _ := newTestService(t, provider, testServiceOpts{})

	resp, _, err := svc.ReviewCode(ctx, "user-1", &studio.ReviewRequest{
		Diff:     "--- a/main.go\n+++ b/main.go\n@@ -1 +1 @@\n-foo()\n+_ = foo()",
		Language: "go",
	})
	if err != nil {
		t.Fatalf("ReviewCode() error = %v", err)
	}
	if resp.Verdict != "request_changes" {
		t.Errorf("Verdict = %q", resp.Verdict)
	}
	if resp.Summary != "One issue found." {
		t.Errorf("Summary = %q", resp.Summary)
	}
	if len(resp.Comments) != 1 {
		t.Fatalf("Comments = %d, want 1", len(resp.Comments))
	}
	c := resp.Comments[0]
	if c.File != "main.go" || c.Line != 42 || c.Severity != "warning" {
		t.Errorf("Comments[0] = %+v", c)
	}

	prompt := *provider.requests[0].Messages[0].Content[0].TextContent
	if !strings.Contains(prompt, "_ = foo()") {
		t.Error("diff missing from the review prompt")
	}
}

func TestReviewCodeToleratesMarkdownFences(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{responses: []*domainllm.GenerateResponse{
		textResponse("```json\n{\"verdict\": \"approve\", \"comments\": [], \"summary\": \"Looks good.\"}\n```"),
	}}
	svc, _ := newTestService(t, provider, testServiceOpts{})

	resp, _, err := svc.ReviewCode(ctx, "user-1", &studio.ReviewRequest{Diff: "+x := 1"})
	if err != nil {
		t.Fatalf("ReviewCode() error = %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, fenced output should not need a repair", provider.calls)
	}
	if resp.Verdict != "approve" || len(resp.Comments) != 0 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "bare object",
			text: `{"a": 1}`,
			want: `{"a": 1}`,
			ok:   true,
		},
		{
			name: "json fence",
			text: "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
			ok:   true,
		},
		{
			name: "plain fence with array",
			text: "```\n[1, 2]\n```",
			want: "[1, 2]",
			ok:   true,
		},
		{
			name: "leading prose",
			text: `Here is the JSON you asked for: {"a": 1}`,
			want: `{"a": 1}`,
			ok:   true,
		},
		{
			name: "prose on both sides",
			text: `The result is {"a": {"b": 2}} as requested.`,
			want: `{"a": {"b": 2}}`,
			ok:   true,
		},
		{
			name: "no json at all",
			text: "I cannot help with that.",
			ok:   false,
		},
		{
			name: "unbalanced braces",
			text: `{"a": 1`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSON(tt.text)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateJSON(t *testing.T) {
	valid := `{"candidates": [{"name": "Lumen"}]}`
	if err := validateJSON(namesSchema, valid); err != nil {
		t.Errorf("validateJSON() error = %v for conforming document", err)
	}

	empty := `{"candidates": []}`
	if err := validateJSON(namesSchema, empty); err == nil {
		t.Error("empty candidates should fail schema validation")
	}

	badVerdict := `{"verdict": "maybe", "comments": [], "summary": "x"}`
	if err := validateJSON(reviewSchema, badVerdict); err == nil {
		t.Error("out-of-enum verdict should fail schema validation")
	}
}
