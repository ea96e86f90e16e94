package studio

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"atelier/internal/domain"
	"atelier/internal/domain/models/studio"
	"atelier/internal/service/llm"
)

// namesSchema constrains the name-generation output. The model is prompted
// for this shape; anything that fails validation triggers one repair retry.
const namesSchema = `{
	"type": "object",
	"required": ["candidates"],
	"properties": {
		"candidates": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"tagline": {"type": "string"},
					"rationale": {"type": "string"}
				}
			}
		}
	}
}`

const reviewSchema = `{
	"type": "object",
	"required": ["verdict", "comments", "summary"],
	"properties": {
		"verdict": {"type": "string", "enum": ["approve", "request_changes", "comment"]},
		"summary": {"type": "string"},
		"comments": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["severity", "comment"],
				"properties": {
					"file": {"type": "string"},
					"line": {"type": "integer", "minimum": 0},
					"severity": {"type": "string", "enum": ["info", "warning", "blocker"]},
					"comment": {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`

const defaultNameCount = 5

// GenerateNames produces schema-validated naming candidates.
func (s *Service) GenerateNames(ctx context.Context, userID string, req *studio.NamesRequest) (*studio.NamesResponse, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	count := req.Count
	if count == 0 {
		count = defaultNameCount
	}

	resolved, err := s.resolver.Resolve(req.Model, "")
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	keyReq := *req
	keyReq.Model = ""
	keyReq.Count = count
	key := s.cacheKey("names", resolved, keyReq)
	var cached studio.NamesResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, true, nil
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("Suggest %d names for a product or company.", count))
	parts = append(parts, fmt.Sprintf("Keywords: %s", req.Keywords))
	if req.Industry != "" {
		parts = append(parts, fmt.Sprintf("Industry: %s", req.Industry))
	}
	parts = append(parts, "")
	parts = append(parts, "Respond with JSON only, in exactly this shape:")
	parts = append(parts, `{"candidates": [{"name": "...", "tagline": "...", "rationale": "..."}]}`)
	parts = append(parts, "Do not wrap the JSON in markdown fences or add any other text.")

	raw, gen, err := s.generateStructured(ctx, userID, resolved, &promptSpec{
		System: "You are a branding assistant. You respond with valid JSON and nothing else.",
		User:   strings.Join(parts, "\n"),
	}, namesSchema)
	if err != nil {
		return nil, false, err
	}

	var candidates []studio.NameCandidate
	for _, c := range gjson.Get(raw, "candidates").Array() {
		candidates = append(candidates, studio.NameCandidate{
			Name:      c.Get("name").String(),
			Tagline:   c.Get("tagline").String(),
			Rationale: c.Get("rationale").String(),
		})
	}

	resp := &studio.NamesResponse{
		Candidates: candidates,
		Model:      gen.Model,
		Usage:      gen.Usage,
	}
	s.cacheSet(ctx, key, resp)
	return resp, false, nil
}

// ReviewCode reviews a diff and returns a schema-validated verdict with
// per-finding comments.
func (s *Service) ReviewCode(ctx context.Context, userID string, req *studio.ReviewRequest) (*studio.ReviewResponse, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	resolved, err := s.resolver.Resolve(req.Model, "")
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	keyReq := *req
	keyReq.Model = ""
	key := s.cacheKey("reviews", resolved, keyReq)
	var cached studio.ReviewResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, true, nil
	}

	var parts []string
	parts = append(parts, "Review the following code change.")
	if req.Language != "" {
		parts = append(parts, fmt.Sprintf("Language: %s", req.Language))
	}
	parts = append(parts, "")
	parts = append(parts, "Respond with JSON only, in exactly this shape:")
	parts = append(parts, `{"verdict": "approve|request_changes|comment", "comments": [{"file": "...", "line": 0, "severity": "info|warning|blocker", "comment": "..."}], "summary": "..."}`)
	parts = append(parts, "Use an empty comments array when there is nothing to flag.")
	parts = append(parts, "Do not wrap the JSON in markdown fences or add any other text.")
	parts = append(parts, "")
	parts = append(parts, "Diff:")
	parts = append(parts, req.Diff)

	raw, gen, err := s.generateStructured(ctx, userID, resolved, &promptSpec{
		System: "You are a careful code reviewer. You respond with valid JSON and nothing else.",
		User:   strings.Join(parts, "\n"),
	}, reviewSchema)
	if err != nil {
		return nil, false, err
	}

	comments := make([]studio.ReviewComment, 0)
	for _, c := range gjson.Get(raw, "comments").Array() {
		comments = append(comments, studio.ReviewComment{
			File:     c.Get("file").String(),
			Line:     int(c.Get("line").Int()),
			Severity: c.Get("severity").String(),
			Comment:  c.Get("comment").String(),
		})
	}

	resp := &studio.ReviewResponse{
		Verdict:  gjson.Get(raw, "verdict").String(),
		Comments: comments,
		Summary:  gjson.Get(raw, "summary").String(),
		Model:    gen.Model,
		Usage:    gen.Usage,
	}
	s.cacheSet(ctx, key, resp)
	return resp, false, nil
}

// generateStructured runs a completion that must yield JSON matching schema.
// Invalid output gets exactly one repair attempt: the model sees its own
// reply plus the validation errors and is asked to correct it. Token usage
// accumulates across both attempts.
func (s *Service) generateStructured(ctx context.Context, userID string, resolved *llm.ResolvedModel, spec *promptSpec, schema string) (string, *generation, error) {
	gen, err := s.generate(ctx, userID, resolved, spec)
	if err != nil {
		return "", nil, err
	}

	raw, validationErr := extractAndValidate(gen.Text, schema)
	if validationErr == nil {
		return raw, gen, nil
	}

	s.logger.Warn("structured output invalid, attempting repair",
		"model", resolved.Model,
		"error", validationErr,
	)

	var parts []string
	parts = append(parts, spec.User)
	parts = append(parts, "")
	parts = append(parts, "Your previous reply was:")
	parts = append(parts, gen.Text)
	parts = append(parts, "")
	parts = append(parts, fmt.Sprintf("It was rejected: %v", validationErr))
	parts = append(parts, "Reply again with only the corrected JSON.")

	repairGen, err := s.generate(ctx, userID, resolved, &promptSpec{
		System: spec.System,
		User:   strings.Join(parts, "\n"),
	})
	if err != nil {
		return "", nil, err
	}

	gen.Usage.InputTokens += repairGen.Usage.InputTokens
	gen.Usage.OutputTokens += repairGen.Usage.OutputTokens
	gen.Model = repairGen.Model

	raw, validationErr = extractAndValidate(repairGen.Text, schema)
	if validationErr != nil {
		return "", nil, &domain.UpstreamError{
			Provider: resolved.Provider,
			Message:  fmt.Sprintf("model did not produce valid JSON after repair: %v", validationErr),
		}
	}
	return raw, gen, nil
}

// extractAndValidate pulls the JSON payload out of model text and checks it
// against the schema.
func extractAndValidate(text, schema string) (string, error) {
	raw, ok := extractJSON(text)
	if !ok {
		return "", fmt.Errorf("no JSON object found in output")
	}
	if err := validateJSON(schema, raw); err != nil {
		return "", err
	}
	return raw, nil
}

// extractJSON tolerantly locates the JSON document in model output. Models
// asked for bare JSON still sometimes wrap it in markdown fences or lead with
// prose; take the outermost object instead of failing on decoration.
func extractJSON(text string) (string, bool) {
	text = strings.TrimSpace(text)

	// Strip a ```json ... ``` (or plain ```) fence when present
	if start := strings.Index(text, "```"); start >= 0 {
		rest := text[start+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			text = strings.TrimSpace(rest[:end])
		}
	}

	if gjson.Valid(text) && (strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[")) {
		return text, true
	}

	// Last resort: outermost braces
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	candidate := text[start : end+1]
	if !gjson.Valid(candidate) {
		return "", false
	}
	return candidate, true
}

// validateJSON checks a JSON document against a schema and reports all
// violations in one error.
func validateJSON(schema, doc string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("output validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
