package studio

import (
	"context"
	"fmt"
	"strings"

	"atelier/internal/domain"
	"atelier/internal/domain/models/studio"
	"atelier/internal/service/library"
)

const (
	defaultTopK = 5

	// maxContextCharsPerDoc bounds how much of each retrieved document is
	// fed to the model.
	maxContextCharsPerDoc = 4000
)

// AnswerQuestion answers a question from a workspace's documents: full-text
// retrieval picks the top passages, then the model synthesizes an answer from
// those passages only. Empty retrieval returns an honest no-answer with empty
// sources instead of asking the model to guess.
func (s *Service) AnswerQuestion(ctx context.Context, userID string, req *studio.SearchRequest) (*studio.SearchResponse, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if s.search == nil {
		return nil, false, fmt.Errorf("workspace search is not configured")
	}

	topK := req.TopK
	if topK == 0 {
		topK = defaultTopK
	}

	resolved, err := s.resolver.Resolve(req.Model, "")
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	keyReq := *req
	keyReq.Model = ""
	keyReq.TopK = topK
	key := s.cacheKey("search", resolved, keyReq)
	var cached studio.SearchResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, true, nil
	}

	results, err := s.search.SearchDocuments(ctx, &library.SearchDocumentsRequest{
		WorkspaceID: req.WorkspaceID,
		UserID:      userID,
		Query:       req.Question,
		Limit:       topK,
	})
	if err != nil {
		return nil, false, err
	}

	sources := make([]studio.SourceRef, 0, len(results.Results))

	if len(results.Results) == 0 {
		// Not cached: the workspace may gain matching documents any moment,
		// and serving a stale "nothing found" would hide them.
		return &studio.SearchResponse{
			Answer:  "No relevant documents were found in this workspace for that question.",
			Sources: sources,
			Model:   resolved.Provider + "/" + resolved.Model,
		}, false, nil
	}

	var docSections []string
	for i, result := range results.Results {
		doc := result.Document

		// Search results carry the match headline in Content; keep it as the
		// source snippet and load the full text for synthesis when possible.
		sources = append(sources, studio.SourceRef{
			DocumentID: doc.ID,
			Name:       doc.Name,
			Snippet:    doc.Content,
			Score:      result.Score,
		})

		content := doc.Content
		if s.docs != nil {
			if full, err := s.docs.GetDocument(ctx, doc.ID, req.WorkspaceID, userID); err == nil {
				content = truncateText(full.Content, maxContextCharsPerDoc)
			} else {
				s.logger.Warn("failed to load document for synthesis, using snippet",
					"document_id", doc.ID,
					"error", err,
				)
			}
		}

		docSections = append(docSections, fmt.Sprintf("[%d] %q:\n%s", i+1, doc.Name, content))
	}

	var parts []string
	parts = append(parts, "Answer the user's question based ONLY on the provided documents.")
	parts = append(parts, fmt.Sprintf("\nQuestion: %s", req.Question))
	parts = append(parts, "\nDocuments:")
	parts = append(parts, strings.Join(docSections, "\n\n"))
	parts = append(parts, "\nInstructions:")
	parts = append(parts, "- Cite documents by their [number] when using them")
	parts = append(parts, "- If the documents are insufficient, say so clearly")
	parts = append(parts, "- Keep the answer concise")

	gen, err := s.generate(ctx, userID, resolved, &promptSpec{
		User: strings.Join(parts, "\n"),
	})
	if err != nil {
		return nil, false, err
	}

	resp := &studio.SearchResponse{
		Answer:  gen.Text,
		Sources: sources,
		Model:   gen.Model,
		Usage:   gen.Usage,
	}
	s.cacheSet(ctx, key, resp)
	return resp, false, nil
}

// truncateText cuts text at the last word boundary under limit.
func truncateText(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + " …"
}
