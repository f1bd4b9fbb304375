package server

import (
	"encoding/json"
	"net/http"
)

// handleAssistantAsk proxies a wellness question to the completion API.
func (hs *HyggeServer) handleAssistantAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		hs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if hs.assistant == nil {
		hs.respondWithError(w, r, http.StatusServiceUnavailable, "Assistant not available", nil)
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	if req.Question == "" {
		hs.respondWithError(w, r, http.StatusBadRequest, "Question is required", nil)
		return
	}

	answer, err := hs.assistant.Ask(r.Context(), req.Question)
	if err != nil {
		hs.respondWithError(w, r, http.StatusBadGateway, "Assistant request failed", err)
		return
	}

	hs.respondJSON(w, map[string]string{"answer": answer})
}

// handleAssistantSummarize summarizes an article, serving repeats from the
// summary cache.
func (hs *HyggeServer) handleAssistantSummarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		hs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if hs.assistant == nil {
		hs.respondWithError(w, r, http.StatusServiceUnavailable, "Assistant not available", nil)
		return
	}

	var req struct {
		URL       string `json:"url"`
		ArticleID string `json:"articleId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if verr := hs.validateURL(req.URL); verr != nil {
		hs.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}
	if req.ArticleID == "" {
		hs.respondWithError(w, r, http.StatusBadRequest, "Article ID is required", nil)
		return
	}

	summary, err := hs.assistant.Summarize(r.Context(), req.URL, req.ArticleID)
	if err != nil {
		hs.respondWithError(w, r, http.StatusBadGateway, "Summarization failed", err)
		return
	}

	hs.respondJSON(w, map[string]string{"summary": summary})
}
