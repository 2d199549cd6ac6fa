package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mutumwa-ai/chat-platform/internal/language"
)

// ListLanguages handles GET /api/languages
func ListLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"languages": language.All(),
		"default":   language.Default.Value,
	})
}

// LanguageSuggestions handles GET /api/languages/{code}/suggestions
// Unknown codes get the generic suggestions.
func LanguageSuggestions(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	writeJSON(w, http.StatusOK, map[string]any{
		"language":    code,
		"suggestions": language.Suggestions(code),
	})
}
