package identity

import (
	"sort"
	"strings"

	"assistantd/pkg/types"
)

// aliases folds user-facing names onto canonical ids. Keys must be lowercase.
var aliases = map[string]types.ModelID{
	// speech models (whisper.cpp presets)
	"tiny.en":        "tiny-en",
	"base.en":        "base-en",
	"small.en":       "small-en",
	"medium.en":      "medium-en",
	"large":          "large-v3",
	"large-v3-turbo": "large-v3-turbo",
	"turbo":          "large-v3-turbo",
	"distil-large":   "distil-large-v3",

	// llm tags: a bare name means the :latest tag
	"llama3":   "llama3:latest",
	"llama3.1": "llama3.1:latest",
	"mistral":  "mistral:latest",
	"phi3":     "phi3:latest",
	"qwen2.5":  "qwen2.5:latest",
}

// Normalize derives the canonical id for a raw user-facing model name.
// It trims whitespace, lowercases, and resolves known aliases. Empty or
// all-whitespace input yields types.None; callers treat that as "nothing
// selected" and must not act on it.
func Normalize(raw string) types.ModelID {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return types.None
	}
	if canon, ok := aliases[s]; ok {
		return canon
	}
	return types.ModelID(s)
}

// speechPresets is the static catalog of downloadable speech models.
var speechPresets = []types.ModelInfo{
	{ID: "tiny", Name: "Tiny", SizeLabel: "75 MB", Backend: "speech"},
	{ID: "tiny-en", Name: "Tiny (English)", Aliases: []string{"tiny.en"}, SizeLabel: "75 MB", Backend: "speech"},
	{ID: "base", Name: "Base", SizeLabel: "142 MB", Backend: "speech"},
	{ID: "base-en", Name: "Base (English)", Aliases: []string{"base.en"}, SizeLabel: "142 MB", Backend: "speech"},
	{ID: "small", Name: "Small", SizeLabel: "466 MB", Backend: "speech"},
	{ID: "small-en", Name: "Small (English)", Aliases: []string{"small.en"}, SizeLabel: "466 MB", Backend: "speech"},
	{ID: "medium", Name: "Medium", SizeLabel: "1.5 GB", Backend: "speech"},
	{ID: "medium-en", Name: "Medium (English)", Aliases: []string{"medium.en"}, SizeLabel: "1.5 GB", Backend: "speech"},
	{ID: "large-v3", Name: "Large v3", Aliases: []string{"large"}, SizeLabel: "2.9 GB", Backend: "speech"},
	{ID: "large-v3-turbo", Name: "Large v3 Turbo", Aliases: []string{"turbo"}, SizeLabel: "1.6 GB", Backend: "speech"},
	{ID: "distil-large-v3", Name: "Distil Large v3", Aliases: []string{"distil-large"}, SizeLabel: "1.5 GB", Backend: "speech"},
}

// Catalog returns the selectable model presets, sorted by id.
// The returned slice is a copy.
func Catalog() []types.ModelInfo {
	out := make([]types.ModelInfo, len(speechPresets))
	copy(out, speechPresets)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
