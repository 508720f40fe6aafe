// Package tagsynth derives candidate tag names for a creator from their
// profile and web search context using a language model.
package tagsynth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/illumefy/illumefy-server/pkg/utils"
)

// MaxTagNames caps how many candidate names a synthesis returns.
const MaxTagNames = 15

// Channel descriptions and search snippets can run long; cap what goes
// into the prompt so one field cannot crowd out the rest.
const (
	maxPromptDescription = 1000
	maxPromptSnippet     = 300
)

// Synthesizer asks a language model to describe a creator as tag names.
type Synthesizer struct {
	call   LLMCallFunc
	logger *zap.Logger
}

// NewSynthesizer creates a Synthesizer on top of an LLM caller.
func NewSynthesizer(call LLMCallFunc, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		call:   call,
		logger: logger,
	}
}

// Profile is the creator context handed to the model.
type Profile struct {
	Name        string
	Description string
	Snippets    []string // web search result snippets, may be empty
}

// Synthesize returns candidate tag names for the profile. Names come back
// lowercased and deduplicated, capped at MaxTagNames.
func (s *Synthesizer) Synthesize(ctx context.Context, profile Profile) ([]string, error) {
	if strings.TrimSpace(profile.Name) == "" {
		return nil, fmt.Errorf("profile name is required")
	}

	reply, err := s.call(ctx, buildPrompt(profile))
	if err != nil {
		return nil, fmt.Errorf("calling model: %w", err)
	}

	names, err := parseTagNames(reply)
	if err != nil {
		return nil, fmt.Errorf("parsing model reply: %w", err)
	}

	s.logger.Debug("synthesized tag names",
		zap.String("creator", profile.Name),
		zap.Int("count", len(names)),
	)

	return names, nil
}

func buildPrompt(profile Profile) string {
	var b strings.Builder
	b.WriteString("You categorize online content creators for a discovery platform.\n")
	b.WriteString("Reply with a JSON array of short lowercase tag names describing the creator's ")
	b.WriteString("content genres, games, formats, and topics. No commentary, JSON only.\n\n")
	fmt.Fprintf(&b, "Creator: %s\n", profile.Name)
	if profile.Description != "" {
		fmt.Fprintf(&b, "Channel description: %s\n", utils.Truncate(profile.Description, maxPromptDescription))
	}
	if len(profile.Snippets) > 0 {
		b.WriteString("Web search context:\n")
		for _, snippet := range profile.Snippets {
			fmt.Fprintf(&b, "- %s\n", utils.Truncate(snippet, maxPromptSnippet))
		}
	}
	return b.String()
}

// parseTagNames extracts a JSON string array from a model reply, tolerating
// markdown code fences and surrounding prose.
func parseTagNames(reply string) ([]string, error) {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array in reply")
	}

	var raw []string
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &raw); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(raw))
	names := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
		if len(names) == MaxTagNames {
			break
		}
	}

	return names, nil
}
