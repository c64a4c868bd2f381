package tool

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Registry holds the tools available to the engine.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a duplicate name is an error.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	r.tools[name] = t
	return nil
}

// Get returns the tool with the given name or a NotFoundError.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return t, nil
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Candidate is a tool with its discovery relevance score.
type Candidate struct {
	Tool  Tool
	Score int
}

// wordPattern splits free text into comparable tokens.
var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// Discover ranks registered tools against a free-text task description.
// Scoring is token overlap: name tokens weigh 3, keyword tokens 2,
// description tokens 1. Tools with zero overlap are excluded, so an
// empty result means no tool plausibly applies.
func (r *Registry) Discover(description string) []Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	taskTokens := tokenize(description)
	if len(taskTokens) == 0 {
		return nil
	}

	var candidates []Candidate
	for _, t := range r.tools {
		score := 0
		score += 3 * overlap(taskTokens, tokenize(t.Name()))
		for _, kw := range t.Keywords() {
			score += 2 * overlap(taskTokens, tokenize(kw))
		}
		score += overlap(taskTokens, tokenize(t.Description()))
		if score > 0 {
			candidates = append(candidates, Candidate{Tool: t, Score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Tool.Name() < candidates[j].Tool.Name()
	})
	return candidates
}

// Catalog renders a plain-text catalog of all tools for oracle prompts.
func (r *Registry) Catalog() string {
	var b strings.Builder
	for _, t := range r.List() {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name(), t.Description())
	}
	return b.String()
}

// tokenize lowercases and splits text into a token set.
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		tokens[w] = true
	}
	return tokens
}

// overlap counts tokens present in both sets.
func overlap(a, b map[string]bool) int {
	n := 0
	for w := range b {
		if a[w] {
			n++
		}
	}
	return n
}
