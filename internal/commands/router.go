package commands

import (
	"fmt"
	"regexp"
	"sync"
)

// Handler runs an internal command. It receives the full utterance and
// returns the speakable reply (empty when the action has no text output).
type Handler func(text string) string

type command struct {
	re *regexp.Regexp
	fn Handler
}

// Router matches utterances against registered patterns in registration
// order; the first match wins. Unmatched text falls through to the LLM.
type Router struct {
	mu   sync.RWMutex
	cmds []command
}

func NewRouter() *Router {
	return &Router{}
}

// Register compiles pattern case-insensitively and appends it.
func (r *Router) Register(pattern string, fn Handler) error {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("compile command pattern %q: %w", pattern, err)
	}
	r.mu.Lock()
	r.cmds = append(r.cmds, command{re: re, fn: fn})
	r.mu.Unlock()
	return nil
}

// Route runs the first matching handler. The second return reports
// whether any command matched.
func (r *Router) Route(text string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cmds {
		if c.re.MatchString(text) {
			return c.fn(text), true
		}
	}
	return "", false
}

// Len reports how many commands are registered.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cmds)
}
