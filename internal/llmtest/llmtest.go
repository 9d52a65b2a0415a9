// Package llmtest provides a scripted llm.Completer for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/xhad/newsflow/pkg/llm"
)

// ScriptedPool answers each task with a fixed list of provider replies.
// Replies are offered in order until one decodes, like a failover pool.
type ScriptedPool struct {
	mu      sync.Mutex
	replies map[string][]string
	errs    map[string]error
	calls   map[string]int
	prompts map[string][]string
}

func New() *ScriptedPool {
	return &ScriptedPool{
		replies: map[string][]string{},
		errs:    map[string]error{},
		calls:   map[string]int{},
		prompts: map[string][]string{},
	}
}

// On scripts the replies for task.
func (s *ScriptedPool) On(task string, replies ...string) *ScriptedPool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[task] = replies
	delete(s.errs, task)
	return s
}

// Fail makes every request for task fail with err.
func (s *ScriptedPool) Fail(task string, err error) *ScriptedPool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[task] = err
	return s
}

func (s *ScriptedPool) Complete(ctx context.Context, req llm.Request, decode llm.DecodeFunc) error {
	s.mu.Lock()
	s.calls[req.Task]++
	s.prompts[req.Task] = append(s.prompts[req.Task], req.Prompt)
	replies := s.replies[req.Task]
	err := s.errs[req.Task]
	s.mu.Unlock()

	if err != nil {
		return err
	}
	var lastErr error
	for _, text := range replies {
		if lastErr = decode(text); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: %v", llm.ErrExhausted, req.Task, lastErr)
}

func (s *ScriptedPool) Calls(task string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[task]
}

// LastPrompt returns the most recent prompt rendered for task.
func (s *ScriptedPool) LastPrompt(task string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prompts := s.prompts[task]
	if len(prompts) == 0 {
		return ""
	}
	return prompts[len(prompts)-1]
}
