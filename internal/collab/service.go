package collab

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	TaskLocator  = "locator"
	TaskRewriter = "rewriter"
)

const notFoundMarker = "NOT_FOUND"

const defaultLocatorPrompt = "You locate text. Given a document and a hint describing where to edit, " +
	"reply with the exact snippet from the document that the hint refers to, character for character. " +
	"Reply with the snippet only, no commentary. If no part of the document matches the hint, reply with " + notFoundMarker + "."

const defaultRewriterPrompt = "You edit text. Given a snippet and an instruction, " +
	"reply with the rewritten snippet only, no commentary and no surrounding quotes."

// TaskConfig binds one task (locator or rewriter) to a provider client.
type TaskConfig struct {
	Provider     string
	Model        string
	APIKey       string
	SystemPrompt string
}

// Service routes locate and rewrite calls to the provider configured for
// each task. It implements both Locator and Rewriter.
type Service struct {
	clients map[string]ChatClient
	tasks   map[string]TaskConfig
	logger  *slog.Logger
}

func NewService(clients map[string]ChatClient, tasks map[string]TaskConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{clients: clients, tasks: tasks, logger: logger}
}

func (s *Service) Locate(ctx context.Context, document, hint string) (string, error) {
	prompt := fmt.Sprintf("Document:\n%s\n\nHint: %s", document, hint)
	reply, err := s.invoke(ctx, TaskLocator, defaultLocatorPrompt, prompt)
	if err != nil {
		return "", err
	}
	snippet := cleanReply(reply)
	if snippet == "" || snippet == notFoundMarker {
		return "", ErrNotFound
	}
	return snippet, nil
}

func (s *Service) Rewrite(ctx context.Context, snippet, instruction string) (string, error) {
	prompt := fmt.Sprintf("Snippet:\n%s\n\nInstruction: %s", snippet, instruction)
	reply, err := s.invoke(ctx, TaskRewriter, defaultRewriterPrompt, prompt)
	if err != nil {
		return "", err
	}
	return cleanReply(reply), nil
}

func (s *Service) invoke(ctx context.Context, task, fallbackPrompt, userPrompt string) (string, error) {
	cfg, ok := s.tasks[task]
	if !ok {
		return "", fmt.Errorf("no provider configured for task %q", task)
	}
	client, ok := s.clients[cfg.Provider]
	if !ok {
		return "", fmt.Errorf("provider %q for task %q has no client", cfg.Provider, task)
	}
	system := cfg.SystemPrompt
	if system == "" {
		system = fallbackPrompt
	}
	messages := []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: userPrompt},
	}
	s.logger.Debug("collab.invoke", "task", task, "provider", cfg.Provider, "model", cfg.Model)
	return client.Chat(ctx, cfg.APIKey, cfg.Model, messages)
}

// cleanReply trims whitespace and a single surrounding code fence, which
// chat models add even when told not to.
func cleanReply(reply string) string {
	out := strings.TrimSpace(reply)
	if strings.HasPrefix(out, "```") && strings.HasSuffix(out, "```") && len(out) > 6 {
		out = strings.TrimPrefix(out, "```")
		if idx := strings.IndexByte(out, '\n'); idx >= 0 && !strings.ContainsAny(out[:idx], " \t") {
			// drop a language tag on the opening fence
			out = out[idx+1:]
		}
		out = strings.TrimSuffix(strings.TrimSpace(out), "```")
		out = strings.TrimRight(out, "\n")
	}
	return strings.TrimSpace(out)
}
