package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Completer is the single-prompt completion contract implemented by Client.
type Completer interface {
	Complete(ctx context.Context, prompt string, o Options) (string, error)
}

// Persona is the bot identity a reply is spoken as.
type Persona struct {
	Name     string
	Company  string
	Fallback string
}

// KnowledgeBase supplies retrieved context for a question. Retrieval lives outside this service.
type KnowledgeBase interface {
	Context(ctx context.Context, botID, question string) (string, error)
}

// ChatEngine produces short spoken replies for in-call turns.
type ChatEngine struct {
	llm       Completer
	knowledge KnowledgeBase
	opts      Options
	log       *slog.Logger
}

// NewChatEngine builds the engine; knowledge may be nil.
func NewChatEngine(c Completer, knowledge KnowledgeBase, model string, log *slog.Logger) *ChatEngine {
	if log == nil {
		log = slog.Default()
	}
	return &ChatEngine{
		llm:       c,
		knowledge: knowledge,
		opts:      Options{Model: model, Temperature: 0.7, MaxTokens: 150},
		log:       log,
	}
}

// Chat answers message as p. It never fails: any error yields p.Fallback.
func (e *ChatEngine) Chat(ctx context.Context, botID string, p Persona, message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return p.Fallback
	}
	var kb string
	if e.knowledge != nil {
		c, err := e.knowledge.Context(ctx, botID, message)
		if err != nil {
			e.log.Warn("knowledge lookup failed", "bot_id", botID, "err", err)
		}
		kb = c
	}
	reply, err := e.llm.Complete(ctx, chatPrompt(p, kb, message), e.opts)
	if err != nil {
		e.log.Warn("chat completion failed", "bot_id", botID, "err", err)
		return p.Fallback
	}
	return reply
}

func chatPrompt(p Persona, kb, message string) string {
	return fmt.Sprintf(`Your name is %s, a voice assistant from %s.
Based on the following context and user query, provide a helpful response.

Context: %s

User Query: %s

If the context doesn't contain relevant information, reply with: %s
Keep the response short, natural, friendly and professional; it is spoken aloud on a phone call.
Do not say you are an AI. Mention your name and company only when it fits, usually in a greeting.`,
		p.Name, p.Company, kb, message, p.Fallback)
}
