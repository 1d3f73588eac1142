package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sportlens/sportlens-backend/internal/logger"
)

// ChatMessage is a single turn of a conversation, role "user" or "assistant".
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatService answers free-form conversations directly against the model,
// outside the job pipeline. History is rendered into a single prompt since
// the generate API is stateless.
type ChatService struct {
	log      *logger.Logger
	ollama   OllamaClient
	analysis *AnalysisService
}

func NewChatService(baseLog *logger.Logger, ollama OllamaClient, analysis *AnalysisService) *ChatService {
	return &ChatService{
		log:      baseLog.With("service", "ChatService"),
		ollama:   ollama,
		analysis: analysis,
	}
}

const chatSystemPrompt = "You are a knowledgeable sports analysis assistant. Answer questions about sports news, teams, players, and betting considerations clearly and concisely."

// Chat renders the conversation and returns the model's full reply.
func (c *ChatService) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	prompt, err := renderConversation(messages)
	if err != nil {
		return "", err
	}
	model, err := c.analysis.SelectModel(ctx, c.analysis.ReasoningModel())
	if err != nil {
		return "", err
	}
	return c.ollama.Generate(ctx, GenerateRequest{
		Model:  model,
		System: chatSystemPrompt,
		Prompt: prompt,
		Options: GenerateOptions{
			Temperature: 0.7,
			NumPredict:  2000,
		},
	})
}

// ChatStream is Chat with token streaming.
func (c *ChatService) ChatStream(ctx context.Context, messages []ChatMessage) (<-chan StreamChunk, error) {
	prompt, err := renderConversation(messages)
	if err != nil {
		return nil, err
	}
	model, err := c.analysis.SelectModel(ctx, c.analysis.ReasoningModel())
	if err != nil {
		return nil, err
	}
	return c.ollama.GenerateStream(ctx, GenerateRequest{
		Model:  model,
		System: chatSystemPrompt,
		Prompt: prompt,
		Options: GenerateOptions{
			Temperature: 0.7,
			NumPredict:  2000,
		},
	})
}

func renderConversation(messages []ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	last := messages[len(messages)-1]
	if last.Role != "user" || strings.TrimSpace(last.Content) == "" {
		return "", fmt.Errorf("conversation must end with a non-empty user message")
	}

	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case "user":
			fmt.Fprintf(&b, "User: %s\n", msg.Content)
		case "assistant":
			fmt.Fprintf(&b, "Assistant: %s\n", msg.Content)
		default:
			return "", fmt.Errorf("unknown message role: %s", msg.Role)
		}
	}
	b.WriteString("Assistant:")
	return b.String(), nil
}
