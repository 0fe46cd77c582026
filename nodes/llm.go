package nodes

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"nodeflow"
)

// LLMConfig controls how the chat completion is called and which shared
// keys it reads and writes.
type LLMConfig struct {
	Name         string
	Model        string
	SystemPrompt string
	InputKey     string
	OutputKey    string
	Temperature  float32
	MaxTokens    int
	Stop         []string
}

// DefaultLLMConfig returns a starter config for a prompt-based node.
func DefaultLLMConfig(name string) LLMConfig {
	return LLMConfig{
		Name:         name,
		Model:        openai.GPT3Dot5Turbo,
		SystemPrompt: "You are a helpful assistant.",
		InputKey:     "input",
		OutputKey:    "llm_output",
		Temperature:  0.5,
		MaxTokens:    256,
	}
}

// LLMNode calls OpenAI's chat completion API. Prep reads the prompt from
// shared state, exec performs the call (a nil client produces a mock
// response, handy in tests and dry runs), post writes the completion back.
// Transient API failures are retried per the node's attributes.
type LLMNode struct {
	*nodeflow.BaseNode
	client *openai.Client
	cfg    LLMConfig
}

func NewLLMNode(client *openai.Client, cfg LLMConfig, opts ...nodeflow.NodeOption) *LLMNode {
	if cfg.Name == "" {
		cfg.Name = "llm"
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	if cfg.InputKey == "" {
		cfg.InputKey = "input"
	}
	if cfg.OutputKey == "" {
		cfg.OutputKey = "llm_output"
	}
	return &LLMNode{
		BaseNode: nodeflow.NewBaseNode(cfg.Name, opts...),
		client:   client,
		cfg:      cfg,
	}
}

func (n *LLMNode) Prep(ctx context.Context, shared nodeflow.Shared) (any, error) {
	raw, ok := shared[n.cfg.InputKey]
	if !ok {
		return "", nil
	}
	return fmt.Sprintf("%v", raw), nil
}

func (n *LLMNode) Exec(ctx context.Context, prepResult any) (any, error) {
	prompt, _ := prepResult.(string)

	if n.client == nil {
		return fmt.Sprintf("mock response for %s", prompt), nil
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: n.cfg.SystemPrompt},
	}
	if prompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		})
	}

	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       n.cfg.Model,
		Messages:    messages,
		Temperature: n.cfg.Temperature,
		MaxTokens:   n.cfg.MaxTokens,
		Stop:        n.cfg.Stop,
	})
	if err != nil {
		return nil, fmt.Errorf("llm node %s call failed: %w", n.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm node %s returned empty choice list", n.Name())
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		content = resp.Choices[0].Message.Content
	}
	return content, nil
}

func (n *LLMNode) Post(ctx context.Context, shared nodeflow.Shared, prepResult, execResult any) (nodeflow.Action, error) {
	if content, ok := execResult.(string); ok {
		shared[n.cfg.OutputKey] = content
	}
	return nodeflow.DefaultAction, nil
}

func init() {
	RegisterNode(NodeDefinition{
		ID:          "llm",
		Description: "Calls OpenAI via go-openai; nil client produces a mock response.",
		Example:     `nodes.NewLLMNode(client, nodes.DefaultLLMConfig("summarize"), nodeflow.WithMaxAttempts(3))`,
	})
}
