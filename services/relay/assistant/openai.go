package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client on top of the hosted Assistants API.
type OpenAIClient struct {
	client      *openai.Client
	assistantID string
}

// NewOpenAIClient wraps an already-constructed SDK client. The SDK client
// is stateless and shared process-wide; construct it once at startup.
func NewOpenAIClient(client *openai.Client, assistantID string) *OpenAIClient {
	return &OpenAIClient{client: client, assistantID: assistantID}
}

func (c *OpenAIClient) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("failed to create a thread: %w", err)
	}
	slog.Debug("Created a new conversation thread", "thread_id", thread.ID)
	return thread.ID, nil
}

func (c *OpenAIClient) RetrieveThread(ctx context.Context, threadID string) error {
	if _, err := c.client.RetrieveThread(ctx, threadID); err != nil {
		return fmt.Errorf("failed to retrieve thread %s: %w", threadID, err)
	}
	return nil
}

func (c *OpenAIClient) AddMessage(ctx context.Context, threadID, text string) error {
	_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	if err != nil {
		return fmt.Errorf("failed to append a message to thread %s: %w", threadID, err)
	}
	return nil
}

func (c *OpenAIClient) StartRun(ctx context.Context, threadID string, mode ToolMode) (Run, error) {
	req := openai.RunRequest{AssistantID: c.assistantID}
	switch mode {
	case ToolRetrieval:
		req.ToolChoice = openai.ToolChoice{Type: openai.ToolType("file_search")}
	case ToolNone:
		req.ToolChoice = "none"
	default:
		req.ToolChoice = "auto"
	}

	run, err := c.client.CreateRun(ctx, threadID, req)
	if err != nil {
		return Run{}, fmt.Errorf("failed to start a run on thread %s: %w", threadID, err)
	}
	return convertRun(run), nil
}

func (c *OpenAIClient) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := c.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, fmt.Errorf("failed to retrieve run %s: %w", runID, err)
	}
	return convertRun(run), nil
}

func (c *OpenAIClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error {
	converted := make([]openai.ToolOutput, 0, len(outputs))
	for _, out := range outputs {
		converted = append(converted, openai.ToolOutput{
			ToolCallID: out.CallID,
			Output:     out.Output,
		})
	}
	_, err := c.client.SubmitToolOutputs(ctx, threadID, runID, openai.SubmitToolOutputsRequest{
		ToolOutputs: converted,
	})
	if err != nil {
		return fmt.Errorf("failed to submit tool outputs for run %s: %w", runID, err)
	}
	return nil
}

func (c *OpenAIClient) CancelRun(ctx context.Context, threadID, runID string) error {
	if _, err := c.client.CancelRun(ctx, threadID, runID); err != nil {
		return fmt.Errorf("failed to cancel run %s: %w", runID, err)
	}
	return nil
}

func (c *OpenAIClient) LatestMessage(ctx context.Context, threadID string) (Message, bool, error) {
	limit := 1
	order := "desc"
	list, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return Message{}, false, fmt.Errorf("failed to list messages on thread %s: %w", threadID, err)
	}
	if len(list.Messages) == 0 {
		return Message{}, false, nil
	}

	latest := list.Messages[0]
	msg := Message{Role: latest.Role}
	for _, part := range latest.Content {
		if part.Text != nil {
			msg.Text = part.Text.Value
			break
		}
	}
	return msg, true, nil
}

func convertRun(run openai.Run) Run {
	out := Run{ID: run.ID, Status: RunStatus(run.Status)}
	if run.LastError != nil {
		out.FailureReason = run.LastError.Message
	}
	if run.RequiredAction != nil && run.RequiredAction.SubmitToolOutputs != nil {
		for _, call := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			})
		}
	}
	return out
}

// IsNotFound reports whether err is a not-found-class platform error, used
// by the thread registry to detect stale thread records.
func IsNotFound(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusNotFound
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusNotFound
	}
	return false
}
