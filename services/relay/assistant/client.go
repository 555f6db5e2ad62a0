package assistant

import "context"

// RunStatus mirrors the remote platform's run lifecycle. The relay never
// computes a status itself; it only reads what the platform reports.
type RunStatus string

const (
	StatusQueued         RunStatus = "queued"
	StatusInProgress     RunStatus = "in_progress"
	StatusRequiresAction RunStatus = "requires_action"
	StatusCancelling     RunStatus = "cancelling"
	StatusCompleted      RunStatus = "completed"
	StatusFailed         RunStatus = "failed"
	StatusExpired        RunStatus = "expired"
	StatusCancelled      RunStatus = "cancelled"
)

// Terminal reports whether polling should stop at this status.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// ToolMode selects how a run may use the assistant's tools.
type ToolMode string

const (
	// ToolRetrieval forces the document-retrieval (file search) tool.
	ToolRetrieval ToolMode = "retrieval"
	// ToolAuto lets the model decide whether to use any tool.
	ToolAuto ToolMode = "auto"
	// ToolNone disables tool use for the run.
	ToolNone ToolMode = "none"
)

// Run is the subset of remote run state the engine acts on.
type Run struct {
	ID            string
	Status        RunStatus
	FailureReason string     // populated on failed/expired runs when the platform provides one
	ToolCalls     []ToolCall // populated when Status is requires_action
}

// ToolCall is a function-tool invocation the platform wants answered.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolOutput answers a ToolCall.
type ToolOutput struct {
	CallID string
	Output string
}

// Message is an entry in a conversation thread.
type Message struct {
	Role string
	Text string
}

// Client is the narrow surface of the remote conversation platform the
// relay depends on. Tests substitute deterministic doubles for it.
type Client interface {
	CreateThread(ctx context.Context) (string, error)
	RetrieveThread(ctx context.Context, threadID string) error
	AddMessage(ctx context.Context, threadID, text string) error
	StartRun(ctx context.Context, threadID string, mode ToolMode) (Run, error)
	GetRun(ctx context.Context, threadID, runID string) (Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error
	CancelRun(ctx context.Context, threadID, runID string) error
	// LatestMessage returns the most recent message in the thread, or
	// ok=false when the thread has no messages.
	LatestMessage(ctx context.Context, threadID string) (msg Message, ok bool, err error)
}
