// Package collab provides concrete implementations of the
// coordinator's collaborator interfaces: HTTP bridges to an external
// executor and ticket system, plus log-only fallbacks for running
// without either.
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/adwforge/phaseq/internal/coordinator"
	"github.com/adwforge/phaseq/internal/types"
)

// HTTPClient is the subset of http.Client the bridges need
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns a client with a sane timeout for tick-scoped calls
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// ExecutorBridge talks to an external workflow executor over HTTP.
// It implements both ExecutionHistory (polling execution outcomes)
// and Launcher (triggering the next phase).
type ExecutorBridge struct {
	BaseURL string
	Client  HTTPClient
}

type executionStatus struct {
	Finished bool   `json:"finished"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// CheckExecution asks the executor whether the issue's run concluded.
// A 404 means the executor has no record yet: still in flight.
func (b *ExecutorBridge) CheckExecution(ctx context.Context, issueNumber int) (*coordinator.ExecutionResult, error) {
	url := fmt.Sprintf("%s/executions/%d", b.BaseURL, issueNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("executor returned %s", resp.Status)
	}

	var status executionStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode execution status: %w", err)
	}
	if !status.Finished {
		return nil, nil
	}
	return &coordinator.ExecutionResult{Success: status.Success, Error: status.Error}, nil
}

type launchRequest struct {
	QueueID     string          `json:"queue_id"`
	IssueNumber *int            `json:"issue_number,omitempty"`
	PhaseData   types.PhaseData `json:"phase_data"`
}

// LaunchPhase signals the executor to begin a newly ready phase
func (b *ExecutorBridge) LaunchPhase(ctx context.Context, phase *types.Phase) error {
	body, err := json.Marshal(launchRequest{
		QueueID:     phase.QueueID,
		IssueNumber: phase.IssueNumber,
		PhaseData:   phase.Data,
	})
	if err != nil {
		return err
	}
	return b.post(ctx, b.BaseURL+"/launch", body)
}

func (b *ExecutorBridge) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("executor returned %s", resp.Status)
	}
	return nil
}

// TicketCommenter posts progress comments to an external ticket system
type TicketCommenter struct {
	BaseURL string
	Client  HTTPClient
}

// PostComment posts a human-readable note on the parent ticket
func (c *TicketCommenter) PostComment(ctx context.Context, parentIssue int, body string) error {
	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/issues/%d/comments", c.BaseURL, parentIssue)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ticket system returned %s", resp.Status)
	}
	return nil
}
