// Package notify posts a summary of each finished batch run to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devwiki/wikitools/internal/batch"
)

// Payload is the JSON body sent to the webhook.
type Payload struct {
	RunID      string        `json:"run_id"`
	Wiki       string        `json:"wiki,omitempty"`
	Action     batch.Action  `json:"action"`
	User       string        `json:"user"`
	Status     batch.Status  `json:"status"`
	Summary    batch.Summary `json:"summary"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Text       string        `json:"text"`
}

// Webhook is a batch.Observer that notifies on run completion. Delivery
// happens in the background; failures are logged and never reach the run.
type Webhook struct {
	url      string
	wiki     string
	statuses map[batch.Status]bool
	client   *http.Client
	logger   *zap.Logger
	wg       sync.WaitGroup
}

var _ batch.Observer = (*Webhook)(nil)

// NewWebhook creates a Webhook posting to url. When statuses is non-empty
// only runs ending in one of them are sent.
func NewWebhook(url, wiki string, statuses []batch.Status, logger *zap.Logger) *Webhook {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Webhook{
		url:    url,
		wiki:   wiki,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
	if len(statuses) > 0 {
		w.statuses = make(map[batch.Status]bool, len(statuses))
		for _, s := range statuses {
			w.statuses[s] = true
		}
	}
	return w
}

func (w *Webhook) RunStarted(*batch.Run)              {}
func (w *Webhook) EntryAdded(*batch.Run, batch.Entry) {}

func (w *Webhook) RunFinished(run *batch.Run) {
	if w.statuses != nil && !w.statuses[run.Status] {
		return
	}
	payload, err := json.Marshal(Payload{
		RunID:      run.ID,
		Wiki:       w.wiki,
		Action:     run.Job.Action,
		User:       run.User,
		Status:     run.Status,
		Summary:    run.Summary,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Text: fmt.Sprintf("%s run by %s %s: %d succeeded, %d failed, %d skipped",
			run.Job.Action, run.User, run.Status,
			run.Summary.Succeeded, run.Summary.Failed, run.Summary.Skipped),
	})
	if err != nil {
		w.logger.Error("encoding webhook payload", zap.Error(err))
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), w.client.Timeout)
		defer cancel()
		if err := w.Send(ctx, payload); err != nil {
			w.logger.Warn("webhook delivery failed", zap.String("run_id", run.ID), zap.Error(err))
			return
		}
		w.logger.Debug("webhook delivered", zap.String("run_id", run.ID))
	}()
}

// Wait blocks until pending deliveries finish.
func (w *Webhook) Wait() { w.wg.Wait() }

// Send POSTs payload to the webhook URL.
func (w *Webhook) Send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
