// Package fiscal tracks the invoicing state machine per order and
// mediates retries against the tax-authority workflow exposed by the
// remote commerce API.
//
// Transitions: NOT_REQUESTED --request--> PENDING --authority-->
// AUTHORIZED | ERROR; ERROR --retry--> PENDING; PENDING --retry-->
// PENDING (re-poll, not a new document). AUTHORIZED is terminal.
package fiscal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/atelierpos/atelier/internal/commerce"
)

// Status is a fiscal document state.
type Status string

const (
	StatusNotRequested Status = "NOT_REQUESTED"
	StatusPending      Status = "PENDING"
	StatusAuthorized   Status = "AUTHORIZED"
	StatusError        Status = "ERROR"
)

// Retryable reports whether a retry may be issued from this state.
func (s Status) Retryable() bool {
	return s == StatusNotRequested || s == StatusPending || s == StatusError
}

// Document is the last observed fiscal state for an order. SRINumber
// and AccessKey identify the authorized artifact at the authority.
type Document struct {
	OrderNumber   string    `json:"order_number"`
	Status        Status    `json:"status"`
	StatusDisplay string    `json:"status_display,omitempty"`
	SRINumber     string    `json:"sri_number,omitempty"`
	AccessKey     string    `json:"access_key,omitempty"`
	Reason        string    `json:"error,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// Tracker caches the last observed document per order and serializes
// retries so a double-clicked retry button cannot produce duplicate
// fiscal submissions.
type Tracker struct {
	client *commerce.Client
	logger *slog.Logger

	mu       sync.Mutex
	docs     map[string]Document
	inflight map[string]bool
}

// NewTracker creates a Tracker.
func NewTracker(client *commerce.Client, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		client:   client,
		logger:   logger,
		docs:     make(map[string]Document),
		inflight: make(map[string]bool),
	}
}

// Status fetches the current fiscal state for an order from the
// remote, updating the tracker's view.
func (t *Tracker) Status(ctx context.Context, orderNumber string) (Document, error) {
	fs, err := t.client.FiscalStatus(ctx, orderNumber)
	if err != nil {
		return Document{}, err
	}
	return t.record(orderNumber, fs), nil
}

// Last returns the tracker's last observed document without a remote
// call. ok is false if the order has never been checked.
func (t *Tracker) Last(orderNumber string) (Document, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	doc, ok := t.docs[orderNumber]
	return doc, ok
}

// Retry re-submits the fiscal document for an order. It is safe to
// call repeatedly: the current remote state is re-fetched first, and
// an already AUTHORIZED document is a no-op returning the existing
// artifacts. Concurrent retries for the same order collapse into one.
func (t *Tracker) Retry(ctx context.Context, orderNumber string) (Document, error) {
	t.mu.Lock()
	if t.inflight[orderNumber] {
		t.mu.Unlock()
		return Document{}, commerce.NewError(commerce.KindConflict,
			"a fiscal retry for order %s is already in progress", orderNumber)
	}
	t.inflight[orderNumber] = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.inflight, orderNumber)
		t.mu.Unlock()
	}()

	current, err := t.client.FiscalStatus(ctx, orderNumber)
	if err != nil {
		return Document{}, err
	}
	if Status(current.Status) == StatusAuthorized {
		t.logger.Info("fiscal document already authorized",
			"order_number", orderNumber, "sri_number", current.SRINumber)
		return t.record(orderNumber, current), nil
	}

	fs, err := t.client.FiscalRetry(ctx, orderNumber)
	if err != nil {
		// The order itself stays pending with the document in ERROR;
		// nothing is rolled back, the operator retries manually.
		t.logger.Warn("fiscal retry failed", "order_number", orderNumber, "err", err)
		return Document{}, err
	}
	doc := t.record(orderNumber, fs)
	t.logger.Info("fiscal retry issued", "order_number", orderNumber, "status", doc.Status)
	return doc, nil
}

// Artifact downloads the authorized document in the given format
// ("pdf" or "xml"). Only meaningful from AUTHORIZED; the current state
// is re-fetched first because the artifact lives in the remote
// document store and is never cached long-term.
func (t *Tracker) Artifact(ctx context.Context, orderNumber, format string) ([]byte, error) {
	if format != "pdf" && format != "xml" {
		return nil, commerce.NewError(commerce.KindValidation, "unsupported artifact format %q", format)
	}

	fs, err := t.client.FiscalStatus(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	doc := t.record(orderNumber, fs)
	if doc.Status != StatusAuthorized {
		return nil, commerce.NewError(commerce.KindTerminal,
			"fiscal document for order %s is %s, artifacts require AUTHORIZED", orderNumber, doc.Status)
	}
	return t.client.FiscalArtifact(ctx, orderNumber, format)
}

func (t *Tracker) record(orderNumber string, fs commerce.FiscalStatus) Document {
	doc := Document{
		OrderNumber:   orderNumber,
		Status:        Status(fs.Status),
		StatusDisplay: fs.StatusDisplay,
		SRINumber:     fs.SRINumber,
		AccessKey:     fs.AccessKey,
		Reason:        fs.ErrorReason,
		CheckedAt:     time.Now(),
	}
	t.mu.Lock()
	prev, had := t.docs[orderNumber]
	t.docs[orderNumber] = doc
	t.mu.Unlock()

	if had && prev.Status != doc.Status {
		t.logger.Debug("fiscal status changed",
			"order_number", orderNumber, "from", prev.Status, "to", doc.Status)
	}
	return doc
}
