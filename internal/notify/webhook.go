package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"qcportal/internal/logger"
)

// Webhook posts messages as {"text": ...} JSON to an incoming-webhook URL.
// Each post runs in its own goroutine, detached from the request context.
type Webhook struct {
	url     string
	timeout time.Duration
	client  *http.Client
	log     *logger.Logger
	wg      sync.WaitGroup
}

// NewWebhook returns a Webhook for url. A zero timeout means five seconds.
func NewWebhook(url string, timeout time.Duration, log *logger.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Webhook{
		url:     url,
		timeout: timeout,
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		log:     log.Named("notify"),
	}
}

// New returns a Webhook when url is set and Noop otherwise.
func New(url string, timeout time.Duration, log *logger.Logger) Notifier {
	if url == "" {
		return Noop{}
	}
	return NewWebhook(url, timeout, log)
}

func (w *Webhook) Send(ctx context.Context, msg Message) {
	ctx = context.WithoutCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.post(ctx, msg); err != nil {
			w.log.WithContext(ctx).Warn("webhook delivery failed",
				zap.String("title", msg.Title),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every pending post has finished.
func (w *Webhook) Wait() { w.wg.Wait() }

func (w *Webhook) post(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"text": msg.Text()})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
