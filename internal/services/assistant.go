package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"arcos-chat/internal/models"
)

const maxResponseBytes = 2 << 20

// Recorder receives one record per dispatch. Implementations must not block for long.
type Recorder interface {
	Record(ctx context.Context, rec models.DispatchRecord)
}

type AssistantOptions struct {
	WebhookURL       string
	Source           string
	Timeout          time.Duration
	ContentType      models.ContentType
	ConcurrentReqs   int
	PriceSuffix      string
	PlaceholderImage string
	LinkPrefix       string
	HTTPClient       *http.Client
	Recorder         Recorder
}

// AssistantService relays questions to the external assistant webhook.
type AssistantService struct {
	webhookURL  string
	source      string
	timeout     time.Duration
	contentType models.ContentType
	normalize   NormalizeOptions
	client      *http.Client
	recorder    Recorder
	rateChan    chan struct{} // Token bucket
	now         func() time.Time
}

func NewAssistantService(opts AssistantOptions) *AssistantService {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.ConcurrentReqs <= 0 {
		opts.ConcurrentReqs = 1
	}
	if opts.ContentType == "" {
		opts.ContentType = models.ContentMarkdown
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	rateChan := make(chan struct{}, opts.ConcurrentReqs)
	for i := 0; i < opts.ConcurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &AssistantService{
		webhookURL:  opts.WebhookURL,
		source:      opts.Source,
		timeout:     opts.Timeout,
		contentType: opts.ContentType,
		normalize: NormalizeOptions{
			PriceSuffix:      opts.PriceSuffix,
			PlaceholderImage: opts.PlaceholderImage,
			LinkPrefix:       opts.LinkPrefix,
		},
		client:   client,
		recorder: opts.Recorder,
		rateChan: rateChan,
		now:      time.Now,
	}
}

// Ask sends one question to the webhook and normalizes the reply. Every
// failure is a *DispatchError; blank questions return ErrEmptyInput without
// any network traffic. Nothing is retried.
func (s *AssistantService) Ask(ctx context.Context, question string, meta models.SessionMeta) (*models.AssistantReply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyInput
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	envelope := s.envelope(question, meta)
	started := s.now()
	status := 0

	reply, err := func() (*models.AssistantReply, error) {
		if err := s.acquireRate(ctx); err != nil {
			return nil, classifyTransportError(ctx, err)
		}
		defer s.releaseRate()

		body, code, err := s.post(ctx, envelope)
		status = code
		if err != nil {
			return nil, err
		}
		return NormalizeResponse(body, s.normalize)
	}()

	s.record(ctx, envelope, reply, err, status, s.now().Sub(started))

	if err != nil {
		log.Warn().
			Err(err).
			Str("request_id", envelope.RequestID).
			Str("session_id", envelope.SessionID).
			Str("kind", string(KindOf(err))).
			Msg("assistant dispatch failed")
		return nil, err
	}

	reply.ContentType = s.contentType
	log.Debug().
		Str("request_id", envelope.RequestID).
		Int("products", len(reply.Products)).
		Msg("assistant reply received")
	return reply, nil
}

func (s *AssistantService) envelope(question string, meta models.SessionMeta) models.RequestEnvelope {
	env := models.RequestEnvelope{
		RequestID: uuid.NewString(),
		Question:  question,
		SessionID: meta.SessionID,
		Source:    s.source,
		Timestamp: s.now().UTC(),
	}
	if meta.CurrentURL != "" {
		u := meta.CurrentURL
		env.CurrentURL = &u
	}
	return env
}

func (s *AssistantService) post(ctx context.Context, envelope models.RequestEnvelope) ([]byte, int, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, 0, newDispatchError(KindNetworkFailure, errors.Wrap(err, "encode envelope"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, newDispatchError(KindNetworkFailure, errors.Wrap(err, "build webhook request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// the error body is unused; a failed drain only costs connection reuse
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, resp.StatusCode, &DispatchError{Kind: KindHTTPStatus, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, classifyTransportError(ctx, err)
	}
	return body, resp.StatusCode, nil
}

// acquireRate blocks until a dispatch slot is available
func (s *AssistantService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AssistantService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *AssistantService) record(ctx context.Context, env models.RequestEnvelope, reply *models.AssistantReply, err error, status int, took time.Duration) {
	if s.recorder == nil || errors.Is(err, ErrEmptyInput) {
		return
	}
	rec := models.DispatchRecord{
		RequestID:  env.RequestID,
		SessionID:  env.SessionID,
		Question:   env.Question,
		Outcome:    "ok",
		HTTPStatus: status,
		Duration:   took,
		CreatedAt:  env.Timestamp,
	}
	if err != nil {
		rec.Outcome = string(KindOf(err))
	}
	if reply != nil {
		rec.ProductCount = len(reply.Products)
	}
	s.recorder.Record(context.WithoutCancel(ctx), rec)
}

// classifyTransportError separates deadline/abort from other transport failures.
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newDispatchError(KindTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newDispatchError(KindTimeout, err)
	}
	return newDispatchError(KindNetworkFailure, err)
}
