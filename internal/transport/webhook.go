package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/claritycopilot/transcripts/internal/pipeline"
	"github.com/claritycopilot/transcripts/internal/signature"
	"github.com/claritycopilot/transcripts/internal/zoom"
)

const maxWebhookBody = 1 << 20

// Webhook metric outcomes.
const (
	webhookAccepted    = "accepted"
	webhookChallenge   = "challenge"
	webhookIgnored     = "ignored"
	webhookRejected    = "rejected"
	webhookInvalid     = "invalid"
	webhookError       = "error"
	webhookUnavailable = "unavailable"
)

// handleZoomWebhook verifies and acknowledges a delivery. Transcript
// processing continues in the background after the 200 is written.
func (s *Server) handleZoomWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.opts.Metrics.WebhookEvent("", webhookInvalid)
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	sig := r.Header.Get(signature.ZoomSignatureHeader)
	ts := r.Header.Get(signature.ZoomTimestampHeader)
	signed := sig != "" || ts != ""

	if signed {
		if err := signature.VerifyZoom(body, sig, ts, s.opts.ZoomWebhookSecret); err != nil {
			s.rejectWebhook(w, err)
			return
		}
	}

	var evt zoom.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		if !signed {
			s.rejectWebhook(w, signature.VerifyZoom(body, sig, ts, s.opts.ZoomWebhookSecret))
			return
		}
		s.opts.Metrics.WebhookEvent("", webhookInvalid)
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}

	// Only the url_validation handshake may arrive unsigned; its answer is an
	// HMAC of the challenge and so proves secret possession by itself.
	if !signed && evt.Event != zoom.EventURLValidation {
		s.rejectWebhook(w, signature.VerifyZoom(body, sig, ts, s.opts.ZoomWebhookSecret))
		return
	}

	switch evt.Event {
	case zoom.EventURLValidation:
		s.handleValidation(w, evt)
	case zoom.EventTranscriptCompleted:
		s.handleTranscriptCompleted(w, evt)
	default:
		s.logger.Info("zoom event ignored", "event", evt.Event)
		s.opts.Metrics.WebhookEvent(evt.Event, webhookIgnored)
		writeJSON(w, http.StatusOK, StatusBody{Status: "ignored"})
	}
}

// rejectWebhook answers a delivery whose signature cannot be trusted. Its
// event name is never recorded.
func (s *Server) rejectWebhook(w http.ResponseWriter, err error) {
	if errors.Is(err, signature.ErrSecretNotConfigured) {
		s.logger.Error("zoom webhook secret not configured")
		s.opts.Metrics.WebhookEvent("", webhookError)
		writeError(w, http.StatusInternalServerError, "webhook secret not configured")
		return
	}
	s.logger.Warn("zoom webhook rejected", "error", err)
	s.opts.Metrics.WebhookEvent("", webhookRejected)
	writeError(w, http.StatusUnauthorized, "invalid signature")
}

func (s *Server) handleValidation(w http.ResponseWriter, evt zoom.Event) {
	var payload zoom.ValidationPayload
	if len(evt.Payload) > 0 {
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			s.opts.Metrics.WebhookEvent(evt.Event, webhookInvalid)
			writeError(w, http.StatusBadRequest, "malformed validation payload")
			return
		}
	}
	if payload.PlainToken == "" {
		s.opts.Metrics.WebhookEvent(evt.Event, webhookInvalid)
		writeError(w, http.StatusBadRequest, "missing plainToken")
		return
	}

	resp, err := signature.Challenge(payload.PlainToken, s.opts.ZoomWebhookSecret)
	if err != nil {
		s.logger.Error("cannot answer url validation", "error", err)
		s.opts.Metrics.WebhookEvent(evt.Event, webhookError)
		writeError(w, http.StatusInternalServerError, "webhook secret not configured")
		return
	}
	s.opts.Metrics.WebhookEvent(evt.Event, webhookChallenge)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTranscriptCompleted(w http.ResponseWriter, evt zoom.Event) {
	var payload zoom.RecordingPayload
	if len(evt.Payload) == 0 {
		s.opts.Metrics.WebhookEvent(evt.Event, webhookInvalid)
		writeError(w, http.StatusBadRequest, "missing payload")
		return
	}
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		s.opts.Metrics.WebhookEvent(evt.Event, webhookInvalid)
		writeError(w, http.StatusBadRequest, "malformed recording payload")
		return
	}
	if len(payload.Object.RecordingFiles) == 0 {
		s.opts.Metrics.WebhookEvent(evt.Event, webhookInvalid)
		writeError(w, http.StatusBadRequest, "missing recording_files")
		return
	}

	job := pipeline.Job{Payload: payload, DownloadToken: evt.DownloadToken}
	name := "transcript:" + payload.Object.ID.String() + ":" + payload.Object.UUID
	accepted := s.opts.Scheduler.Go(name, func(ctx context.Context) error {
		_, err := s.opts.Processor.Process(ctx, job)
		return err
	})
	if !accepted {
		s.opts.Metrics.WebhookEvent(evt.Event, webhookUnavailable)
		writeError(w, http.StatusServiceUnavailable, "shutting down")
		return
	}

	s.logger.Info("transcript accepted",
		"meeting_id", payload.Object.ID.String(),
		"meeting_uuid", payload.Object.UUID,
		"topic", payload.Object.Topic,
	)
	s.opts.Metrics.WebhookEvent(evt.Event, webhookAccepted)
	writeJSON(w, http.StatusOK, StatusBody{Status: "success"})
}
