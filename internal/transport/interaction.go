package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/claritycopilot/transcripts/internal/domain/activity"
	"github.com/claritycopilot/transcripts/internal/domain/transcript"
	"github.com/claritycopilot/transcripts/internal/notify"
	"github.com/claritycopilot/transcripts/internal/signature"
	"github.com/slack-go/slack"
)

const maxInteractionBody = 1 << 20

const actionDelete = "delete"

// handleSlackInteraction executes the delete control from a summary DM.
// Anything it does not understand is acknowledged with 200, and failures
// of understood actions are reported to the user rather than via status.
func (s *Server) handleSlackInteraction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxInteractionBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if err := signature.VerifySlack(r.Header, body, s.opts.SlackSigningSecret); err != nil {
		if errors.Is(err, signature.ErrSecretNotConfigured) {
			s.logger.Error("slack signing secret not configured")
			writeError(w, http.StatusInternalServerError, "signing secret not configured")
			return
		}
		s.logger.Warn("slack interaction rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed form body")
		return
	}
	raw := form.Get("payload")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing payload")
		return
	}

	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(raw), &cb); err != nil {
		s.logger.Warn("unparseable slack interaction acknowledged", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	action := deleteAction(cb)
	if action == nil {
		s.logger.Debug("slack interaction ignored", "type", cb.Type)
		w.WriteHeader(http.StatusOK)
		return
	}

	s.deleteRecord(r, cb, strings.TrimSpace(action.Value))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteRecord(r *http.Request, cb slack.InteractionCallback, id string) {
	ctx := r.Context()
	channelID := cb.Channel.ID
	if channelID == "" {
		channelID = cb.Container.ChannelID
	}
	userID := cb.User.ID
	logger := s.logger.With("record_id", id, "slack_user", userID)

	rec, err := s.opts.Records.Delete(ctx, id)
	if err != nil {
		text := "Sorry, the summary could not be deleted. Please try again."
		status := "failed"
		if errors.Is(err, transcript.ErrNotFound) || errors.Is(err, transcript.ErrInvalidInput) {
			text = "This summary no longer exists."
			status = "not_found"
			logger.Info("delete requested for missing record")
		} else {
			logger.Error("delete failed", "error", err)
		}
		s.opts.Metrics.Interaction(actionDelete, status)
		s.audit(r, id, activity.TypeDeleteRejected, userID, status)
		if s.opts.Replier != nil {
			if err := s.opts.Replier.ReportFailure(ctx, channelID, userID, text); err != nil {
				logger.Warn("could not report delete failure", "error", err)
			}
		}
		return
	}

	logger.Info("record deleted from slack")
	s.opts.Metrics.Interaction(actionDelete, "deleted")
	s.audit(r, id, activity.TypeDeleted, userID, "slack")
	if s.opts.Replier != nil {
		if err := s.opts.Replier.ConfirmDeleted(ctx, channelID, userID, rec.Meeting.Topic); err != nil {
			logger.Warn("could not confirm delete", "error", err)
		}
	}
}

func (s *Server) audit(r *http.Request, recordID string, typ activity.Type, actor, detail string) {
	if s.opts.Activity == nil || recordID == "" {
		return
	}
	s.opts.Activity.Record(r.Context(), recordID, typ, actor, detail)
}

func deleteAction(cb slack.InteractionCallback) *slack.BlockAction {
	if cb.Type != slack.InteractionTypeBlockActions {
		return nil
	}
	for _, action := range cb.ActionCallback.BlockActions {
		if action != nil && action.ActionID == notify.DeleteActionID {
			return action
		}
	}
	return nil
}
