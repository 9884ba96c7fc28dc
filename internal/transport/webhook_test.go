package transport

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/claritycopilot/transcripts/internal/signature"
	"github.com/stretchr/testify/require"
)

const transcriptEvent = `{
  "event": "recording.transcript_completed",
  "event_ts": 1714575600000,
  "download_token": "dl-token",
  "payload": {
    "account_id": "acct-1",
    "object": {
      "id": 91234567890,
      "uuid": "inst==",
      "host_email": "host@example.com",
      "topic": "Portal launch",
      "start_time": "2024-05-01T15:00:00Z",
      "duration": 30,
      "recording_files": [{
        "file_type": "TRANSCRIPT",
        "download_url": "https://zoom.example/vtt",
        "recording_start": "2024-05-01T15:00:05Z",
        "recording_end": "2024-05-01T15:30:00Z"
      }]
    }
  }
}`

func TestWebhook_TranscriptAcceptedImmediately(t *testing.T) {
	env := newTestEnv()

	rec := env.serve(zoomRequest(transcriptEvent, zoomSecret))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"success"}`, rec.Body.String())

	// Nothing runs on the request path.
	require.Len(t, env.scheduler.tasks, 1)
	require.Empty(t, env.processor.jobs)

	env.scheduler.run(t)
	require.Len(t, env.processor.jobs, 1)
	job := env.processor.jobs[0]
	require.Equal(t, "dl-token", job.DownloadToken)
	require.Equal(t, "91234567890", job.Payload.Object.ID.String())
	require.Equal(t, "inst==", job.Payload.Object.UUID)
	require.Len(t, job.Payload.Object.RecordingFiles, 1)
}

func TestWebhook_URLValidation(t *testing.T) {
	body := `{"event":"endpoint.url_validation","payload":{"plainToken":"abc123"}}`

	for name, secret := range map[string]string{"signed": zoomSecret, "unsigned": ""} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv()
			rec := env.serve(zoomRequest(body, secret))
			require.Equal(t, http.StatusOK, rec.Code)

			var resp signature.ChallengeResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, "abc123", resp.PlainToken)
			require.Equal(t, hmacHex(zoomSecret, "abc123"), resp.EncryptedToken)
		})
	}
}

func TestWebhook_URLValidationErrors(t *testing.T) {
	env := newTestEnv()
	rec := env.serve(zoomRequest(`{"event":"endpoint.url_validation","payload":{}}`, ""))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env.opts.ZoomWebhookSecret = ""
	rec = env.serve(zoomRequest(`{"event":"endpoint.url_validation","payload":{"plainToken":"abc"}}`, ""))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhook_SignatureRequired(t *testing.T) {
	env := newTestEnv()

	rec := env.serve(zoomRequest(transcriptEvent, ""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.serve(zoomRequest(transcriptEvent, "wrong-secret"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := zoomRequest(transcriptEvent, zoomSecret)
	req.Header.Del("x-zm-request-timestamp")
	rec = env.serve(req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Empty(t, env.scheduler.tasks)
}

func TestWebhook_SecretNotConfigured(t *testing.T) {
	env := newTestEnv()
	env.opts.ZoomWebhookSecret = ""

	rec := env.serve(zoomRequest(transcriptEvent, "anything"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, env.scheduler.tasks)
}

func TestWebhook_MissingRecordingFiles(t *testing.T) {
	env := newTestEnv()
	cases := []string{
		`{"event":"recording.transcript_completed"}`,
		`{"event":"recording.transcript_completed","payload":{"object":{"id":1,"uuid":"u"}}}`,
		`{"event":"recording.transcript_completed","payload":{"object":{"id":1,"uuid":"u","recording_files":[]}}}`,
	}
	for _, body := range cases {
		rec := env.serve(zoomRequest(body, zoomSecret))
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	require.Empty(t, env.scheduler.tasks)
}

func TestWebhook_MalformedJSON(t *testing.T) {
	env := newTestEnv()
	rec := env.serve(zoomRequest(`{"event":`, zoomSecret))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_SignatureCheckedBeforeParsing(t *testing.T) {
	env := newTestEnv()

	rec := env.serve(zoomRequest(`{"event":`, "wrong-secret"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotContains(t, rec.Body.String(), "malformed")

	rec = env.serve(zoomRequest(`not json`, ""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotContains(t, rec.Body.String(), "malformed")

	require.Empty(t, env.scheduler.tasks)
}

func TestWebhook_OnlyHandshakeMayBeUnsigned(t *testing.T) {
	env := newTestEnv()
	for _, body := range []string{
		`{"event":"meeting.started","payload":{}}`,
		`{"event":"recording.transcript_completed","payload":{}}`,
		`{}`,
	} {
		rec := env.serve(zoomRequest(body, ""))
		require.Equal(t, http.StatusUnauthorized, rec.Code, body)
	}
	require.Empty(t, env.scheduler.tasks)

	env.opts.ZoomWebhookSecret = ""
	rec := env.serve(zoomRequest(`not json`, ""))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhook_OtherEventsAcknowledged(t *testing.T) {
	env := newTestEnv()
	rec := env.serve(zoomRequest(`{"event":"meeting.started","payload":{}}`, zoomSecret))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, env.scheduler.tasks)
}

func TestWebhook_ShuttingDown(t *testing.T) {
	env := newTestEnv()
	env.scheduler.closed = true

	rec := env.serve(zoomRequest(transcriptEvent, zoomSecret))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
