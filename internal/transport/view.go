package transport

import (
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/claritycopilot/transcripts/internal/domain/transcript"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var viewTemplate = template.Must(template.New("view").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="robots" content="noindex">
<title>{{.Topic}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; color: #1d1c1d; }
header p { color: #616061; margin: 0.25rem 0; }
.tags span { display: inline-block; background: #f4ede4; border-radius: 4px; padding: 0 0.4rem; margin-right: 0.3rem; font-size: 0.85rem; }
details pre { white-space: pre-wrap; background: #f8f8f8; padding: 1rem; border-radius: 4px; }
</style>
</head>
<body>
<header>
<h1>{{.Topic}}</h1>
<p>{{.Window}}{{if .Host}} &middot; {{.Host}}{{end}}</p>
{{if .Tags}}<p class="tags">{{range .Tags}}<span>{{.}}</span>{{end}}</p>{{end}}
</header>
<main>
{{.Summary}}
</main>
{{if .Transcript}}<details>
<summary>Transcript</summary>
<pre>{{.Transcript}}</pre>
</details>{{end}}
</body>
</html>
`))

type viewPage struct {
	Topic      string
	Window     string
	Host       string
	Tags       []string
	Summary    template.HTML
	Transcript string
}

// handleView renders a stored summary for holders of its view secret.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	secret := r.URL.Query().Get("secret")
	if id == "" || secret == "" {
		http.Error(w, "id and secret are required", http.StatusBadRequest)
		return
	}

	rec, err := s.opts.Records.View(r.Context(), id, secret)
	switch {
	case err == nil:
	case errors.Is(err, transcript.ErrNotFound):
		http.Error(w, "summary not found", http.StatusNotFound)
		return
	case errors.Is(err, transcript.ErrSecretMismatch):
		s.logger.Warn("view secret mismatch", "record_id", id)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	case errors.Is(err, transcript.ErrInvalidInput):
		http.Error(w, "id and secret are required", http.StatusBadRequest)
		return
	default:
		s.logger.Error("view lookup failed", "record_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	if err := viewTemplate.Execute(w, newViewPage(rec)); err != nil {
		s.logger.Error("render view", "record_id", id, "error", err)
	}
}

func newViewPage(rec *transcript.Record) viewPage {
	topic := strings.TrimSpace(rec.Meeting.Topic)
	if topic == "" {
		topic = "Untitled meeting"
	}
	var tags []string
	if rec.MeetingType != "" && rec.MeetingType != transcript.MeetingUnknown {
		tags = append(tags, string(rec.MeetingType))
	}
	tags = append(tags, rec.Projects...)
	tags = append(tags, rec.Clients...)

	return viewPage{
		Topic:      topic,
		Window:     formatWindow(rec.Key.RecordingStart, rec.Key.RecordingEnd),
		Host:       rec.Meeting.HostEmail,
		Tags:       tags,
		Summary:    renderMarkdown(rec.Summary),
		Transcript: rec.Content.Cleaned,
	}
}

// renderMarkdown converts model output to HTML. Raw HTML in the source is dropped.
func renderMarkdown(src string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML | mdhtml.HrefTargetBlank,
	})
	return template.HTML(markdown.ToHTML([]byte(src), p, renderer))
}

func formatWindow(start, end time.Time) string {
	if start.IsZero() {
		return ""
	}
	start = start.UTC()
	out := start.Format("Mon Jan 2, 2006 15:04")
	if !end.IsZero() {
		out += "–" + end.UTC().Format("15:04")
	}
	return out + " UTC"
}
