package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func viewRequest(query string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/view"+query, nil)
}

func TestView_RendersSummary(t *testing.T) {
	env := newTestEnv()

	rec := env.serve(viewRequest("?id=rec-1&secret=right-secret"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	require.Contains(t, body, "<strong>Topic:</strong> Portal launch")
	require.Contains(t, body, "SECRET-SUMMARY-BODY")
	require.Contains(t, body, "Portal")
	require.NotContains(t, body, "<script>alert(1)</script>")
}

func TestView_WrongSecretDoesNotLeak(t *testing.T) {
	env := newTestEnv()

	rec := env.serve(viewRequest("?id=rec-1&secret=wrong"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.NotContains(t, rec.Body.String(), "SECRET-SUMMARY-BODY")
	require.NotContains(t, rec.Body.String(), "Portal launch")
}

func TestView_Errors(t *testing.T) {
	env := newTestEnv()

	require.Equal(t, http.StatusBadRequest, env.serve(viewRequest("")).Code)
	require.Equal(t, http.StatusBadRequest, env.serve(viewRequest("?id=rec-1")).Code)
	require.Equal(t, http.StatusBadRequest, env.serve(viewRequest("?secret=x")).Code)
	require.Equal(t, http.StatusNotFound, env.serve(viewRequest("?id=missing&secret=x")).Code)

	env.records.err = errors.New("db down")
	require.Equal(t, http.StatusInternalServerError, env.serve(viewRequest("?id=rec-1&secret=right-secret")).Code)
}

func TestRenderMarkdown(t *testing.T) {
	out := string(renderMarkdown("## Next steps\n\n- ship it\n\n<iframe src=x></iframe>"))
	require.Contains(t, out, "<h2")
	require.Contains(t, out, "<li>ship it</li>")
	require.NotContains(t, out, "<iframe")
}
