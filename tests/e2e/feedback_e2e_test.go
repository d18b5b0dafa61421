//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/godilite/swachh-scan/internal/api"
	apimocks "github.com/godilite/swachh-scan/internal/api/mocks"
	"github.com/godilite/swachh-scan/internal/app"
	"github.com/godilite/swachh-scan/internal/config"
	"github.com/godilite/swachh-scan/internal/web"
	"github.com/godilite/swachh-scan/pkg/http/server"
	"github.com/godilite/swachh-scan/tests/e2e/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

func startApp(t *testing.T, backend *mocks.Backend) *resty.Client {
	cfg := &config.Config{
		AppEnv:         "test",
		HTTPPort:       0,
		BackendURL:     backend.URL(),
		BackendTimeout: 2 * time.Second,
		GeoTimeout:     time.Second,
	}

	a, err := app.NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	a.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})

	_, port, err := net.SplitHostPort(a.Addr())
	require.NoError(t, err)

	return resty.New().
		SetBaseURL("http://127.0.0.1:" + port).
		SetTimeout(5 * time.Second)
}

func parse(t *testing.T, body []byte) *html.Node {
	doc, err := html.Parse(bytes.NewReader(body))
	require.NoError(t, err)
	return doc
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	if n.Type == html.ElementNode && match(n) {
		out = append(out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, findAll(c, match)...)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func byID(doc *html.Node, id string) *html.Node {
	nodes := findAll(doc, func(n *html.Node) bool { return attr(n, "id") == id })
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func byClass(doc *html.Node, class string) []*html.Node {
	return findAll(doc, func(n *html.Node) bool {
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	})
}

func hiddenValue(doc *html.Node, name string) string {
	nodes := findAll(doc, func(n *html.Node) bool {
		return n.Data == "input" && attr(n, "name") == name
	})
	if len(nodes) == 0 {
		return ""
	}
	return attr(nodes[0], "value")
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func TestE2E_ScanRateAndSubmit(t *testing.T) {
	backend := mocks.NewBackend()
	defer backend.Close()
	backend.AddFacility("BLK-7", "Block 7 Toilet", "Sector 4, Main Road")

	client := startApp(t, backend)

	resp, err := client.R().Get("/f/BLK-7")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	doc := parse(t, resp.Body())
	require.NotNil(t, byID(doc, "feedback-form"))
	assert.Contains(t, text(doc), "Block 7 Toilet")
	assert.Contains(t, text(doc), "Sector 4, Main Road")
	assert.Equal(t, "5", hiddenValue(doc, "rating"))

	form := map[string]string{
		"facility_name":    hiddenValue(doc, "facility_name"),
		"facility_address": hiddenValue(doc, "facility_address"),
		"rating":           hiddenValue(doc, "rating"),
		"user_lat":         "",
		"user_lng":         "",
		"comment":          "Needs cleaning",
		"photo_url":        "",
		"pick":             "3",
	}
	resp, err = client.R().SetFormData(form).Post("/f/BLK-7")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	doc = parse(t, resp.Body())
	assert.Equal(t, "3", hiddenValue(doc, "rating"))
	assert.Len(t, byClass(doc, "selected"), 3)
	assert.Empty(t, backend.Submissions(), "picking a rating must not submit")

	form["rating"] = hiddenValue(doc, "rating")
	delete(form, "pick")
	resp, err = client.R().SetFormData(form).Post("/f/BLK-7")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	doc = parse(t, resp.Body())
	require.NotNil(t, byID(doc, "confirmation"))

	subs := backend.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "BLK-7", subs[0]["facility_code"])
	assert.Equal(t, float64(3), subs[0]["rating"])
	assert.Equal(t, "Needs cleaning", subs[0]["comment"])
	for _, key := range []string{"photo_url", "user_lat", "user_lng"} {
		v, ok := subs[0][key]
		assert.True(t, ok, "%s must be present", key)
		assert.Nil(t, v, "%s must be null", key)
	}

	for _, id := range backend.RequestIDs() {
		assert.NotEmpty(t, id)
	}
}

func TestE2E_SubmitWithPosition(t *testing.T) {
	backend := mocks.NewBackend()
	defer backend.Close()
	backend.AddFacility("P-1", "", "")

	client := startApp(t, backend)

	resp, err := client.R().Get("/f/P-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, text(parse(t, resp.Body())), "Public Facility")

	resp, err = client.R().SetFormData(map[string]string{
		"rating":    "4",
		"user_lat":  "28.6139",
		"user_lng":  "77.2090",
		"photo_url": "https://img.example/p.jpg",
	}).Post("/f/P-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	subs := backend.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, float64(4), subs[0]["rating"])
	assert.InDelta(t, 28.6139, subs[0]["user_lat"], 1e-9)
	assert.InDelta(t, 77.2090, subs[0]["user_lng"], 1e-9)
	assert.Equal(t, "https://img.example/p.jpg", subs[0]["photo_url"])
}

func TestE2E_UnknownFacility(t *testing.T) {
	backend := mocks.NewBackend()
	defer backend.Close()

	client := startApp(t, backend)

	resp, err := client.R().Get("/f/NOPE")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	doc := parse(t, resp.Body())
	assert.Nil(t, byID(doc, "feedback-form"))
	require.NotNil(t, byID(doc, "error-message"))
	assert.Equal(t, "Facility not found", text(byID(doc, "error-message")))
	require.NotNil(t, byID(doc, "home-link"))
	assert.Equal(t, "/", attr(byID(doc, "home-link"), "href"))
}

func TestE2E_Dashboard(t *testing.T) {
	backend := mocks.NewBackend()
	defer backend.Close()
	backend.SetStats(map[string]any{
		"counts": map[string]any{"total": 10, "open": 3, "in_progress": 2, "resolved": 5},
		"leaderboard": []any{
			map[string]any{"staff_id": 7, "staff_name": "Asha", "resolved_count": 5},
		},
	})

	client := startApp(t, backend)

	t.Run("counters and leaderboard", func(t *testing.T) {
		resp, err := client.R().Get("/dashboard")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
		doc := parse(t, resp.Body())

		var values []string
		for _, n := range byClass(doc, "stat-value") {
			values = append(values, text(n))
		}
		assert.Equal(t, []string{"10", "3", "2", "5"}, values)

		rows := byClass(doc, "leader-row")
		require.Len(t, rows, 1)
		assert.Equal(t, "1 — Asha — 5", text(rows[0]))
	})

	t.Run("backend failure", func(t *testing.T) {
		backend.FailStats(true)
		defer backend.FailStats(false)

		resp, err := client.R().Get("/dashboard")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode())
		doc := parse(t, resp.Body())
		assert.Nil(t, byID(doc, "counters"))
		require.NotNil(t, byID(doc, "stats-error"))
		assert.Equal(t, "Failed to load stats", text(byID(doc, "stats-error")))
	})
}

func TestE2E_HealthAndNotFound(t *testing.T) {
	backend := mocks.NewBackend()
	defer backend.Close()

	client := startApp(t, backend)

	resp, err := client.R().Get("/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "ok", resp.String())
	assert.NotEmpty(t, resp.Header().Get("X-Request-ID"))

	resp, err = client.R().Get("/nowhere")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestE2E_CachedFacilityLookup(t *testing.T) {
	backend := mocks.NewBackend()
	defer backend.Close()
	backend.AddFacility("C-1", "Cached Block", "")

	logger := zap.NewNop()
	client := api.NewClient(backend.URL(), 2*time.Second, logger)
	store := apimocks.NewMemoryCache()
	resolver := api.NewCachedFacilityResolver(client, store, logger, time.Minute)
	handlers := web.NewHandlers(resolver, client, client, logger, time.Second)

	srv, err := server.New(server.WithPort(0), server.WithViews(web.NewViews()))
	require.NoError(t, err)
	srv.RegisterRoutes(handlers.Register)

	get := func() int {
		resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/f/C-1", nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	require.Equal(t, http.StatusOK, get())
	require.Eventually(t, func() bool { return store.Has("facility:C-1") }, time.Second, 10*time.Millisecond)
	require.Equal(t, http.StatusOK, get())

	assert.Equal(t, int64(1), backend.FacilityLookups.Load())
}
