package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostsboard/common"
	"hostsboard/services"
	"hostsboard/utils"
)

type fixedResolver string

func (f fixedResolver) Resolve(context.Context, string, bool) (string, error) {
	return string(f), nil
}

type testEnv struct {
	deps   Deps
	router chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/manifest.json":
			_, _ = w.Write([]byte(`{"aws-prod": "http://` + r.Host + `/aws", "gcp-dev": "http://` + r.Host + `/gcp"}`))
		case strings.HasPrefix(r.URL.Path, "/aws/"):
			_, _ = w.Write([]byte("[prod-mysql]\nprod-mysql-fra1-a-01.example.com\nprod-mysql-fra1-a-02.example.com\n"))
		case strings.HasPrefix(r.URL.Path, "/gcp/"):
			_, _ = w.Write([]byte("[dev-pg]\ndev-pg-ams-b-01.example.com\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := utils.NewHub(64)
	agg := services.NewAggregator(ctx, services.AggregatorConfig{
		Client:      upstream.Client(),
		ManifestURL: upstream.URL + "/manifest.json",
		Resolver:    fixedResolver("10.0.0.1"),
	}, hub)

	env := &testEnv{deps: Deps{
		Aggregator: agg,
		Settings:   services.NewSettings(common.Config{UseLocalResolver: true}),
		Hub:        hub,
	}}
	r := chi.NewRouter()
	SetupAllRoutes(r, env.deps)
	env.router = r
	return env
}

func (e *testEnv) load(t *testing.T) {
	t.Helper()
	_, err := e.deps.Aggregator.Run(context.Background(), services.LoadOptions{})
	require.NoError(t, err)
	e.deps.Aggregator.Wait()
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestRowsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	rr := env.do(http.MethodGet, "/rows", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp rowsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, "prod-mysql-fra1-a-01.example.com", resp.Items[0].FQDN)
	assert.Equal(t, "10.0.0.1", resp.Items[0].IP)
	assert.Equal(t, services.LevelInfo, resp.Status.Level)
	assert.NotEmpty(t, resp.Cycle)
}

func TestRowsEndpointFilters(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	var resp rowsResponse
	rr := env.do(http.MethodGet, "/rows?repo=gcp-dev", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "dev", resp.Items[0].Env)

	rr = env.do(http.MethodGet, "/rows?q=a-02&limit=10", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "prod-mysql-fra1-a-02.example.com", resp.Items[0].FQDN)

	rr = env.do(http.MethodGet, "/rows?limit=1&offset=1", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "prod-mysql-fra1-a-02.example.com", resp.Items[0].FQDN)
}

func TestRowLookup(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	rr := env.do(http.MethodGet, "/rows/dev-pg-ams-b-01.example.com", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var rec services.HostRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "gcp", rec.Platform)

	rr = env.do(http.MethodGet, "/rows/missing.example.com", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReloadEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/reload?local=false", "")
	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["use_local_resolver"])
	assert.NotEmpty(t, resp["cycle"])

	env.deps.Aggregator.Wait()
	assert.Len(t, env.deps.Aggregator.Table().Rows(), 3)
	assert.Equal(t, resp["cycle"], env.deps.Aggregator.Status().Cycle)
}

func TestReloadUsesDefaultToggle(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/reload", "")
	require.Equal(t, http.StatusAccepted, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["use_local_resolver"])
	env.deps.Aggregator.Wait()
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/settings", "")
	assert.JSONEq(t, `{"use_local_resolver":true,"source":"env"}`, rr.Body.String())

	rr = env.do(http.MethodPatch, "/settings", `{"use_local_resolver":false}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"use_local_resolver":false,"source":"override"}`, rr.Body.String())

	rr = env.do(http.MethodPatch, "/settings", `{"use_local_resolver":null}`)
	assert.JSONEq(t, `{"use_local_resolver":true,"source":"env"}`, rr.Body.String())

	rr = env.do(http.MethodPatch, "/settings", `{nope`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	rr := env.do(http.MethodGet, "/status", "")
	var st services.Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	assert.Equal(t, "Loaded 3 hosts from 2 repositories", st.Message)
}

func TestWebsocketStream(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap services.Event
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, services.EventSnapshot, snap.Type)
	assert.Len(t, snap.Rows, 3)
	require.NotNil(t, snap.Status)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = env.deps.Aggregator.Run(context.Background(), services.LoadOptions{})
	}()

	var next services.Event
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, services.EventClear, next.Type)
	assert.Greater(t, next.Generation, snap.Generation)

	<-done
	env.deps.Aggregator.Wait()
}

// readSSE returns the next named event and its decoded payload.
func readSSE(t *testing.T, br *bufio.Reader) (string, services.Event) {
	t.Helper()
	var name string
	var ev services.Event
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		case line == "" && name != "":
			return name, ev
		}
	}
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	br := bufio.NewReader(resp.Body)
	name, snap := readSSE(t, br)
	require.Equal(t, services.EventSnapshot, name)
	assert.Len(t, snap.Rows, 3)

	env.deps.Aggregator.Reload(services.LoadOptions{})

	var row services.Event
	for {
		name, ev := readSSE(t, br)
		if name == services.EventRow {
			row = ev
			break
		}
	}
	require.NotNil(t, row.Row)
	assert.Equal(t, "prod-mysql-fra1-a-01.example.com", row.Row.FQDN)
	assert.Greater(t, row.Generation, snap.Generation)

	env.deps.Aggregator.Wait()
}
