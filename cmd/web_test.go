package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/aduscore/internal/config"
	"github.com/zalepa/aduscore/internal/logger"
	"github.com/zalepa/aduscore/internal/metrics"
	"github.com/zalepa/aduscore/internal/scores"
	"github.com/zalepa/aduscore/internal/store"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	b, _ := fixtureBuilder(t)
	s := &webServer{
		builder:    b,
		selection:  store.NewSelection(store.NewMemory(), time.Hour),
		metrics:    metrics.New(prometheus.NewRegistry()),
		log:        logger.NewNop(),
		sessionTTL: time.Hour,
	}
	return s.router()
}

func serve(r http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWeb_Index(t *testing.T) {
	r := newTestRouter(t)
	w := serve(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Massachusetts ADU Scorecard")

	w = serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestWeb_Towns(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/api/towns", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Count)

	w = serve(r, http.MethodGet, "/api/towns/lexington", "")
	require.Equal(t, http.StatusOK, w.Code)
	var report scores.TownReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "Lexington", report.Town.Name)
	require.NotNil(t, report.Timeline)
	assert.Equal(t, 25, report.Timeline.MedianDays)
	assert.Less(t, report.Scorecard.RulesScore, report.Base.RulesScore)

	w = serve(r, http.MethodGet, "/api/towns/springfield", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Town not found"}`, w.Body.String())
}

func TestWeb_ScoresAndStatewide(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/api/scores", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Towns []scores.TownReport `json:"towns"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Towns, 3)
	assert.Equal(t, "lexington", resp.Towns[0].Town.Slug)

	w = serve(r, http.MethodGet, "/api/statewide", "")
	require.Equal(t, http.StatusOK, w.Code)
	var sw scores.Statewide
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sw))
	assert.Equal(t, scores.Statewide{
		Towns: 3, Submitted: 24, Approved: 18, Denied: 1, Pending: 5,
		ByRightTowns: 1, TownsWithParcels: 1, PerCapitaAverage: 3.6,
	}, sw)
}

func TestWeb_Series(t *testing.T) {
	r := newTestRouter(t)
	w := serve(r, http.MethodGet, "/api/series?metric=per-parcel", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp seriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Approvals per 1K parcels", resp.Title)
	assert.Equal(t, []string{"2024-01", "2024-03"}, resp.Dates)
	require.Len(t, resp.Series, 3)

	lex := resp.Series[0]
	assert.Equal(t, "lexington", lex.Slug)
	require.NotNil(t, lex.Value)
	assert.Equal(t, 2.0, *lex.Value)
	require.Len(t, lex.Values, 2)
	assert.Equal(t, 30.0, *lex.Values[0])
	assert.Nil(t, resp.Series[1].Value)
	assert.Nil(t, resp.Series[1].Values[0])

	// Unknown metrics fall back to the overall score.
	w = serve(r, http.MethodGet, "/api/series?metric=bogus", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Overall score", resp.Title)
}

func TestWeb_Metadata(t *testing.T) {
	r := newTestRouter(t)
	w := serve(r, http.MethodGet, "/api/metadata", "")
	require.Equal(t, http.StatusOK, w.Code)

	var meta metadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, []labelValue{{"acton", "Acton"}, {"lexington", "Lexington"}}, meta.Counties["Middlesex"])
	assert.Len(t, meta.Metrics, len(validMetrics))
}

func TestWeb_Exports(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/api/export/towns.csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="adu-towns.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "Town,County,Population,"))

	w = serve(r, http.MethodGet, "/api/export/towns.xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))

	w = serve(r, http.MethodGet, "/api/export/permits/lexington", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, strings.Count(w.Body.String(), "\n"))

	w = serve(r, http.MethodGet, "/api/export/permits/springfield", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWeb_Selection(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/api/selection", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"slug":""}`, w.Body.String())
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	session := cookies[0]
	assert.Equal(t, sessionCookie, session.Name)
	assert.True(t, session.HttpOnly)

	w = serve(r, http.MethodPut, "/api/selection", `{"slug":"lexington"}`, session)
	require.Equal(t, http.StatusOK, w.Code)
	// An existing session is not reissued.
	assert.Empty(t, w.Result().Cookies())

	w = serve(r, http.MethodGet, "/api/selection", "", session)
	assert.JSONEq(t, `{"slug":"lexington"}`, w.Body.String())

	// A different session sees nothing.
	w = serve(r, http.MethodGet, "/api/selection", "")
	assert.JSONEq(t, `{"slug":""}`, w.Body.String())

	w = serve(r, http.MethodPut, "/api/selection", `{"slug":"springfield"}`, session)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodPut, "/api/selection", `not json`, session)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPut, "/api/selection", `{"slug":""}`, session)
	require.Equal(t, http.StatusOK, w.Code)
	w = serve(r, http.MethodGet, "/api/selection", "", session)
	assert.JSONEq(t, `{"slug":""}`, w.Body.String())
}

func TestWeb_Metrics(t *testing.T) {
	r := newTestRouter(t)
	serve(r, http.MethodGet, "/api/statewide", "")
	serve(r, http.MethodGet, "/nope", "")

	w := serve(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `route="/api/statewide"`)
	assert.Contains(t, body, `route="unmatched"`)
}

func TestOpenSessionStore(t *testing.T) {
	ctx := context.Background()

	kv, err := openSessionStore(ctx, config.RedisConfig{}, logger.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, kv)

	mr := miniredis.RunT(t)
	kv, err = openSessionStore(ctx, config.RedisConfig{Address: mr.Addr(), Prefix: "test:"}, logger.NewNop())
	require.NoError(t, err)
	require.IsType(t, &store.Redis{}, kv)

	require.NoError(t, kv.Set(ctx, "k", "v", time.Minute))
	got, err := mr.Get("test:k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, kv.Close())
	assert.Error(t, kv.Set(ctx, "k", "v", time.Minute))
}
