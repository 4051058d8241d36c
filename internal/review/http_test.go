package review

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()
	srv, err := NewHTTPServer(HTTPConfig{
		Service:      newTestService(t),
		AllowOrigins: []string{"http://localhost:5173"},
	})
	require.NoError(t, err)
	return srv
}

func doGet(t *testing.T, srv *HTTPServer, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHTTPHealth(t *testing.T) {
	w := doGet(t, newTestServer(t), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHTTPInstruments(t *testing.T) {
	w := doGet(t, newTestServer(t), "/api/review/instruments")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"instruments":["CLZ4"]}`, w.Body.String())
}

func TestHTTPBarsDateRange(t *testing.T) {
	srv := newTestServer(t)
	w := doGet(t, srv, "/api/review/bars?contract=CLZ4&start=2024-10-24&end=2024-10-24")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Bars []struct {
			Time int64 `json:"time"`
		} `json:"bars"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Bars, 3)
}

func TestHTTPBarsEpochRange(t *testing.T) {
	srv := newTestServer(t)
	w := doGet(t, srv, "/api/review/bars?contract=CLZ4&start=1729772100&end=1729772400")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Bars []struct {
			Time int64 `json:"time"`
		} `json:"bars"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Bars, 2)
	assert.Equal(t, int64(1729772100), body.Bars[0].Time)
}

// 省略 start/end 等价于全区间。
func TestHTTPSeriesUnbounded(t *testing.T) {
	srv := newTestServer(t)
	w := doGet(t, srv, "/api/review/series?contract=CLZ4")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Series []struct {
			ID     string `json:"id"`
			Points []struct {
				Time  int64   `json:"time"`
				Value float64 `json:"value"`
			} `json:"points"`
		} `json:"series"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Series, 1)
	assert.Equal(t, "rsi", body.Series[0].ID)
	assert.Len(t, body.Series[0].Points, 3)
}

func TestHTTPTrades(t *testing.T) {
	srv := newTestServer(t)
	w := doGet(t, srv, "/api/review/trades?contract=CLZ4&start=1729771800&end=1729772400")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Trades []struct {
			ID    string   `json:"id"`
			Side  string   `json:"side"`
			Flags []string `json:"flags,omitempty"`
		} `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Trades, 1)
	assert.Equal(t, "T1", body.Trades[0].ID)
	assert.Equal(t, "long", body.Trades[0].Side)
	assert.Empty(t, body.Trades[0].Flags)
}

func TestHTTPUnknownContract(t *testing.T) {
	w := doGet(t, newTestServer(t), "/api/review/meta?contract=ESZ4")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown contract")
}

func TestHTTPMissingContract(t *testing.T) {
	for _, target := range []string{
		"/api/review/meta",
		"/api/review/bars",
		"/api/review/series",
		"/api/review/trades",
		"/api/review/report",
	} {
		w := doGet(t, newTestServer(t), target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestHTTPBadDate(t *testing.T) {
	w := doGet(t, newTestServer(t), "/api/review/bars?contract=CLZ4&start=10/24/2024")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTPCORSHeader(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestParseRangeBound(t *testing.T) {
	start, err := parseRangeBound("2024-10-24", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1729728000), start)

	end, err := parseRangeBound("2024-10-24", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1729814399), end)

	n, err := parseRangeBound("1729771800", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1729771800), n)

	_, err = parseRangeBound("yesterday", false)
	assert.Error(t, err)
}
