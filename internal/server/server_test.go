package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ministryofjustice/probation-case-sampler/internal/config"
	"github.com/ministryofjustice/probation-case-sampler/internal/sampler"
)

var clock = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type recordingSaver struct {
	saved []*sampler.Report
	err   error
}

func (s *recordingSaver) Save(_ context.Context, r *sampler.Report) error {
	s.saved = append(s.saved, r)
	return s.err
}

func longList(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{
			"familyName": "Family%[1]d", "firstName": "First%[1]d", "dob": "01/01/1980",
			"gender": "F", "sentenceType": "ORA Community Order", "crn": "CRN%03[1]d",
			"pnc": "PNC%03[1]d", "roshClassification": "RHRH", "startDate": "01/02/2026",
			"endDate": "N", "cluster": "N01", "ldu": "N01A", "responsibleOfficer": "ro%[2]d"
		}`, i, i%4)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func newServer(store Saver) *Server {
	engine := sampler.New(sampler.WithClock(func() time.Time { return clock }), sampler.WithSeed(7))
	settings := config.Sample{BufferPercentage: 0, MaxPerAgent: config.DefaultMaxPerAgent}
	return New(settings, engine, store, zap.NewNop())
}

func post(t *testing.T, h http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer(nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"UP"}`, rec.Body.String())
}

func TestSampleReturnsSummary(t *testing.T) {
	store := &recordingSaver{}
	rec := post(t, newServer(store).Handler(), "/sample?size=4", longList(8))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		ID      string `json:"id"`
		Results []struct {
			Row string `json:"row"`
		} `json:"results"`
		Stratum json.RawMessage `json:"stratum"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotEmpty(t, body.ID)
	require.Len(t, body.Results, 4)
	assert.Equal(t, "001", body.Results[0].Row)
	assert.Equal(t, "004", body.Results[3].Row)
	assert.Nil(t, body.Stratum)
	require.Len(t, store.saved, 1)
	assert.Equal(t, body.ID, store.saved[0].ID.String())
}

func TestAnalyseReturnsDetail(t *testing.T) {
	rec := post(t, newServer(nil).Handler(), "/analyse?size=4", longList(8))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Selected int               `json:"selected"`
		Stratum  []json.RawMessage `json:"stratum"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 4, body.Selected)
	assert.Len(t, body.Stratum, 1)
}

func TestSampleRejectsBadInput(t *testing.T) {
	require.Contains(t, longList(1), `"crn": "CRN000"`)
	require.Contains(t, longList(2), `"pnc": "PNC001"`)

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"missing size", "/sample", longList(1)},
		{"non-numeric size", "/sample?size=ten", longList(1)},
		{"negative size", "/sample?size=-1", longList(1)},
		{"malformed json", "/sample?size=1", `[{`},
		{"missing crn", "/sample?size=1", strings.Replace(longList(1), `"CRN000"`, `""`, 1)},
		{"unknown gender", "/sample?size=1", strings.Replace(longList(1), `"gender": "F"`, `"gender": "Q"`, 1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, newServer(nil).Handler(), tc.target, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, http.StatusBadRequest, body.Status)
			assert.NotEmpty(t, body.DeveloperMessage)
		})
	}
}

func TestSampleStoreFailureIsServerError(t *testing.T) {
	store := &recordingSaver{err: errors.New("connection refused")}
	rec := post(t, newServer(store).Handler(), "/sample?size=2", longList(4))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeError(t, rec).DeveloperMessage, "connection refused")
}

func TestMetricsExposeRuns(t *testing.T) {
	srv := newServer(nil)
	h := srv.Handler()
	post(t, h, "/sample?size=40", longList(8))
	post(t, h, "/sample?size=x", longList(1))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	raw, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, `case_sampler_runs_total{outcome="ok"} 1`)
	assert.Contains(t, out, `case_sampler_runs_total{outcome="invalid"} 1`)
	assert.Contains(t, out, "case_sampler_under_allocated_total 1")
	assert.Contains(t, out, "case_sampler_selected_records_count 1")
}
