package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/arborflow/arbor/internal/adapters/http"
	"github.com/arborflow/arbor/internal/logging"
	"github.com/arborflow/arbor/pkg/domain"
)

type stubEngine struct {
	resp *domain.Response
	err  error
}

func (s *stubEngine) Execute(ctx context.Context, agentID, input string, sess domain.SessionContext) (*domain.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func (s *stubEngine) Inspect(agentID string) (*domain.Topology, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Topology{AgentID: agentID}, nil
}

func post(t *testing.T, handler http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/execute", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Execute(t *testing.T) {
	engine := &stubEngine{resp: &domain.Response{
		Answer:  "Paris",
		TraceID: "req-1",
		Sources: []domain.Citation{{Source: "kb", Ref: "d1"}},
	}}
	handler := apihttp.NewHandler(engine, logging.NewNop())

	rec := post(t, handler, apihttp.ExecuteRequest{
		AgentID: "default", Text: "capital of France?",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Paris", resp.Answer)
	assert.Equal(t, "req-1", resp.TraceID)
	assert.Len(t, resp.Sources, 1)
}

func TestServer_MalformedBody(t *testing.T) {
	handler := apihttp.NewHandler(&stubEngine{}, logging.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/v1/execute", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var env apihttp.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, domain.CodeValidation, env.Code)
}

func TestServer_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    *domain.Error
		status int
	}{
		{"validation", domain.NewError(domain.CodeValidation, "empty input"), http.StatusBadRequest},
		{"unknown agent", domain.NewError(domain.CodeTopologyLoad, "no topology"), http.StatusNotFound},
		{"backend fault", domain.NewError(domain.CodeExternalCall, "upstream down"), http.StatusBadGateway},
		{"disabled", domain.NewError(domain.CodeCapabilityDisabled, "disabled"), http.StatusConflict},
		{"internal", domain.NewError(domain.CodeInternal, "boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := apihttp.NewHandler(&stubEngine{err: tc.err}, logging.NewNop())
			rec := post(t, handler, apihttp.ExecuteRequest{AgentID: "default", Text: "hi"})
			assert.Equal(t, tc.status, rec.Code)

			var env apihttp.ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, tc.err.Code, env.Code)
		})
	}
}

func TestServer_Healthz(t *testing.T) {
	handler := apihttp.NewHandler(&stubEngine{}, logging.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Topology(t *testing.T) {
	handler := apihttp.NewHandler(&stubEngine{}, logging.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/agents/default/topology", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var topo domain.Topology
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &topo))
	assert.Equal(t, "default", topo.AgentID)
}

func TestServer_Metrics(t *testing.T) {
	handler := apihttp.NewHandler(&stubEngine{}, logging.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
