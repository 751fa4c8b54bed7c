package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/smregler-server/internal/diagnosis"
	"github.com/smregler-server/internal/domain"
	"github.com/smregler-server/internal/metrics"
	"github.com/smregler-server/internal/middleware"
	"github.com/smregler-server/internal/rules"
	"github.com/smregler-server/internal/service"
)

const validCertificate = `{
  "envelope": {"msg_id": "m-1", "edi_logg_id": "e-1", "sender_organisation_number": "974600951"},
  "health_information": {
    "case_start_date": "2019-01-10",
    "activity": {"periods": [{"from": "2019-01-10", "to": "2019-01-20"}]},
    "patient_contact": {"contact_date": "2019-01-10", "processed_date": "2019-01-10T10:00:00Z"},
    "main_diagnosis": {"system": "2.16.578.1.12.4.1.1.7170", "code": "L84"}
  },
  "metadata": {"signature_date": "2019-01-10T12:00:00Z", "received_date": "2019-01-10T12:00:00Z"}
}`

type staticConfig struct {
	config domain.Config
}

func (s *staticConfig) GetConfig() *domain.Config { return &s.config }
func (s *staticConfig) GetServerConfig() *domain.ServerConfig { return &s.config.Server }
func (s *staticConfig) GetCacheConfig() *domain.CacheConfig { return &s.config.Cache }
func (s *staticConfig) GetRateLimitConfig() *domain.RateLimitConfig { return &s.config.RateLimit }
func (s *staticConfig) Validate() error { return nil }

func testConfig() *staticConfig {
	return &staticConfig{config: domain.Config{
		Server: domain.ServerConfig{
			Host:            "127.0.0.1",
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: time.Second,
		},
		Logging: domain.LoggingConfig{Level: "info", Format: "json"},
	}}
}

// MockValidator is a mock implementation of the RuleValidator interface
type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(ctx context.Context, req *domain.ValidationRequest) (*domain.ValidationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ValidationResult), args.Error(1)
}

func (m *MockValidator) Catalogs() []rules.Catalog {
	return nil
}

type testServer struct {
	*Server
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, validator RuleValidator) *testServer {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	registry, err := diagnosis.LoadDefault()
	require.NoError(t, err)
	if validator == nil {
		validator = service.NewValidator(registry, nil, nil, logger)
	}

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	state := NewApplicationState()
	state.SetReady(true)

	return &testServer{Server: NewServer(testConfig(), validator, registry, m, state, logger), metrics: m}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestProbes(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/is_alive", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "I'm alive! :)", w.Body.String())

	w = s.do(http.MethodGet, "/is_ready", "")
	assert.Equal(t, http.StatusOK, w.Code)

	s.state.SetReady(false)
	w = s.do(http.MethodGet, "/is_ready", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Please wait! I'm not ready :(", w.Body.String())
	assert.Equal(t, http.StatusServiceUnavailable, s.do(http.MethodGet, "/health", "").Code)

	s.state.SetAlive(false)
	assert.Equal(t, http.StatusInternalServerError, s.do(http.MethodGet, "/is_alive", "").Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestValidateEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("Valid_Certificate", func(t *testing.T) {
		w := s.do(http.MethodPost, "/v1/rules/validate", validCertificate)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		assert.JSONEq(t, `{"status": "OK", "rule_hits": []}`, w.Body.String())
	})

	t.Run("Invalid_Certificate", func(t *testing.T) {
		body := strings.Replace(validCertificate, `"activity": {"periods": [{"from": "2019-01-10", "to": "2019-01-20"}]},`, "", 1)

		w := s.do(http.MethodPost, "/v1/rules/validate", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		result := decode[domain.ValidationResult](t, w)
		assert.Equal(t, domain.INVALID, result.Status)
		require.Len(t, result.RuleHits, 1)
		assert.Equal(t, "NO_PERIOD_PROVIDED", result.RuleHits[0].RuleName)
		assert.Equal(t, 1200, *result.RuleHits[0].RuleID)
	})

	t.Run("Unassigned_Rule_ID_Is_Null", func(t *testing.T) {
		body := strings.Replace(validCertificate, `"from": "2019-01-10", "to": "2019-01-20"`, `"from": "2019-02-11", "to": "2019-02-20"`, 1)

		w := s.do(http.MethodPost, "/v1/rules/validate", body)
		require.Equal(t, http.StatusOK, w.Code)

		hits := decode[struct {
			RuleHits []map[string]interface{} `json:"rule_hits"`
		}](t, w).RuleHits
		require.Len(t, hits, 2)
		assert.Equal(t, "BACKDATING_SYKMELDING_EXTENSION", hits[1]["rule_name"])
		assert.Contains(t, hits[1], "rule_id")
		assert.Nil(t, hits[1]["rule_id"])
	})

	t.Run("Malformed_JSON", func(t *testing.T) {
		w := s.do(http.MethodPost, "/v1/rules/validate", `{"envelope":`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		apiErr := decode[domain.APIError](t, w)
		assert.Equal(t, domain.ErrInvalidInput, apiErr.Code)
		assert.Equal(t, w.Header().Get("X-Correlation-ID"), apiErr.RequestID)
	})

	t.Run("Bad_Date", func(t *testing.T) {
		body := strings.Replace(validCertificate, `"case_start_date": "2019-01-10"`, `"case_start_date": "10.01.2019"`, 1)
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/v1/rules/validate", body).Code)
	})

	t.Run("Missing_Signature_Date", func(t *testing.T) {
		body := strings.Replace(validCertificate, `"signature_date": "2019-01-10T12:00:00Z", `, "", 1)

		w := s.do(http.MethodPost, "/v1/rules/validate", body)
		require.Equal(t, http.StatusBadRequest, w.Code)

		apiErr := decode[domain.APIError](t, w)
		assert.Equal(t, domain.ErrValidation, apiErr.Code)
		assert.Equal(t, "metadata.signature_date", apiErr.Field)
		assert.Equal(t, w.Header().Get(middleware.CorrelationIDHeader), apiErr.RequestID)
	})

	t.Run("Metrics_Recorded", func(t *testing.T) {
		w := s.do(http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `smregler_http_requests_total{method="POST",path="/v1/rules/validate",status="200"}`)
	})
}

func TestValidateEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expectCode int
		errorCode  domain.ErrorCode
	}{
		{"Internal_Error", errors.New("boom"), http.StatusInternalServerError, domain.ErrInternalServer},
		{"Deadline_Exceeded", fmt.Errorf("validation aborted: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, domain.ErrValidationTimeout},
		{"Missing_Field", domain.NewValidationError("metadata.received_date", "received date is required", nil), http.StatusBadRequest, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := new(MockValidator)
			validator.On("Validate", mock.Anything, mock.Anything).Return(nil, tt.err)
			s := newTestServer(t, validator)

			w := s.do(http.MethodPost, "/v1/rules/validate", validCertificate)
			assert.Equal(t, tt.expectCode, w.Code)
			assert.Equal(t, tt.errorCode, decode[domain.APIError](t, w).Code)
			validator.AssertExpectations(t)
		})
	}
}

func TestRulesEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("List", func(t *testing.T) {
		w := s.do(http.MethodGet, "/v1/rules", "")
		require.Equal(t, http.StatusOK, w.Code)

		body := decode[struct {
			Chains []ChainDescription `json:"chains"`
		}](t, w)
		require.Len(t, body.Chains, 3)
		assert.Equal(t, rules.EnvelopeChainName, body.Chains[0].Name)
		assert.Equal(t, rules.PeriodLogicChainName, body.Chains[1].Name)
		assert.Len(t, body.Chains[1].Rules, 18)
		assert.Equal(t, rules.ValidationChainName, body.Chains[2].Name)
	})

	t.Run("Single_Chain", func(t *testing.T) {
		w := s.do(http.MethodGet, "/v1/rules/"+rules.ValidationChainName, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "MAIN_DIAGNOSIS_MISSING", decode[ChainDescription](t, w).Rules[0].RuleName)
	})

	t.Run("Documentation_CSV", func(t *testing.T) {
		w := s.do(http.MethodGet, "/v1/rules/"+rules.EnvelopeChainName+"?format=csv", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "fellesformatValidationChain-rules.csv")

		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "Rule name;Outcome type;Rule ID;Description", lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "SENDER_ORGANISATION_NUMBER_MISSING;INVALID;1031;"))
	})

	t.Run("Unknown_Chain", func(t *testing.T) {
		w := s.do(http.MethodGet, "/v1/rules/nope", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, domain.ErrCodeNotFound, decode[domain.APIError](t, w).Code)
	})
}

func TestDiagnosisEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("ICPC2_Code", func(t *testing.T) {
		w := s.do(http.MethodGet, "/v1/diagnoses/icpc2/L84", "")
		require.Equal(t, http.StatusOK, w.Code)

		body := decode[DiagnosisResponse](t, w)
		assert.Equal(t, "L84", body.Value)
		assert.Equal(t, domain.ICPC2SystemOID, body.OID)
		require.Len(t, body.Equivalents, 2)
		assert.Equal(t, "M545", body.Equivalents[0].Value)
		assert.Equal(t, diagnosis.ICD10, body.Equivalents[0].System)
	})

	t.Run("ICD10_Code_By_OID", func(t *testing.T) {
		w := s.do(http.MethodGet, "/v1/diagnoses/"+domain.ICD10SystemOID+"/M545", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[DiagnosisResponse](t, w).Equivalents, 2)
	})

	t.Run("Code_Without_Equivalent", func(t *testing.T) {
		w := s.do(http.MethodGet, "/v1/diagnoses/icpc2/-30", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"equivalents":[]`)
	})

	t.Run("Unknown_Code", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/diagnoses/icpc2/X99", "").Code)
	})

	t.Run("Unknown_System", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/v1/diagnoses/snomed/123", "").Code)
	})
}

func TestServerWithoutMetrics(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	registry, err := diagnosis.LoadDefault()
	require.NoError(t, err)
	validator := service.NewValidator(registry, nil, nil, logger)
	state := NewApplicationState()
	state.SetReady(true)

	var server *Server
	require.NotPanics(t, func() {
		server = NewServer(testConfig(), validator, registry, nil, state, logger)
	})
	s := &testServer{Server: server}

	w := s.do(http.MethodPost, "/v1/rules/validate", validCertificate)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.OK, decode[domain.ValidationResult](t, w).Status)

	w = s.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServeAndShutdown(t *testing.T) {
	s := newTestServer(t, nil)
	s.state.SetReady(false)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, listener) }()

	require.Eventually(t, s.state.Ready, time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + listener.Addr().String() + "/is_ready")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.Contains(body, []byte("ready")))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.False(t, s.state.Ready())
	assert.False(t, s.state.Alive())
}

func init() {
	gin.SetMode(gin.TestMode)
}
