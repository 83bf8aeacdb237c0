package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_trader/internal/engine"
	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

type stubEngine struct {
	report  *models.PassReport
	result  *engine.TestResult
	err     error
	gotID   int64
	gotText string
}

func (s *stubEngine) RunPass(ctx context.Context) *models.PassReport {
	return s.report
}

func (s *stubEngine) EvaluateStrategy(ctx context.Context, strategyID int64, timeframe string) (*engine.TestResult, error) {
	s.gotID = strategyID
	return s.result, s.err
}

func (s *stubEngine) EvaluateScript(ctx context.Context, text, symbol, timeframe string) (*engine.TestResult, error) {
	s.gotText = text
	return s.result, s.err
}

func TestEvaluateAll(t *testing.T) {
	stub := &stubEngine{report: &models.PassReport{
		StartedAt: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
		Users:     3,
		Evaluated: 7,
		Items: []models.ItemReport{
			{UserID: 1, StrategyID: 2, Symbol: "BTCUSDT", Timeframe: "1h", Side: models.SideBuy, Outcome: models.OutcomeExecuted},
		},
	}}
	srv := httptest.NewServer(NewHandler(stub).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/engine/evaluate-all", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rep models.PassReport
	require.NoError(t, sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&rep))
	assert.Equal(t, 3, rep.Users)
	assert.Equal(t, 7, rep.Evaluated)
	require.Len(t, rep.Items, 1)
	assert.Equal(t, models.OutcomeExecuted, rep.Items[0].Outcome)
}

func TestEvaluateScript_Inline(t *testing.T) {
	stub := &stubEngine{result: &engine.TestResult{
		Symbol: "ETHUSDT", Timeframe: "4h", Price: 2500,
		Signal: models.Signal{Side: models.SideSell, Price: 2500},
	}}
	srv := httptest.NewServer(NewHandler(stub).Router())
	defer srv.Close()

	body := []byte(`{"script":"sell on rsi above 70","symbol":"ETHUSDT","timeframe":"4h"}`)
	resp, err := http.Post(srv.URL+"/api/engine/evaluate-script", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "sell on rsi above 70", stub.gotText)

	var res engine.TestResult
	require.NoError(t, sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, models.SideSell, res.Signal.Side)
}

func TestEvaluateScript_ByStrategyID(t *testing.T) {
	stub := &stubEngine{result: &engine.TestResult{StrategyID: 42, Symbol: "BTCUSDT"}}
	srv := httptest.NewServer(NewHandler(stub).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/engine/evaluate-script", "application/json",
		bytes.NewReader([]byte(`{"strategy_id":42}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(42), stub.gotID)
}

func TestEvaluateScript_BadRequest(t *testing.T) {
	stub := &stubEngine{err: assert.AnError}
	srv := httptest.NewServer(NewHandler(stub).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/engine/evaluate-script", "application/json",
		bytes.NewReader([]byte(`{"script":"x"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParse_UsesDefaults(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&stubEngine{}).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/engine/parse", "application/json",
		bytes.NewReader([]byte(`{"script":"fast = 9, slow = 21, use sma, stop loss 1.5%"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out parseResponse
	require.NoError(t, sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 9, out.Config.FastPeriod)
	assert.Equal(t, 21, out.Config.SlowPeriod)
	assert.Equal(t, models.MATypeSMA, out.Config.MAType)
	assert.InDelta(t, 1.5, out.Config.StopLossPct, 1e-9)
	// незаполненное берётся из дефолтов
	assert.InDelta(t, 4.0, out.Config.TakeProfitPct, 1e-9)
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&stubEngine{}).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
