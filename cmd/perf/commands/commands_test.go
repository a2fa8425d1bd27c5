package commands

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis/v13/perf/internal/audit"
	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/internal/profile"
)

const snapshot = `{
  "portfolio_id": "pf-cli",
  "trades": [
    {"symbol": "BTC", "side": "BUY", "quantity": "1", "price": "100", "fee": "0", "timestamp": "2024-02-05T00:00:00Z"},
    {"symbol": "BTC", "side": "SELL", "quantity": "1", "price": "130", "fee": "0", "timestamp": "2024-02-07T00:00:00Z"}
  ],
  "equity": [
    {"timestamp": "2024-02-05T00:00:00Z", "value": 1000},
    {"timestamp": "2024-02-06T00:00:00Z", "value": 1010},
    {"timestamp": "2024-02-07T00:00:00Z", "value": 990},
    {"timestamp": "2024-02-08T00:00:00Z", "value": 1030}
  ],
  "categories": [
    {"category": "Crypto", "portfolio_weight": 1, "portfolio_return": 0.03, "benchmark_weight": 1, "benchmark_return": 0.01}
  ]
}`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestReadInput(t *testing.T) {
	in, err := readInput(writeFile(t, snapshot))
	require.NoError(t, err)

	assert.Equal(t, "pf-cli", in.PortfolioID)
	assert.Len(t, in.Trades, 2)
	assert.Equal(t, 4, in.Equity.Len())
	assert.Len(t, in.Categories, 1)
}

func TestReadInput_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", `{"portfolio_id": "pf", "extra": 1}`},
		{"missing portfolio", `{"equity": []}`},
		{"bad equity", `{"portfolio_id": "pf", "equity": [{"timestamp": "2024-02-05T00:00:00Z", "value": -1}]}`},
		{"not json", `equity`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readInput(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := readInput(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	in, err := readInput(writeFile(t, snapshot))
	require.NoError(t, err)

	result, err := audit.Compute(in, profile.Default())
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintResult(&buf, result, 3)

	out := buf.String()
	assert.Contains(t, out, "pf-cli")
	assert.Contains(t, out, "Crypto")
	assert.Contains(t, out, "3.00%") // total return 1030/1000 - 1
}

func TestPrintBatch(t *testing.T) {
	results := []audit.BatchResult{
		{Request: contracts.AnalysisRequest{PortfolioID: "pf-bad"}, Err: errors.New("load equity curve: boom")},
	}

	var buf bytes.Buffer
	PrintBatch(&buf, results)

	assert.Contains(t, buf.String(), "pf-bad")
	assert.Contains(t, buf.String(), "failed")
	assert.Contains(t, buf.String(), "boom")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, map[string]int{"points": 4}))
	assert.JSONEq(t, `{"points": 4}`, buf.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "12.50%", pct(0.125))
	assert.Equal(t, "-3.00%", signedPct(-0.03))
	assert.Equal(t, "+3.00%", signedPct(0.03))
	assert.Equal(t, "-", timeOrDash(nil))

	ts := time.Date(2024, 2, 5, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-02-05 09:30:00", timeOrDash(&ts))

	assert.Equal(t, "n/a", optional(nil))
	v := 1.5
	assert.Equal(t, "1.500", optional(&v))
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"BTC", "SPX"}, splitCSV(" BTC, ,SPX "))
	assert.Empty(t, splitCSV(""))
}

func TestPrintJSON_Batch(t *testing.T) {
	results := []audit.BatchResult{
		{Request: contracts.AnalysisRequest{PortfolioID: "pf-bad"}, Err: errors.New("load equity curve: boom")},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, results))
	assert.Contains(t, buf.String(), `"error": "load equity curve: boom"`)
	assert.NotContains(t, buf.String(), `"result"`)
}
