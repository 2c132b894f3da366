package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/caselens/caselens/internal/models"
	"github.com/caselens/caselens/internal/reports"
	"github.com/caselens/caselens/internal/services/correlation"
	"github.com/caselens/caselens/internal/storage/sqlitestore"
	"github.com/caselens/caselens/internal/tools"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

func testServer(t *testing.T) *server {
	t.Helper()
	st, err := sqlitestore.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)

	require.NoError(t, st.Seed(context.Background(), sqlitestore.SeedData{
		Users: []models.User{
			{ID: 5, Name: "Rajesh Kumar", Email: "rajesh@example.com", City: strPtr("Pune"), Country: "India", CreatedAt: "2023-03-10T08:00:00"},
		},
		Orders: []models.Order{
			{ID: 15, UserID: 5, Item: "Espresso Machine", Quantity: 1, UnitPrice: 450, TotalAmount: 450, Status: "shipped", PaymentMethod: strPtr("upi"), TrackingNumber: strPtr("TRK100015"), OrderedAt: "2024-01-04T09:00:00"},
		},
		Complaints: []models.Complaint{
			{ID: 7, UserID: 5, OrderID: i64Ptr(15), Category: "delivery", Priority: "high", Status: "open", Subject: "Package stuck", Details: "No movement", CreatedAt: "2024-01-10T09:00:00"},
		},
		PaymentLogs: []models.PaymentLogEvent{
			{ID: 1, OrderID: 15, TransactionID: "TXN-15-1", EventType: "captured", Amount: 450, Currency: "INR", Gateway: "razorpay", Status: "success", LoggedAt: "2024-01-04T09:01:00"},
		},
		LogisticsLogs: []models.LogisticsLogEvent{
			{ID: 1, OrderID: 15, TrackingNumber: strPtr("TRK100015"), Carrier: "BlueDart", EventType: "dispatched", LoggedAt: "2024-01-05T10:00:00"},
		},
	}))

	svc := correlation.New(st)
	registry := tools.NewRegistry()
	require.NoError(t, tools.RegisterCatalog(registry, st, svc))

	return &server{
		registry: registry,
		reports:  reports.New(st, svc),
		log:      slog.Default(),
	}
}

func call(t *testing.T, s *server, method string, params any) rpcResponse {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		require.NoError(t, err)
		raw = b
	}
	return s.handle(context.Background(), rpcRequest{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  method,
		Params:  raw,
	})
}

func TestHandle_toolsList(t *testing.T) {
	s := testServer(t)
	resp := call(t, s, "tools/list", nil)
	require.Nil(t, resp.Error)

	b, _ := json.Marshal(resp.Result)
	var body struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(b, &body))
	require.Len(t, body.Tools, 30)
}

func TestHandle_toolsCall(t *testing.T) {
	s := testServer(t)
	resp := call(t, s, "tools/call", map[string]any{
		"name":      "get_order_by_tracking",
		"arguments": map[string]any{"tracking_number": "TRK100015"},
	})
	require.Nil(t, resp.Error)

	b, _ := json.Marshal(resp.Result)
	require.Contains(t, string(b), "Espresso Machine")
}

func TestHandle_errors(t *testing.T) {
	s := testServer(t)

	resp := call(t, s, "tools/teleport", nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)

	resp = call(t, s, "tools/call", map[string]any{"name": "get_user_by_id", "arguments": map[string]any{}})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	resp = call(t, s, "tools/call", map[string]any{"name": "no_such_tool", "arguments": map[string]any{}})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeNotFound, resp.Error.Code)

	resp = call(t, s, "tools/call", map[string]any{"name": "get_user_by_id", "arguments": map[string]any{"user_id": 999}})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeNotFound, resp.Error.Code)

	resp = call(t, s, "resources/read", map[string]any{"uri": "context://data/nothing"})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeNotFound, resp.Error.Code)
}

func TestHandle_resourcesAndPrompts(t *testing.T) {
	s := testServer(t)

	resp := call(t, s, "resources/list", nil)
	require.Nil(t, resp.Error)
	b, _ := json.Marshal(resp.Result)
	require.Contains(t, string(b), "context://dashboard/summary")

	resp = call(t, s, "resources/read", map[string]any{"uri": "context://data/users"})
	require.Nil(t, resp.Error)
	b, _ = json.Marshal(resp.Result)
	require.Contains(t, string(b), "rajesh@example.com")

	resp = call(t, s, "prompts/list", nil)
	require.Nil(t, resp.Error)
	b, _ = json.Marshal(resp.Result)
	require.Contains(t, string(b), "deep_root_cause_analysis")

	resp = call(t, s, "prompts/get", map[string]any{
		"name":      "deep_root_cause_analysis",
		"arguments": map[string]string{"complaint_id": "7"},
	})
	require.Nil(t, resp.Error)
	b, _ = json.Marshal(resp.Result)
	require.Contains(t, string(b), "Deep RCA for complaint 7")
}

func TestRunStdio_roundTrip(t *testing.T) {
	s := testServer(t)

	in := strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n" +
			"\n" + // blank lines are skipped
			`not json` + "\n" +
			`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_user_by_id","arguments":{"user_id":5}}}` + "\n",
	)
	var out bytes.Buffer
	require.NoError(t, s.runStdio(context.Background(), in, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var first, second, third rpcResponse
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Nil(t, first.Error)

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	require.NotNil(t, second.Error)
	require.Equal(t, codeParseError, second.Error.Code)

	require.NoError(t, json.Unmarshal([]byte(lines[2]), &third))
	require.Nil(t, third.Error)
	b, _ := json.Marshal(third.Result)
	require.Contains(t, string(b), "Rajesh Kumar")
}

func TestRunHTTP_roundTrip(t *testing.T) {
	s := testServer(t)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.runHTTP(ctx, lis) }()

	url := "http://" + lis.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(url + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"context://alerts/high-priority"}}`)
	resp, err := http.Post(url+"/rpc", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var rpc rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpc))
	require.Nil(t, rpc.Error)
	b, _ := json.Marshal(rpc.Result)
	require.Contains(t, string(b), "Package stuck")

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
