package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	activityx "github.com/tanpawarit/pawsome-voice-agent/agent/activity"
	settlementx "github.com/tanpawarit/pawsome-voice-agent/agent/settlement"
	storex "github.com/tanpawarit/pawsome-voice-agent/agent/store"
	toolx "github.com/tanpawarit/pawsome-voice-agent/agent/tool"
)

var fixedNow = time.Date(2026, time.January, 15, 9, 30, 0, 0, time.UTC)

type testServer struct {
	*httptest.Server
	recorder *activityx.Recorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	clock := func() time.Time { return fixedNow }
	repo, err := storex.New(storex.WithClock(clock))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	svc, err := toolx.NewServices(repo, settlementx.Policy{Percentage: settlementx.DefaultPercentage}, clock)
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}

	recorder := activityx.NewRecorder(activityx.WithClock(clock), activityx.WithCustomers(repo))
	dispatcher, err := toolx.NewDispatcher(svc, toolx.WithObserver(recorder))
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	router := NewRouter("pawsome-test", zerolog.Nop(), NewHandler(dispatcher, recorder), NewDashboard("pawsome-test", repo, recorder))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, recorder: recorder}
}

func post(t *testing.T, srv *testServer, body string) (int, []byte) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/vapi/webhook", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST webhook: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}

func get(t *testing.T, srv *testServer, path string, into any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func decodeResults(t *testing.T, raw []byte) []map[string]any {
	t.Helper()
	var resp ToolCallsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode response %s: %v", raw, err)
	}
	out := make([]map[string]any, 0, len(resp.Results))
	for _, r := range resp.Results {
		var m map[string]any
		if err := json.Unmarshal([]byte(r.Result), &m); err != nil {
			t.Fatalf("decode result %q: %v", r.Result, err)
		}
		m["_id"] = r.ToolCallID
		out = append(out, m)
	}
	return out
}

func TestWebhookToolCalls(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	status, raw := post(t, srv, `{
		"message": {
			"type": "tool-calls",
			"call": {"id": "call-1"},
			"toolCalls": [
				{"id": "tc1", "function": {"name": "verifyIdentity", "arguments": "{\"phoneNumber\":\"555-0101\",\"lastFourDigits\":\"0101\"}"}},
				{"id": "tc2", "function": {"name": "getAccountBalance", "arguments": {"customerId": "CUST001"}}},
				{"id": "tc3", "function": {"name": "launchRocket", "arguments": {}}},
				{"id": "tc4", "function": {"name": "getAccountBalance", "arguments": "{not json"}}
			]
		}
	}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d body=%s", status, raw)
	}

	results := decodeResults(t, raw)
	if len(results) != 4 {
		t.Fatalf("len(results) = %d", len(results))
	}
	for i, id := range []string{"tc1", "tc2", "tc3", "tc4"} {
		if results[i]["_id"] != id {
			t.Fatalf("result %d id = %v, want %s", i, results[i]["_id"], id)
		}
	}
	if results[0]["verified"] != true || results[0]["customerId"] != "CUST001" {
		t.Fatalf("verify result = %v", results[0])
	}
	if results[1]["outstandingBalance"] != 185.0 || results[1]["minimumSettlementAmount"] != 129.5 {
		t.Fatalf("balance result = %v", results[1])
	}
	if results[2]["success"] != false || results[2]["error"] != "unknown_tool" {
		t.Fatalf("unknown tool result = %v", results[2])
	}
	if results[3]["error"] != "invalid_arguments" {
		t.Fatalf("malformed args result = %v", results[3])
	}
}

func TestWebhookToolCallListFallback(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	_, raw := post(t, srv, `{"message":{"type":"tool-calls","toolCallList":[
		{"id":"a","function":{"name":"checkBookingEligibility","arguments":{"customerId":"CUST005"}}}
	]}}`)
	results := decodeResults(t, raw)
	if len(results) != 1 || results[0]["requiresPrepayment"] != true {
		t.Fatalf("results = %v", results)
	}
}

func TestWebhookPaymentAndBookingFlow(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	_, raw := post(t, srv, `{"message":{"type":"tool-calls","call":{"id":"call-9"},"toolCalls":[
		{"id":"p","function":{"name":"processPayment","arguments":{"customerId":"CUST001","amount":129.5}}}
	]}}`)
	pay := decodeResults(t, raw)[0]
	if pay["bookingStatus"] != "allowed_with_prepayment" {
		t.Fatalf("payment = %v", pay)
	}

	_, raw = post(t, srv, `{"message":{"type":"tool-calls","call":{"id":"call-9"},"toolCalls":[
		{"id":"b","function":{"name":"bookAppointment","arguments":{"customerId":"CUST001","date":"2026-01-16","time":"10:00 AM","serviceId":"basic_groom"}}}
	]}}`)
	book := decodeResults(t, raw)[0]
	if book["error"] != "prepayment_required" || book["prepaymentAmount"] != 45.0 {
		t.Fatalf("booking without prepayment = %v", book)
	}

	_, raw = post(t, srv, `{"message":{"type":"tool-calls","call":{"id":"call-9"},"toolCalls":[
		{"id":"b2","function":{"name":"bookAppointment","arguments":{"customerId":"CUST001","date":"2026-01-16","time":"10:00 AM","serviceId":"basic_groom","prepaid":true}}}
	]}}`)
	book = decodeResults(t, raw)[0]
	if book["success"] != true {
		t.Fatalf("prepaid booking = %v", book)
	}

	status, _ := post(t, srv, `{"message":{"type":"end-of-call-report","call":{"id":"call-9"},"endedReason":"customer-ended-call","durationSeconds":120}}`)
	if status != http.StatusOK {
		t.Fatalf("end-of-call status = %d", status)
	}

	var stats DashboardStats
	if code := get(t, srv, "/api/stats", &stats); code != http.StatusOK {
		t.Fatalf("stats status = %d", code)
	}
	if stats.CallsToday != 1 || stats.SuccessfulCalls != 1 || stats.TotalPaymentsToday != 12950 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.TotalOutstanding != 5550+9550+32000+4500 {
		t.Fatalf("TotalOutstanding = %s", stats.TotalOutstanding)
	}

	var bookings []activityx.BookingRecord
	get(t, srv, "/api/bookings", &bookings)
	if len(bookings) != 1 || bookings[0].CustomerName != "Sarah Johnson" {
		t.Fatalf("bookings = %+v", bookings)
	}
	var payments []activityx.PaymentRecord
	get(t, srv, "/api/payments?limit=5", &payments)
	if len(payments) != 1 || payments[0].Type != activityx.PaymentSettlement {
		t.Fatalf("payments = %+v", payments)
	}
}

func TestWebhookAcknowledgesEvents(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	for _, body := range []string{
		`{"message":{"type":"status-update","status":"in-progress"}}`,
		`{"message":{"type":"transcript","role":"user","transcript":"hello"}}`,
		`{"message":{"type":"hang"}}`,
		`{}`,
	} {
		status, raw := post(t, srv, body)
		if status != http.StatusOK || strings.TrimSpace(string(raw)) != `{"success":true}` {
			t.Fatalf("%s -> %d %s", body, status, raw)
		}
	}
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	status, _ := post(t, srv, `{"message":`)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}

func TestDashboardCustomers(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	var customers []CustomerView
	if code := get(t, srv, "/api/customers", &customers); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(customers) != 5 || customers[0].Name != "Sarah Johnson" || customers[0].Status != "pending" {
		t.Fatalf("customers = %+v", customers)
	}
	if customers[4].Status != "partial" || customers[2].Status != "clear" {
		t.Fatalf("statuses = %s %s", customers[4].Status, customers[2].Status)
	}

	var one CustomerView
	if code := get(t, srv, "/api/customers/0103", &one); code != http.StatusOK || one.ID != "CUST003" {
		t.Fatalf("customer lookup = %d %+v", code, one)
	}
	if code := get(t, srv, "/api/customers/999-9999", nil); code != http.StatusNotFound {
		t.Fatalf("missing customer status = %d", code)
	}
}

func TestDashboardCatalog(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	var slots []map[string]any
	get(t, srv, "/api/slots", &slots)
	if len(slots) != 18 {
		t.Fatalf("len(slots) = %d", len(slots))
	}
	var services []map[string]any
	get(t, srv, "/api/services", &services)
	if len(services) != 4 {
		t.Fatalf("len(services) = %d", len(services))
	}

	var health map[string]string
	if code := get(t, srv, "/health", &health); code != http.StatusOK || health["status"] != "healthy" {
		t.Fatalf("health = %d %v", code, health)
	}
	var missing map[string]string
	if code := get(t, srv, "/nope", &missing); code != http.StatusNotFound || missing["error"] != "Endpoint not found" {
		t.Fatalf("404 = %d %v", code, missing)
	}
}
