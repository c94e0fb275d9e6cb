package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeCashfree serves the subset of the Cashfree order API the checkout
// uses. Orders start ACTIVE; tests move them with setStatus.
type fakeCashfree struct {
	mu      sync.Mutex
	orders  map[string]map[string]any
	refunds map[string]int
	verifys int
	server  *httptest.Server
}

func newFakeCashfree(t *testing.T) *fakeCashfree {
	t.Helper()

	f := &fakeCashfree{
		orders:  make(map[string]map[string]any),
		refunds: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /pg/orders", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body", "code": "request_invalid"})
			return
		}
		ref, _ := body["order_id"].(string)

		f.mu.Lock()
		order := map[string]any{
			"cf_order_id":        len(f.orders) + 1000,
			"order_id":           ref,
			"order_amount":       body["order_amount"],
			"order_status":       "ACTIVE",
			"payment_session_id": "session_" + ref,
		}
		f.orders[ref] = order
		f.mu.Unlock()

		writeJSON(w, http.StatusOK, order)
	})
	mux.HandleFunc("GET /pg/orders/{orderID}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.verifys++
		order, ok := f.orders[r.PathValue("orderID")]
		f.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "order not found", "code": "order_not_found"})
			return
		}
		writeJSON(w, http.StatusOK, order)
	})
	mux.HandleFunc("POST /pg/orders/{orderID}/refunds", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.refunds[r.PathValue("orderID")]++
		f.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]any{"refund_id": body["refund_id"], "refund_status": "PENDING"})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCashfree) setStatus(ref, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order, ok := f.orders[ref]; ok {
		order["order_status"] = status
	}
}

func (f *fakeCashfree) refundCount(ref string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refunds[ref]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
