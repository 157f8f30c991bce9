package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateCharge(t *testing.T) {
	var (
		gotPath   string
		gotAuth   string
		gotCharge ChargeRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotCharge)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"success","data":{"link":"https://checkout.example/pay/abc"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "sk_test", 5*time.Second, nil, nil)
	resp, err := c.CreateCharge(context.Background(), ChargeRequest{
		TxRef:       "tx-alice-1",
		Amount:      "1000.00",
		Currency:    "UGX",
		RedirectURL: "https://merchant.example/api/payment/verify/",
		Customer:    Customer{Name: "Alice"},
	})
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Contains(t, string(resp.Body), "checkout.example")
	assert.Equal(t, "/payments", gotPath)
	assert.Equal(t, "Bearer sk_test", gotAuth)
	assert.Equal(t, "tx-alice-1", gotCharge.TxRef)
	assert.Equal(t, "1000.00", gotCharge.Amount)
	assert.Equal(t, "Alice", gotCharge.Customer.Name)
}

func TestClient_VerifyEndpoints(t *testing.T) {
	var gotURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","message":"No transaction was found","data":null}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test", 5*time.Second, nil, nil)

	resp, err := c.VerifyByTransactionID(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "/transactions/12345/verify", gotURI)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err = c.VerifyByReference(context.Background(), "tx-a b")
	require.NoError(t, err)
	assert.Equal(t, "/transactions/verify_by_reference?tx_ref=tx-a+b", gotURI)
}

func TestClient_TransportErrorOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test", 20*time.Millisecond, nil, nil)
	_, err := c.VerifyByReference(context.Background(), "tx-1")
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "verify_by_reference", te.Op)
	assert.True(t, te.Timeout())
}

func TestClient_TransportErrorOnClosedServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, "sk_test", time.Second, nil, nil)
	_, err := c.CreateCharge(context.Background(), ChargeRequest{TxRef: "tx-1"})

	var te *TransportError
	assert.True(t, errors.As(err, &te))
}
