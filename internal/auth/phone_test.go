package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinxingedu/kindersync/internal/common"
)

func TestExchangeCodeForPhone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req exchangeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getPhoneNumber", req.Action)
		assert.Equal(t, "platform-code", req.Code)
		_, _ = w.Write([]byte(`{"phoneNumber":"13800000001"}`))
	}))
	t.Cleanup(srv.Close)

	phone, err := NewBroker(srv.URL).ExchangeCodeForPhone(context.Background(), "platform-code")
	require.NoError(t, err)
	assert.Equal(t, "13800000001", phone)
}

func TestExchangeCodeForPhoneErrors(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		_, err := NewBroker("").ExchangeCodeForPhone(context.Background(), "c")
		assert.ErrorIs(t, err, common.ErrorNotConfigured)
	})

	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(srv.Close)
		_, err := NewBroker(srv.URL).ExchangeCodeForPhone(context.Background(), "c")
		assert.ErrorIs(t, err, common.ErrorTransport)
	})

	t.Run("bad phone in response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"phone":"oops"}`))
		}))
		t.Cleanup(srv.Close)
		_, err := NewBroker(srv.URL).ExchangeCodeForPhone(context.Background(), "c")
		assert.ErrorIs(t, err, common.ErrorInvalidPhone)
	})

	t.Run("unreachable", func(t *testing.T) {
		_, err := NewBroker("http://127.0.0.1:1").ExchangeCodeForPhone(context.Background(), "c")
		assert.ErrorIs(t, err, common.ErrorTransport)
	})
}
