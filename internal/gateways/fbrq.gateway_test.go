package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSend(t *testing.T) {
	var got struct {
		method string
		path   string
		auth   string
		body   Message
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got.body))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"code":0,"message":"OK"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL + "/v1/send", Token: "secret", Timeout: time.Second})
	code, body := client.Send(context.Background(), Message{ID: 42, Phone: 79251234567, Text: "hello"})

	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "OK")
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/v1/send/42", got.path)
	assert.Equal(t, "Bearer secret", got.auth)
	assert.Equal(t, int64(42), got.body.ID)
	assert.Equal(t, int64(79251234567), got.body.Phone)
	assert.Equal(t, "hello", got.body.Text)
}

func TestClientSendGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second})
	code, _ := client.Send(context.Background(), Message{ID: 1, Phone: 79251234567, Text: "x"})
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestClientSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second})
	code, body := client.Send(context.Background(), Message{ID: 1, Phone: 79251234567, Text: "x"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.NotEmpty(t, body)
}
