package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/config"
)

func TestSend(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.Client(), nil).WithSettings(func() config.EmailSettings {
		return config.EmailSettings{APIKey: "re_test", BaseURL: srv.URL, From: "reports@example.com"}
	})
	err := c.Send(context.Background(), Message{To: []string{"client@example.com"}, Subject: "Your report", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, "reports@example.com", got.From)
	assert.Equal(t, []string{"client@example.com"}, got.To)
}

func TestSendNotConfigured(t *testing.T) {
	c := New(nil, nil).WithSettings(func() config.EmailSettings { return config.EmailSettings{} })
	err := c.Send(context.Background(), Message{To: []string{"a@b.c"}})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestSendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from address"}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), nil).WithSettings(func() config.EmailSettings {
		return config.EmailSettings{APIKey: "k", BaseURL: srv.URL, From: "x@example.com"}
	})
	err := c.Send(context.Background(), Message{To: []string{"a@b.c"}})
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Contains(t, err.Error(), "invalid from address")
}
