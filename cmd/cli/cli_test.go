package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid email or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok-123","user":{"id":"u1","username":"asha","email":"asha@example.com","role":"customer"}}`))
	})
	mux.HandleFunc("GET /api/daycare/bookings", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		assert.Equal(t, "dog", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(`[{"_id":"b1","petName":"Rex","daycareCenter":{"name":"Happy Paws"},"totalAmount":105,"status":"pending"}]`))
	})
	mux.HandleFunc("PATCH /api/products/orders/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Order is already cancelled"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginThenListBookings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := fakeAPI(t)
	api := srv.URL + "/api"

	_, err := run(t, "--api", api, "bookings", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	out, err := run(t, "--api", api, "login", "--email", "asha@example.com", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as asha")
	assert.Equal(t, "tok-123", loadToken())

	out, err = run(t, "--api", api, "bookings", "list", "--search", "dog")
	require.NoError(t, err)
	assert.Contains(t, out, "Happy Paws")
	assert.Contains(t, out, "Rex")

	_, err = run(t, "--api", api, "logout")
	require.NoError(t, err)
	assert.Empty(t, loadToken())
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := fakeAPI(t)

	_, err := run(t, "--api", srv.URL+"/api", "login", "--email", "asha@example.com", "--password", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email or password")
	assert.Contains(t, err.Error(), "HTTP 400")
}

func TestAPIErrorListsFields(t *testing.T) {
	err := &apiError{Status: 400, Msg: "validation failed", Fields: map[string]string{"zipCode": "must be 6 digits", "cvv": "required"}}
	assert.Equal(t, "validation failed (HTTP 400)\n  cvv: required\n  zipCode: must be 6 digits", err.Error())
}

func TestCancelReportsConflict(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	srv := fakeAPI(t)
	require.NoError(t, saveToken("tok-123"))

	_, err := run(t, "--api", srv.URL+"/api", "orders", "cancel", "o1")
	require.Error(t, err)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}
