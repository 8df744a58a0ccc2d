package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/featureflags"
	"github.com/pawfam/backend/internal/infrastructure/redis"
	"github.com/pawfam/backend/internal/repository"
	"github.com/pawfam/backend/internal/security/auth"
	"github.com/pawfam/backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	auth    *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	kv := redis.NewMemoryStore()

	authSvc := service.NewAuthService(
		repository.NewMemoryUserRepository(),
		auth.NewTokenManager("handler-secret", "pawfam", time.Hour),
		kv, nil,
		service.AuthConfig{BcryptCost: bcrypt.MinCost},
		nil, log,
	)
	deps := service.Deps{
		Flags:  featureflags.Static(nil),
		Idem:   service.NewIdempotency(kv, time.Hour, log),
		Logger: log,
	}

	h := NewRouter(RouterConfig{
		Auth:          NewAuthHandler(authSvc, log),
		Daycare:       NewDaycareHandler(service.NewDaycareService(repository.NewMemoryDaycareRepository(), deps), log),
		Orders:        NewOrderHandler(service.NewOrderService(repository.NewMemoryOrderRepository(), deps), log),
		Adoption:      NewAdoptionHandler(service.NewAdoptionService(repository.NewMemoryAdoptionRepository(), deps), log),
		Health:        NewHealthHandler(map[string]Checker{"kv": kv}, log),
		Authenticator: authSvc,
		Logger:        log,
	})
	return &testServer{t: t, handler: h, auth: authSvc}
}

type call struct {
	method  string
	path    string
	token   string
	body    any
	headers map[string]string
}

func (s *testServer) do(c call) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) register(name string, vendor bool) string {
	s.t.Helper()
	path := "/api/auth/register"
	if vendor {
		path = "/api/auth/vendor/register"
	}
	rec := s.do(call{method: http.MethodPost, path: path, body: map[string]string{
		"username": name, "email": name + "@example.com", "password": "secret1",
	}})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[AuthResponse](s.t, rec).Token
}

func bookingBody(price float64) map[string]any {
	return map[string]any{
		"daycareCenter": map[string]any{"name": "Happy Paws", "location": "Pune", "pricePerDay": price},
		"petName":       "Rex",
		"petType":       "dog",
		"petAge":        "3",
		"email":         "owner@example.com",
		"mobileNumber":  "9876543210",
		"startDate":     "2025-01-01",
		"endDate":       "2025-01-04",
		"totalAmount":   1,
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register("alice", false)

	rec := s.do(call{method: http.MethodPost, path: "/api/auth/register", body: map[string]string{
		"username": "alice2", "email": "ALICE@example.com", "password": "secret1",
	}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"email": "alice@example.com", "password": "wrong1",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid email or password", decode[ErrorResponse](t, rec).Error)

	rec = s.do(call{method: http.MethodGet, path: "/api/auth/me", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]UserResponse](t, rec)["user"]
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "customer", me.Role)

	rec = s.do(call{method: http.MethodGet, path: "/api/auth/me"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidationFields(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(call{method: http.MethodPost, path: "/api/auth/register", body: map[string]string{"email": "bad"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "validation failed", resp.Error)
	assert.Contains(t, resp.Fields, "username")
	assert.Contains(t, resp.Fields, "email")
	assert.Contains(t, resp.Fields, "password")
}

func TestMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{nope"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingCreateCancelCancel(t *testing.T) {
	s := newTestServer(t)
	token := s.register("owner", false)

	rec := s.do(call{method: http.MethodPost, path: "/api/daycare/bookings", token: token, body: bookingBody(35)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[bookingEnvelope](t, rec).Booking
	assert.Equal(t, "105", created.TotalAmount.String())
	assert.Equal(t, "pending", created.Status)

	path := "/api/daycare/bookings/" + created.ID + "/cancel"
	rec = s.do(call{method: http.MethodPatch, path: path, token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode[bookingEnvelope](t, rec).Booking.Status)

	rec = s.do(call{method: http.MethodPatch, path: path, token: token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "already cancelled")

	rec = s.do(call{method: http.MethodDelete, path: "/api/daycare/bookings/" + created.ID, token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deletedBooking")
}

func TestBookingsAreOwnerScoped(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice", false)
	bob := s.register("bobby", false)

	rec := s.do(call{method: http.MethodPost, path: "/api/daycare/bookings", token: alice, body: bookingBody(35)})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[bookingEnvelope](t, rec).Booking.ID

	rec = s.do(call{method: http.MethodGet, path: "/api/daycare/bookings/" + id, token: bob})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: "/api/daycare/bookings/not-an-id", token: alice})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: "/api/daycare/bookings", token: bob})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]BookingResponse](t, rec))
}

func TestBookingListSearchAndSort(t *testing.T) {
	s := newTestServer(t)
	token := s.register("owner", false)
	for _, price := range []float64{300, 100, 200} {
		body := bookingBody(price)
		body["endDate"] = "2025-01-02"
		rec := s.do(call{method: http.MethodPost, path: "/api/daycare/bookings", token: token, body: body})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := s.do(call{method: http.MethodGet, path: "/api/daycare/bookings?sort=totalAmount-asc", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]BookingResponse](t, rec)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"100", "200", "300"}, []string{
		list[0].TotalAmount.String(), list[1].TotalAmount.String(), list[2].TotalAmount.String(),
	})

	rec = s.do(call{method: http.MethodGet, path: "/api/daycare/bookings?search=DOG", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]BookingResponse](t, rec), 3)

	rec = s.do(call{method: http.MethodGet, path: "/api/daycare/bookings?search=cat", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]BookingResponse](t, rec))

	rec = s.do(call{method: http.MethodGet, path: "/api/daycare/bookings?sort=petName-asc", token: token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Fields, "sort")
}

func TestStatusUpdateRequiresVendor(t *testing.T) {
	s := newTestServer(t)
	customer := s.register("owner", false)
	vendor := s.register("shop", true)

	rec := s.do(call{method: http.MethodPost, path: "/api/daycare/bookings", token: customer, body: bookingBody(35)})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[bookingEnvelope](t, rec).Booking.ID
	path := "/api/daycare/bookings/" + id + "/status"

	rec = s.do(call{method: http.MethodPatch, path: path, token: customer, body: StatusRequest{Status: "confirmed"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(call{method: http.MethodPatch, path: path, token: vendor, body: StatusRequest{Status: "bogus"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(call{method: http.MethodPatch, path: path, token: vendor, body: StatusRequest{Status: "confirmed"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode[bookingEnvelope](t, rec).Booking.Status)
}

func orderBody() map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{"productId": "p1", "name": "Chew Toy", "price": 45.99, "quantity": 1},
			{"productId": "p2", "name": "Dog Collar", "price": "15.99", "quantity": 2},
		},
		"shippingAddress": map[string]any{
			"fullName": "Asha Rao", "email": "asha@example.com", "address": "12 MG Road",
			"city": "Pune", "state": "Maharashtra", "zipCode": "411001",
		},
		"paymentInfo": map[string]any{"cardNumber": "4111111111111111", "expiryDate": "12/27", "cvv": "123"},
		"totalAmount": 0.01,
	}
}

func TestOrderCreateIdempotentAndMasked(t *testing.T) {
	s := newTestServer(t)
	token := s.register("buyer", false)
	key := map[string]string{IdempotencyKeyHeader: "checkout-1"}

	rec := s.do(call{method: http.MethodPost, path: "/api/products/orders", token: token, body: orderBody(), headers: key})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[orderEnvelope](t, rec).Order
	assert.Equal(t, "77.97", first.TotalAmount.String())
	assert.Equal(t, "1111", first.PaymentInfo.CardLast4)
	assert.NotContains(t, rec.Body.String(), "4111111111111111")
	assert.NotContains(t, rec.Body.String(), "cvv")

	rec = s.do(call{method: http.MethodPost, path: "/api/products/orders", token: token, body: orderBody(), headers: key})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(ReplayedHeader))
	assert.Equal(t, first.ID, decode[orderEnvelope](t, rec).Order.ID)

	rec = s.do(call{method: http.MethodGet, path: "/api/products/orders", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]OrderResponse](t, rec), 1)
}

func TestOrderAddressAndCancel(t *testing.T) {
	s := newTestServer(t)
	token := s.register("buyer", false)
	rec := s.do(call{method: http.MethodPost, path: "/api/products/orders", token: token, body: orderBody()})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[orderEnvelope](t, rec).Order.ID

	addr := orderBody()["shippingAddress"].(map[string]any)
	addr["zipCode"] = "12"
	rec = s.do(call{method: http.MethodPut, path: "/api/products/orders/" + id + "/address", token: token, body: addr})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Fields, "zipCode")

	rec = s.do(call{method: http.MethodPatch, path: "/api/products/orders/" + id + "/cancel", token: token})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(call{method: http.MethodDelete, path: "/api/products/orders/" + id, token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deletedOrder")
}

func TestAdoptionRevoke(t *testing.T) {
	s := newTestServer(t)
	token := s.register("adopter", false)
	body := map[string]any{
		"pet":            map[string]any{"id": "pet-1", "name": "Luna", "type": "cat"},
		"personalInfo":   map[string]any{"fullName": "Asha Rao", "email": "asha@example.com", "phone": "9876543210", "address": "12 MG Road"},
		"experience":     map[string]any{"level": "first-time"},
		"visitSchedule":  map[string]any{"date": "2025-03-10", "time": "10:00"},
		"adoptionReason": "Room to run",
	}
	rec := s.do(call{method: http.MethodPost, path: "/api/adoption/applications", token: token, body: body})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	app := decode[applicationEnvelope](t, rec).Application
	assert.Equal(t, "Luna", app.Pet.Name)

	rec = s.do(call{method: http.MethodPatch, path: "/api/adoption/applications/" + app.ID + "/revoke", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "withdrawn", decode[applicationEnvelope](t, rec).Application.Status)

	rec = s.do(call{method: http.MethodGet, path: "/api/adoption/applications?sort=totalAmount-asc", token: token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: "/readyz"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[ReadinessResponse](t, rec).Checks["kv"])

	rec = s.do(call{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pawfam_")
}

func TestReadyReportsFailingDependency(t *testing.T) {
	h := NewHealthHandler(map[string]Checker{
		"mongo": CheckerFunc(func(context.Context) error { return errors.New("down") }),
		"kv":    CheckerFunc(func(context.Context) error { return nil }),
	}, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[ReadinessResponse](t, rec)
	assert.Equal(t, "unavailable", resp.Checks["mongo"])
	assert.Equal(t, "ok", resp.Checks["kv"])
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.FieldError("x", "bad"), http.StatusBadRequest},
		{domain.ErrInvalidCredentials, http.StatusBadRequest},
		{fmt.Errorf("%w: nope", domain.ErrInvalidState), http.StatusBadRequest},
		{&domain.StaleStatusError{Current: "shipped"}, http.StatusBadRequest},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("booking %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), slog.New(slog.DiscardHandler), errors.New("mongo: secret detail"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode[ErrorResponse](t, rec).Error)
}
