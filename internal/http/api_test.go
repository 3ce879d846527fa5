package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyverse/internal/domain"
	"storyverse/internal/payment"
	"storyverse/internal/repository/sqlite"
	"storyverse/internal/service"
)

const (
	testJWTSecret = "test-jwt-secret-0123456789"
	testKeySecret = "test-key-secret"
)

type testServer struct {
	router  *gin.Engine
	store   *sqlite.Store
	sandbox *payment.Sandbox
}

func newTestServer(t *testing.T, authority payment.Authority) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := sqlite.NewStore(context.Background(), db)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sb := payment.NewSandbox(testKeySecret, "INR")
	if authority == nil {
		authority = sb
	}

	h := NewHandler(Services{
		Users: service.NewUserService(store.Users),
		Entitlements: service.NewEntitlementService(store.Users, store.Books, store.Orders, authority,
			service.EntitlementOptions{AuthorityTimeout: 50 * time.Millisecond, Logger: logger}),
		Catalog:  service.NewCatalogService(store.Users, store.Books, store.Progress, nil, logger),
		Progress: service.NewProgressService(store.Users, store.Progress),
		Contact:  service.NewContactService(store.Messages),
	}, Options{
		JWTSecret: []byte(testJWTSecret),
		TokenTTL:  time.Hour,
		Logger:    logger,
	})

	router := gin.New()
	h.RegisterRoutes(router)
	return &testServer{router: router, store: store, sandbox: sb}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

// signup registers and logs in, returning the user id and bearer token.
func (s *testServer) signup(t *testing.T, email string) (string, string) {
	t.Helper()
	code, _ := s.do(t, http.MethodPost, "/register", "", gin.H{"name": "Reader", "email": email, "password": "long-enough-pw"})
	require.Equal(t, http.StatusCreated, code)

	code, body := s.do(t, http.MethodPost, "/login", "", gin.H{"email": email, "password": "long-enough-pw"})
	require.Equal(t, http.StatusOK, code)
	user := body["user"].(map[string]any)
	return user["id"].(string), body["token"].(string)
}

func (s *testServer) book(t *testing.T, id string, premium bool) {
	t.Helper()
	price := int64(29900)
	if premium {
		price = 99900
	}
	require.NoError(t, s.store.Books.Create(context.Background(), &domain.Book{
		ID: id, Title: "Title " + id, Author: "Mina Cole", Content: "It was a dark night.", Price: price, IsPremium: premium,
	}))
}

// checkout creates an order over the API and pays it in the sandbox.
func (s *testServer) checkout(t *testing.T, token string, amount int64) payment.Receipt {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/create-order", token, gin.H{"amount": amount})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "INR", body["currency"])
	assert.EqualValues(t, amount, body["amount"])
	return s.sandbox.Pay(body["id"].(string))
}

func receiptBody(r payment.Receipt, extra gin.H) gin.H {
	body := gin.H{
		"razorpay_order_id":   r.OrderID,
		"razorpay_payment_id": r.PaymentID,
		"razorpay_signature":  r.Signature,
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storyverse_http_requests_total")
}

func TestMembershipFlowOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	s.book(t, "premium-1", true)
	userID, token := s.signup(t, "reader@example.com")

	code, body := s.do(t, http.MethodGet, "/get-book/premium-1", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "locked_join_membership", body["decision"].(map[string]any)["kind"])

	code, body = s.do(t, http.MethodPost, "/claim-premium", token, gin.H{"userId": userID, "bookId": "premium-1"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Not a member", body["message"])

	receipt := s.checkout(t, token, domain.PlanScholar.Price())

	tampered := receipt
	tampered.Signature = "0" + receipt.Signature[1:]
	if tampered.Signature == receipt.Signature {
		tampered.Signature = "1" + receipt.Signature[1:]
	}
	code, body = s.do(t, http.MethodPost, "/verify-membership", token, receiptBody(tampered, gin.H{"userId": userID, "planType": "Scholar"}))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid Signature", body["message"])

	code, body = s.do(t, http.MethodPost, "/verify-membership", token, receiptBody(receipt, gin.H{"userId": userID, "planType": "Scholar"}))
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "ok", body["status"])

	code, body = s.do(t, http.MethodGet, "/get-book/premium-1", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "claim_free", body["decision"].(map[string]any)["kind"])

	for i := 0; i < 2; i++ {
		code, _ = s.do(t, http.MethodPost, "/claim-premium", token, gin.H{"userId": userID, "bookId": "premium-1"})
		require.Equal(t, http.StatusOK, code)
	}

	code, body = s.do(t, http.MethodGet, "/get-user/"+userID, token, nil)
	require.Equal(t, http.StatusOK, code)
	user := body["user"].(map[string]any)
	assert.Equal(t, true, user["isMember"])
	assert.Equal(t, "Scholar", user["planType"])
	assert.Equal(t, []any{"premium-1"}, user["purchasedBooks"])

	code, body = s.do(t, http.MethodGet, "/get-book/premium-1", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "read", body["decision"].(map[string]any)["kind"])
}

func TestPurchaseReadRateOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	s.book(t, "book-1", false)
	userID, token := s.signup(t, "buyer@example.com")

	code, body := s.do(t, http.MethodGet, "/read/book-1", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "error", body["status"])

	receipt := s.checkout(t, token, 29900)
	code, body = s.do(t, http.MethodPost, "/record-purchase", token, receiptBody(receipt, gin.H{"userId": userID, "bookId": "book-1"}))
	require.Equal(t, http.StatusOK, code, body)

	code, body = s.do(t, http.MethodGet, "/read/book-1", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "It was a dark night.", body["content"])

	code, body = s.do(t, http.MethodGet, "/progress", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"book-1": "Reading"}, body["progress"])

	code, body = s.do(t, http.MethodPut, "/update-book/book-1", token, gin.H{"rating": 5})
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 5, body["book"].(map[string]any)["rating"])
	assert.EqualValues(t, 1, body["book"].(map[string]any)["reads"])

	code, _ = s.do(t, http.MethodPut, "/update-book/book-1", token, gin.H{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPut, "/progress/book-1", token, gin.H{"status": "Reading"})
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodPut, "/progress/book-1", token, gin.H{"status": "Skimmed"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodGet, "/my-collection/"+userID, token, nil)
	require.Equal(t, http.StatusOK, code)
	books := body["books"].([]any)
	require.Len(t, books, 1)
	assert.Equal(t, "book-1", books[0].(map[string]any)["id"])
}

func TestRecordPurchaseRequiresVerifiedReceipt(t *testing.T) {
	s := newTestServer(t, nil)
	s.book(t, "book-1", false)
	userID, token := s.signup(t, "buyer@example.com")

	forged := payment.Receipt{OrderID: "order_x", PaymentID: "pay_x", Signature: payment.Sign("guess", "order_x", "pay_x")}
	code, body := s.do(t, http.MethodPost, "/record-purchase", token, receiptBody(forged, gin.H{"userId": userID, "bookId": "book-1"}))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Payment could not be verified", body["message"])

	code, _ = s.do(t, http.MethodPost, "/record-purchase", token, gin.H{"userId": userID, "bookId": "book-1"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t, nil)
	s.book(t, "book-1", false)
	aliceID, aliceToken := s.signup(t, "alice@example.com")
	_, bobToken := s.signup(t, "bob@example.com")

	code, _ := s.do(t, http.MethodPost, "/claim-premium", "", gin.H{"userId": aliceID, "bookId": "book-1"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPost, "/claim-premium", "not-a-jwt", gin.H{"userId": aliceID, "bookId": "book-1"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPost, "/claim-premium", bobToken, gin.H{"userId": aliceID, "bookId": "book-1"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/get-user/"+aliceID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/get-user/"+aliceID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, body := s.do(t, http.MethodGet, "/get-book/book-1", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Nil(t, body["decision"])
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t, nil)
	userID, token := s.signup(t, "v@example.com")

	cases := []struct {
		path string
		body gin.H
	}{
		{"/create-order", gin.H{"amount": 0}},
		{"/create-order", gin.H{"amount": -5}},
		{"/verify-membership", gin.H{"userId": userID, "planType": "Novice", "razorpay_order_id": "o", "razorpay_payment_id": "p", "razorpay_signature": "s"}},
		{"/verify-membership", gin.H{"userId": userID, "planType": "Scholar"}},
		{"/claim-premium", gin.H{"userId": userID}},
	}
	for _, tc := range cases {
		code, body := s.do(t, http.MethodPost, tc.path, token, tc.body)
		assert.Equal(t, http.StatusBadRequest, code, tc.path)
		assert.Equal(t, "error", body["status"], tc.path)
	}

	code, _ := s.do(t, http.MethodPost, "/register", "", gin.H{"name": "x", "email": "v@example.com", "password": "long-enough-pw"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodPost, "/login", "", gin.H{"email": "v@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

type stalledAuthority struct{ payment.Authority }

func (stalledAuthority) CreateOrder(ctx context.Context, _ int64) (payment.OrderHandle, error) {
	<-ctx.Done()
	return payment.OrderHandle{}, payment.ErrTimeout
}

type brokenAuthority struct{ payment.Authority }

func (brokenAuthority) CreateOrder(context.Context, int64) (payment.OrderHandle, error) {
	return payment.OrderHandle{}, payment.ErrUnavailable
}

func TestCreateOrderUpstreamFailures(t *testing.T) {
	s := newTestServer(t, stalledAuthority{})
	_, token := s.signup(t, "t@example.com")
	code, body := s.do(t, http.MethodPost, "/create-order", token, gin.H{"amount": 100})
	assert.Equal(t, http.StatusGatewayTimeout, code)
	assert.Equal(t, "error", body["status"])

	s = newTestServer(t, brokenAuthority{})
	_, token = s.signup(t, "b@example.com")
	code, _ = s.do(t, http.MethodPost, "/create-order", token, gin.H{"amount": 100})
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestContactAndProfile(t *testing.T) {
	s := newTestServer(t, nil)
	userID, token := s.signup(t, "p@example.com")

	code, body := s.do(t, http.MethodPost, "/contact", "", gin.H{"name": "P", "email": "p@example.com", "message": "Hello"})
	assert.Equal(t, http.StatusCreated, code)
	assert.NotEmpty(t, body["id"])

	code, _ = s.do(t, http.MethodPost, "/contact", "", gin.H{"name": "P", "email": "nope", "message": "Hello"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodPut, "/update-user/"+userID, token, gin.H{"name": "Pat", "email": "pat@example.com"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Pat", body["user"].(map[string]any)["name"])

	code, _ = s.do(t, http.MethodPost, "/login", "", gin.H{"email": "pat@example.com", "password": "long-enough-pw"})
	assert.Equal(t, http.StatusOK, code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(corsMiddleware([]string{"https://storyverse.app"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://storyverse.app")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://storyverse.app", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
