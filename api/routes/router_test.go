package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrthis/hrthis-backend/internal/balance"
	"github.com/hrthis/hrthis-backend/internal/benefits"
	"github.com/hrthis/hrthis-backend/internal/coins"
	"github.com/hrthis/hrthis-backend/internal/fulfillment"
	"github.com/hrthis/hrthis-backend/internal/ledger"
	"github.com/hrthis/hrthis-backend/internal/milestones"
	"github.com/hrthis/hrthis-backend/internal/purchases"
	"github.com/hrthis/hrthis-backend/internal/rules"
	pkgAuth "github.com/hrthis/hrthis-backend/pkg/auth"
	"github.com/hrthis/hrthis-backend/pkg/config"
	"github.com/hrthis/hrthis-backend/pkg/db/dbtest"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/locks"
	"github.com/hrthis/hrthis-backend/pkg/logger"
	"github.com/hrthis/hrthis-backend/pkg/outbox"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	windows map[string]int64
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, windows: map[string]int64{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (f *fakeRedis) Ping(context.Context) error {
	return nil
}

func (f *fakeRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[scope]++
	return f.windows[scope] <= limit, f.windows[scope], nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "hrthis-test"},
		HTTP: config.HTTPConfig{
			CORSAllowedOrigins: []string{"http://localhost:3000"},
			PurchaseRateLimit:  10,
			RateLimitWindow:    time.Minute,
		},
		Eventing: config.EventingConfig{RequestIdempotencyTTL: time.Hour},
	}
}

func newTestDependencies(t *testing.T) Dependencies {
	t.Helper()
	client := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), nil)

	ledgerRepo := ledger.NewRepository(client.DB())
	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{Repo: ledgerRepo, Tx: client, Outbox: emitter})
	require.NoError(t, err)
	projector := balance.NewProjector(ledgerRepo)

	ruleSvc, err := rules.NewService(rules.ServiceParams{Repo: rules.NewRepository(client.DB()), Ledger: ledgerSvc})
	require.NoError(t, err)

	benefitRepo := benefits.NewRepository(client.DB())
	catalog, err := benefits.NewService(benefitRepo)
	require.NoError(t, err)

	purchaseRepo := purchases.NewRepository(client.DB())
	coordinator, err := purchases.NewCoordinator(purchases.CoordinatorParams{
		Tx:       client,
		Benefits: catalog,
		Balances: projector,
		Stock:    benefits.NewStockController(benefitRepo),
		Ledger:   ledgerSvc,
		Repo:     purchaseRepo,
		Outbox:   emitter,
		Locker:   locks.NewLocalLocker(time.Second),
		Logger:   logg,
	})
	require.NoError(t, err)
	history, err := purchases.NewService(purchaseRepo)
	require.NoError(t, err)

	engine, err := milestones.NewService(milestones.NewRepository(client.DB()))
	require.NoError(t, err)

	workflow, err := fulfillment.NewService(fulfillment.ServiceParams{Tx: client, Repo: purchaseRepo, Outbox: emitter, Logger: logg})
	require.NoError(t, err)

	facade, err := coins.NewService(coins.ServiceParams{
		Ledger:     ledgerSvc,
		Balances:   projector,
		Rules:      ruleSvc,
		Purchaser:  coordinator,
		Purchases:  history,
		Milestones: engine,
	})
	require.NoError(t, err)

	return Dependencies{
		DB:          client,
		Redis:       newFakeRedis(),
		Coins:       facade,
		Rules:       ruleSvc,
		Benefits:    catalog,
		Milestones:  engine,
		Purchases:   history,
		Fulfillment: workflow,
	}
}

func buildToken(t *testing.T, cfg *config.Config, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.Mint(cfg.JWT, time.Now(), time.Hour, userID, role)
	require.NoError(t, err)
	return token
}

type apiClient struct {
	t      *testing.T
	router http.Handler
	token  string
}

func (c apiClient) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, dest), string(envelope.Data))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	return envelope.Error.Code
}

func TestHealthEndpoints(t *testing.T) {
	cfg := testConfig()

	router := NewRouter(cfg, nil, Dependencies{DB: stubPinger{}})
	live := apiClient{t: t, router: router}.do(http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, live.Code)
	ready := apiClient{t: t, router: router}.do(http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, ready.Code)

	down := NewRouter(cfg, nil, Dependencies{DB: stubPinger{err: errors.New("db down")}})
	rec := apiClient{t: t, router: down}.do(http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeDependency), errorCode(t, rec))
}

func TestEmployeeRoutesRequireToken(t *testing.T) {
	router := NewRouter(testConfig(), nil, Dependencies{})
	rec := apiClient{t: t, router: router}.do(http.MethodGet, "/api/v1/coins/balance", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(cfg, nil, newTestDependencies(t))
	employee := apiClient{t: t, router: router, token: buildToken(t, cfg, uuid.New(), enums.UserRoleEmployee)}

	rec := employee.do(http.MethodGet, "/api/admin/v1/rules", "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = employee.do(http.MethodPost, "/api/admin/v1/coins/grants", `{"userId":"`+uuid.NewString()+`","amount":10,"reason":"x"}`, map[string]string{"Idempotency-Key": "k"})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGrantPurchaseAndFulfillmentFlow(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(cfg, nil, newTestDependencies(t))

	employeeID := uuid.New()
	admin := apiClient{t: t, router: router, token: buildToken(t, cfg, uuid.New(), enums.UserRoleAdmin)}
	employee := apiClient{t: t, router: router, token: buildToken(t, cfg, employeeID, enums.UserRoleEmployee)}

	grantBody := `{"userId":"` + employeeID.String() + `","amount":200,"reason":"Quarterly recognition"}`
	rec := admin.do(http.MethodPost, "/api/admin/v1/coins/grants", grantBody, map[string]string{"Idempotency-Key": "grant-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// retried grant replays the stored response without a second credit
	rec = admin.do(http.MethodPost, "/api/admin/v1/coins/grants", grantBody, map[string]string{"Idempotency-Key": "grant-1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = admin.do(http.MethodPost, "/api/admin/v1/benefits",
		`{"title":"Extra day off","description":"One paid day","coinCost":150,"category":"TIME_OFF","stockLimit":1}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var benefit benefits.BenefitDTO
	decodeData(t, rec, &benefit)
	require.NotNil(t, benefit.CurrentStock)
	assert.Equal(t, 1, *benefit.CurrentStock)

	rec = employee.do(http.MethodGet, "/api/v1/benefits?category=time_off", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []benefits.BenefitDTO
	decodeData(t, rec, &listed)
	require.Len(t, listed, 1)

	purchasePath := "/api/v1/benefits/" + benefit.ID.String() + "/purchase"
	rec = employee.do(http.MethodPost, purchasePath, "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, "purchase without Idempotency-Key")

	rec = employee.do(http.MethodPost, purchasePath, "", map[string]string{"Idempotency-Key": "buy-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var purchase purchases.PurchaseDTO
	decodeData(t, rec, &purchase)
	assert.Equal(t, enums.PurchaseStatusPending, purchase.Status)
	assert.Equal(t, int64(150), purchase.CoinCost)

	rec = employee.do(http.MethodGet, "/api/v1/coins/balance", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal balance.UserBalance
	decodeData(t, rec, &bal)
	assert.Equal(t, int64(200), bal.TotalEarned)
	assert.Equal(t, int64(150), bal.TotalSpent)
	assert.Equal(t, int64(50), bal.CurrentBalance)

	rec = employee.do(http.MethodPost, purchasePath, "", map[string]string{"Idempotency-Key": "buy-2"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeInsufficientFunds), errorCode(t, rec))

	rec = admin.do(http.MethodGet, "/api/admin/v1/purchases?status=pending", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var queue []purchases.PurchaseDTO
	decodeData(t, rec, &queue)
	require.Len(t, queue, 1)

	statusPath := "/api/admin/v1/purchases/" + purchase.ID.String() + "/status"
	rec = admin.do(http.MethodPatch, statusPath, `{"status":"DELIVERED"}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeStateConflict), errorCode(t, rec))

	rec = admin.do(http.MethodPatch, statusPath, `{"status":"APPROVED"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = admin.do(http.MethodPatch, statusPath, `{"status":"DELIVERED","notes":"  handed over  "}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var delivered purchases.PurchaseDTO
	decodeData(t, rec, &delivered)
	assert.Equal(t, enums.PurchaseStatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)
	require.NotNil(t, delivered.Notes)
	assert.Equal(t, "handed over", *delivered.Notes)

	rec = admin.do(http.MethodGet, "/api/admin/v1/coins/transactions?limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page ledger.TransactionPage
	decodeData(t, rec, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(-150), page.Items[0].Amount)
	assert.NotEmpty(t, page.NextCursor)
}

func TestMilestoneRoutes(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(cfg, nil, newTestDependencies(t))

	employeeID := uuid.New()
	admin := apiClient{t: t, router: router, token: buildToken(t, cfg, uuid.New(), enums.UserRoleAdmin)}
	employee := apiClient{t: t, router: router, token: buildToken(t, cfg, employeeID, enums.UserRoleEmployee)}

	for _, body := range []string{
		`{"title":"Bronze","description":"First steps","requiredCoins":100,"reward":"Sticker"}`,
		`{"title":"Silver","description":"Getting there","requiredCoins":250,"reward":"Mug"}`,
	} {
		rec := admin.do(http.MethodPost, "/api/admin/v1/events", body, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := admin.do(http.MethodPost, "/api/admin/v1/coins/grants",
		`{"userId":"`+employeeID.String()+`","amount":120,"reason":"Welcome"}`, map[string]string{"Idempotency-Key": "welcome"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = employee.do(http.MethodGet, "/api/v1/events/unlocked", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var unlocked []milestones.EventDTO
	decodeData(t, rec, &unlocked)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "Bronze", unlocked[0].Title)

	rec = employee.do(http.MethodGet, "/api/v1/events/next", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var next struct {
		Event    *milestones.EventDTO `json:"event"`
		Progress float64              `json:"progress"`
	}
	decodeData(t, rec, &next)
	require.NotNil(t, next.Event)
	assert.Equal(t, "Silver", next.Event.Title)
	assert.InDelta(t, 48.0, next.Progress, 0.001)

	rec = employee.do(http.MethodGet, "/api/v1/coins/summary", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary coins.WalletSummary
	decodeData(t, rec, &summary)
	assert.Equal(t, int64(120), summary.Balance.CurrentBalance)
	assert.Len(t, summary.Unlocked, 1)
}

func TestPurchaseRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.PurchaseRateLimit = 1
	router := NewRouter(cfg, nil, newTestDependencies(t))
	employee := apiClient{t: t, router: router, token: buildToken(t, cfg, uuid.New(), enums.UserRoleEmployee)}

	path := "/api/v1/benefits/" + uuid.NewString() + "/purchase"
	rec := employee.do(http.MethodPost, path, "", map[string]string{"Idempotency-Key": "a"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = employee.do(http.MethodPost, path, "", map[string]string{"Idempotency-Key": "b"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}
