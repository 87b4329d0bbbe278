package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	authsvc "github.com/nmoralesdev/storefront-backend/internal/auth"
	"github.com/nmoralesdev/storefront-backend/internal/cart"
	"github.com/nmoralesdev/storefront-backend/internal/orders"
	products "github.com/nmoralesdev/storefront-backend/internal/products"
	"github.com/nmoralesdev/storefront-backend/internal/users"
	pkgAuth "github.com/nmoralesdev/storefront-backend/pkg/auth"
	"github.com/nmoralesdev/storefront-backend/pkg/auth/session"
	"github.com/nmoralesdev/storefront-backend/pkg/config"
	"github.com/nmoralesdev/storefront-backend/pkg/enums"
	"github.com/nmoralesdev/storefront-backend/pkg/logger"
	"github.com/nmoralesdev/storefront-backend/pkg/pagination"
	"github.com/nmoralesdev/storefront-backend/pkg/redis"
	"github.com/nmoralesdev/storefront-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(context.Context, string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Register(context.Context, authsvc.RegisterInput) (*authsvc.AuthResult, error) {
	panic("unimplemented")
}

func (stubAuthService) Login(context.Context, authsvc.LoginInput) (*authsvc.AuthResult, error) {
	panic("unimplemented")
}

func (stubAuthService) Logout(context.Context, string) error {
	return nil
}

func (stubAuthService) Me(context.Context, uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}

type stubUserService struct{}

func (stubUserService) GetProfile(context.Context, uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}

func (stubUserService) UpdateProfile(context.Context, uuid.UUID, users.UpdateProfileInput) (*users.UserDTO, error) {
	panic("unimplemented")
}

func (stubUserService) ListUsers(context.Context, pagination.Params) (*users.UserListResult, error) {
	return &users.UserListResult{}, nil
}

func (stubUserService) GetUser(context.Context, uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}

func (stubUserService) UpdateUser(context.Context, uuid.UUID, users.AdminUpdateInput) (*users.UserDTO, error) {
	panic("unimplemented")
}

func (stubUserService) DeleteUser(context.Context, uuid.UUID) error {
	panic("unimplemented")
}

type stubProductService struct{}

func (stubProductService) ListProducts(context.Context, products.ListFilter, pagination.Params) (*products.ProductListResult, error) {
	return &products.ProductListResult{}, nil
}

func (stubProductService) ListFeatured(context.Context) ([]products.ProductDTO, error) {
	return nil, nil
}

func (stubProductService) GetProduct(context.Context, uuid.UUID) (*products.ProductDTO, error) {
	return &products.ProductDTO{}, nil
}

func (stubProductService) CreateProduct(context.Context, products.CreateProductInput) (*products.ProductDTO, error) {
	panic("unimplemented")
}

func (stubProductService) UpdateProduct(context.Context, uuid.UUID, products.UpdateProductInput) (*products.ProductDTO, error) {
	panic("unimplemented")
}

func (stubProductService) DeleteProduct(context.Context, uuid.UUID) error {
	panic("unimplemented")
}

func (stubProductService) AddReview(context.Context, uuid.UUID, products.ReviewInput) (*products.ProductDTO, error) {
	panic("unimplemented")
}

type stubCartService struct{}

func (stubCartService) GetCart(context.Context, uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (stubCartService) AddItem(context.Context, uuid.UUID, uuid.UUID, int) (*cart.CartDTO, error) {
	panic("unimplemented")
}

func (stubCartService) UpdateItem(context.Context, uuid.UUID, uuid.UUID, int) (*cart.CartDTO, error) {
	panic("unimplemented")
}

func (stubCartService) RemoveItem(context.Context, uuid.UUID, uuid.UUID) (*cart.CartDTO, error) {
	panic("unimplemented")
}

func (stubCartService) ClearCart(context.Context, uuid.UUID) error {
	panic("unimplemented")
}

type stubOrderService struct{}

func (stubOrderService) Checkout(context.Context, orders.Actor, orders.CheckoutInput) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (stubOrderService) GetOrder(context.Context, orders.Actor, uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrderService) ListMyOrders(context.Context, uuid.UUID, pagination.Params) (*orders.OrderListResult, error) {
	return &orders.OrderListResult{}, nil
}

func (stubOrderService) ListOrders(context.Context, orders.ListFilter, pagination.Params) (*orders.OrderListResult, error) {
	return &orders.OrderListResult{}, nil
}

func (stubOrderService) MarkPaid(context.Context, orders.Actor, uuid.UUID, types.PaymentResult) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (stubOrderService) UpdateStatus(context.Context, orders.Actor, uuid.UUID, orders.UpdateStatusInput) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{Secret: "router-test-secret", Issuer: "storefront-test", ExpirationMinutes: 30}
	cfg.CORS.AllowedOrigins = []string{"*"}
	return cfg
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubSessionChecker{},
		stubAuthService{},
		stubUserService{},
		stubProductService{},
		stubCartService{},
		stubOrderService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "router@example.com",
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestPublicPing(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/private/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/private/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for private ping got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestCatalogIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public catalog got %d", resp.Code)
	}
}

func TestAdminCatalogMutationsRequireAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer delete got %d", resp.Code)
	}
}

func TestCartRequiresAuth(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestOrdersListIsAdminOnly(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	mine := httptest.NewRequest(http.MethodGet, "/api/v1/orders/mine", nil)
	mine.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, mine)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for own orders got %d", resp.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(testConfig())

	live := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, live)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}
