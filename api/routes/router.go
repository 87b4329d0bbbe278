package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nmoralesdev/storefront-backend/api/controllers"
	"github.com/nmoralesdev/storefront-backend/api/middleware"
	authsvc "github.com/nmoralesdev/storefront-backend/internal/auth"
	"github.com/nmoralesdev/storefront-backend/internal/cart"
	"github.com/nmoralesdev/storefront-backend/internal/orders"
	products "github.com/nmoralesdev/storefront-backend/internal/products"
	"github.com/nmoralesdev/storefront-backend/internal/users"
	"github.com/nmoralesdev/storefront-backend/pkg/auth/session"
	"github.com/nmoralesdev/storefront-backend/pkg/config"
	"github.com/nmoralesdev/storefront-backend/pkg/db"
	"github.com/nmoralesdev/storefront-backend/pkg/logger"
	"github.com/nmoralesdev/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	authService authsvc.Service,
	userService users.Service,
	productService products.Service,
	cartService cart.Service,
	orderService orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/private", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Get("/ping", controllers.PrivatePing())
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Get("/ping", controllers.AdminPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.Idempotency(redisClient, logg)).Post("/register", controllers.AuthRegister(authService, logg))
		r.Post("/login", controllers.AuthLogin(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Post("/logout", controllers.AuthLogout(authService, logg))
			r.Get("/me", controllers.AuthMe(authService, logg))
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(productService, logg))
		r.Get("/featured", controllers.ListFeaturedProducts(productService, logg))
		r.Get("/{productID}", controllers.GetProduct(productService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.Idempotency(redisClient, logg))
			r.Post("/{productID}/reviews", controllers.AddProductReview(productService, userService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin", logg))
				r.Post("/", controllers.CreateProduct(productService, logg))
				r.Put("/{productID}", controllers.UpdateProduct(productService, logg))
				r.Delete("/{productID}", controllers.DeleteProduct(productService, logg))
			})
		})
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Get("/", controllers.GetCart(cartService, logg))
		r.Post("/items", controllers.AddCartItem(cartService, logg))
		r.Put("/items/{productID}", controllers.UpdateCartItem(cartService, logg))
		r.Delete("/items/{productID}", controllers.RemoveCartItem(cartService, logg))
		r.Delete("/", controllers.ClearCart(cartService, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/", controllers.Checkout(orderService, logg))
		r.Get("/mine", controllers.ListMyOrders(orderService, logg))
		r.Get("/{orderID}", controllers.GetOrder(orderService, logg))
		r.Put("/{orderID}/pay", controllers.PayOrder(orderService, logg))
		r.Post("/{orderID}/cancel", controllers.CancelOrder(orderService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Get("/", controllers.ListOrders(orderService, logg))
			r.Put("/{orderID}/status", controllers.UpdateOrderStatus(orderService, logg))
			r.Put("/{orderID}/deliver", controllers.DeliverOrder(orderService, logg))
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Get("/profile", controllers.GetProfile(userService, logg))
		r.Put("/profile", controllers.UpdateProfile(userService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Get("/", controllers.ListUsers(userService, logg))
			r.Get("/{userID}", controllers.GetUser(userService, logg))
			r.Put("/{userID}", controllers.UpdateUser(userService, logg))
			r.Delete("/{userID}", controllers.DeleteUser(userService, logg))
		})
	})

	return r
}
