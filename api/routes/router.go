package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meshbazaar/marketplace-backend/api/controllers"
	ordercontrollers "github.com/meshbazaar/marketplace-backend/api/controllers/orders"
	paymentcontrollers "github.com/meshbazaar/marketplace-backend/api/controllers/payments"
	walletcontrollers "github.com/meshbazaar/marketplace-backend/api/controllers/wallet"
	"github.com/meshbazaar/marketplace-backend/api/middleware"
	"github.com/meshbazaar/marketplace-backend/internal/orders"
	"github.com/meshbazaar/marketplace-backend/internal/payments"
	"github.com/meshbazaar/marketplace-backend/internal/wallet"
	"github.com/meshbazaar/marketplace-backend/internal/withdrawals"
	"github.com/meshbazaar/marketplace-backend/pkg/config"
	"github.com/meshbazaar/marketplace-backend/pkg/enums"
	"github.com/meshbazaar/marketplace-backend/pkg/logger"
	pkgredis "github.com/meshbazaar/marketplace-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       *pkgredis.Client
	Registry    *prometheus.Registry
	Orders      orders.Service
	Payments    payments.Service
	Wallet      wallet.Service
	Withdrawals withdrawals.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	var idempotencyStore pkgredis.IdempotencyStore
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Put("/{orderId}", ordercontrollers.UpdateStatus(deps.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.MemberRoleAdmin)).
				Post("/{orderId}/delivered", ordercontrollers.Delivered(deps.Orders, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/create-order", paymentcontrollers.CreateOrder(deps.Payments, logg))
			r.Patch("/verify", paymentcontrollers.Verify(deps.Payments, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.MemberRoleSeller, enums.MemberRoleAdmin)).
				Get("/", walletcontrollers.Overview(deps.Wallet, logg))
			r.With(middleware.RequireRole(logg, enums.MemberRoleSeller)).
				Post("/withdrawals", walletcontrollers.RequestWithdrawal(deps.Withdrawals, logg))
			r.With(middleware.RequireRole(logg, enums.MemberRoleAdmin)).
				Post("/withdrawals/{withdrawalId}/resolve", walletcontrollers.ResolveWithdrawal(deps.Withdrawals, logg))
		})
	})

	return r
}
