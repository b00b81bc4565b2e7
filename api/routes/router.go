package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rdelrosario/sari-pos/api/controllers"
	poscontrollers "github.com/rdelrosario/sari-pos/api/controllers/pos"
	"github.com/rdelrosario/sari-pos/api/middleware"
	"github.com/rdelrosario/sari-pos/pkg/config"
	"github.com/rdelrosario/sari-pos/pkg/db/models"
	"github.com/rdelrosario/sari-pos/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type basketLister interface {
	ListPending(ctx context.Context) ([]models.PendingBasket, error)
}

type catalogRepo interface {
	ListVisible(ctx context.Context) ([]models.CatalogItem, error)
	ReplaceAll(ctx context.Context, items []models.CatalogItem) error
}

type remoteCatalog interface {
	Catalog(ctx context.Context) ([]models.CatalogItem, error)
}

type completedLister interface {
	ListCompleted(ctx context.Context, limit int) ([]models.PosTransaction, error)
}

// Deps carries everything the HTTP surface needs. RemoteCatalog is nil when
// the till runs without a configured remote database.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	LocalDB       pinger
	Redis         pinger
	POS           poscontrollers.Service
	Baskets       basketLister
	Catalog       catalogRepo
	RemoteCatalog remoteCatalog
	Transactions  completedLister
	Metrics       prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	logg := deps.Logger

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, logg, deps.LocalDB, deps.Redis))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.TillContext(deps.Config.App.DeviceID, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", poscontrollers.CartFetch(deps.POS, logg))
			r.Post("/items", poscontrollers.CartAddItem(deps.POS, logg))
			r.Post("/custom-lines", poscontrollers.CartAddCustomLine(deps.POS, logg))
			r.Patch("/items/{itemId}", poscontrollers.CartUpdateQuantity(deps.POS, logg))
			r.Delete("/items/{itemId}", poscontrollers.CartRemoveItem(deps.POS, logg))
			r.Delete("/", poscontrollers.CartClear(deps.POS, logg))
		})

		r.Route("/baskets", func(r chi.Router) {
			r.Get("/", poscontrollers.BasketList(deps.Baskets, logg))
			r.Post("/{basketKey}/select", poscontrollers.BasketSelect(deps.POS, logg))
		})

		r.Post("/checkout", poscontrollers.Checkout(deps.POS, logg))

		r.Route("/sync", func(r chi.Router) {
			r.Post("/", poscontrollers.SyncRun(deps.POS, logg))
			r.Get("/status", poscontrollers.SyncStatus(deps.POS, logg))
		})

		r.Get("/transactions", poscontrollers.TransactionList(deps.Transactions, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", poscontrollers.CatalogList(deps.Catalog, logg))
			r.Post("/refresh", poscontrollers.CatalogRefresh(deps.Catalog, deps.RemoteCatalog, logg))
		})
	})

	return r
}
