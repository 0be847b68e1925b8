// Package rest assembles the HTTP routers for the four node roles: writer,
// reader, event cache and the distributed operation router.
package rest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"appaccess-backend/interfaces/http/rest/handlers"
	"appaccess-backend/interfaces/http/rest/middleware"
	apperrors "appaccess-backend/pkg/errors"
	"appaccess-backend/pkg/observability"
)

// Options configures the shared middleware stack of a node router.
type Options struct {
	Logger  *zap.Logger
	Metrics observability.MetricSink

	// MetricsRegistry, when set, exposes /metrics from this registry.
	MetricsRegistry *prometheus.Registry

	// EnableCORS opens the API to browser front ends.
	EnableCORS bool

	// TripSwitch, when set, sheds load once the failure rate trips it.
	TripSwitch *middleware.TripSwitchConfig
}

func newBase(opts Options) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(opts.Logger))
	if opts.Metrics != nil {
		router.Use(middleware.RequestMetrics(opts.Metrics))
	}
	if opts.TripSwitch != nil {
		router.Use(middleware.TripSwitch(*opts.TripSwitch, opts.Logger))
	}

	if opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", healthCheck)
	if opts.MetricsRegistry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.MetricsRegistry, promhttp.HandlerOpts{}))
	}
	router.NotFound(unsupportedRoute)
	router.MethodNotAllowed(unsupportedRoute)

	return router
}

// NewWriterRouter builds the writer node API: the mutation surface plus the
// replication endpoints used during shard splits and merges.
func NewWriterRouter(writer *handlers.WriterHandler, replication *handlers.ReplicationHandler, opts Options) http.Handler {
	router := newBase(opts)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/users/{user}", writer.AddUser)
		r.Delete("/users/{user}", writer.RemoveUser)
		r.Post("/groups/{group}", writer.AddGroup)
		r.Delete("/groups/{group}", writer.RemoveGroup)
		r.Post("/entityTypes/{entityType}", writer.AddEntityType)
		r.Delete("/entityTypes/{entityType}", writer.RemoveEntityType)
		r.Post("/entityTypes/{entityType}/entities/{entity}", writer.AddEntity)
		r.Delete("/entityTypes/{entityType}/entities/{entity}", writer.RemoveEntity)

		r.Post("/userToGroupMappings/user/{user}/group/{group}", writer.AddUserToGroupMapping)
		r.Delete("/userToGroupMappings/user/{user}/group/{group}", writer.RemoveUserToGroupMapping)
		r.Post("/groupToGroupMappings/fromGroup/{fromGroup}/toGroup/{toGroup}", writer.AddGroupToGroupMapping)
		r.Delete("/groupToGroupMappings/fromGroup/{fromGroup}/toGroup/{toGroup}", writer.RemoveGroupToGroupMapping)

		r.Post("/userToApplicationComponentAndAccessLevelMappings/user/{user}/applicationComponent/{applicationComponent}/accessLevel/{accessLevel}", writer.AddUserToApplicationComponentAndAccessLevelMapping)
		r.Delete("/userToApplicationComponentAndAccessLevelMappings/user/{user}/applicationComponent/{applicationComponent}/accessLevel/{accessLevel}", writer.RemoveUserToApplicationComponentAndAccessLevelMapping)
		r.Post("/groupToApplicationComponentAndAccessLevelMappings/group/{group}/applicationComponent/{applicationComponent}/accessLevel/{accessLevel}", writer.AddGroupToApplicationComponentAndAccessLevelMapping)
		r.Delete("/groupToApplicationComponentAndAccessLevelMappings/group/{group}/applicationComponent/{applicationComponent}/accessLevel/{accessLevel}", writer.RemoveGroupToApplicationComponentAndAccessLevelMapping)

		r.Post("/userToEntityMappings/user/{user}/entityType/{entityType}/entity/{entity}", writer.AddUserToEntityMapping)
		r.Delete("/userToEntityMappings/user/{user}/entityType/{entityType}/entity/{entity}", writer.RemoveUserToEntityMapping)
		r.Post("/groupToEntityMappings/group/{group}/entityType/{entityType}/entity/{entity}", writer.AddGroupToEntityMapping)
		r.Delete("/groupToEntityMappings/group/{group}/entityType/{entityType}/entity/{entity}", writer.RemoveGroupToEntityMapping)

		r.Route("/replication", func(r chi.Router) {
			r.Get("/events", replication.GetEvents)
			r.Post("/events", replication.IngestEvents)
			r.Get("/status", replication.OperationsComplete)
		})
	})

	return router
}

// NewReaderRouter builds the reader node API: the full query surface.
func NewReaderRouter(reader *handlers.ReaderHandler, opts Options) http.Handler {
	router := newBase(opts)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/users", reader.GetUsers)
		r.Get("/users/{user}", reader.ContainsUser)
		r.Get("/groups", reader.GetGroups)
		r.Get("/groups/{group}", reader.ContainsGroup)
		r.Get("/entityTypes", reader.GetEntityTypes)
		r.Get("/entityTypes/{entityType}/entities", reader.GetEntities)

		r.Get("/userToGroupMappings/user/{user}", reader.GetUserToGroupMappings)
		r.Get("/userToGroupMappings/group/{group}", reader.GetGroupToUserMappings)
		r.Get("/groupToGroupMappings/group/{group}", reader.GetGroupToGroupMappings)
		r.Get("/groupToGroupReverseMappings/group/{group}", reader.GetGroupToGroupReverseMappings)

		r.Get("/userToApplicationComponentAndAccessLevelMappings/user/{user}", reader.GetUserToApplicationComponentAndAccessLevelMappings)
		r.Get("/userToApplicationComponentAndAccessLevelMappings/applicationComponent/{applicationComponent}/accessLevel/{accessLevel}", reader.GetApplicationComponentAndAccessLevelToUserMappings)
		r.Get("/groupToApplicationComponentAndAccessLevelMappings/group/{group}", reader.GetGroupToApplicationComponentAndAccessLevelMappings)
		r.Get("/groupToApplicationComponentAndAccessLevelMappings/applicationComponent/{applicationComponent}/accessLevel/{accessLevel}", reader.GetApplicationComponentAndAccessLevelToGroupMappings)

		r.Get("/userToEntityMappings/user/{user}", reader.GetUserToEntityMappings)
		r.Get("/userToEntityMappings/user/{user}/entityType/{entityType}", reader.GetUserToEntityMappingsForType)
		r.Get("/userToEntityMappings/entityType/{entityType}/entity/{entity}", reader.GetEntityToUserMappings)
		r.Get("/groupToEntityMappings/group/{group}", reader.GetGroupToEntityMappings)
		r.Get("/groupToEntityMappings/group/{group}/entityType/{entityType}", reader.GetGroupToEntityMappingsForType)
		r.Get("/groupToEntityMappings/entityType/{entityType}/entity/{entity}", reader.GetEntityToGroupMappings)

		r.Get("/dataElementAccess/applicationComponent/user/{user}/applicationComponent/{applicationComponent}/accessLevel/{accessLevel}", reader.HasAccessToApplicationComponent)
		r.Get("/dataElementAccess/entity/user/{user}/entityType/{entityType}/entity/{entity}", reader.HasAccessToEntity)

		r.Get("/applicationComponentsAccessibleByUser/{user}", reader.GetApplicationComponentsAccessibleByUser)
		r.Get("/applicationComponentsAccessibleByGroup/{group}", reader.GetApplicationComponentsAccessibleByGroup)
		r.Get("/entitiesAccessibleByUser/{user}", reader.GetEntitiesAccessibleByUser)
		r.Get("/entitiesAccessibleByUser/{user}/entityType/{entityType}", reader.GetEntitiesOfTypeAccessibleByUser)
		r.Get("/entitiesAccessibleByGroup/{group}", reader.GetEntitiesAccessibleByGroup)
	})

	return router
}

// NewCacheRouter builds the event cache node API.
func NewCacheRouter(cache *handlers.CacheHandler, opts Options) http.Handler {
	router := newBase(opts)

	router.Route("/api/v1/eventCache", func(r chi.Router) {
		r.Post("/events", cache.CacheEvents)
		r.Get("/events/{priorEventId}", cache.GetAllEventsSince)
	})

	return router
}

// NewDistributedRouter builds the cluster front-end API, which accepts the
// mutation surface and the sharded query subset and forwards each operation to
// the owning shard.
func NewDistributedRouter(d *handlers.DistributedHandler, admin *handlers.AdminHandler, opts Options) http.Handler {
	router := newBase(opts)

	router.Route("/api/v1", func(r chi.Router) {
		if admin != nil {
			r.Post("/admin/shardSplits", admin.SplitShard)
			r.Post("/admin/shardMerges", admin.MergeShards)
		}
		r.Post("/users/{user}", d.User)
		r.Delete("/users/{user}", d.User)
		r.Post("/groups/{group}", d.Group)
		r.Delete("/groups/{group}", d.Group)
		r.Post("/entityTypes/{entityType}", d.EntityType)
		r.Delete("/entityTypes/{entityType}", d.EntityType)
		r.Post("/entityTypes/{entityType}/entities/{entity}", d.Entity)
		r.Delete("/entityTypes/{entityType}/entities/{entity}", d.Entity)

		r.Post("/userToGroupMappings/user/{user}/group/{group}", d.UserToGroupMapping)
		r.Delete("/userToGroupMappings/user/{user}/group/{group}", d.UserToGroupMapping)
		r.Post("/groupToGroupMappings/fromGroup/{fromGroup}/toGroup/{toGroup}", d.GroupToGroupMapping)
		r.Delete("/groupToGroupMappings/fromGroup/{fromGroup}/toGroup/{toGroup}", d.GroupToGroupMapping)

		r.Post("/userToApplicationComponentAndAccessLevelMappings/user/{user}/applicationComponent/{applicationComponent}/accessLevel/{accessLevel}", d.UserToComponentMapping)
		r.Delete("/userToApplicationComponentAndAccessLevelMappings/user/{user}/applicationComponent/{applicationComponent}/accessLevel/{accessLevel}", d.UserToComponentMapping)
		r.Post("/groupToApplicationComponentAndAccessLevelMappings/group/{group}/applicationComponent/{applicationComponent}/accessLevel/{accessLevel}", d.GroupToComponentMapping)
		r.Delete("/groupToApplicationComponentAndAccessLevelMappings/group/{group}/applicationComponent/{applicationComponent}/accessLevel/{accessLevel}", d.GroupToComponentMapping)

		r.Post("/userToEntityMappings/user/{user}/entityType/{entityType}/entity/{entity}", d.UserToEntityMapping)
		r.Delete("/userToEntityMappings/user/{user}/entityType/{entityType}/entity/{entity}", d.UserToEntityMapping)
		r.Post("/groupToEntityMappings/group/{group}/entityType/{entityType}/entity/{entity}", d.GroupToEntityMapping)
		r.Delete("/groupToEntityMappings/group/{group}/entityType/{entityType}/entity/{entity}", d.GroupToEntityMapping)

		r.Get("/userToGroupMappings/user/{user}", d.GetUserToGroupMappings)
		r.Get("/userToGroupMappings/group/{group}", d.GetGroupToUserMappings)
		r.Get("/groupToGroupMappings/group/{group}", d.GetGroupToGroupMappings)
		r.Get("/dataElementAccess/applicationComponent/user/{user}/applicationComponent/{applicationComponent}/accessLevel/{accessLevel}", d.HasAccessToApplicationComponent)
	})

	return router
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// unsupportedRoute answers requests outside the API surface with the standard
// envelope so clients never have to parse a plain-text body.
func unsupportedRoute(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	resp := apperrors.ErrorResponse{Error: &apperrors.ErrorBody{
		Code:    "UnsupportedApiVersion",
		Message: "the requested URL or method is not part of the API",
		Target:  r.URL.Path,
	}}
	_ = json.NewEncoder(w).Encode(resp)
}
