package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"pinpoint-server/middleware"
	"pinpoint-server/services"
	"pinpoint-server/utils/metrics"
)

// RouterConfig is what NewRouter needs to mount every route.
type RouterConfig struct {
	Workspaces     *services.WorkspaceService
	Registrar      Registrar
	PageSize       int
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter mounts the API. Workspace-scoped routes need the X-Workspace-ID
// header returned by POST /workspaces.
func NewRouter(cfg RouterConfig) http.Handler {
	workspaceHandler := NewWorkspaceHandler(cfg.Workspaces)
	mapHandler := NewMapHandler()
	markerHandler := NewMarkerHandler(cfg.PageSize)
	authHandler := NewAuthHandler(cfg.Registrar)

	r := mux.NewRouter()
	r.Use(middleware.ErrorMiddleware(cfg.Logger))
	r.Use(middleware.AccessMiddleware(cfg.Logger))

	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/workspaces", workspaceHandler.CreateWorkspace).Methods("POST")
	r.HandleFunc("/workspaces", workspaceHandler.CloseWorkspace).Methods("DELETE")
	r.HandleFunc("/auth/register", authHandler.RegisterUser).Methods("POST")

	// Workspace routes
	ws := r.PathPrefix("/").Subrouter()
	ws.Use(middleware.WorkspaceMiddleware(cfg.Workspaces))

	ws.HandleFunc("/auth/login", authHandler.LoginUser).Methods("POST")
	ws.HandleFunc("/auth/logout", authHandler.LogoutUser).Methods("POST")
	ws.HandleFunc("/auth/session", authHandler.GetSession).Methods("GET")

	ws.HandleFunc("/map", mapHandler.GetMap).Methods("GET")
	ws.HandleFunc("/viewport/panel", mapHandler.TogglePanel).Methods("PUT")
	ws.HandleFunc("/viewport/panel", mapHandler.ClosePanel).Methods("DELETE")
	ws.HandleFunc("/viewport/pan", mapHandler.Pan).Methods("POST")
	ws.HandleFunc("/location", mapHandler.ReportLocation).Methods("POST")

	ws.HandleFunc("/markers", markerHandler.GetMarkers).Methods("GET")
	ws.HandleFunc("/markers", markerHandler.CreateMarker).Methods("POST")
	ws.HandleFunc("/markers/current", markerHandler.CreateAtLocation).Methods("POST")
	ws.HandleFunc("/markers/delete", markerHandler.DeleteMarkers).Methods("POST")
	ws.HandleFunc("/markers/reload", markerHandler.Reload).Methods("POST")
	ws.HandleFunc("/markers/select-all", markerHandler.SelectAll).Methods("POST")
	ws.HandleFunc("/markers/selection", markerHandler.ClearSelection).Methods("DELETE")
	ws.HandleFunc("/markers/{id}/activate", markerHandler.Activate).Methods("POST")
	ws.HandleFunc("/markers/{id}/select", markerHandler.ToggleSelect).Methods("POST")

	// CORS wraps the router so preflight requests never need a matching route.
	return middleware.CORSMiddleware(cfg.AllowedOrigins)(r)
}
