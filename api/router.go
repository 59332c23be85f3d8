// Package api exposes the collectors, the device registry and the plot series over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/timgluz/luftspiegel/device"
	"github.com/timgluz/luftspiegel/middleware"
	"github.com/timgluz/luftspiegel/response"
	"github.com/timgluz/luftspiegel/secret"
	"github.com/timgluz/luftspiegel/snapshot"
	"github.com/timgluz/luftspiegel/task"
)

// Server holds the collaborators of the HTTP handlers.
type Server struct {
	Collector     *task.AdvertisementCollector
	Synchronizer  *task.LogSynchronizer
	SeriesBuilder *task.SeriesBuilder
	Remover       *task.DeviceRemover

	Devices   device.Repository
	Snapshots snapshot.Repository
	Secrets   secret.Store

	Logger *slog.Logger
}

func (s *Server) IsReady() bool {
	if s.Logger == nil {
		return false
	}

	switch {
	case s.Collector == nil, s.Synchronizer == nil, s.SeriesBuilder == nil, s.Remover == nil:
		s.Logger.Error("Tasks of API server are not initialized")
		return false
	case s.Devices == nil || !s.Devices.IsReady():
		s.Logger.Error("Device repository is not ready")
		return false
	case s.Snapshots == nil || !s.Snapshots.IsReady():
		s.Logger.Error("Snapshot repository is not ready")
		return false
	case s.Secrets == nil:
		s.Logger.Error("Secret store is not initialized")
		return false
	}

	return true
}

// Router returns the routes of the server. Everything but /healthz requires a bearer token.
func (s *Server) Router() *httprouter.Router {
	router := httprouter.New()
	auth := func(h httprouter.Handle) httprouter.Handle {
		return middleware.BearerAuth(h, s.Secrets)
	}

	router.GET("/healthz", s.health)

	router.POST("/advertisements", auth(s.collectAdvertisement))
	router.GET("/snapshots", auth(s.listSnapshots))

	router.GET("/devices", auth(s.listDevices))
	router.GET("/devices/:address", auth(s.getDevice))
	router.PUT("/devices/:address", auth(s.renameDevice))
	router.DELETE("/devices/:address", auth(s.deleteDevice))
	router.POST("/devices/:address/logs", auth(s.syncLog))
	router.GET("/devices/:address/sync-start", auth(s.syncStart))
	router.GET("/devices/:address/snapshot", auth(s.getSnapshot))
	router.GET("/devices/:address/series/:channel", auth(s.getSeries))

	router.NotFound = response.NewNotFoundHandler(s.Logger)
	router.MethodNotAllowed = response.NewMethodNotAllowedHandler(s.Logger)
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		s.Logger.Error("Handler panicked", "method", r.Method, "path", r.URL.Path, "panic", v)
		response.RenderFatal(w, errPanic)
	}
	return router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if !s.IsReady() {
		response.RenderError(w, errNotReady, http.StatusServiceUnavailable)
		return
	}
	response.RenderJSON(w, map[string]string{"status": "ok"})
}
