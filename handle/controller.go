package handle

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"photoDetails/details"
	"photoDetails/geo"
	"photoDetails/preview"
)

// Deps are the collaborators behind the widget routes.
type Deps struct {
	Session *details.Session
	// Client is set when the browser page acts as the location provider.
	Client         *geo.ClientLocator
	Provider       string
	MaxUploadSize  int64
	PreviewSize    int
	PreviewQuality int
	Version        string
	Log            logrus.FieldLogger
}

func (d *Deps) logger() logrus.FieldLogger {
	if d.Log == nil {
		return logrus.StandardLogger()
	}
	return d.Log
}

func (d *Deps) previewOpts() (int, int) {
	size, quality := d.PreviewSize, d.PreviewQuality
	if size <= 0 {
		size = preview.DefaultMaxSize
	}
	if quality <= 0 {
		quality = preview.DefaultQuality
	}
	return size, quality
}

// InitializeRoutes The init function for all routes
func InitializeRoutes(Router *mux.Router, d *Deps) {
	Router.Use(handlers.RecoveryHandler(
		handlers.RecoveryLogger(d.logger()),
		handlers.PrintRecoveryStack(true),
	))
	Router.Handle("/api/health", health(d.Version)).Methods(http.MethodGet)
	Router.Handle("/api/record", currentRecord(d)).Methods(http.MethodGet)

	Router.Handle("/api/selections", createSelection(d)).Methods(http.MethodPost)

	selections := Router.PathPrefix("/api/selections").Subrouter()
	selections.Handle("/{id}/location", reportLocation(d)).Methods(http.MethodPost)
	selections.Handle("/{id}/preview", previewImage(d)).Methods(http.MethodGet)

	Router.PathPrefix("/").Handler(static()).Methods(http.MethodGet)
}
