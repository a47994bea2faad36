package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"photoDetails/config"
	"photoDetails/details"
	"photoDetails/handle"
	"photoDetails/utils"
)

func newRouter(cfg *config.Config, log *logrus.Logger) (http.Handler, *details.Session, error) {
	maxUpload, err := cfg.MaxUploadBytes()
	if err != nil {
		return nil, nil, err
	}
	locator, client := newLocator(cfg, log, true)
	session := details.NewSession(newResolver(cfg, log, locator), log)

	r := mux.NewRouter()
	handle.InitializeRoutes(r, &handle.Deps{
		Session:        session,
		Client:         client,
		Provider:       cfg.Location.Provider,
		MaxUploadSize:  maxUpload,
		PreviewSize:    cfg.Preview.MaxSize,
		PreviewQuality: cfg.Preview.Quality,
		Version:        version,
		Log:            log,
	})

	cors := handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type", "Accept"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedOrigins(cfg.Server.AllowedOrigins),
	)
	return cors(r), session, nil
}

func StartServer(cfg *config.Config, log *logrus.Logger) error {
	h, session, err := newRouter(cfg, log)
	if err != nil {
		return err
	}
	defer session.Close()

	access := log.WriterLevel(logrus.DebugLevel)
	defer access.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handlers.CombinedLoggingHandler(access, h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		log.WithFields(logrus.Fields{
			"addr":             srv.Addr,
			"locationProvider": cfg.Location.Provider,
		}).Info("Serving widget")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan struct{})
	go utils.Quit("photoDetails server", log, func() { close(stop) })

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
