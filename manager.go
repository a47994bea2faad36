package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"photoDetails/config"
	"photoDetails/details"
	"photoDetails/geo"
	"photoDetails/metadata"
)

const version = "0.1.0"

var (
	configPath string
	serveMode  bool
	listenAddr string
	filePath   string
	waitFor    time.Duration
	jsonOut    bool
	writeCfg   bool
)

func main() {
	flag.StringVar(&configPath, "config", "photodetails.yaml", "Path to the YAML configuration file")
	flag.BoolVar(&serveMode, "serve", false, "Run the widget HTTP server and wait for requests")
	flag.StringVar(&listenAddr, "addr", "", "Listen address for -serve, overrides the config file")
	flag.StringVar(&filePath, "file", "", "Print the details of one image file and exit")
	flag.DurationVar(&waitFor, "wait", 5*time.Second, "How long -file waits for a location fallback")
	flag.BoolVar(&jsonOut, "json", false, "Print -file output as JSON lines")
	flag.BoolVar(&writeCfg, "write-config", false, "Write the effective configuration to -config and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.Server.Addr = listenAddr
	}
	log := newLogger(cfg.Log)

	switch {
	case writeCfg:
		if err := saveConfig(os.Stdout, cfg, configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case serveMode:
		if err := StartServer(cfg, log); err != nil {
			log.WithError(err).Error("server error")
			os.Exit(1)
		}
	case filePath != "":
		if err := describeFile(os.Stdout, cfg, log, filePath, waitFor, jsonOut); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

// saveConfig writes cfg to path, refusing to overwrite an existing file.
func saveConfig(w io.Writer, cfg *config.Config, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "Wrote configuration to", path)
	return err
}

func newLogger(c config.LogConfig) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if strings.EqualFold(c.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// newLocator builds the configured location provider. The browser provider
// only exists behind the widget, so withClient is false for the CLI.
func newLocator(cfg *config.Config, log logrus.FieldLogger, withClient bool) (details.Locator, *geo.ClientLocator) {
	var (
		loc    details.Locator
		client *geo.ClientLocator
	)
	switch cfg.Location.Provider {
	case config.ProviderStatic:
		loc = geo.Static{Coordinates: details.Coordinates{Latitude: cfg.Location.Latitude, Longitude: cfg.Location.Longitude}}
	case config.ProviderHTTP:
		loc = geo.NewHTTPLocator(cfg.Location.URL)
	case config.ProviderClient:
		if !withClient {
			log.Debug("browser location provider is only available with -serve")
			break
		}
		client = geo.NewClientLocator(log)
		loc = client
	}
	return geo.WithTimeout(loc, cfg.LocationTimeout()), client
}

func newResolver(cfg *config.Config, log logrus.FieldLogger, loc details.Locator) *details.Resolver {
	tz, err := cfg.TimeZone()
	if err != nil {
		tz = time.Local
	}
	return details.NewResolver(
		metadata.NewExifExtractor(tz),
		loc,
		details.WithFormatter(details.Formatter{Layout: cfg.Display.DateLayout, Location: tz}),
		details.WithLogger(log),
	)
}
