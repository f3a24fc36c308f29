// Package server exposes validation and resource lookup over HTTP.
package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/phcore/validator/pkg/metrics"
	"github.com/phcore/validator/pkg/registry"
	"github.com/phcore/validator/pkg/store"
	"github.com/phcore/validator/pkg/validator"
)

// Resources is the read side of the resource store.
type Resources interface {
	Get(kind, id string) (*store.Resource, error)
	ByKind(kind string) []*store.Resource
	Kinds() []string
}

// Profiles lists the indexed profiles.
type Profiles interface {
	Profiles() []registry.ProfileInfo
}

// Options configures a Server.
type Options struct {
	// Addr is the listen address.
	Addr string
	// BasePath prefixes the FHIR routes, e.g. /ph-core/fhir.
	BasePath string
	// PublicURL is used for Bundle fullUrls; derived from Addr when empty.
	PublicURL string
	// Version is reported in the CapabilityStatement.
	Version string
	// Metrics, when set, is served at /metrics.
	Metrics *metrics.Metrics
}

// Server is the HTTP front of the validator.
type Server struct {
	echo      *echo.Echo
	opts      Options
	resources Resources
	profiles  Profiles
	validator *validator.Validator
	log       zerolog.Logger
}

// New wires routes and middleware.
func New(opts Options, resources Resources, profiles Profiles, v *validator.Validator, log zerolog.Logger) *Server {
	if base := strings.Trim(opts.BasePath, "/"); base != "" {
		opts.BasePath = "/" + base
	} else {
		opts.BasePath = ""
	}
	if opts.PublicURL == "" {
		host := opts.Addr
		if strings.HasPrefix(host, ":") {
			host = "localhost" + host
		}
		opts.PublicURL = "http://" + host
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		opts:      opts,
		resources: resources,
		profiles:  profiles,
		validator: v,
		log:       log,
	}

	e.Use(Recovery(log))
	e.Use(RequestID())
	e.Use(Logger(log))

	e.GET("/", s.capabilities)
	e.POST("/playground/api/validate", s.playgroundValidate)
	if opts.Metrics != nil {
		e.GET("/metrics", s.metrics)
	}

	fhir := e.Group(opts.BasePath)
	fhir.GET("/metadata", s.capabilities)
	fhir.POST("/$validate", s.validate)
	fhir.GET("/profiles", s.listProfiles)
	fhir.GET("/:kind", s.search)
	fhir.GET("/:kind/:id", s.read)

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.opts.Addr).Str("base", s.opts.BasePath).Msg("server listening")
	if err := s.echo.Start(s.opts.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
