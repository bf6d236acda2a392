package echoapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/services/remote"
)

type (
	Options struct {
		Address        string
		APIKey         string
		Debug          bool
		DisableReqLogs bool
		Logger         core.Logger
	}

	// Server is a stand-in for the remote attendance API.
	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
		// SetOffline makes every call fail with 503 until reset.
		SetOffline(offline bool)
		// AddAssignment registers the class an assignment id belongs to.
		AddAssignment(id, section, subject string)
	}

	server struct {
		opts    *Options
		app     *echo.Echo
		store   *store
		offline atomic.Bool
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:  opts,
		app:   echo.New(),
		store: newStore(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	if !s.opts.Debug {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", home)

	api := s.app.Group("", s.offlineMiddleware, middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup: "query:" + remote.APIKeyParam,
		Validator: func(key string, _ echo.Context) (bool, error) {
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.opts.APIKey)) != 1 {
				return false, errInvalidKey
			}
			return true, nil
		},
	}))
	registerAttendanceAPI(api, s.store, s.opts.Logger)
}

func (s *server) offlineMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if s.offline.Load() {
			return errOffline
		}
		return next(ctx)
	}
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.app.Logger.Fatal(err)
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) SetOffline(offline bool) {
	s.offline.Store(offline)
}

func (s *server) AddAssignment(id, section, subject string) {
	s.store.addAssignment(id, section, subject)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Rollcall stub API")
}
