package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/dig"

	"github.com/trezcool/ebd/core"
	"github.com/trezcool/ebd/core/announcement"
	"github.com/trezcool/ebd/core/attendance"
	"github.com/trezcool/ebd/core/class"
	"github.com/trezcool/ebd/core/comment"
	"github.com/trezcool/ebd/core/dashboard"
	"github.com/trezcool/ebd/core/magazine"
	"github.com/trezcool/ebd/core/reader"
	"github.com/trezcool/ebd/core/session"
	"github.com/trezcool/ebd/core/user"
	"github.com/trezcool/ebd/storage/mirror"
)

type (
	ServerDeps struct {
		dig.In

		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		Store    *mirror.Store
		Sessions *session.Manager
		Resolver *session.Resolver
		Identity session.IdentityProvider

		UserSvc         *user.Service
		ClassSvc        *class.Service
		MagazineSvc     *magazine.Service
		AttendanceSvc   *attendance.Service
		AnnouncementSvc *announcement.Service
		CommentSvc      *comment.Service
		ReaderSvc       *reader.Service
		DashboardSvc    *dashboard.Service
	}

	Server struct {
		ServerDeps
		app       *echo.Echo
		jwtConfig middleware.JWTConfig
		hub       *hub

		shutdown chan os.Signal
		errors   chan error

		stopSync    context.CancelFunc
		unsubscribe func()
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(deps.Conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    tokenContextKey,
			Claims:        new(Claims),
		},
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	var ctx context.Context
	ctx, s.stopSync = context.WithCancel(context.Background())
	s.hub = newHub(s)
	go s.hub.run(ctx)
	s.unsubscribe = s.Store.Subscribe(s.hub.notify)

	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.Conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.SignalShutdown)
	s.app.Debug = s.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwtConfig)
	authed := []echo.MiddlewareFunc{jwt, s.sessionMiddleware}

	v1.GET("/status", s.status)
	registerSessionAPI(v1, s, authed)
	registerLibraryAPI(v1, s, authed)
	registerTeacherAPI(v1, s, authed)
	registerEditorAPI(v1, s, authed)
	registerReaderAPI(v1, s, authed)
	registerCommentAPI(v1, s, authed)
	registerMeAPI(v1, s, authed)
	registerSyncAPI(v1, s)
}

func (s *Server) Start() {
	if err := s.app.Start(s.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the process to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.stopSyncing()
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	s.stopSyncing()
	return s.app.Close()
}

func (s *Server) stopSyncing() {
	s.unsubscribe()
	s.stopSync()
	s.Sessions.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the EBD API!")
}

type StatusResponse struct {
	Banners map[string]string `json:"banners"`
}

func (s *Server) status(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, StatusResponse{Banners: s.Store.Banners()})
}
