package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const healthPath = "/healthz"

type Option func(*Options)

type Options struct {
	port          int
	logger        *zap.Logger
	views         fiber.Views
	middleware    []fiber.Handler
	enableLogging bool
	readTimeout   time.Duration
	writeTimeout  time.Duration
	baseCtx       context.Context
}

// WithPort sets the listen port. Port 0 picks a free port.
func WithPort(port int) Option {
	return func(o *Options) {
		o.port = port
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.logger = logger
	}
}

// WithViews sets the template engine used by fiber.Ctx.Render.
func WithViews(views fiber.Views) Option {
	return func(o *Options) {
		o.views = views
	}
}

func WithMiddleware(handlers ...fiber.Handler) Option {
	return func(o *Options) {
		o.middleware = append(o.middleware, handlers...)
	}
}

func WithLogging(enabled bool) Option {
	return func(o *Options) {
		o.enableLogging = enabled
	}
}

func WithTimeouts(read, write time.Duration) Option {
	return func(o *Options) {
		o.readTimeout = read
		o.writeTimeout = write
	}
}

// WithBaseContext makes ctx the parent of every request's user context, so
// cancelling it abandons in-flight backend calls.
func WithBaseContext(ctx context.Context) Option {
	return func(o *Options) {
		o.baseCtx = ctx
	}
}

type Server struct {
	app    *fiber.App
	lis    net.Listener
	logger *zap.Logger
}

// New creates a new HTTP server using the builder options.
func New(opts ...Option) (*Server, error) {
	options := &Options{
		port:         3000,
		logger:       zap.NewNop(),
		readTimeout:  15 * time.Second,
		writeTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.port < 0 || options.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 0 and 65535", options.port)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", options.port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", options.port, err)
	}

	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http-server")

	app := fiber.New(fiber.Config{
		Views:                 options.views,
		Immutable:             true,
		UnescapePath:          true,
		DisableStartupMessage: true,
		ReadTimeout:           options.readTimeout,
		WriteTimeout:          options.writeTimeout,
		ErrorHandler:          ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: RequestIDKey,
	}))
	if options.baseCtx != nil {
		base := options.baseCtx
		app.Use(func(c *fiber.Ctx) error {
			c.SetUserContext(base)
			return c.Next()
		})
	}
	if options.enableLogging {
		app.Use(LoggingMiddleware(logger))
	}
	for _, h := range options.middleware {
		app.Use(h)
	}

	app.Get(healthPath, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	return &Server{
		app:    app,
		lis:    lis,
		logger: logger,
	}, nil
}

// RegisterRoutes allows the main application to mount its handlers.
func (s *Server) RegisterRoutes(registerFunc func(r fiber.Router)) {
	registerFunc(s.app)
}

// App exposes the underlying fiber app, mainly for in-process tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the server in a goroutine and returns immediately.
func (s *Server) Start() {
	s.logger.Info("HTTP server starting", zap.String("addr", s.lis.Addr().String()))

	go func() {
		if err := s.app.Listener(s.lis); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	s.logger.Info("HTTP server started", zap.String("addr", s.lis.Addr().String()))
}

// Shutdown gracefully shuts down the server with a timeout context.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")

	if err := s.app.ShutdownWithContext(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("forced shutdown due to timeout")
		}
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}
