package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"taskmate/config"
	"taskmate/controller"
	"taskmate/controller/assignment"
	"taskmate/controller/calendar"
	"taskmate/controller/user"
	"taskmate/middleware"
	"taskmate/services"
	"taskmate/store"
	"taskmate/store/firestorestore"
	"taskmate/store/memstore"
)

// Backend is the storage and identity wiring selected by the config.
type Backend struct {
	Assignments store.Assignments
	Users       store.Users
	Verifier    middleware.Verifier
	Memory      *memstore.Store
	close       func() error
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend connects to Firestore, or builds an in-memory store when
// MEMORY_STORE is set.
func OpenBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Backend, error) {
	b := &Backend{}
	var fb *Firebase
	if !cfg.MemoryStore || cfg.AuthMode == config.AuthFirebase {
		var err error
		fb, err = FBConnection(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		b.close = fb.Close
	}

	if cfg.MemoryStore {
		b.Memory = memstore.New()
		b.Assignments = b.Memory
		b.Users = b.Memory.Users()
		log.Warn().Msg("Using in-memory store, data is not persisted")
	} else {
		b.Assignments = firestorestore.NewAssignments(fb.Firestore, firestorestore.Layout(cfg.Layout))
		b.Users = firestorestore.NewUsers(fb.Firestore)
	}

	switch cfg.AuthMode {
	case config.AuthJWT:
		b.Verifier = middleware.JWTVerifier{Secret: []byte(cfg.JWTSecretKey)}
	default:
		b.Verifier = middleware.FirebaseVerifier{Client: fb.Auth}
	}
	return b, nil
}

// NewEnv builds the controller dependencies on top of a backend.
func NewEnv(cfg *config.Config, b *Backend, log zerolog.Logger) (*controller.Env, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	svc := services.NewAssignmentService(b.Assignments, b.Users, log.With().Str("component", "assignments").Logger(),
		services.WithTimeout(cfg.WriteTimeout))
	return &controller.Env{
		Service:        svc,
		Users:          services.NewUserService(b.Users, log.With().Str("component", "users").Logger(), cfg.WriteTimeout),
		Assignments:    b.Assignments,
		Auth:           middleware.AccessTokenMiddleware(b.Verifier, b.Users, log),
		Log:            log,
		Location:       loc,
		NoticeDuration: cfg.NoticeDuration,
	}, nil
}

func NewRouter(env *controller.Env) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Api is running!"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	assignment.AssignmentController(router, env)
	calendar.CalendarController(router, env)
	user.UserController(router, env)
	return router
}

// StartServer serves the API until ctx is canceled.
func StartServer(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	b, err := OpenBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close backend")
		}
	}()

	env, err := NewEnv(cfg, b, log)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           NewRouter(env),
		ReadHeaderTimeout: 10 * time.Second,
		// Streams end with ctx so Shutdown is not held open by them.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info().Msg("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}
