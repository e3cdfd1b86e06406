package relayer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graphprotocol/metatx-relay/relay"
	"github.com/streamingfast/shutter"
	"go.uber.org/zap"
)

// Relayer is the HTTP service accepting signed meta-transactions from a UI
// and relaying them with the relayer account
type Relayer struct {
	*shutter.Shutter

	listenAddr string
	logger     *zap.Logger
	server     *http.Server
	engine     *gin.Engine

	session   *relay.Session
	submitter *relay.Submitter
	tracker   *Tracker
	verify    bool

	evictInterval time.Duration

	// ctx outlives HTTP requests, submissions keep running until the
	// relayer terminates
	ctx    context.Context
	cancel context.CancelFunc
}

type Config struct {
	ListenAddr string
	// Retention is how long terminal submissions stay queryable (default: 10m)
	Retention time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		ListenAddr: ":8080",
		Retention:  10 * time.Minute,
	}
}

func New(config *Config, session *relay.Session, submitter *relay.Submitter, logger *zap.Logger) *Relayer {
	retention := config.Retention
	if retention <= 0 {
		retention = DefaultConfig().Retention
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Relayer{
		Shutter:       shutter.New(),
		listenAddr:    config.ListenAddr,
		logger:        logger,
		session:       session,
		submitter:     submitter,
		tracker:       NewTracker(retention),
		verify:        session.Config().VerifySignature,
		evictInterval: time.Minute,
		ctx:           ctx,
		cancel:        cancel,
	}
	r.engine = r.routes()
	r.OnTerminating(func(_ error) { r.cancel() })

	return r
}

// Handler returns the HTTP handler serving the relayer API
func (r *Relayer) Handler() http.Handler {
	return r.engine
}

func (r *Relayer) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), r.logRequests())

	engine.GET("/healthz", r.handleHealth)

	v1 := engine.Group("/v1")
	v1.GET("/state", r.handleGetState)
	v1.GET("/nonce/:address", r.handleGetNonce)
	v1.GET("/domain", r.handleGetDomain)
	v1.POST("/relay", r.handleRelay)
	v1.GET("/relay/:id", r.handleGetRelay)

	return engine
}

func (r *Relayer) Run() {
	r.server = &http.Server{
		Addr:    r.listenAddr,
		Handler: r.engine,
	}

	r.OnTerminating(func(_ error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.server.Shutdown(ctx); err != nil {
			r.logger.Warn("relayer server shutdown", zap.Error(err))
		}
	})

	go r.evictLoop()

	go func() {
		r.logger.Info("starting relayer", zap.String("listen_addr", r.listenAddr), zap.Stringer("relayer", r.submitter.Account().Address()))

		err := r.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.Shutdown(err)
			return
		}
	}()
}

func (r *Relayer) evictLoop() {
	ticker := time.NewTicker(r.evictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case now := <-ticker.C:
			if evicted := r.tracker.Evict(now); evicted > 0 {
				r.logger.Debug("evicted terminal submissions", zap.Int("count", evicted), zap.Int("remaining", r.tracker.Count()))
			}
		}
	}
}

func (r *Relayer) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		r.logger.Debug("handled request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
