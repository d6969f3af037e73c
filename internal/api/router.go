package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/speechrelay/internal/api/handlers"
	"github.com/nikhilbhutani/speechrelay/internal/api/middleware"
	"github.com/nikhilbhutani/speechrelay/internal/cache"
	"github.com/nikhilbhutani/speechrelay/internal/config"
	"github.com/nikhilbhutani/speechrelay/internal/speech"
)

type Router struct {
	mux    *chi.Mux
	cfg    *config.Config
	relay  *speech.Relay
	tokens *cache.TokenStore
}

// NewRouter wires the HTTP surface. tokens may be nil when Redis is not
// configured.
func NewRouter(cfg *config.Config, relay *speech.Relay, tokens *cache.TokenStore) *Router {
	return &Router{
		mux:    chi.NewRouter(),
		cfg:    cfg,
		relay:  relay,
		tokens: tokens,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.CORS.AllowedOrigins))

	// Health endpoints
	var pinger handlers.Pinger
	if rt.tokens != nil {
		pinger = rt.tokens
	}
	health := handlers.NewHealthHandler(pinger, rt.relay)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	ttsH := handlers.NewTTSHandler(rt.relay, rt.cfg.Speech.DefaultVoice)
	voiceH := handlers.NewVoiceHandler(rt.cfg.Speech.DefaultVoice)
	rl := middleware.NewRateLimiter(rt.cfg.RateLimit.RPS, rt.cfg.RateLimit.Burst)

	r.Route("/api", func(r chi.Router) {
		r.Get("/voices", voiceH.List)
		r.With(rl.Limit).Post("/tts", ttsH.Speak)
	})

	return r
}
