// Package httpapi exposes the wolf handlers over HTTP. Every route answers
// under each configured prefix, so /api/spawn-wolf and
// /.netlify/functions/spawn-wolf reach the same handler.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/assistant"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/chat"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/keys"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/log"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/moltbook"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/payment"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/ratelimit"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/search"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/stats"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/wolf"
)

var logger = log.NewLogger("httpapi")

const maxBodyBytes = 1 << 20

var DefaultPrefixes = []string{"/api", "/.netlify/functions"}

// PaymentVerifier is satisfied by *payment.Verifier.
type PaymentVerifier interface {
	Verify(ctx context.Context, signature string, kind payment.Kind, expected decimal.Decimal) (payment.Verdict, error)
}

// Registrar creates the social account of a freshly spawned wolf.
type Registrar interface {
	Register(ctx context.Context, name, description string) (moltbook.Registration, error)
}

// EventStore is the persistent spawn ledger read by the admin dashboard.
type EventStore interface {
	Totals(ctx context.Context) (stats.Totals, error)
	Recent(ctx context.Context, status stats.Status, limit int) ([]stats.Event, error)
}

// Agent describes the service's own on-chain identity for /verify.
type Agent struct {
	Name        string
	Wallet      string
	TokenMint   string
	TokenSymbol string
	LaunchedAt  time.Time
}

type Options struct {
	Verifier  PaymentVerifier
	SpawnKind payment.Kind
	Prices    map[string]decimal.Decimal
	Cooldown  *ratelimit.WalletCooldown
	ChatLimit *ratelimit.IPWindow
	Registrar Registrar
	Brain     *wolf.Brain
	Searcher  search.Searcher
	Chat      *chat.Service
	Assistant *assistant.Assistant
	Events    stats.Recorder
	Stats     *stats.Log
	Ledger    EventStore
	Signer    *keys.Signer
	Agent     Agent

	AdminSecret    []byte
	AllowOrigin    string
	Prefixes       []string
	RequestTimeout time.Duration
	Now            func() time.Time
}

type Server struct {
	opts   Options
	router *mux.Router
	now    func() time.Time
}

func New(opts Options) *Server {
	if opts.Cooldown == nil {
		opts.Cooldown = ratelimit.NewWalletCooldown(ratelimit.DefaultCooldown)
	}
	if opts.ChatLimit == nil {
		opts.ChatLimit = ratelimit.NewIPWindow(0, 0)
	}
	if opts.Stats == nil {
		opts.Stats = stats.NewLog(stats.DefaultLogSize)
	}
	if opts.Events == nil {
		opts.Events = opts.Stats
	}
	if opts.AllowOrigin == "" {
		opts.AllowOrigin = "*"
	}
	if len(opts.Prefixes) == 0 {
		opts.Prefixes = DefaultPrefixes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{opts: opts, now: opts.Now}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.cors, s.timeout)

	handlers := []struct {
		name    string
		method  string
		handler http.HandlerFunc
	}{
		{"spawn-wolf", http.MethodPost, s.handleSpawn},
		{"wolf-assistant", http.MethodPost, s.handleAssistant},
		{"wolf-brain", http.MethodPost, s.handleBrain},
		{"wolf-search", http.MethodPost, s.handleSearch},
		{"wolf-work", http.MethodPost, s.handleWork},
		{"wolf-chat", http.MethodPost, s.handleChat},
		{"admin-stats", http.MethodGet, s.handleAdminStats},
		{"verify", http.MethodGet, s.handleVerify},
	}
	for _, prefix := range s.opts.Prefixes {
		prefix = strings.TrimRight(prefix, "/")
		for _, h := range handlers {
			r.HandleFunc(prefix+"/"+h.name, allow(h.method, h.handler))
		}
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "Not found")
	})
	return r
}

// allow answers preflight requests and rejects every method but method.
func allow(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
		case method:
			next(w, r)
		default:
			w.Header().Set("Allow", method+", OPTIONS")
			WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.opts.AllowOrigin)
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) timeout(next http.Handler) http.Handler {
	if s.opts.RequestTimeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

type errorBody struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn().Err(err).Msg("failed to write response")
	}
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, errorBody{Error: msg})
}

var errBadJSON = errors.New("Invalid JSON body")

// decode reads a JSON request body into v. An empty body decodes as {}.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return errBadJSON
	}
	return nil
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}

func (s *Server) record(ctx context.Context, e stats.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now().UTC()
	}
	if err := s.opts.Events.Record(ctx, e); err != nil {
		logger.Error().Err(err).Str("status", string(e.Status)).Msg("failed to record spawn event")
	}
	logger.Info().
		Str("status", string(e.Status)).
		Str("wolf", e.WolfID).
		Str("wallet", e.Wallet).
		Str("reason", e.Reason).
		Str("ip", e.IP).
		Msg("spawn")
}
