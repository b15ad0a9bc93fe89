package http

import (
	"context"
	"net/http"
	"strings"
)

// RouterConfig lists the handlers mounted by NewRouter. Nil handlers leave
// their routes unregistered.
type RouterConfig struct {
	Exams *ExamHandler
	Sync  *SyncHandler

	// Authenticate guards every route except the health check.
	Authenticate func(http.Handler) http.Handler

	// Health backs GET /healthz when set.
	Health func(ctx context.Context) error

	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	api := http.NewServeMux()

	if cfg.Exams != nil {
		api.HandleFunc("/exams/conflicts", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Exams.CheckConflicts(w, r)
		})
		api.HandleFunc("/exams/conflicts/report", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Exams.Report(w, r)
		})
	}

	if cfg.Sync != nil {
		api.HandleFunc("/sync", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Sync.Sync(w, r)
		})
		api.HandleFunc("/sync/pending", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Sync.Pending(w, r)
		})
		api.HandleFunc("/sync/resolve", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Sync.Resolve(w, r)
		})
		api.HandleFunc("/sync/snapshot", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Sync.Snapshot(w, r)
		})
	}

	var protected http.Handler = api
	if cfg.Authenticate != nil {
		protected = cfg.Authenticate(protected)
	}
	mux.Handle("/", protected)

	if cfg.Health != nil {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			if err := cfg.Health(r.Context()); err != nil {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
