package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/aks-orchestrators/pkg/arm"
	"github.com/Azure/aks-orchestrators/pkg/auth"
	"github.com/Azure/aks-orchestrators/pkg/config"
	"github.com/Azure/aks-orchestrators/pkg/filewatcher"
	"github.com/Azure/aks-orchestrators/pkg/orchestrators"
	"github.com/Azure/aks-orchestrators/pkg/probes"
	"github.com/Azure/aks-orchestrators/pkg/stats"
	"github.com/Azure/aks-orchestrators/pkg/utils"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the token exchange and version listing over HTTP. Every
// request runs a complete fresh cycle; no token is ever cached or shared
// between requests.
type Server struct {
	Cfg       config.Config
	Port      string
	ProbePort string

	// NewCycleClient builds the per-request cycle client. Tests override it
	// to point the cycle at local endpoints.
	NewCycleClient func(config.Config) (*orchestrators.Client, error)

	active bool
}

// NewServer returns a server for the given configuration.
func NewServer(cfg config.Config, port, probePort string) *Server {
	return &Server{
		Cfg:            cfg,
		Port:           port,
		ProbePort:      probePort,
		NewCycleClient: orchestrators.NewClient,
	}
}

func parseRemoteAddr(addr string) string {
	n := strings.IndexByte(addr, ':')
	if n <= 1 {
		return ""
	}
	hostname := addr[0:n]
	if net.ParseIP(hostname) == nil {
		return ""
	}
	return hostname
}

type appHandler func(http.ResponseWriter, *http.Request)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

// ServeHTTP implements the net/http server Handler interface
// and recovers from panics.
func (fn appHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		var err error
		if rec := recover(); rec != nil {
			switch t := rec.(type) {
			case string:
				err = errors.New(t)
			case error:
				err = t
			default:
				err = errors.New("unknown error")
			}
			klog.Errorf("panic processing request %s %s: %+v", r.Method, r.URL.Path, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}()
	rw := newResponseWriter(w)
	fn(rw, r)
	latency := time.Since(start)
	klog.Infof("%s %s remote=%s status=%d took %s", r.Method, r.URL.Path, parseRemoteAddr(r.RemoteAddr), rw.statusCode, latency)
}

// Router wires the request paths.
func (s *Server) Router() *mux.Router {
	rtr := mux.NewRouter()
	rtr.Handle("/versions", appHandler(s.versionsHandler)).Methods(http.MethodGet)
	rtr.Handle("/orchestrators", appHandler(s.orchestratorsHandler)).Methods(http.MethodGet)
	rtr.PathPrefix("/").Handler(appHandler(s.defaultPathHandler))
	return rtr
}

// requestConfig applies per-request overrides on top of the base
// configuration. The token scope and credential source are fixed and
// cannot be overridden by a caller.
func (s *Server) requestConfig(r *http.Request) (config.Config, error) {
	cfg := s.Cfg
	if location := r.URL.Query().Get("location"); location != "" {
		cfg.Location = location
	}
	if cfg.Location == "" {
		return cfg, &config.Error{Field: "location", Reason: "must be supplied by configuration or the location query parameter"}
	}
	if preview := r.URL.Query().Get("show-preview"); preview != "" {
		cfg.ShowPreview = preview == "true"
	}
	return cfg, nil
}

func (s *Server) versionsHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.requestConfig(r)
	if err != nil {
		writeError(w, err)
		return
	}

	client, err := s.NewCycleClient(cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	versions, err := client.KubernetesVersions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	stats.PrintSync()

	writeJSON(w, map[string]interface{}{
		"location": cfg.Location,
		"versions": versions,
	})
}

func (s *Server) orchestratorsHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.requestConfig(r)
	if err != nil {
		writeError(w, err)
		return
	}

	client, err := s.NewCycleClient(cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := client.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	stats.PrintSync()

	writeJSON(w, result)
}

func (s *Server) defaultPathHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "not found", http.StatusNotFound)
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		klog.Errorf("encoding response: %+v", err)
	}
}

// writeError maps cycle errors to HTTP statuses. The error types carry no
// credential material, so their messages are safe to return.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case config.IsConfigurationError(err):
		status = http.StatusBadRequest
	case auth.IsCredentialUnavailableError(err):
		status = http.StatusServiceUnavailable
	case auth.IsTokenExchangeError(err), arm.IsAPICallError(err):
		status = http.StatusBadGateway
	}
	http.Error(w, err.Error(), status)
}

// watchTokenFile logs rotation of the projected federated token file so
// credential refreshes are visible in the audit trail. The watcher never
// reads the file contents.
func (s *Server) watchTokenFile(exit <-chan struct{}) error {
	fw, err := filewatcher.NewFileWatcher(func(event fsnotify.Event) {
		if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
			klog.V(2).Infof("federated token file rotated: %s", event.Name)
		}
		if event.Op&fsnotify.Remove == fsnotify.Remove {
			klog.Warningf("federated token file removed: %s", event.Name)
		}
	}, func(err error) {
		klog.Errorf("token file watcher error: %+v", err)
	})
	if err != nil {
		return err
	}
	if err := fw.Add(s.Cfg.TokenFilePath); err != nil {
		return err
	}
	fw.Start(exit)
	return nil
}

// Run serves until ctx is canceled. It starts the request listener, the
// health probe and the token file watcher, and shuts down cleanly.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Cfg.Validate(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", s.Port),
		Handler: s.Router(),
	}

	if s.ProbePort != "" {
		probes.InitAndStart(s.ProbePort, &s.active)
	}

	exit := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		klog.Infof("listening on port %s (client %s, subscription %s)",
			s.Port, utils.RedactClientID(s.Cfg.ClientID), s.Cfg.SubscriptionID)
		s.active = true
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := s.watchTokenFile(exit); err != nil {
			klog.Errorf("token file watcher unavailable: %+v", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		close(exit)
		s.active = false
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
