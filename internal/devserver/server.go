package devserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/browser"
	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/zishang520/socket.io/v2/socket"
)

const (
	reloadEvent     = "reload"
	shutdownTimeout = 5 * time.Second
)

// Opener opens url in a browser.
type Opener func(url string) error

// Options configures a Server.
type Options struct {
	// Dir is the directory served at "/".
	Dir     string
	Host    string
	Port    int
	Browser string
	Open    bool
	// Opener replaces the default browser launcher.
	Opener Opener
}

// OptionsFrom builds Options from the project configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Dir:     cfg.Path(cfg.Server.BaseDir),
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Browser: cfg.Server.Browser,
		Open:    cfg.Server.Open,
	}
}

// Server is the development HTTP server with live reload.
type Server struct {
	opts    Options
	io      *socket.Server
	clients atomic.Int64
	ready   chan struct{}
	addr    atomic.Value
}

// New creates a Server. It does not listen until Run.
func New(opts Options) *Server {
	if opts.Opener == nil {
		opts.Opener = browserOpener(opts.Browser)
	}
	s := &Server{
		opts:  opts,
		io:    socket.NewServer(nil, nil),
		ready: make(chan struct{}),
	}
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		s.clients.Add(1)
		client.On("disconnect", func(...any) {
			s.clients.Add(-1)
		})
	})
	return s
}

// Handler returns the HTTP handler serving files, the health check and the
// reload transport.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", s.io.ServeHandler(nil))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctxlog.FromContext(ctx).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})
	mux.Handle("/", s.files(ctx))
	return mux
}

func (s *Server) files(ctx context.Context) http.Handler {
	root := http.Dir(s.opts.Dir)
	fileServer := http.FileServer(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.FromContext(ctx)
		cw := newCompressWriter(w, r)
		defer func() {
			if err := cw.Close(); err != nil {
				logger.Debug("Failed to finish compressed response.", "path", r.URL.Path, "error", err)
			}
		}()
		w.Header().Set("Cache-Control", "no-store")

		name := path.Clean("/" + r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/") {
			name = path.Join(name, "index.html")
		}
		if path.Ext(name) != ".html" {
			fileServer.ServeHTTP(cw, r)
			return
		}

		page, err := readFile(root, name)
		if err != nil {
			fileServer.ServeHTTP(cw, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		cw.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			cw.Write(inject(page))
		}
	})
}

func readFile(root http.FileSystem, name string) ([]byte, error) {
	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fs.ErrNotExist
	}
	return io.ReadAll(f)
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr is the listening address. It is empty before Ready.
func (s *Server) Addr() string {
	addr, _ := s.addr.Load().(string)
	return addr
}

// URL is the address pages are served at.
func (s *Server) URL() string {
	return "http://" + s.Addr() + "/"
}

// Clients is the number of connected reload clients.
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

// Reload tells every connected page to reload. Without clients it does
// nothing.
func (s *Server) Reload(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	n := s.Clients()
	if n == 0 {
		logger.Debug("No reload clients connected.")
		return
	}
	s.io.Emit(reloadEvent)
	logger.Info("Reloading browsers.", "clients", n)
}

// Run listens and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	ln, err := net.Listen("tcp", net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port)))
	if err != nil {
		return fmt.Errorf("failed to listen for dev server: %w", err)
	}
	s.addr.Store(ln.Addr().String())
	close(s.ready)

	httpServer := &http.Server{
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	logger.Info("🌐 Dev server started", "url", s.URL(), "dir", s.opts.Dir)

	if s.opts.Open {
		if err := s.opts.Opener(s.URL()); err != nil {
			logger.Warn("Failed to open browser.", "browser", s.opts.Browser, "error", err)
		}
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("dev server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("🌐 Shutting down dev server...")
	s.io.Close(nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Dev server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Dev server shut down gracefully.")
	return nil
}

// browserOpener returns the launcher for a named browser. An empty name
// uses the system default.
func browserOpener(name string) Opener {
	if name == "" {
		return browser.OpenURL
	}
	return func(url string) error {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", "-a", name, url)
		case "windows":
			cmd = exec.Command("cmd", "/c", "start", "", name, url)
		default:
			cmd = exec.Command(name, url)
		}
		cmd.Stdout = io.Discard
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return err
		}
		go cmd.Wait()
		return nil
	}
}
