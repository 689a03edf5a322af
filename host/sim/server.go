package sim

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"gopherscope/core"
	"gopherscope/host/serial"
)

// Options configure every simulated device
type Options struct {
	Signal       SignalOptions
	BurstSamples int
	IdleInterval time.Duration
	Logger       zerolog.Logger
}

// Server starts one device per websocket connection. Devices share
// nothing; each session gets its own pins and mode.
type Server struct {
	opts     Options
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*serial.WebSocketPort]struct{}
}

func NewServer(opts Options) *Server {
	return &Server{
		opts: opts,
		log:  opts.Logger.With().Str("component", "sim").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[*serial.WebSocketPort]struct{}),
	}
}

// ServeHTTP upgrades the request and runs a device until the client leaves
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("upgrade failed")
		return
	}
	port := serial.NewWebSocketPort(conn)
	s.track(port, true)
	defer s.track(port, false)
	defer port.Close()

	log := s.log.With().Str("remote", r.RemoteAddr).Logger()
	clock := core.NewSystemClock()
	dev, err := core.New(core.Config{
		ADC:          NewSignalADC(clock, s.opts.Signal),
		Transport:    port,
		Clock:        clock,
		Abilities:    NRFAbilities(),
		BurstSamples: s.opts.BurstSamples,
		IdleInterval: s.opts.IdleInterval,
		Logger:       &log,
	})
	if err != nil {
		log.Error().Err(err).Msg("device setup failed")
		return
	}

	log.Info().Int("sessions", s.Sessions()).Msg("client connected")
	if err := dev.Run(context.Background()); err != nil {
		log.Debug().Err(err).Msg("device stopped")
	}
	log.Info().Msg("client disconnected")
}

// Sessions is the number of connected clients
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) track(p *serial.WebSocketPort, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.sessions[p] = struct{}{}
	} else {
		delete(s.sessions, p)
	}
}

// closeAll ends every session; devices stop once their reads fail
func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.sessions {
		p.Close()
	}
}

// Serve accepts connections on ln at path until ctx ends
func (s *Server) Serve(ctx context.Context, ln net.Listener, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, s)
	srv := &http.Server{Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info().Str("addr", ln.Addr().String()).Str("path", path).Msg("listening")
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutCtx)
		s.closeAll()
		return err
	})
	return g.Wait()
}

// ListenAndServe listens on addr and calls Serve
func (s *Server) ListenAndServe(ctx context.Context, addr, path string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, path)
}
