package server

import (
	"context"
	"net/http"
	"time"
)

// HTTP wraps the standard server so main can start it in a goroutine and
// drain it on shutdown.
type HTTP struct {
	addr   string
	engine http.Handler
	srv    *http.Server
}

func NewHTTP(addr string, h http.Handler) *HTTP {
	return &HTTP{addr: addr, engine: h}
}

func (h *HTTP) Start() error {
	h.srv = &http.Server{
		Addr:              h.addr,
		Handler:           h.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return h.srv.ListenAndServe()
}

func (h *HTTP) Stop(ctx context.Context) error {
	if h.srv == nil {
		return nil
	}
	return h.srv.Shutdown(ctx)
}
