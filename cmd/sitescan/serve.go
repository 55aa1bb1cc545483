package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	sitescanchi "github.com/fwojciec/sitescan/chi"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long in-flight requests may finish after
// the serve command is interrupted.
const shutdownTimeout = 5 * time.Second

// Run executes the serve command. It blocks until the context is done.
func (c *ServeCmd) Run(deps *Dependencies) error {
	opts := []sitescanchi.Option{sitescanchi.WithLogger(deps.Logger)}
	if deps.Metrics != nil {
		opts = append(opts, sitescanchi.WithMetrics(deps.Metrics))
	}
	server := sitescanchi.NewServer(deps.Sites, deps.Registry, opts...)

	ln, err := net.Listen("tcp", c.Addr)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	srv := &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(deps.Ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	fmt.Fprintf(deps.Stdout, "Listening on http://%s\n", ln.Addr())
	return g.Wait()
}
