package cmd

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/finance/api"
	"github.com/google/subcommands"
)

type serveCmd struct {
	listen string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the book over HTTP" }
func (*serveCmd) Usage() string {
	return `fin serve [-listen <addr>]

  Serves the JSON API under /api/v1 and delivers changes in the background
  until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.listen, "listen", "", "Address to listen on. Defaults to the configured one.")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return run(ctx, func(a *app) error {
		addr := c.listen
		if addr == "" {
			addr = a.cfg.Listen
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           api.NewServer(a.book, a.tags, a.box).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		dispatched := make(chan struct{})
		go func() {
			defer close(dispatched)
			a.dispatcher.Run(ctx, 30*time.Second)
		}()
		defer func() {
			stop()
			<-dispatched
		}()
		go func() {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdown)
		}()

		log.Printf("serving book %s of %s on http://%s/api/v1", a.cfg.Book, a.cfg.User, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}
