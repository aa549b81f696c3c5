package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gogpu/gg"

	"github.com/example/siteplan/internal/editor"
	"github.com/example/siteplan/internal/hostapi"
	"github.com/example/siteplan/internal/store"
)

type serveCmd struct {
	*root
	fs        *flag.FlagSet
	addr      string
	database  string
	origins   string
	accessLog bool
	debug     bool
	timeout   time.Duration
}

func parseServeCmd(args []string, r *root) (*serveCmd, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	c := &serveCmd{root: r.subcommand("serve"), fs: fs}
	addr, db := "127.0.0.1:8765", "siteplan.db"
	if r.config != nil {
		addr, db = r.config.Server.Addr, r.config.Server.Database
	}
	fs.StringVar(&c.addr, "addr", addr, "listen address")
	fs.StringVar(&c.database, "db", db, "sqlite database recording element lists (empty disables recording)")
	fs.StringVar(&c.origins, "origins", "", "comma separated CORS origins (default any)")
	fs.BoolVar(&c.accessLog, "access-log", true, "log each request")
	fs.BoolVar(&c.debug, "debug", false, "log session and renderer activity to stderr")
	fs.DurationVar(&c.timeout, "timeout", 30*time.Second, "read and write timeout")
	fs.Usage = usageFunc(c)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// bridgeConfig wires the store and the session manager. The returned
// cleanup closes sessions and the database.
func (c *serveCmd) bridgeConfig(ctx context.Context) (hostapi.Config, func(), error) {
	logger := slog.New(slog.DiscardHandler)
	if c.debug {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		gg.SetLogger(logger)
	}
	sessionOpts := append(c.sessionOptions(), editor.WithLogger(logger))
	opts := []hostapi.ManagerOption{
		hostapi.WithSessionOptions(sessionOpts...),
		hostapi.WithLogger(logger),
	}

	var st *store.Store
	if c.database != "" {
		var err error
		st, err = store.Open(ctx, c.database)
		if err != nil {
			return hostapi.Config{}, nil, fmt.Errorf("open %s: %w", c.database, err)
		}
		opts = append(opts, hostapi.WithSink(st))
	}
	m := hostapi.NewManager(opts...)
	cfg := hostapi.Config{
		Manager:      m,
		AccessLog:    c.accessLog,
		AllowOrigins: splitOrigins(c.origins),
		ReadTimeout:  c.timeout,
		WriteTimeout: c.timeout,
	}
	if st != nil {
		cfg.History = st
	}
	cleanup := func() {
		m.Shutdown()
		if st != nil {
			if err := st.Close(); err != nil {
				log.Printf("close store: %v", err)
			}
		}
	}
	return cfg, cleanup, nil
}

func (c *serveCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, cleanup, err := c.bridgeConfig(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	app := hostapi.NewApp(cfg)

	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("Starting siteplan bridge on %s", c.addr)
	if c.database != "" {
		log.Printf("Recording element lists to %s", c.database)
	}
	if err := app.Listen(c.addr); err != nil {
		return fmt.Errorf("listen %s: %w", c.addr, err)
	}
	return nil
}

func (c *serveCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *serveCmd) Template() string {
	return "serve.txt"
}
