package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/renderinc/keyword-planner/internal/catalog"
	"github.com/renderinc/keyword-planner/internal/llm"
	"github.com/renderinc/keyword-planner/internal/logger"
	"github.com/renderinc/keyword-planner/internal/pipeline"
	"github.com/renderinc/keyword-planner/internal/web"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func planCommand() *cobra.Command {
	var (
		country     string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "plan <app-url> [app-url...]",
		Short: "Generate and store keywords for one or more listings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newStoreDeps()
			if err != nil {
				return err
			}
			defer d.close()

			p, err := d.newPipeline(prometheus.NewRegistry())
			if err != nil {
				return err
			}
			if err := d.catalog.EnsureSchema(cmd.Context()); err != nil {
				return err
			}

			reqs := make([]pipeline.Request, 0, len(args))
			for _, u := range args {
				reqs = append(reqs, pipeline.Request{AppURL: u, Country: country})
			}

			results, stats := p.RunBatch(cmd.Context(), reqs, concurrency)
			if err := printJSON(results); err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "\n%d listings in %v: %d cached, %d generated, %d failed\n",
				stats.Total, stats.Duration.Round(time.Millisecond), stats.Cached, stats.Generated, stats.Failed)
			if stats.Failed > 0 {
				return fmt.Errorf("%d of %d listings failed", stats.Failed, stats.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&country, "country", "c", "us", "storefront country code")
	cmd.Flags().IntVar(&concurrency, "concurrency", 3, "listings planned in parallel")
	return cmd
}

func lookupCommand() *cobra.Command {
	var country string

	cmd := &cobra.Command{
		Use:   "lookup <app-url>",
		Short: "Show the stored facts and keywords for a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newStoreDeps()
			if err != nil {
				return err
			}
			defer d.close()

			app, kw := d.catalog.Lookup(cmd.Context(), args[0], country)
			if app == nil {
				return fmt.Errorf("no stored listing for %s (%s)", args[0], country)
			}
			return printJSON(map[string]any{"app": app, "keywords": kw})
		},
	}

	cmd.Flags().StringVarP(&country, "country", "c", "us", "storefront country code")
	return cmd
}

func searchCommand() *cobra.Command {
	var (
		collection string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over stored documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newStoreDeps()
			if err != nil {
				return err
			}
			defer d.close()

			query := args[0]
			for _, a := range args[1:] {
				query += " " + a
			}

			start := time.Now()
			hits, err := d.catalog.Search(cmd.Context(), collection, query, limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			fmt.Printf("Found %d results in %v\n\n", len(hits), time.Since(start))
			for i, hit := range hits {
				fmt.Printf("%d. [%s] %s (score: %.2f)\n", i+1, hit.Collection, hit.ID, hit.Score)
				fmt.Printf("   %s\n", summarize(hit.Document))
				if snippet := firstFragment(hit.Fragments); snippet != "" {
					fmt.Printf("   ...%s...\n", snippet)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "restrict to appDetails or aiKeywords")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum results")
	return cmd
}

// summarize picks a readable line out of a stored document.
func summarize(doc json.RawMessage) string {
	var fields struct {
		AppName string `json:"appname"`
		AppURL  string `json:"appurl"`
		AppID   string `json:"appid"`
		Country string `json:"country"`
	}
	if err := json.Unmarshal(doc, &fields); err != nil {
		return ""
	}
	if fields.AppName != "" {
		return fmt.Sprintf("%s %s", fields.AppName, fields.AppURL)
	}
	return fmt.Sprintf("appid %s (%s)", fields.AppID, fields.Country)
}

// firstFragment returns one highlighted snippet, preferring the sorted-first field.
func firstFragment(fragments map[string][]string) string {
	fields := make([]string, 0, len(fragments))
	for field := range fragments {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if len(fragments[field]) > 0 {
			return fragments[field][0]
		}
	}
	return ""
}

func schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the catalog collections if they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newStoreDeps()
			if err != nil {
				return err
			}
			defer d.close()

			return d.catalog.EnsureSchema(cmd.Context())
		},
	}
}

func statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show document counts per collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newStoreDeps()
			if err != nil {
				return err
			}
			defer d.close()

			stats, err := d.catalog.Stats(cmd.Context())
			if err != nil {
				return err
			}

			names := make([]string, 0, len(stats))
			for name := range stats {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Printf("Backend: %s\n", d.cfg.Store.Backend)
			for _, name := range names {
				fmt.Printf("  %-12s %d\n", name, stats[name])
			}
			return nil
		},
	}
}

func reindexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the local full-text index from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newStoreDeps()
			if err != nil {
				return err
			}
			defer d.close()

			local, ok := d.backend.(*catalog.LocalBackend)
			if !ok {
				return errors.New("reindex only applies to the local backend")
			}

			start := time.Now()
			n, err := local.Reindex(cmd.Context())
			if err != nil {
				return fmt.Errorf("reindex failed: %w", err)
			}
			d.log.Info("Reindex complete", logger.Int("documents", n), logger.Duration("took", time.Since(start)))
			return nil
		},
	}
}

func serveCommand() *cobra.Command {
	var host, port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newStoreDeps()
			if err != nil {
				return err
			}
			defer d.close()

			reg := prometheus.NewRegistry()
			p, err := d.newPipeline(reg)
			if err != nil {
				return err
			}
			if err := d.catalog.EnsureSchema(cmd.Context()); err != nil {
				return err
			}

			srv, err := web.NewServer(p, d.catalog, reg, d.log)
			if err != nil {
				return err
			}
			if hc, ok := d.model.(llm.HealthChecker); ok {
				if err := hc.Health(cmd.Context()); err != nil {
					d.log.Warn("Language model not ready", logger.String("model", d.model.Name()), logger.Error(err))
				}
				srv.AddHealthCheck("llm", hc.Health)
			}

			if host == "" {
				host = d.cfg.Server.Host
			}
			if port == "" {
				port = d.cfg.Server.Port
			}
			return listenAndServe(cmd.Context(), net.JoinHostPort(host, port), srv.Handler(), d.log)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "host to bind to (default from config)")
	cmd.Flags().StringVar(&port, "port", "", "port to listen on (default from config)")
	return cmd
}

// listenAndServe runs until SIGINT or SIGTERM, then drains in-flight requests.
func listenAndServe(ctx context.Context, addr string, handler http.Handler, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", logger.String("addr", "http://"+addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
