package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	httptransport "github.com/example/facility-booking/internal/http"
	"github.com/example/facility-booking/internal/metrics"
)

func newServeCmd(envFile *string) *cobra.Command {
	var (
		migrateUp     bool
		sweepInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the booking HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(*envFile, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			logger := rt.logger

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := rt.openStorage(ctx, migrateUp); err != nil {
				return err
			}
			defer rt.close()

			members, closeMembers := rt.membershipDirectory(ctx)
			defer closeMembers()
			services := rt.services(members)

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.NewMetrics("booking", registry)

			router := httptransport.NewRouter(httptransport.RouterConfig{
				Reservations: httptransport.NewReservationHandler(services.reservations, services.lifecycle, m, rt.cfg.Location, logger),
				Access:       httptransport.NewAccessHandler(services.access, m, rt.cfg.Location, logger),
				StatusChange: httptransport.NewStatusChangeHandler(services.lifecycle, m, logger),
				AppAuth:      httptransport.RequireAppKey(rt.cfg.AppKeyHash, logger),
				Metrics:      m.Handler(),
				Middleware: []func(http.Handler) http.Handler{
					httptransport.RequestLogger(logger),
					httptransport.IdentifyMember(services.authorizer),
					httptransport.RequestMetrics(m),
				},
			})

			if sweepInterval > 0 {
				go runSweepLoop(ctx, sweepInterval, services.lifecycle, m, logger)
			}

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", rt.cfg.HTTPPort),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("failed to shutdown server", "error", err)
				}
			}()

			logger.Info("booking API listening", "addr", server.Addr, "timezone", rt.cfg.Location.String())
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().DurationVar(&sweepInterval, "sweep-interval", time.Hour, "how often expiry sweeps run; 0 disables them")
	return cmd
}
