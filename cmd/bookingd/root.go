package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/example/facility-booking/internal/access"
	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/config"
	"github.com/example/facility-booking/internal/logging"
	"github.com/example/facility-booking/internal/membership"
	"github.com/example/facility-booking/internal/persistence/sqlite"
	"github.com/example/facility-booking/internal/persistence/sqlite/migration"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

const membershipMemoryEntries = 10000

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "bookingd",
		Short:         "Facility booking service: validation, lifecycle and access checks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading BOOKING_* variables")

	root.AddCommand(newServeCmd(&envFile))
	root.AddCommand(newMigrateCmd(&envFile))
	root.AddCommand(newExpireCmd(&envFile))
	root.AddCommand(newHashKeyCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// runtime holds the process wide dependencies shared by the subcommands.
type runtime struct {
	cfg      config.Config
	settings config.Settings
	policy   application.Policy
	logger   *slog.Logger
	storage  *sqlite.Storage
}

func loadRuntime(envFile string, logOutput io.Writer) (*runtime, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logOutput, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	settings := config.DefaultSettings()
	if err := config.LoadRulesFile(cfg.RulesFile, &settings); err != nil {
		return nil, err
	}

	return &runtime{
		cfg:      cfg,
		settings: settings,
		policy:   policyFromSettings(settings, cfg.Location),
		logger:   logger,
	}, nil
}

func (rt *runtime) openStorage(ctx context.Context, migrate bool) error {
	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(rt.cfg.SQLitePath), rt.logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Ping(ctx); err != nil {
		_ = storage.Close()
		return fmt.Errorf("db ping: %w", err)
	}
	if migrate {
		if err := storage.Migrate(ctx); err != nil {
			_ = storage.Close()
			return err
		}
	}
	rt.storage = storage
	return nil
}

func (rt *runtime) close() {
	if rt.storage == nil {
		return
	}
	if err := rt.storage.Close(); err != nil {
		rt.logger.Error("failed to close storage", "error", err)
	}
}

// services wires the booking services against the opened storage.
func (rt *runtime) services(members application.MemberDirectory) bookingServices {
	store := newReservationStoreAdapter(rt.storage.Reservations, rt.cfg.Location)
	ids := uuid.NewString
	now := time.Now
	validator := application.NewValidator(store, members, rt.policy, now, rt.logger)
	grace := time.Duration(rt.settings.AccessGraceMinutes) * time.Minute
	return bookingServices{
		reservations: application.NewReservationService(validator, store, ids, now, rt.logger),
		lifecycle:    application.NewLifecycleService(store, rt.policy, ids, now, rt.logger),
		access:       application.NewAccessService(store, access.NewResolver(grace, rt.logger), now, rt.logger),
		authorizer:   application.NewStaticAuthorizer(rt.cfg.Admins),
	}
}

type bookingServices struct {
	reservations *application.ReservationService
	lifecycle    *application.LifecycleService
	access       *application.AccessService
	authorizer   *application.StaticAuthorizer
}

// membershipDirectory builds the membership client. Answers are cached in
// Redis when BOOKING_REDIS_ADDR is set and reachable, in memory otherwise.
// The returned func releases the Redis connection.
func (rt *runtime) membershipDirectory(ctx context.Context) (*membership.Client, func()) {
	client := membership.NewClient(rt.cfg.MembershipURL, rt.cfg.MembershipTimeout, rt.logger)
	if rt.cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: rt.cfg.RedisAddr})
		err := rdb.Ping(ctx).Err()
		if err == nil {
			client.UseRedisCache(rdb, rt.cfg.MembershipCacheTTL)
			return client, func() { _ = rdb.Close() }
		}
		rt.logger.WarnContext(ctx, "redis unavailable, caching membership in memory", "addr", rt.cfg.RedisAddr, "error", err)
		_ = rdb.Close()
	}
	client.UseMemoryCache(rt.cfg.MembershipCacheTTL, membershipMemoryEntries, time.Now)
	return client, func() {}
}

func policyFromSettings(settings config.Settings, loc *time.Location) application.Policy {
	policy := application.DefaultPolicy(loc)
	policy.Rules = settings.Rules
	policy.LeadDays = settings.LeadDays
	policy.SecondaryOwnerSpan = time.Duration(settings.SecondaryOwnerHours) * time.Hour
	policy.ApprovalHorizon = time.Duration(settings.ApprovalHorizonWeeks) * 7 * 24 * time.Hour
	policy.PendingLifetimeDays = settings.PendingLifetimeDays
	policy.ExpiryReminderDays = settings.ExpiryReminderDays
	policy.SuspendedExpiry = time.Duration(settings.SuspendedExpiryDays) * 24 * time.Hour
	policy.MinStaff = settings.MinStaff
	return policy
}
