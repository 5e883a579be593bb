package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nholding/trashinator/internal/audit"
	"github.com/nholding/trashinator/internal/config"
	"github.com/nholding/trashinator/internal/infrastructure"
	awsclients "github.com/nholding/trashinator/internal/repository"
	"github.com/nholding/trashinator/internal/tracking/domain"
	"github.com/nholding/trashinator/internal/tracking/export"
	"github.com/nholding/trashinator/internal/tracking/repository"
	"github.com/nholding/trashinator/internal/tracking/service"
	"github.com/nholding/trashinator/internal/utils"
	"github.com/nholding/trashinator/internal/volume"
)

func main() {
	var (
		job         = flag.String("job", "sweep", "job to run: household, record, sweep, stats, verify")
		configFile  = flag.String("config", "", "YAML config file (overrides TRASHINATOR_CONFIG_FILE)")
		asOf        = flag.String("as-of", "", "sweep as of this day ("+utils.DateLayout+"), defaults to today")
		household   = flag.String("household", "", "household ID (record)")
		date        = flag.String("date", "", "record day ("+utils.DateLayout+"), defaults to today")
		amount      = flag.Float64("amount", 0, "disposed volume (record)")
		unit        = flag.String("unit", string(volume.Litres), "volume unit: litres or gallons")
		userID      = flag.String("user", "", "owning user (household)")
		name        = flag.String("name", "", "household name (household)")
		population  = flag.Int("population", 1, "household population (household)")
		upload      = flag.Bool("export", false, "upload the global stats snapshot to S3 (stats)")
		metricsFile = flag.String("metrics-file", "", "write collected metrics to this file in text format")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := infrastructure.NewLogger(cfg.Logging, os.Stderr)
	ctx := context.Background()

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open repository", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	reg := prometheus.NewRegistry()
	svc := service.New(repo, service.Options{
		MaxTrackingSplit: cfg.MaxTrackingSplit,
		Stats:            domain.StatsOptions{NormalizeWeekly: cfg.Stats.NormalizeWeekly},
	}, logger, reg)

	switch *job {
	case "household":
		err = runHousehold(ctx, repo, *userID, *name, *population)
	case "record":
		err = runRecord(ctx, svc, *household, *date, *amount, *unit)
	case "sweep":
		err = runSweep(ctx, svc, *asOf)
	case "stats":
		err = runStats(ctx, cfg, svc, logger, *upload)
	case "verify":
		err = runVerify(ctx, svc)
	default:
		err = fmt.Errorf("unknown job %q", *job)
	}

	if *metricsFile != "" {
		if werr := prometheus.WriteToTextfile(*metricsFile, reg); werr != nil {
			logger.Error("failed to write metrics", "file", *metricsFile, "error", werr)
		}
	}

	if err != nil {
		logger.Error("job failed", "job", *job, "error", err)
		closeRepo()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// openRepository returns the PostgreSQL repository when a database is
// configured and the in-memory one otherwise.
func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Repository, func(), error) {
	if !cfg.UsesDatabase() {
		logger.Warn("no database configured, using in-memory repository")
		return repository.NewMemoryRepository(), func() {}, nil
	}

	db, err := awsclients.OpenDatabase(ctx, cfg.Database, cfg.AWS)
	if err != nil {
		return nil, nil, err
	}

	repo := repository.NewPostgresRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	var closed bool
	return repo, func() {
		if !closed {
			closed = true
			closeDB(db, logger)
		}
	}, nil
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}

func runHousehold(ctx context.Context, repo repository.Repository, userID, name string, population int) error {
	h, err := domain.NewHousehold(userID, name, population, audit.SystemUser)
	if err != nil {
		return err
	}
	if err := repo.SaveHousehold(ctx, h); err != nil {
		return err
	}
	fmt.Println(h.ID)
	return nil
}

func runRecord(ctx context.Context, svc *service.Services, householdID, date string, amount float64, unit string) error {
	day, err := parseDay(date)
	if err != nil {
		return err
	}
	u, err := volume.ParseUnit(unit)
	if err != nil {
		return err
	}
	litres, err := volume.ToLitres(amount, u)
	if err != nil {
		return err
	}

	rec, p, err := svc.Records.Record(ctx, householdID, day, litres, audit.SystemUser)
	if err != nil {
		return err
	}
	rate, err := perPersonPerWeek(p.LitresPerPersonPerWeek, u)
	if err != nil {
		return err
	}
	fmt.Printf("record %s -> period %s [%s .. %s] %s\n",
		rec.ID, p.ID, utils.FormatDay(p.Began), utils.FormatDay(p.Latest), rate)
	return nil
}

// perPersonPerWeek renders a period statistic in the unit the record was
// entered in.
func perPersonPerWeek(litres float64, u volume.Unit) (string, error) {
	v, err := volume.FromLitres(litres, u)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.2f %s/person/week", v, u), nil
}

func runSweep(ctx context.Context, svc *service.Services, asOf string) error {
	day, err := parseDay(asOf)
	if err != nil {
		return err
	}
	closed, voided, err := svc.Lifecycle.CloseOldAsOf(ctx, day)
	if err != nil {
		return err
	}
	fmt.Printf("closed %d, voided %d\n", closed, voided)
	return nil
}

func runStats(ctx context.Context, cfg *config.Config, svc *service.Services, logger *slog.Logger, upload bool) error {
	g, err := svc.GlobalStats.Current(ctx)
	if errors.Is(err, domain.ErrEmptyAggregate) {
		logger.Warn("no complete tracking periods yet")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("v%d: %.2f l/person/week over %d periods\n", g.Version, g.LitresPerPersonPerWeek, g.PeriodCount)

	if !upload {
		return nil
	}
	client, err := awsclients.NewS3Client(ctx, cfg.AWS)
	if err != nil {
		return err
	}
	key, err := export.NewSnapshotExporter(client.Client, client.BucketName, client.Prefix, logger).Export(ctx, g)
	if err != nil {
		return err
	}
	fmt.Printf("s3://%s/%s\n", client.BucketName, key)
	return nil
}

func runVerify(ctx context.Context, svc *service.Services) error {
	problems, err := svc.Lifecycle.Verify(ctx)
	if err != nil {
		return err
	}
	for _, p := range problems {
		fmt.Println(p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d tracking period problems", len(problems))
	}
	return nil
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return utils.Today(), nil
	}
	t, err := time.Parse(utils.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return t, nil
}
