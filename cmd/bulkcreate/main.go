package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cwsupport/crf-provisioner/internal/app"
	"github.com/cwsupport/crf-provisioner/internal/canvas"
	"github.com/cwsupport/crf-provisioner/internal/config"
	"github.com/cwsupport/crf-provisioner/internal/model"
	"github.com/cwsupport/crf-provisioner/internal/repository"
	"github.com/cwsupport/crf-provisioner/internal/service"
	"github.com/cwsupport/crf-provisioner/internal/warehouse"
)

// bulkcreate provisions a course site for every unrequested section of a
// term in one pass, optionally enabling default tool tabs and publishing.
func main() {
	term := flag.Int("term", 0, "term to provision, e.g. 202510 (default: next term)")
	school := flag.String("school", "", "restrict to one school code")
	enableTools := flag.Bool("tools", false, "enable the default tool tabs on each site")
	byLabel := flag.Bool("by-label", false, "match tool tabs by label instead of id")
	publish := flag.Bool("publish", false, "publish each site after provisioning")
	syncFirst := flag.Bool("sync", false, "run a catalog sync before provisioning")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	wh, err := warehouse.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to the warehouse", zap.Error(err))
	}
	defer wh.Close()

	cv := canvas.NewClient(cfg, logger)

	schools := repository.NewSchoolRepository(pool)
	subjects := repository.NewSubjectRepository(pool)
	scheduleTypes := repository.NewScheduleTypeRepository(pool)
	users := repository.NewUserRepository(pool)
	sections := repository.NewSectionRepository(pool)
	requests := repository.NewRequestRepository(pool)
	autoAdds := repository.NewAutoAddRepository(pool)

	syncService := service.NewSyncService(wh, cv, schools, subjects, scheduleTypes, users, sections, logger)
	directoryService := service.NewDirectoryService(wh, cv, users, logger)
	requestService := service.NewRequestService(requests, sections, logger)
	builderService := service.NewBuilderService(requests, sections, schools, autoAdds, directoryService, cv, logger)
	bulkService := service.NewBulkService(sections, requestService, builderService, cv, logger)

	if *term == 0 {
		*term = model.NextTerm(time.Now())
	}

	if *syncFirst {
		if err := syncService.SyncAll(ctx, []int{*term}); err != nil {
			logger.Fatal("Catalog sync failed", zap.Error(err))
		}
	}

	opts := service.BulkOptions{
		Term:        *term,
		SchoolCode:  *school,
		Requester:   cfg.ServiceAccount,
		EnableTools: *enableTools,
		ByLabel:     *byLabel,
		Publish:     *publish,
	}
	if err := bulkService.ProvisionTerm(ctx, opts); err != nil {
		logger.Fatal("Bulk provisioning failed", zap.Error(err))
	}
}
