package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

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

// autoadd manages standing enrollment rules: people attached to every new
// course site of a (school, subject) pair.
func main() {
	add := flag.Bool("add", false, "add a rule")
	remove := flag.Int64("remove", 0, "remove the rule with the given id")
	list := flag.Bool("list", false, "list the rules of a (school, subject) pair")
	school := flag.String("school", "", "school code")
	subject := flag.String("subject", "", "subject code")
	pennkey := flag.String("pennkey", "", "user to enroll")
	pennID := flag.Int64("pennid", 0, "user to enroll, looked up by penn id")
	role := flag.String("role", string(model.RoleTA), "role: TA, Instructor, Designer or Librarian")
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

	autoAdds := repository.NewAutoAddRepository(pool)

	switch {
	case *add:
		if *school == "" || *subject == "" || (*pennkey == "" && *pennID == 0) {
			logger.Fatal("add requires -school, -subject and one of -pennkey or -pennid")
		}

		// The user must resolve in the directory before a rule is stored.
		wh, err := warehouse.New(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Failed to connect to the warehouse", zap.Error(err))
		}
		defer wh.Close()
		cv := canvas.NewClient(cfg, logger)
		directory := service.NewDirectoryService(wh, cv, repository.NewUserRepository(pool), logger)

		var user *model.User
		if *pennkey != "" {
			user, err = directory.GetUser(ctx, *pennkey)
		} else {
			user, err = directory.GetUserByPennID(ctx, *pennID)
		}
		if err != nil {
			logger.Fatal("Failed to look up user", zap.Error(err))
		}
		if user == nil {
			logger.Fatal("User unknown to the directory",
				zap.String("pennkey", *pennkey), zap.Int64("penn_id", *pennID))
		}

		rule := &model.AutoAdd{
			SchoolCode:  *school,
			SubjectCode: *subject,
			Pennkey:     user.Pennkey,
			Role:        model.Role(*role),
		}
		if err := autoAdds.Create(ctx, rule); err != nil {
			logger.Fatal("Failed to create rule", zap.Error(err))
		}
		logger.Info("Created rule", zap.Int64("id", rule.ID))

	case *remove != 0:
		if err := autoAdds.Delete(ctx, *remove); err != nil {
			logger.Fatal("Failed to delete rule", zap.Error(err))
		}
		logger.Info("Deleted rule", zap.Int64("id", *remove))

	case *list:
		rules, err := autoAdds.ListFor(ctx, *school, *subject)
		if err != nil {
			logger.Fatal("Failed to list rules", zap.Error(err))
		}
		for _, rule := range rules {
			fmt.Printf("%d\t%s/%s\t%s\t%s\n", rule.ID, rule.SchoolCode, rule.SubjectCode, rule.Pennkey, rule.Role)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}
