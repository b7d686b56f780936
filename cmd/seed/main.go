package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"coinlecture/internal/cache"
	"coinlecture/internal/config"
	"coinlecture/internal/db"
	"coinlecture/internal/logger"
	"coinlecture/internal/model"
	"coinlecture/internal/repository"
	"coinlecture/internal/service"
)

func main() {
	cfg := config.Load()

	books := flag.String("books", os.Getenv("SEED_BOOKS"), "books JSON file or http(s) URL")
	adminEmail := flag.String("admin-email", os.Getenv("ADMIN_EMAIL"), "email of the administrator account to ensure")
	adminPassword := flag.String("admin-password", os.Getenv("ADMIN_PASSWORD"), "password used when the administrator is created")
	flag.Parse()

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if *books == "" && *adminEmail == "" {
		log.Fatal("nothing to seed: pass -books and/or -admin-email")
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.MySQLDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(model.All()...); err != nil {
		log.Fatal("run migrations", zap.Error(err))
	}
	log.Info("database ready", zap.String("driver", cfg.DBDriver))

	// Seeding invalidates cached stats and books; a missing redis only logs.
	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()

	seeder := service.NewSeedService(repository.New(gormDB), cacheClient, log)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *books != "" {
		log.Info("loading books", zap.String("source", *books))
		entries, err := service.LoadSeedBooks(ctx, *books)
		if err != nil {
			log.Fatal("load books", zap.Error(err))
		}
		res, err := seeder.SeedBooks(ctx, entries)
		if err != nil {
			log.Fatal("seed books", zap.Error(err))
		}
		log.Info("books seeded",
			zap.Int("created", res.Created),
			zap.Int("updated", res.Updated),
			zap.Int("skipped", res.Skipped),
		)
	}

	if *adminEmail != "" {
		admin, err := seeder.EnsureAdmin(ctx, *adminEmail, *adminPassword)
		if err != nil {
			log.Fatal("ensure admin", zap.Error(err))
		}
		log.Info("administrator ready", zap.Uint("id", admin.ID), zap.String("email", admin.Email))
	}
}
