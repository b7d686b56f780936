package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"coinlecture/internal/auth"
	"coinlecture/internal/cache"
	"coinlecture/internal/config"
	"coinlecture/internal/db"
	"coinlecture/internal/handler"
	"coinlecture/internal/logger"
	"coinlecture/internal/mail"
	"coinlecture/internal/model"
	"coinlecture/internal/repository"
	"coinlecture/internal/router"
	"coinlecture/internal/service"
	"coinlecture/internal/storage"
)

// @title Le Coin Lecture API
// @version 1.0
// @description Library catalog, reader accounts and loan approval workflow.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting", zap.Stringer("config", cfg))

	gormDB, err := db.Open(cfg.DBDriver, cfg.MySQLDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatal("database init", zap.Error(err))
	}
	if err := migrate(gormDB, cfg.ResetDB, log); err != nil {
		log.Fatal("auto-migrate", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		log.Warn("redis unreachable, caching and token revocation degraded", zap.Error(err))
	}
	cancelPing()
	defer cacheClient.Close()

	mailer, err := mail.New(cfg.Mail, log)
	if err != nil {
		log.Fatal("mailer init", zap.Error(err))
	}
	images := storage.NewImageStore(cfg.UploadDir)

	repos := repository.New(gormDB)

	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	authService := service.NewAuthService(repos.Users, jwtService, tokenStore)
	registrationService := service.NewRegistrationService(repos.Users, mailer, cfg.FrontendURL, log)
	bookService := service.NewBookService(repos, cacheClient, images, log)
	userService := service.NewUserService(repos.Users, repos.Loans, cacheClient)
	loanService := service.NewLoanService(repos, cacheClient, cfg.LateFeePerDay, log)
	statsService := service.NewStatsService(repos.Books, repos.Users, repos.Loans, cacheClient)
	seedService := service.NewSeedService(repos, cacheClient, log)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, log, jwtService, tokenStore, router.Handlers{
		Auth:  handler.NewAuthHandler(authService, registrationService),
		Books: handler.NewBookHandler(bookService),
		Users: handler.NewUserHandler(userService),
		Loans: handler.NewLoanHandler(loanService),
		Stats: handler.NewStatsHandler(statsService),
		Seed:  handler.NewSeedHandler(seedService),
	})

	log.Info("swagger documentation available", zap.String("url", swaggerURL(cfg)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

// migrate creates the schema, dropping every table first when reset is set.
func migrate(gormDB *gorm.DB, reset bool, log *zap.Logger) error {
	tables := model.All()
	if reset {
		log.Warn("RESET_DB=true detected, dropping all tables")
		for i := len(tables) - 1; i >= 0; i-- {
			if err := gormDB.Migrator().DropTable(tables[i]); err != nil {
				log.Warn("drop table failed (may not exist)", zap.Error(err))
			}
		}
	}
	return gormDB.AutoMigrate(tables...)
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
