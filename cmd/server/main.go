// Command server runs the crowdfunding HTTP API.
//
// @title                       Crowdfunding API
// @version                     1.0
// @description                 Account authentication, role-based access control and the project review lifecycle.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	_ "github.com/fourseasons/crowdfunding-api/docs"
	"github.com/fourseasons/crowdfunding-api/internal/api"
	"github.com/fourseasons/crowdfunding-api/internal/core/rbac"
	"github.com/fourseasons/crowdfunding-api/internal/core/service"
	mongodb "github.com/fourseasons/crowdfunding-api/internal/infrastructure/db/mongo"
	redisdb "github.com/fourseasons/crowdfunding-api/internal/infrastructure/db/redis"
	infrahttp "github.com/fourseasons/crowdfunding-api/internal/infrastructure/http"
	"github.com/fourseasons/crowdfunding-api/internal/infrastructure/http/handlers"
	"github.com/fourseasons/crowdfunding-api/internal/infrastructure/queue"
	"github.com/fourseasons/crowdfunding-api/internal/pkg/config"
	"github.com/fourseasons/crowdfunding-api/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "crowdfunding-api",
		Env:     cfg.Env,
	})

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	// --- Repositories ---
	accounts := mongodb.NewAccountRepository(db)
	projects := mongodb.NewProjectRepository(db)
	activity := mongodb.NewActivityRepository(db)

	for name, ensure := range map[string]func(context.Context) error{
		"accounts": accounts.EnsureIndexes,
		"projects": projects.EnsureIndexes,
		"activity": activity.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}

	// --- Activity trail ---
	dispatcher := queue.NewActivityDispatcher(cfg.Activity.Workers, activity, logger.Component("activity"))
	dispatcher.Start()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := dispatcher.Stop(sctx); err != nil {
			log.Warn().Err(err).Msg("activity dispatcher did not drain")
		}
	}()

	// --- Services ---
	enforcer := rbac.NewEnforcer(nil)
	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.TokenTTL())
	guard := service.NewLockoutGuard(accounts, cfg.LockoutPolicy())

	authService := service.NewAuthService(accounts, tokens, guard, dispatcher, cfg.Security.BcryptCost, logger.Component("auth"))
	projectService := service.NewProjectService(
		projects,
		enforcer,
		redisdb.NewIdempotencyStore(rdb, cfg.Security.IdempotencyTTL),
		dispatcher,
		logger.Component("projects"),
	)
	accountService := service.NewAccountService(accounts, enforcer, cfg.LockoutPolicy(), dispatcher, logger.Component("accounts"))

	e := api.NewRouter(api.Deps{
		AuthService:    authService,
		ProjectService: projectService,
		AccountService: accountService,
		Tokens:         tokens,
		Accounts:       accounts,
		Enforcer:       enforcer,
		Checks: map[string]handlers.Check{
			"mongodb": handlers.MongoCheck(db),
			"redis":   handlers.RedisCheck(rdb),
		},
		AuthRateLimit: rate.Limit(cfg.Security.AuthRateLimit),
		AuthRateBurst: cfg.Security.AuthRateBurst,
		Log:           log,
	})

	return infrahttp.Serve(ctx, e, ":"+cfg.Port, cfg.ShutdownTimeout, log)
}
