package main

import (
	"os"

	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/lingoleap-app/lingo_api/middleware"
	"github.com/lingoleap-app/lingo_api/services"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal().Err(err).Msg("Error loading .env file")
	}

	ctx, err := context.NewCtx(
		&services.PostgresService{},
		&services.RedisService{},

		&services.JWTService{},
		&middleware.AuthMiddleware{},

		&services.AuthService{},
		&services.ProgressService{},
		&services.ContentService{},

		&services.RateLimitService{},
		&services.MonitoringService{},
		&services.SchedulerService{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err)
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err)
		return
	}
}
