package bootstrap

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ecovida/ecovida-backend/config"
	httpapi "github.com/ecovida/ecovida-backend/internal/api/http"
	"github.com/ecovida/ecovida-backend/internal/api/http/middleware"
	"github.com/ecovida/ecovida-backend/internal/auth"
	"github.com/ecovida/ecovida-backend/internal/community"
	"github.com/ecovida/ecovida-backend/internal/consultations"
	"github.com/ecovida/ecovida-backend/internal/engagement"
	"github.com/ecovida/ecovida-backend/internal/environment"
	"github.com/ecovida/ecovida-backend/internal/funding"
	"github.com/ecovida/ecovida-backend/internal/media"
	"github.com/ecovida/ecovida-backend/internal/organizations"
	"github.com/ecovida/ecovida-backend/internal/payments"
	"github.com/ecovida/ecovida-backend/internal/reputation"
	"github.com/ecovida/ecovida-backend/internal/taxonomy"
	"github.com/ecovida/ecovida-backend/internal/users"
)

type RouterDeps struct {
	ServiceName string
	Cfg         *config.Config
	DB          *pgxpool.Pool
	Redis       *redis.Client
	Verifier    auth.TokenVerifier
	Weather     *environment.WeatherClient
	Log         zerolog.Logger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(dep.Log))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id"},
	}))
	if dep.Cfg.Server.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(dep.Cfg.Server.RateLimitRPS, dep.Cfg.Server.RateLimitBurst))
	}

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Cfg.App.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	userRepo := users.NewRepo(dep.DB)

	api := r.Group("/api/v1")
	api.Use(auth.WithUser(dep.Verifier, ensureUser(userRepo)))

	users.Register(api.Group("/users"), userRepo)
	taxonomy.Register(api, taxonomy.NewRepo(dep.DB))
	organizations.Register(api, organizations.NewRepo(dep.DB))
	community.Register(api, community.NewRepo(dep.DB), community.NewTrending(dep.Redis), dep.Log)
	engagement.Register(api, engagement.NewRepo(dep.DB))

	repRepo := reputation.NewRepo(dep.DB)
	board := reputation.NewLeaderboard(dep.Redis)
	reputation.Register(api, repRepo, board, dep.Log)

	funding.Register(api, funding.NewRepo(dep.DB))
	consultations.Register(api, consultations.NewRepo(dep.DB))
	payments.Register(api, payments.NewRepo(dep.DB))
	media.Register(api, media.NewRepo(dep.DB))
	var fetcher environment.Fetcher
	if dep.Weather != nil {
		fetcher = dep.Weather
	}
	environment.Register(api, environment.NewRepo(dep.DB), fetcher, dep.Log)

	return r
}

// ensureUser adapts the users repo to the auth middleware without the
// auth package importing users.
func ensureUser(repo *users.Repo) auth.EnsureFunc {
	return func(ctx context.Context, p auth.Profile) (auth.Actor, error) {
		id, err := repo.EnsureUser(ctx, users.UpsertUser{
			FirebaseUID: p.UID,
			Email:       p.Email,
			DisplayName: p.Name,
			PhotoURL:    p.Picture,
		})
		if err != nil {
			return auth.Actor{}, err
		}
		return auth.Actor{ID: id.ID, Role: id.Role}, nil
	}
}
