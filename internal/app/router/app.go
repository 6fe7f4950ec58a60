package router

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/aimsports/aim-backend/internal/client/gateway"
	"github.com/aimsports/aim-backend/internal/config"
	"github.com/aimsports/aim-backend/internal/lib/ffmpeg"
	"github.com/aimsports/aim-backend/internal/storage/sqlite"

	authSrv "github.com/aimsports/aim-backend/internal/service/auth"
	clipSrv "github.com/aimsports/aim-backend/internal/service/clip"
	clipStatsSrv "github.com/aimsports/aim-backend/internal/service/clipstats"
	correlationSrv "github.com/aimsports/aim-backend/internal/service/correlation"
	filmSrv "github.com/aimsports/aim-backend/internal/service/film"
	gameMatchSrv "github.com/aimsports/aim-backend/internal/service/gamematch"
	ingestSrv "github.com/aimsports/aim-backend/internal/service/ingest"
	jwtSrv "github.com/aimsports/aim-backend/internal/service/jwt"
	srcSrv "github.com/aimsports/aim-backend/internal/service/source"
	statSrv "github.com/aimsports/aim-backend/internal/service/stat"
	teamSrv "github.com/aimsports/aim-backend/internal/service/team"

	accessCtr "github.com/aimsports/aim-backend/internal/controller/access"
	authCtr "github.com/aimsports/aim-backend/internal/controller/auth"
	clipCtr "github.com/aimsports/aim-backend/internal/controller/clip"
	filmCtr "github.com/aimsports/aim-backend/internal/controller/film"
	ingestCtr "github.com/aimsports/aim-backend/internal/controller/ingest"
	jwtCtr "github.com/aimsports/aim-backend/internal/controller/jwt"
	possessionCtr "github.com/aimsports/aim-backend/internal/controller/possession"
	statCtr "github.com/aimsports/aim-backend/internal/controller/stat"
	teamCtr "github.com/aimsports/aim-backend/internal/controller/team"
)

type App struct {
	log     *slog.Logger
	address string
	app     *fiber.App
}

// New returns configured router.App
func New(
	log *slog.Logger,
	storage *sqlite.Storage,
	cfg *config.Config,
	secret []byte,
) *App {
	// Create sevices
	jwt := jwtSrv.New(secret)

	auth := authSrv.New(
		log,
		storage,
		jwt,
		cfg.TokenTTL,
	)

	team := teamSrv.New(
		log,
		storage,
		cfg.Invites.CodeLength,
	)

	src := srcSrv.New(
		log,
		cfg.Media.Root,
	)

	correlation := correlationSrv.New(
		log,
		storage,
		cfg.Correlation.ScopeToGame,
	)

	hydrator := clipStatsSrv.New(
		log,
		storage,
	)

	stat := statSrv.New(
		log,
		storage,
	)

	matcher := gameMatchSrv.New(
		log,
		storage,
	)

	ingest := ingestSrv.New(
		log,
		storage,
		matcher,
	)

	var segmenter filmSrv.Segmenter
	if cfg.Gateway.URL != "" {
		segmenter = gateway.New(
			log,
			cfg.Gateway.URL,
			cfg.Gateway.Token,
			cfg.Gateway.Timeout,
		)
	}

	film := filmSrv.New(
		log,
		storage,
		src,
		matcher,
		ffmpeg.Prober{},
		segmenter,
		correlation,
	)

	clip := clipSrv.New(
		log,
		storage,
		src,
		hydrator,
		correlation,
	)

	// Create controller helpers
	jwtC := jwtCtr.New(secret, auth, cfg.HTTPServer.Timeout)
	acc := accessCtr.New(cfg.HTTPServer.Timeout, team)

	timeout := cfg.HTTPServer.Timeout
	tmpDir := cfg.HTTPServer.TmpDir

	app := fiber.New(fiber.Config{
		BodyLimit:   cfg.HTTPServer.BodyLimit,
		IdleTimeout: cfg.HTTPServer.IdleTimeout,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})

	// Mount controllers to an app
	app.Mount("/auth", authCtr.New(timeout, auth))

	// film and clips share team scoped app
	teams := teamCtr.New(timeout, team, jwtC, acc)
	filmCtr.Register(teams, timeout, cfg.HTTPServer.ProcessTimeout, film, acc, tmpDir)
	clipCtr.Register(teams, timeout, clip, acc, tmpDir)
	app.Mount("/teams", teams)

	app.Mount("/stats", statCtr.New(timeout, stat, matcher, jwtC))
	app.Mount("/ingest", ingestCtr.New(timeout, ingest, jwtC))
	app.Mount("/possessions", possessionCtr.New(timeout, correlation, jwtC))
	app.Mount("/games", possessionCtr.NewGames(timeout, stat, jwtC))

	return &App{
		log:     log,
		address: cfg.HTTPServer.Address,
		app:     app,
	}
}

// Fiber returns underlying fiber app.
func (a *App) Fiber() *fiber.App {
	return a.app
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	a.log.Info("starting http server", slog.String("address", a.address))

	return a.app.Listen(a.address)
}

func (a *App) Stop() error {
	return a.app.Shutdown()
}
