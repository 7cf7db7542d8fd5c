package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/clipvault/clipvault_server/internal"
	"github.com/clipvault/clipvault_server/internal/health"
	"github.com/clipvault/clipvault_server/internal/media"
	"github.com/clipvault/clipvault_server/internal/storage"
	"github.com/clipvault/clipvault_server/internal/user"
	"github.com/clipvault/clipvault_server/internal/video"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const multipartOverhead = 1 << 20

var version = "dev"

func main() {
	config, err := internal.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
		return
	}
	configureLogging(config.Log)

	db, err := internal.NewDB(config.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
		return
	}
	defer db.Close()

	layout := storage.NewLayout(config.Storage.Path)
	localStorage, err := storage.NewLocalStorage(layout)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing storage")
		return
	}
	sweeper := storage.NewSweeper(localStorage, config.Storage)
	sweeper.Start()
	defer sweeper.Stop()

	runner := media.ExecCommandRunner{}
	prober := media.NewProber(config.Media, runner)
	trimmer := media.NewTrimmer(config.Media, runner)

	videoRepository := video.NewPostgresVideoRepository(db.DB)
	userRepository := user.NewPostgresUserRepository(db.DB)

	userService := user.NewUserService(userRepository, videoRepository, localStorage)
	videoService := video.NewVideoService(config.Video, videoRepository, layout, localStorage, prober, trimmer)

	userEndpoints := user.NewUserEndpoints(userService)
	videoEndpoints := video.NewVideoEndpoints(videoService, userService)
	healthEndpoints := health.NewEndpoints(version,
		health.Check{Name: "database", Run: db.Ping},
		health.Check{Name: "ffprobe", Run: prober.VerifyInstalled},
		health.Check{Name: "ffmpeg", Run: trimmer.VerifyInstalled},
	)

	requestHandler := internal.NewRequestHandler(config, userService, userEndpoints, videoEndpoints, healthEndpoints)

	server := &fasthttp.Server{
		Handler:            requestHandler,
		Name:               "clipvault",
		MaxRequestBodySize: int(config.Video.MaxFileSize) + multipartOverhead,
		ReadTimeout:        config.Server.ReadTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		if err := server.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Error shutting down server")
		}
	}()

	addr := fmt.Sprintf(":%d", config.Server.Port)
	log.Info().Str("addr", addr).Str("version", version).Str("storage", layout.Root()).Msg("Starting server")
	if err := server.ListenAndServe(addr); err != nil {
		log.Fatal().Err(err).Msg("Error starting server")
	}
}

func configureLogging(config internal.LogConfig) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if config.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
