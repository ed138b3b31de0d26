package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/whatthetune/blindtest/internal/auth"
	"github.com/whatthetune/blindtest/internal/catalog"
	"github.com/whatthetune/blindtest/internal/config"
	"github.com/whatthetune/blindtest/internal/game"
	"github.com/whatthetune/blindtest/internal/handlers"
	"github.com/whatthetune/blindtest/internal/history"
)

const releaseVersion = "0.2.0"

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TUNE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "tuneserver",
		Short:         "Authoritative session server for the What the Tune? music guessing game",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on")
	fs.StringVar(&cfg.PublicURL, "public-url", "http://localhost:8080", "externally visible base URL used in join links")
	fs.IntVar(&cfg.SongsPerGame, "songs-per-game", 10, "number of rounds per game")
	fs.DurationVar(&cfg.RoundDuration, "round-duration", 30*time.Second, "maximum guessing window per round")
	fs.DurationVar(&cfg.Intermission, "intermission", 8*time.Second, "pause between rounds")
	fs.IntVar(&cfg.MaxPlayers, "max-players", 8, "maximum players per room")
	fs.IntVar(&cfg.ChatMaxLen, "chat-max-length", 500, "maximum chat message length in characters")
	fs.IntVar(&cfg.ChatRetention, "chat-retention", 200, "chat messages retained per room")
	fs.DurationVar(&cfg.RoomGrace, "room-grace", time.Minute, "how long an empty room lingers before removal")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "Postgres connection string for the song catalog")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "", "Redis address for the game history queue")
	fs.StringVar(&cfg.HistoryQueue, "history-queue", history.DefaultQueueName, "Redis list name for finished games")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "enable debug logging")

	// Every flag is overridable through a TUNE_* environment variable, e.g.
	// --database-url becomes TUNE_DATABASE_URL.
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, v.GetString(f.Name))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}

func serve(cfg *config.Config) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	auth.Init()

	var cat catalog.Catalog
	if cfg.DatabaseURL != "" {
		pg, err := catalog.NewPostgres(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		cat = pg
		logger.Info("serving songs from Postgres")
	} else {
		logger.Warn("no database-url configured, falling back to the built-in demo catalog")
		cat = catalog.NewStatic(nil)
	}

	registry := game.NewRegistry(game.Config{
		SongsPerGame:  cfg.SongsPerGame,
		RoundDuration: cfg.RoundDuration,
		Intermission:  cfg.Intermission,
		MaxPlayers:    cfg.MaxPlayers,
		ChatMaxLen:    cfg.ChatMaxLen,
		ChatRetention: cfg.ChatRetention,
		EmptyGrace:    cfg.RoomGrace,
	}, cat, logger)
	defer registry.Close()

	if cfg.RedisAddr != "" {
		recorder, err := history.Connect(cfg.RedisAddr, cfg.HistoryQueue, logger)
		if err != nil {
			logger.WithError(err).Warn("game history disabled")
		} else {
			registry.OnFinished = recorder.Record
			logger.WithField("queue", cfg.HistoryQueue).Info("recording finished games to Redis")
		}
	}

	srv := handlers.NewServer(logger, registry, cfg.PublicURL)
	logger.Infof("listening on %s", cfg.Addr())
	return http.ListenAndServe(cfg.Addr(), srv.Routes())
}

func main() {
	log.SetFlags(0)
	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}
