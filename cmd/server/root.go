package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xtding233/gacha-stage/internal/config"
	"github.com/xtding233/gacha-stage/internal/gacha"
	"github.com/xtding233/gacha-stage/internal/logging"
	"github.com/xtding233/gacha-stage/internal/progression"
	"github.com/xtding233/gacha-stage/internal/scene"
	"github.com/xtding233/gacha-stage/internal/scene/obsws"
	"github.com/xtding233/gacha-stage/internal/scene/scenetest"
	"github.com/xtding233/gacha-stage/internal/store"
	"github.com/xtding233/gacha-stage/internal/tuning"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gacha-stage",
	Short: "Gacha pulls with an animated reveal on stream.",
	Long: `gacha-stage rolls gacha pulls against each viewer's collection progress and
animates the results on an OBS scene: cards rise from behind an anchor, reveal
their art and level, then fade away.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gacha-stage.yaml)")

	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("tuning", "tuning", "Directory holding default.yaml and profiles/")
	rootCmd.PersistentFlags().String("profile", "", "Tuning profile overlaid on default.yaml")
	rootCmd.PersistentFlags().String("db", "", "Progression database (default is $GACHA_DB_PATH or ~/.gacha-stage/progress.db)")
	rootCmd.PersistentFlags().Uint64("seed", 0, "Seed for reproducible rolls (0 uses crypto randomness)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Animate against an in-memory scene instead of OBS")

	for _, name := range []string{"loglevel", "tuning", "profile", "db", "seed", "dry-run"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".gacha-stage")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("GACHA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "reading config: %v\n", err)
		}
	}
}

func newLogger() (*logrus.Logger, error) {
	return logging.New(os.Stderr, viper.GetString("loglevel"))
}

func loadTuning() (*tuning.Loader, tuning.Params, error) {
	l := tuning.NewLoader(viper.GetString("tuning"))
	_, p, err := l.Resolve(viper.GetString("profile"))
	if err != nil {
		return nil, tuning.Params{}, fmt.Errorf("tuning: %w", err)
	}
	return l, p, nil
}

func openStore() (store.Store, error) {
	path := viper.GetString("db")
	if path == "" {
		env, err := config.Load()
		if err != nil {
			return nil, err
		}
		path = env.Store.DBPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	s, err := store.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return s, nil
}

func newEngine(s progression.Store, p tuning.Params, log logrus.FieldLogger) *progression.Engine {
	opts := []progression.Option{
		progression.WithLogger(log),
		progression.WithRules(p.Rules),
		progression.WithPurse(p.Purse),
		progression.WithFallbackSet(p.Fallback),
	}
	if seed := viper.GetUint64("seed"); seed != 0 {
		opts = append(opts, progression.WithRandom(gacha.NewSeededRNG(seed)))
	}
	return progression.NewEngine(s, opts...)
}

const obsRedialBackoff = 10 * time.Second

// sceneClient connects to OBS, or builds a recorder holding just the anchor for dry runs.
func sceneClient(ctx context.Context, p tuning.Params, log logrus.FieldLogger) (scene.Client, func() error, error) {
	if viper.GetBool("dry-run") {
		rec := scenetest.NewRecorder()
		rec.Place(p.Stage.Anchor, scene.Geometry{
			Transform: scene.Transform{X: 960, Y: 900, ScaleX: 1, ScaleY: 1},
			Width:     600, Height: 120,
		})
		return rec, func() error { return nil }, nil
	}
	env, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	c := obsws.NewRedialer(env.OBS.Client(), obsRedialBackoff, log)
	if err := c.Connect(ctx); err != nil {
		log.WithError(err).Warn("starting without obs, pulls are reported as text until it is reachable")
	}
	return c, c.Close, nil
}
