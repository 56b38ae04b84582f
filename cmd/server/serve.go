package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/xtding233/gacha-stage/internal/api"
	"github.com/xtding233/gacha-stage/internal/gacha"
	"github.com/xtding233/gacha-stage/internal/stage"
	"github.com/xtding233/gacha-stage/internal/tuning"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the roll API and animate batches on stage",
	RunE: func(cmd *cobra.Command, _ []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		loader, params, err := loadTuning()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		engine := newEngine(st, params, log)

		client, closeClient, err := sceneClient(ctx, params, log)
		if err != nil {
			return err
		}
		defer closeClient()
		orch := stage.NewOrchestrator(client, stage.LogAnnouncer{Log: log}, params.Stage, log)
		queue := stage.NewQueue(orch, 64, log)

		live := &liveRules{rules: params.Rules}
		reload := func(path string) {
			loader.Invalidate()
			_, p, err := loader.Resolve(viper.GetString("profile"))
			if err != nil {
				log.WithError(err).WithField("file", path).Error("tuning reload rejected, keeping current values")
				return
			}
			engine.Reconfigure(p.Rules, p.Purse, p.Fallback)
			orch.Reconfigure(p.Stage)
			live.set(p.Rules)
			log.WithFields(logrus.Fields{"file": path, "version": p.Version}).Info("tuning reloaded")
		}
		watcher := tuning.NewFileWatcher(loader.Paths().Watched(viper.GetString("profile")), 2*time.Second, reload)

		srv := &http.Server{
			Addr:              viper.GetString("addr"),
			Handler:           api.New(engine, queue, live.get, log).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			queue.Run(gctx)
			return nil
		})
		g.Go(func() error {
			watcher.Run(gctx)
			return nil
		})
		g.Go(func() error {
			log.WithField("addr", srv.Addr).Info("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

// liveRules hands the current tuning to simulations while reloads swap it.
type liveRules struct {
	mu    sync.RWMutex
	rules gacha.Rules
}

func (l *liveRules) get() gacha.Rules {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rules
}

func (l *liveRules) set(r gacha.Rules) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rules = r
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	_ = viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}
