package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Skufu/MedPro/internal/api"
	"github.com/Skufu/MedPro/internal/config"
	"github.com/Skufu/MedPro/internal/diagnosis"
	"github.com/Skufu/MedPro/internal/features"
	"github.com/Skufu/MedPro/internal/forest"
	"github.com/Skufu/MedPro/internal/logging"
	"github.com/Skufu/MedPro/internal/store"
	"github.com/Skufu/MedPro/internal/taxonomy"
	"github.com/Skufu/MedPro/internal/trainingdata"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code. Command
// errors are reported on stderr.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "server",
		Short:         "Symptom checker API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			return serve(cfg, logger)
		},
	}
	root.AddCommand(newPredictCmd(), newCheckCmd())
	return root
}

func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, logging.Format(cfg.Log.Format))
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newTrainer(cfg *config.Config, logger logrus.FieldLogger) *diagnosis.Trainer {
	return &diagnosis.Trainer{
		Registry: taxonomy.Default(),
		Forest: forest.Config{
			Trees:       cfg.Training.Trees,
			MaxFeatures: cfg.Training.MaxFeatures,
			MaxDepth:    cfg.Training.MaxDepth,
			Seed:        cfg.Training.Seed,
			Workers:     cfg.Training.Workers,
		},
		LabelColumn:       cfg.Training.LabelColumn,
		AllowExtraColumns: cfg.Training.AllowExtraColumns,
		Logger:            logger,
	}
}

// trainOrDisable trains from the configured table. On failure it logs and
// returns nil so the service starts with predictions disabled.
func trainOrDisable(tr *diagnosis.Trainer, path string, logger logrus.FieldLogger) *diagnosis.Model {
	m, err := tr.TrainFile(path)
	if err != nil {
		logger.WithError(err).Warn("training failed, predictions disabled")
		return nil
	}
	s := m.Summary()
	logger.WithFields(logrus.Fields{
		"path":    path,
		"records": s.Records,
		"trees":   s.Trees,
		"nodes":   s.Nodes,
		"took":    s.Took,
	}).Info("model trained")
	return m
}

func serve(cfg *config.Config, logger *logrus.Logger) error {
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	opts := api.Options{
		Registry:    taxonomy.Default(),
		AdminToken:  cfg.AdminToken,
		MaxSymptoms: cfg.MaxSymptoms,
		Logger:      logger,
	}

	if cfg.EnableDB {
		db, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Error("database connection failed")
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			logger.WithError(err).Error("database migration failed")
			return err
		}
		opts.DB = db
		opts.History = db
	}

	tr := newTrainer(cfg, logger)
	opts.Engine = diagnosis.NewEngine(trainOrDisable(tr, cfg.Training.Path, logger))
	opts.Retrain = func() (*diagnosis.Model, error) {
		return tr.TrainFile(cfg.Training.Path)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	logger.Infof("server listening on :%s", cfg.Port)
	return waitForShutdown(server, errc, logger)
}

func waitForShutdown(server *http.Server, errc <-chan error, logger logrus.FieldLogger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		logger.WithError(err).Error("server error")
		return err
	case <-stop:
	}

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
		return err
	}
	return nil
}

func newPredictCmd() *cobra.Command {
	var (
		symptoms []string
		top      int
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Train from the configured table and predict one symptom selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			m, err := newTrainer(cfg, logger).TrainFile(cfg.Training.Path)
			if err != nil {
				logger.WithError(err).Error("training failed")
				return err
			}
			return runPredict(cmd.OutOrStdout(), m, symptoms, top)
		},
	}
	cmd.Flags().StringArrayVarP(&symptoms, "symptom", "s", nil, "symptom name (repeatable)")
	cmd.Flags().IntVar(&top, "top", 0, "also print the k most likely diseases")
	return cmd
}

func runPredict(w io.Writer, m *diagnosis.Model, symptoms []string, top int) error {
	enc, err := features.NewEncoder(m.Registry()).Encode(symptoms)
	if err != nil {
		return err
	}
	for _, name := range enc.Ignored {
		fmt.Fprintf(w, "ignored unknown symptom %q\n", name)
	}

	p, err := diagnosis.Predict(enc.Vector, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (%.2f%%)\n", p.Disease, p.Confidence)

	if top > 0 {
		ranked, err := diagnosis.Rank(enc.Vector, m, top)
		if err != nil {
			return err
		}
		for i, r := range ranked {
			fmt.Fprintf(w, "%d. %s %.2f%%\n", i+1, r.Disease, r.Confidence)
		}
	}
	return nil
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the training table and report model accuracy on it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			tr := newTrainer(cfg, logger)
			records, err := trainingdata.Load(cfg.Training.Path, tr.Schema())
			if err != nil {
				err = &diagnosis.TrainingDataError{Source: cfg.Training.Path, Err: err}
				logger.WithError(err).Error("check failed")
				return err
			}
			return runCheck(cmd.OutOrStdout(), tr, records)
		},
	}
}

func runCheck(w io.Writer, tr *diagnosis.Trainer, records []trainingdata.Record) error {
	m, err := tr.Train(records)
	if err != nil {
		return err
	}
	acc, err := m.Accuracy(records)
	if err != nil {
		return err
	}
	s := m.Summary()
	fmt.Fprintf(w, "records:   %d\n", s.Records)
	fmt.Fprintf(w, "symptoms:  %d\n", s.Symptoms)
	fmt.Fprintf(w, "diseases:  %d\n", s.Diseases)
	fmt.Fprintf(w, "trees:     %d (%d nodes, max depth %d)\n", s.Trees, s.Nodes, s.MaxDepth)
	fmt.Fprintf(w, "accuracy:  %.2f%%\n", acc*100)
	return nil
}
