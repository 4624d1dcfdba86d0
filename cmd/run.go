package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-logr/stdr"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/config"
	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/health"
	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/modeldownloader"
	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/monitoring"
	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/predictor"
	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/s3"
	"github.com/jjedele/gcp-ai-tf-custom-op-predictor/internal/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/encoding/protojson"
)

func runCmd() *cobra.Command {
	var path string
	var logLevel int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Parse(path)
			if err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer cancel()

			if err := run(ctx, &c, logLevel); err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "config", "", "Path to the config file")
	cmd.Flags().IntVar(&logLevel, "v", 0, "Log level")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func run(ctx context.Context, c *config.Config, lv int) error {
	stdr.SetVerbosity(lv)
	logger := stdr.New(log.Default())
	bootLog := logger.WithName("boot")

	if !c.Debug.Standalone {
		s3Client, err := s3.NewClient(ctx, c.ObjectStore.S3)
		if err != nil {
			return err
		}
		d := modeldownloader.New(c.Model.Dir, s3Client)
		if err := d.Download(ctx, c.Model.ArchiveKey); err != nil {
			return err
		}
	}

	bootLog.Info("Loading the model", "dir", c.Model.Dir)
	p, err := predictor.FromPath(c.Model.Dir, predictor.Options{
		SignatureName:       c.Model.SignatureNameOrDefault(),
		Tags:                c.Model.TagsOrDefault(),
		OpLibraries:         c.Model.OpLibraries,
		AutoLoadOpLibraries: c.Model.AutoLoadOpLibraries,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = p.Close()
	}()

	metricsMonitor := monitoring.NewMetricsMonitor()
	srv := server.New(p, c.Model.SignatureNameOrDefault(), metricsMonitor, logger)

	mux := runtime.NewServeMux(
		runtime.WithMarshalerOption(runtime.MIMEWildcard, &runtime.JSONPb{
			// Follow the platform's snake_case JSON field naming.
			MarshalOptions: protojson.MarshalOptions{
				UseProtoNames:     true,
				EmitDefaultValues: true,
			},
			UnmarshalOptions: protojson.UnmarshalOptions{
				DiscardUnknown: true,
			},
		}),
	)

	pat := runtime.MustPattern(
		runtime.NewPattern(
			1,
			[]int{2, 0, 2, 1},
			[]string{"v1", "predict"},
			"",
		))
	mux.Handle("POST", pat, srv.CreatePrediction)

	probeHandler := health.NewProbeHandler(logger)
	probeHandler.AddProbe(p)

	g, ctx := errgroup.WithContext(ctx)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", c.HTTPPort),
		Handler: mux,
	}
	g.Go(func() error {
		log := logger.WithName("http")
		log.Info("Starting HTTP server...", "port", c.HTTPPort)
		err := httpSrv.ListenAndServe()
		log.Info("Stopped HTTP server")
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	var healthSrv, metricsSrv *http.Server

	if c.HealthPort > 0 {
		healthMux := http.NewServeMux()
		healthMux.HandleFunc("/ready", probeHandler.ProbeHandler)
		healthSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", c.HealthPort),
			Handler: healthMux,
		}
		g.Go(func() error {
			log := logger.WithName("health")
			log.Info("Starting health server...", "port", c.HealthPort)
			if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	if c.MetricsPort > 0 {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", c.MetricsPort),
			Handler: metricsMux,
		}
		g.Go(func() error {
			log := logger.WithName("metrics")
			log.Info("Starting metrics server...", "port", c.MetricsPort)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		bootLog.Info("Shutting down...")
		_ = httpSrv.Shutdown(context.Background())
		if healthSrv != nil {
			_ = healthSrv.Shutdown(context.Background())
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(context.Background())
		}
		return ctx.Err()
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
