package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	activityx "github.com/tanpawarit/pawsome-voice-agent/agent/activity"
	settlementx "github.com/tanpawarit/pawsome-voice-agent/agent/settlement"
	storex "github.com/tanpawarit/pawsome-voice-agent/agent/store"
	toolx "github.com/tanpawarit/pawsome-voice-agent/agent/tool"
	webhookx "github.com/tanpawarit/pawsome-voice-agent/agent/webhook"
	configx "github.com/tanpawarit/pawsome-voice-agent/pkg/config"
	_ "github.com/tanpawarit/pawsome-voice-agent/pkg/logger/autoload"
	qstashx "github.com/tanpawarit/pawsome-voice-agent/pkg/qstash"
	tracingx "github.com/tanpawarit/pawsome-voice-agent/pkg/tracing"
)

const serviceName = "debt-recovery-voice-agent"

type AppConfig struct {
	MinimumSettlementPercentage int    `envconfig:"MINIMUM_SETTLEMENT_PERCENTAGE" default:"70" validate:"gte=1,lte=100"`
	BusinessName                string `envconfig:"BUSINESS_NAME" default:"Pawsome Pet Grooming"`
	Port                        int    `envconfig:"PORT" default:"3000" validate:"gt=0,lte=65535"`
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `split_words:"true" default:"5s"`
	WriteTimeout    time.Duration `split_words:"true" default:"10s"`
	IdleTimeout     time.Duration `split_words:"true" default:"120s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"20s"`
}

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("startup")
		os.Exit(1)
	}
}

func run() error {
	appCfg := configx.MustNew[AppConfig]("")
	httpCfg := configx.MustNew[HTTPConfig]("HTTP")
	tracingCfg := configx.MustNew[tracingx.Config]("TRACING")
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")

	// =========================================================================
	// Tracing

	shutdownTracing, err := tracingx.Start(*tracingCfg)
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	// =========================================================================
	// Engine

	policy, err := settlementx.NewPolicy(appCfg.MinimumSettlementPercentage)
	if err != nil {
		return err
	}
	repo, err := storex.New()
	if err != nil {
		return fmt.Errorf("loading store: %w", err)
	}
	svc, err := toolx.NewServices(repo, policy, time.Now)
	if err != nil {
		return err
	}

	recorderOpts := []activityx.Option{activityx.WithCustomers(repo)}
	if qstashCfg.Enabled() {
		client, err := qstashx.NewClient(*qstashCfg)
		if err != nil {
			return fmt.Errorf("qstash client: %w", err)
		}
		recorderOpts = append(recorderOpts, activityx.WithPublisher(activityx.PublisherFunc(func(ctx context.Context, e activityx.Entry) error {
			_, err := client.Publish(ctx, e)
			return err
		}), qstashCfg.Timeout))
		log.Info().Str("destination", qstashCfg.Destination).Msg("activity fan-out enabled")
	}
	recorder := activityx.NewRecorder(recorderOpts...)
	defer recorder.Wait()

	dispatcher, err := toolx.NewDispatcher(svc, toolx.WithObserver(recorder))
	if err != nil {
		return err
	}

	// =========================================================================
	// HTTP

	router := webhookx.NewRouter(
		serviceName,
		log.Logger,
		webhookx.NewHandler(dispatcher, recorder),
		webhookx.NewDashboard(serviceName, repo, recorder),
	)
	server := &http.Server{
		Addr:         net.JoinHostPort("", strconv.Itoa(appCfg.Port)),
		Handler:      router,
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
		IdleTimeout:  httpCfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("business", appCfg.BusinessName).
			Int("settlement_percentage", policy.Percentage).
			Msg("server listening")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown started")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		_ = server.Close()
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info().Msg("shutdown complete")
	return nil
}
