// server runs the nexus auth API: HTTP on HTTP_ADDR and the gRPC health service on GRPC_ADDR.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"

	"github.com/vritti-ai-platforms/api-nexus/internal/config"
	apphealth "github.com/vritti-ai-platforms/api-nexus/internal/health"
	identitysvc "github.com/vritti-ai-platforms/api-nexus/internal/identity/service"
	"github.com/vritti-ai-platforms/api-nexus/internal/logging"
	"github.com/vritti-ai-platforms/api-nexus/internal/metrics"
	"github.com/vritti-ai-platforms/api-nexus/internal/notification"
	orgsvc "github.com/vritti-ai-platforms/api-nexus/internal/organization/service"
	resetsvc "github.com/vritti-ai-platforms/api-nexus/internal/passwordreset/service"
	"github.com/vritti-ai-platforms/api-nexus/internal/server"
	"github.com/vritti-ai-platforms/api-nexus/internal/server/httpapi"
	sessionsvc "github.com/vritti-ai-platforms/api-nexus/internal/session/service"
	"github.com/vritti-ai-platforms/api-nexus/internal/telemetry"
	otelsetup "github.com/vritti-ai-platforms/api-nexus/internal/telemetry/otel"
	usersvc "github.com/vritti-ai-platforms/api-nexus/internal/user/service"
)

const (
	serviceName     = "nexus-auth"
	shutdownTimeout = 15 * time.Second
	healthInterval  = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.Env)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otelsetup.NewProviders(ctx, otelsetup.Settings{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: serviceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()
	emitter := otelsetup.NewEventEmitter(providers.LoggerProvider)
	m := metrics.New()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()

	tokens, err := newTokenProvider(cfg)
	if err != nil {
		return err
	}
	hasher := newHasher(cfg)

	notify, err := newNotifier(ctx, cfg, logging.Component(logger, "notification"))
	if err != nil {
		return err
	}
	defer notify.close()
	dispatcher := notification.NewDispatcher(notify.notifier, logging.Component(logger, "notification"), m, 0)

	lifecycle := sessionsvc.NewLifecycle(st.sessions, tokens, logging.Component(logger, "session"), m)
	auth := identitysvc.NewAuthService(st.users, lifecycle, hasher, emitter, logging.Component(logger, "auth"), m)
	reset := resetsvc.NewWorkflow(st.users, st.codes, lifecycle, hasher, dispatcher, emitter,
		logging.Component(logger, "password_reset"), m,
		resetsvc.Options{OTPTTL: cfg.OTPTTL(), OTPMaxAttempts: cfg.OTPMaxAttempts})
	users := usersvc.NewUserService(st.users, logging.Component(logger, "users"))
	orgs := orgsvc.NewOrganizationService(st.orgs, logging.Component(logger, "organizations"))

	router := httpapi.NewRouter(httpapi.Deps{
		Auth:          auth,
		Reset:         reset,
		Users:         users,
		Organizations: orgs,
		Tokens:        tokens,
		Sessions:      lifecycle,
		Cookie:        cfg.Cookie(),
		WebhookSecret: cfg.WebhookSecret,
		DevOTP:        notify.devStore,
		Pinger:        st.pinger,
		Metrics:       m,
		Logger:        logging.Component(logger, "http"),
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hs := health.NewServer()
	checker := apphealth.NewChecker(hs, st.pinger, healthInterval, logging.Component(logger, "health"))
	grpcSrv := server.NewGRPCServer(hs, logging.Component(logger, "grpc"))
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 2)
	go checker.Run(ctx)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
		logger.Error("server failed, shutting down", zap.Error(runErr))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	grpcSrv.GracefulStop()
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("pending reset emails abandoned", zap.Error(err))
	}

	// Let in-flight telemetry emits finish before the providers flush.
	time.Sleep(telemetry.ShutdownDrainDuration)
	otelCtx, otelCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer otelCancel()
	if err := providers.Shutdown(otelCtx); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
	return runErr
}
