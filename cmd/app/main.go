package main

import (
    "context"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/rs/zerolog/log"

    "github.com/local/ocrapi/internal/api"
    cfgpkg "github.com/local/ocrapi/internal/config"
    logpkg "github.com/local/ocrapi/internal/logger"
    "github.com/local/ocrapi/internal/metrics"
    "github.com/local/ocrapi/internal/source"
)

func main() {
    _ = godotenv.Load()
    cfg := cfgpkg.FromEnv()

    // Init logging
    _ = logpkg.Init(logpkg.Options{
        Level: cfg.Logging.Level,
        Pretty: cfg.Logging.Pretty,
        File: cfg.Logging.File,
        MaxSizeMB: cfg.Logging.MaxSizeMB,
        MaxBackups: cfg.Logging.MaxBackups,
        MaxAgeDays: cfg.Logging.MaxAgeDays,
        Compress: cfg.Logging.Compress,
        SendToAxiom: cfg.Axiom.Send && cfg.Axiom.APIKey != "",
        AxiomAPIKey: cfg.Axiom.APIKey,
        AxiomOrgID: cfg.Axiom.OrgID,
        AxiomDataset: cfg.Axiom.Dataset,
        AxiomFlush: cfg.Axiom.FlushInterval,
    })
    defer logpkg.Close()

    metrics.Init()

    if err := os.MkdirAll(cfg.HTTP.SafeRoot, 0o755); err != nil {
        log.Warn().Err(err).Str("dir", cfg.HTTP.SafeRoot).Msg("cannot ensure safe root directory")
    }

    srvAPI := api.New(cfg, nil)
    mux := http.NewServeMux()
    srvAPI.RegisterRoutes(mux)

    // Background sweep of orphaned staging temps
    sweepCtx, sweepCancel := context.WithCancel(context.Background())
    defer sweepCancel()
    go func(){
        source.SweepTemps(cfg.HTTP.TempSweepAge)
        ticker := time.NewTicker(cfg.HTTP.TempSweepEvery)
        defer ticker.Stop()
        for {
            select {
            case <-sweepCtx.Done():
                return
            case <-ticker.C:
                source.SweepTemps(cfg.HTTP.TempSweepAge)
            }
        }
    }()

    srv := &http.Server{Addr: ":"+cfg.HTTP.Port, Handler: mux}

    go func(){
        log.Info().Msgf("HTTP server listening on :%s", cfg.HTTP.Port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("http server error")
        }
    }()

    // Graceful shutdown
    stop := make(chan os.Signal, 1)
    signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
    <-stop
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    _ = srv.Shutdown(ctx)
    fmt.Println("shutdown complete")
}
