package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/stockpick/internal/api"
	"github.com/wonny/stockpick/internal/api/handlers"
	"github.com/wonny/stockpick/internal/scheduler"
	"github.com/wonny/stockpick/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 오늘의 종목 스케줄러 시작 (--no-scheduler 로 끔)
- 선정 결과를 websocket 으로 전송

Endpoints:
  GET    /health              - Health check
  GET    /api/status          - 서비스 상태
  GET    /api/pick/today      - 오늘의 종목
  POST   /api/pick/refresh    - 오늘의 종목 재선정
  GET    /api/pick/history    - 선정 이력
  GET    /api/ranking         - 후보군 전체 순위
  GET    /api/stocks/{code}   - 종목 지표
  POST   /api/stocks          - 여러 종목 지표
  GET    /api/cache/status    - 캐시 상태
  DELETE /api/cache/clear     - 캐시 비우기
  GET    /ws/pick             - 선정 결과 스트림
  GET    /metrics             - Prometheus metrics

Example:
  go run ./cmd/stockpick api
  go run ./cmd/stockpick api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort     string
	noScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
	apiCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "스케줄러 없이 API 만 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := newApp(ctx, appOptions{withHub: true})
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	log := a.log

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// Scheduler
	var sched *scheduler.Scheduler
	if !noScheduler {
		sched, err = newScheduler(a)
		if err != nil {
			return err
		}
		sched.Start()
	}

	router := api.NewRouter(api.Handlers{
		Pick:  handlers.NewPickHandler(a.picker, cfg.Scheduler.HistoryLimit, log),
		Stock: handlers.NewStockHandler(a.picker, log),
		Cache: handlers.NewCacheHandler(a.cache, cfg.Fetch.CacheTTL, log),
		Status: handlers.NewStatusHandler(handlers.StatusInfo{
			Service:      "stockpick",
			Env:          cfg.Env,
			Transports:   a.chain.Names(),
			Store:        cfg.Store.Driver,
			MACDMode:     string(a.engine.Mode()),
			UniverseSize: len(a.strategy.Universe.Stocks),
			CacheTTL:     cfg.Fetch.CacheTTL.String(),
		}),
		Stream:  a.hub,
		Metrics: a.metrics,
	}, log)

	server := api.New(cfg, log, router)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	PrintSuccess(fmt.Sprintf("Server running on http://localhost%s", server.Addr()))
	PrintInfo("Press Ctrl+C to stop")

	runErr := server.Run(sigCtx)

	// 스케줄러와 스트림은 서버 종료 후 정리
	if sched != nil {
		sched.Stop()
	}
	a.hub.Close()

	if runErr != nil {
		return fmt.Errorf("api server: %w", runErr)
	}
	log.Info("Server stopped")
	return nil
}

// newScheduler registers the daily pick and history prune jobs
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.cfg.Scheduler.Location(), a.metrics, a.log)

	if err := sched.AddJob(jobs.NewDailyPickJob(a.picker, a.cfg.Scheduler.PickSchedule, a.log)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewHistoryPruneJob(a.picker, a.cfg.Scheduler.PruneSchedule, a.cfg.Scheduler.HistoryLimit, a.log)); err != nil {
		return nil, err
	}
	return sched, nil
}
