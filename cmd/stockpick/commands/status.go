package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/stockpick/internal/strategyconfig"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "설정 및 연결 상태 확인",
	Long: `현재 설정으로 조립된 구성 요소를 출력합니다.

- 활성화된 시세 transport (우선순위 순)
- 저장소 드라이버와 Redis 연결
- 전략 파일 해시와 경고

Example:
  go run ./cmd/stockpick status
  go run ./cmd/stockpick status --strategy config/strategy/stock_of_the_day.yaml`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		PrintError(err.Error())
		return err
	}
	defer a.Close()

	redisStatus := "disabled"
	if a.redis.Enabled() {
		redisStatus = "connected"
		if err := a.redis.Ping(ctx); err != nil {
			redisStatus = "error: " + err.Error()
		}
	}

	transports := strings.Join(a.chain.Names(), " → ")
	if transports == "" {
		transports = warningStyle.Render("none")
	}

	strategyName := "built-in"
	if strategyFile != "" {
		strategyName = strategyFile
	}

	PrintTitle("Stockpick status")
	PrintPanel(
		kv("env", a.cfg.Env),
		kv("transports", transports),
		kv("store", a.cfg.Store.Driver),
		kv("redis", redisStatus),
		kv("metrics", fmt.Sprintf("%t", a.metrics != nil)),
		kv("timezone", a.cfg.Scheduler.Location().String()),
		"",
		kv("strategy", strategyName),
		kv("strategy id", a.strategy.Meta.StrategyID),
		kv("universe", universeSummary(a.strategy)),
		kv("macd mode", string(a.engine.Mode())),
		kv("theme", a.strategy.Theme.Provider),
		kv("config hash", a.configHash[:12]),
	)

	for _, w := range strategyconfig.CheckWarnings(a.strategy) {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	return nil
}

func universeSummary(cfg *strategyconfig.Config) string {
	if cfg.Universe.Source == strategyconfig.UniverseNaverRanking {
		r := cfg.Universe.Ranking
		return fmt.Sprintf("naver %s %s top %d (fallback %d)", r.Market, r.Category, r.Size, len(cfg.Universe.Stocks))
	}
	return fmt.Sprintf("static %d", len(cfg.Universe.Stocks))
}
