package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	env          string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockpick",
	Short: "오늘의 종목 - 기술적 지표 기반 일일 종목 선정",
	Long: `Stockpick CLI

국내 주식 후보군의 일봉을 수집하고 기술적 지표(SMA, RSI, MACD,
거래량 비율, 변동성)로 점수를 매겨 하루 한 종목을 선정합니다.

Usage:
  go run ./cmd/stockpick [command]

Examples:
  go run ./cmd/stockpick api
  go run ./cmd/stockpick pick
  go run ./cmd/stockpick indicators 005930
  go run ./cmd/stockpick history --limit 7
  go run ./cmd/stockpick scheduler list`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default: STRATEGY_FILE or built-in)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production|test)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
