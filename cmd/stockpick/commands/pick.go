package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/stockpick/internal/picker"
)

// pickCmd represents the pick command
var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "오늘의 종목 선정",
	Long: `오늘의 종목을 조회하거나 선정합니다.

이미 선정된 종목이 있으면 저장된 결과를 보여주고,
없으면 후보군 일봉을 수집해 지금 선정합니다.

Flags:
  --refresh   저장된 결과를 무시하고 다시 선정
  --simulate  네트워크 없이 시뮬레이션 데이터로 선정 (저장하지 않음)
  --ranking   선정된 종목 대신 후보군 전체 순위 출력

Example:
  go run ./cmd/stockpick pick
  go run ./cmd/stockpick pick --refresh
  go run ./cmd/stockpick pick --simulate --ranking`,
	RunE: runPick,
}

var (
	pickRefresh  bool
	pickSimulate bool
	pickRanking  bool
)

func init() {
	rootCmd.AddCommand(pickCmd)

	pickCmd.Flags().BoolVar(&pickRefresh, "refresh", false, "다시 선정")
	pickCmd.Flags().BoolVar(&pickSimulate, "simulate", false, "시뮬레이션 데이터 사용")
	pickCmd.Flags().BoolVar(&pickRanking, "ranking", false, "후보군 전체 순위 출력")
}

func runPick(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := newApp(ctx, appOptions{simulate: pickSimulate})
	if err != nil {
		return err
	}
	defer a.Close()

	if pickRanking {
		return printRanking(ctx, a)
	}

	PrintTitle(fmt.Sprintf("오늘의 종목 · %s", a.picker.Day().Format("2006-01-02")))

	selectPick := a.picker.Today
	if pickRefresh {
		selectPick = a.picker.Refresh
	}

	pick, err := selectPick(ctx)
	if err != nil {
		if errors.Is(err, picker.ErrNoSelection) {
			PrintError("선정 가능한 종목이 없습니다 (모든 시세 조회 실패)")
		}
		return err
	}

	PrintPick(pick)
	if pick.IsSimulated() {
		PrintWarning("실시세를 가져오지 못해 시뮬레이션 데이터로 선정했습니다")
	}
	return nil
}

func printRanking(ctx context.Context, a *app) error {
	ranked, failed, err := a.picker.Leaderboard(ctx)
	if err != nil {
		return err
	}

	PrintTitle(fmt.Sprintf("후보군 순위 · %d종목", len(ranked)))

	rows := make([][]string, len(ranked))
	for i, r := range ranked {
		rows[i] = []string{
			fmt.Sprintf("%d", r.Rank),
			r.Code,
			r.Name,
			fmt.Sprintf("%.2f", r.TotalScore),
			fmt.Sprintf("%.1f", r.TechnicalScore),
			formatOptional(r.Derived.VolumeRatio, "%.1f%%"),
			formatOptional(r.Derived.Volatility, "%.1f%%"),
			r.Source,
		}
	}
	PrintTable(
		[]string{"#", "코드", "종목명", "총점", "기술", "거래량", "변동성", "출처"},
		[]int{3, 6, 14, 8, 5, 9, 8, 12},
		rows,
	)

	for _, f := range failed {
		PrintWarning(fmt.Sprintf("%s: %s", f.Code, f.Error))
	}
	return nil
}
