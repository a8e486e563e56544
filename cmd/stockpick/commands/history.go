package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "선정 이력 조회",
	Long: `저장된 오늘의 종목 이력을 최신순으로 출력합니다.

PICK_STORE=memory 이면 프로세스마다 이력이 비어 있습니다.

Example:
  go run ./cmd/stockpick history
  go run ./cmd/stockpick history --limit 7
  go run ./cmd/stockpick history --prune`,
	RunE: runHistory,
}

var (
	historyLimit int
	historyPrune bool
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 30, "출력 개수")
	historyCmd.Flags().BoolVar(&historyPrune, "prune", false, "HISTORY_LIMIT 보다 오래된 이력 삭제")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if historyPrune {
		removed, err := a.picker.Prune(ctx, a.cfg.Scheduler.HistoryLimit)
		if err != nil {
			return err
		}
		PrintSuccess(fmt.Sprintf("%d건 삭제 (최근 %d건 유지)", removed, a.cfg.Scheduler.HistoryLimit))
	}

	picks, err := a.picker.History(ctx, historyLimit)
	if err != nil {
		return err
	}

	PrintTitle(fmt.Sprintf("선정 이력 · %d건", len(picks)))
	if len(picks) == 0 {
		PrintInfo("저장된 이력이 없습니다")
		return nil
	}

	rows := make([][]string, len(picks))
	for i, p := range picks {
		rows[i] = []string{
			p.Date.Format("2006-01-02"),
			p.Code,
			p.Name,
			formatPrice(p.Price),
			fmt.Sprintf("%+.2f%%", p.ChangePercent),
			fmt.Sprintf("%.2f", p.TotalScore),
			p.Source,
		}
	}
	PrintTable(
		[]string{"날짜", "코드", "종목명", "현재가", "등락", "총점", "출처"},
		[]int{10, 6, 14, 10, 8, 8, 12},
		rows,
	)
	return nil
}
