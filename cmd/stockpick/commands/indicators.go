package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// indicatorsCmd represents the indicators command
var indicatorsCmd = &cobra.Command{
	Use:   "indicators <code> [code...]",
	Short: "종목 지표 조회",
	Long: `종목의 일봉을 수집해 지표와 점수 내역을 출력합니다.

Example:
  go run ./cmd/stockpick indicators 005930
  go run ./cmd/stockpick indicators 005930 000660`,
	Args: cobra.RangeArgs(1, 50),
	RunE: runIndicators,
}

func init() {
	rootCmd.AddCommand(indicatorsCmd)
}

func runIndicators(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	for _, code := range args {
		if !isStockCode(code) {
			return fmt.Errorf("invalid stock code %q: must be 6 digits", code)
		}
	}

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	candidates, failed, err := a.picker.Analyze(ctx, args)
	if err != nil {
		return err
	}

	for _, c := range candidates {
		PrintTitle(c.Code)
		PrintCandidate(c)
	}
	for _, f := range failed {
		PrintError(fmt.Sprintf("%s: %s", f.Code, f.Error))
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no price data for %v", args)
	}
	return nil
}

func isStockCode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
