package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/wonny/stockpick/internal/scheduler"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/stockpick scheduler start
  go run ./cmd/stockpick scheduler list
  go run ./cmd/stockpick scheduler run daily_pick`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- daily_pick: PICK_SCHEDULE (기본 매일 00:05 KST, 오늘의 종목 선정)
- history_prune: PRUNE_SCHEDULE (기본 매일 00:30 KST, HISTORY_LIMIT 초과 이력 삭제)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

// cronParser matches the scheduler's seconds-enabled spec format
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// withScheduler wires the app and its jobs, runs fn, then releases the app
func withScheduler(cmd *cobra.Command, fn func(a *app, sched *scheduler.Scheduler) error) error {
	a, err := newApp(commandContext(cmd), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	return fn(a, sched)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	return withScheduler(cmd, func(a *app, sched *scheduler.Scheduler) error {
		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sched.Start()
		PrintSuccess("Scheduler started")

		stats := sched.GetJobStats()
		for _, name := range sched.GetAllJobs() {
			next := nextRun(stats[name].Schedule, a.cfg.Scheduler.Location(), time.Now())
			if at, err := sched.NextRun(name); err == nil && !at.IsZero() {
				next = at.Format(nextRunLayout)
			}
			PrintInfo(fmt.Sprintf("%s → %s", name, next))
		}
		PrintInfo("Press Ctrl+C to stop")

		<-ctx.Done()

		a.log.Info("Shutting down scheduler")
		sched.Stop()
		PrintSuccess("Scheduler stopped")
		return nil
	})
}

func listJobs(cmd *cobra.Command, args []string) error {
	return withScheduler(cmd, func(a *app, sched *scheduler.Scheduler) error {
		loc := a.cfg.Scheduler.Location()
		stats := sched.GetJobStats()

		rows := make([][]string, 0, len(stats))
		for _, name := range sched.GetAllJobs() {
			spec := stats[name].Schedule
			rows = append(rows, []string{name, spec, nextRun(spec, loc, time.Now())})
		}

		PrintTitle("등록된 작업")
		PrintTable([]string{"작업", "스케줄", "다음 실행"}, []int{14, 16, 22}, rows)
		return nil
	})
}

func runJob(cmd *cobra.Command, args []string) error {
	name := args[0]
	return withScheduler(cmd, func(a *app, sched *scheduler.Scheduler) error {
		PrintInfo(fmt.Sprintf("Running job: %s", name))

		// CLI 에서는 재시도 대기 없이 한 번만 실행
		result, err := sched.WithRetry(0, 0).RunJobSync(name)
		if err != nil {
			return err
		}

		took := result.Duration.Round(time.Millisecond)
		if !result.Success {
			PrintError(fmt.Sprintf("%s failed after %s: %s", name, took, result.Error))
			return fmt.Errorf("job %s failed", name)
		}
		PrintSuccess(fmt.Sprintf("%s completed in %s", name, took))
		return nil
	})
}

const nextRunLayout = "2006-01-02 15:04 MST"

// nextRun formats the next activation of a cron spec after now, in loc
func nextRun(schedule string, loc *time.Location, now time.Time) string {
	spec, err := cronParser.Parse(schedule)
	if err != nil {
		return "-"
	}
	return spec.Next(now.In(loc)).Format(nextRunLayout)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
