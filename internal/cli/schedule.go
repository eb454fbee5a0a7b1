package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jacksund/warden/internal/domain"
	"github.com/jacksund/warden/internal/repo"
	"github.com/jacksund/warden/internal/scheduler"
	"github.com/spf13/cobra"
)

// NewScheduleCmd создаёт группу команд для управления расписаниями.
func NewScheduleCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage periodic work schedules",
	}

	cmd.AddCommand(
		newScheduleCreateCmd(deps),
		newScheduleListCmd(deps),
		newScheduleShowCmd(deps),
		newScheduleEnableCmd(deps, true),
		newScheduleEnableCmd(deps, false),
		newScheduleDeleteCmd(deps),
	)

	return cmd
}

func newScheduleCreateCmd(deps *Deps) *cobra.Command {
	var pf payloadFlags
	var name, cronExpr, timezone string
	var intervalSec int
	var disabled bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a schedule",
		Example: `  warden schedule create --name nightly-report --cron "0 2 * * *" --fn report
  warden schedule create --name healthcheck --interval 300 --fn http --args '{"url":"https://example.com/healthz"}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if (cronExpr == "") == (intervalSec == 0) {
				return fmt.Errorf("exactly one of --cron or --interval is required")
			}
			if cronExpr != "" {
				if err := scheduler.ValidateCronExpr(cronExpr); err != nil {
					return err
				}
			}
			if intervalSec < 0 {
				return fmt.Errorf("--interval must be positive")
			}

			payload, err := pf.build()
			if err != nil {
				return err
			}

			now := time.Now()
			sched := &domain.Schedule{
				ID:          uuid.New(),
				Name:        name,
				Payload:     payload,
				CronExpr:    cronExpr,
				IntervalSec: intervalSec,
				Timezone:    timezone,
				Enabled:     !disabled,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			nextDue, err := scheduler.CalculateInitialNextDue(sched)
			if err != nil {
				return fmt.Errorf("calculate first due time: %w", err)
			}
			sched.NextDueAt = &nextDue

			schedules, err := deps.Schedules(ctx)
			if err != nil {
				return err
			}
			if err := schedules.Create(ctx, sched); err != nil {
				return err
			}

			out := deps.Output()
			out.Success(fmt.Sprintf("Created schedule %q (%s), first due %s",
				sched.Name, sched.ID, nextDue.Format(time.RFC3339)))
			if out.jsonMode {
				out.JSON(sched)
			}
			return nil
		},
	}

	addPayloadFlags(cmd, &pf)
	cmd.Flags().StringVar(&name, "name", "", "Unique schedule name")
	cmd.Flags().StringVar(&cronExpr, "cron", "", `Cron expression, e.g. "0 2 * * *"`)
	cmd.Flags().IntVar(&intervalSec, "interval", 0, "Interval between submissions in seconds")
	cmd.Flags().StringVar(&timezone, "timezone", "UTC", "IANA timezone for cron evaluation")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the schedule disabled")

	return cmd
}

func newScheduleListCmd(deps *Deps) *cobra.Command {
	var enabledOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			schedules, err := deps.Schedules(cmd.Context())
			if err != nil {
				return err
			}

			filter := repo.ScheduleFilter{Limit: limit}
			if enabledOnly {
				t := true
				filter.Enabled = &t
			}

			list, err := schedules.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			headers := []string{"NAME", "TRIGGER", "ENABLED", "NEXT_DUE", "LAST_SUBMIT"}
			rows := make([][]string, len(list))
			for i, s := range list {
				rows[i] = []string{
					s.Name,
					triggerSummary(&s),
					strconv.FormatBool(s.Enabled),
					formatOptionalTime(s.NextDueAt),
					formatOptionalTime(s.LastSubmitAt),
				}
			}

			deps.Output().Print(headers, rows, list)
			return nil
		},
	}

	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "Show only enabled schedules")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of results")

	return cmd
}

func newScheduleShowCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME_OR_ID",
		Short: "Show schedule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := resolveSchedule(cmd.Context(), deps, args[0])
			if err != nil {
				return err
			}

			pairs := [][2]string{
				{"ID", sched.ID.String()},
				{"NAME", sched.Name},
				{"KIND", payloadSummary(sched.Payload)},
				{"TRIGGER", triggerSummary(sched)},
				{"TIMEZONE", sched.Timezone},
				{"ENABLED", strconv.FormatBool(sched.Enabled)},
				{"NEXT DUE", formatOptionalTime(sched.NextDueAt)},
				{"LAST SUBMIT", formatOptionalTime(sched.LastSubmitAt)},
			}
			if sched.LastItemID != nil {
				pairs = append(pairs, [2]string{"LAST ITEM", sched.LastItemID.String()})
			}
			pairs = append(pairs, [2]string{"CREATED", sched.CreatedAt.Format(time.RFC3339)})

			deps.Output().PrintKV(pairs, sched)
			return nil
		},
	}
}

func newScheduleEnableCmd(deps *Deps, enable bool) *cobra.Command {
	use, short := "enable NAME_OR_ID", "Enable a schedule"
	if !enable {
		use, short = "disable NAME_OR_ID", "Disable a schedule"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sched, err := resolveSchedule(ctx, deps, args[0])
			if err != nil {
				return err
			}

			schedules, err := deps.Schedules(ctx)
			if err != nil {
				return err
			}
			if err := schedules.SetEnabled(ctx, sched.ID, enable); err != nil {
				return err
			}

			verb := "enabled"
			if !enable {
				verb = "disabled"
			}
			deps.Output().Success(fmt.Sprintf("Schedule %q %s", sched.Name, verb))
			return nil
		},
	}
}

func newScheduleDeleteCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME_OR_ID",
		Short: "Delete a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sched, err := resolveSchedule(ctx, deps, args[0])
			if err != nil {
				return err
			}

			schedules, err := deps.Schedules(ctx)
			if err != nil {
				return err
			}
			if err := schedules.Delete(ctx, sched.ID); err != nil {
				return err
			}

			deps.Output().Success(fmt.Sprintf("Schedule %q deleted", sched.Name))
			return nil
		},
	}
}

// resolveSchedule находит расписание по UUID или по имени.
func resolveSchedule(ctx context.Context, deps *Deps, ref string) (*domain.Schedule, error) {
	schedules, err := deps.Schedules(ctx)
	if err != nil {
		return nil, err
	}

	if id, err := uuid.Parse(ref); err == nil {
		return schedules.GetByID(ctx, id)
	}
	return schedules.GetByName(ctx, ref)
}

// triggerSummary — человекочитаемое описание триггера расписания.
func triggerSummary(s *domain.Schedule) string {
	if s.IsCron() {
		return "cron " + s.CronExpr
	}
	return fmt.Sprintf("every %ds", s.IntervalSec)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
