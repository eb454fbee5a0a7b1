package scheduler

import (
	"fmt"
	"time"

	"github.com/jacksund/warden/internal/domain"
	"github.com/robfig/cron/v3"
)

// cronParser — парсер пятипольных cron-выражений
// (минуты часы дни месяцы дни_недели).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CalculateNextDue вычисляет следующее время срабатывания расписания
// после from с учётом его timezone. Результат всегда в UTC — так
// хранит база.
func CalculateNextDue(sched *domain.Schedule, from time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil {
		// Невалидный timezone не должен останавливать расписание.
		loc = time.UTC
	}
	fromInTz := from.In(loc)

	if sched.IsCron() {
		return nextCron(sched.CronExpr, fromInTz)
	}
	if sched.IsInterval() {
		return fromInTz.Add(time.Duration(sched.IntervalSec) * time.Second).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("schedule has neither cron_expr nor interval_sec")
}

// CalculateInitialNextDue вычисляет первое срабатывание нового
// расписания. Используется при создании через CLI.
func CalculateInitialNextDue(sched *domain.Schedule) (time.Time, error) {
	return CalculateNextDue(sched, time.Now())
}

// ValidateCronExpr проверяет синтаксис cron-выражения.
func ValidateCronExpr(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

func nextCron(expr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	return schedule.Next(from).UTC(), nil
}
