// Package schedule runs registered jobs on cron expressions. It is the
// periodic-execution layer mods opt into with a schedule field; one scheduler
// instance polls all registered entries and fires the due ones.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var standardCronParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow,
)

// NextRunUTC computes the next firing time of a cron expression after now.
func NextRunUTC(expr string, now time.Time) (time.Time, error) {
	schedule, err := ParseUTC(expr)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(now.UTC()), nil
}

// ParseUTC parses a standard 5-field cron expression. Timezone prefixes are
// rejected; all schedules evaluate in UTC.
func ParseUTC(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, fmt.Errorf("cron expression is required")
	}

	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, fmt.Errorf("cron expression must be UTC-only (timezone prefixes are not allowed)")
	}

	schedule, err := standardCronParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}
