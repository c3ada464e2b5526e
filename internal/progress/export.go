package progress

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rainbow59216/snatcher/internal/models"
)

// Export projects the attempt logs belonging to one admission token into a
// per-goal [last step, attempts] report, ordered by wish-list position.
func (l *Logger) Export(ctx context.Context, fuelID, username string) (*models.ProgressReport, error) {
	report := &models.ProgressReport{
		Username: username,
		Goals:    []string{},
		Progress: []models.GoalProgress{},
	}

	keys, err := l.client.Keys(ctx, username+"-*").Result()
	if err != nil {
		return nil, fmt.Errorf("scan attempt logs: %w", err)
	}
	if len(keys) == 0 {
		return report, nil
	}

	type goalLog struct {
		courseName string
		index      int
		fields     map[string]string
	}
	var logs []goalLog

	for _, key := range keys {
		fields, err := l.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("read attempt log %s: %w", key, err)
		}
		if fields[fieldFuelID] != fuelID {
			continue
		}
		index, _ := strconv.Atoi(fields[fieldIndex])
		logs = append(logs, goalLog{
			courseName: strings.SplitN(key, "-", 2)[1],
			index:      index,
			fields:     fields,
		})
	}
	if len(logs) == 0 {
		return report, nil
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].index < logs[j].index })

	for _, lg := range logs {
		report.Goals = append(report.Goals, lg.courseName)
		report.Progress = append(report.Progress, projectGoal(lg.fields))
	}
	return report, nil
}

// projectGoal reduces one log hash to its latest step and attempt count.
// A step-4 entry whose message is not the success marker means the
// submission was answered but not confirmed, so it projects as step 3.
func projectGoal(fields map[string]string) models.GoalProgress {
	var stepKeys []string
	for k := range fields {
		if strings.HasPrefix(k, "step-") {
			stepKeys = append(stepKeys, k)
		}
	}
	if len(stepKeys) == 0 {
		return models.GoalProgress{LastStep: 0, Attempts: 1}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(stepKeys)))
	latest := stepKeys[0]

	cut := strings.LastIndex(latest, "-")
	attempts, err := strconv.Atoi(latest[cut+1:])
	if err != nil || attempts < 1 {
		attempts = 1
	}

	// "step-<n>_<name>-<attempt>"
	step := 0
	if len(latest) > 5 {
		if n, err := strconv.Atoi(latest[5:6]); err == nil {
			step = n
		}
	}

	if step == 4 && fields[latest] != SubmitSuccessMessage {
		step = 3
	}
	return models.GoalProgress{LastStep: step, Attempts: attempts}
}
