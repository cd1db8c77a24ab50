// Package analytics turns the platform's flat attempt history into the
// derived datasets the admin dashboard charts. Every dataset is a pure
// reducer over the same in-memory input, so the pipeline is a set of
// independent functions sharing one snapshot rather than a staged flow.
package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"quizforge-backend/internal/models"
)

// PassThreshold is the absolute score an attempt needs to count as passed.
// It assumes the platform-standard 20-point quiz; quizzes with a different
// total are measured against the same bar. Known limitation.
const PassThreshold = 12

// maxQuizScore is the scale topicRadar normalizes against.
const maxQuizScore = 20

const trendDays = 30

// Input is the full snapshot the pipeline reduces. ProfileCreatedAts holds
// one timestamp per registered profile (for signup growth); attempts carry
// their quiz's title and category when the join succeeded.
type Input struct {
	Attempts          []models.AttemptRecord
	ProfileCreatedAts []time.Time
	TotalUsers        int
	TotalQuizzes      int
}

// BuildDashboard computes the KPI block and all ten chart datasets against
// the given reference time. It never fails: empty input yields zero-valued
// datasets, and the zero-attempt average is defined as 0 rather than
// dividing by zero.
func BuildDashboard(in Input, now time.Time) models.Dashboard {
	return models.Dashboard{
		Stats: models.PlatformStats{
			TotalUsers:    in.TotalUsers,
			TotalQuizzes:  in.TotalQuizzes,
			TotalAttempts: len(in.Attempts),
			AvgScore:      averageScore(in.Attempts),
		},
		Charts: models.DashboardCharts{
			UserGrowth:        UserGrowth(in.ProfileCreatedAts, now),
			TrafficHeatmap:    TrafficHeatmap(in.Attempts),
			ScoreDistribution: ScoreDistribution(in.Attempts),
			QuizPopularity:    QuizPopularity(in.Attempts),
			DifficultyMatrix:  DifficultyMatrix(in.Attempts),
			TopicRadar:        TopicRadar(in.Attempts),
			PassFailRatio:     PassFailRatio(in.Attempts),
			AvgScoreTrend:     AvgScoreTrend(in.Attempts, now),
			RetentionCohorts:  RetentionCohorts(in.Attempts),
		},
	}
}

func averageScore(attempts []models.AttemptRecord) int {
	if len(attempts) == 0 {
		return 0
	}
	total := 0
	for _, a := range attempts {
		total += a.Score
	}
	return roundDiv(total, len(attempts))
}

// UserGrowth counts signups per calendar day over the trailing 30 days.
// Days without signups emit 0 so the series never has holes.
func UserGrowth(createdAts []time.Time, now time.Time) []models.DatePoint {
	perDay := make(map[string]int)
	for _, ts := range createdAts {
		perDay[dayKey(ts)]++
	}

	points := make([]models.DatePoint, 0, trendDays)
	for _, day := range trailingDays(now) {
		points = append(points, models.DatePoint{
			Date:  day.Format("Jan 2"),
			Users: perDay[dayKey(day)],
		})
	}
	return points
}

// TrafficHeatmap counts attempts per hour of day using the completion
// timestamp's local hour. All 24 buckets are always present.
func TrafficHeatmap(attempts []models.AttemptRecord) []models.HourPoint {
	var perHour [24]int
	for _, a := range attempts {
		perHour[a.CompletedAt.Hour()]++
	}

	points := make([]models.HourPoint, 24)
	for h := 0; h < 24; h++ {
		points[h] = models.HourPoint{
			Hour:     time.Date(0, 1, 1, h, 0, 0, 0, time.UTC).Format("15:00"),
			Attempts: perHour[h],
		}
	}
	return points
}

var scoreRanges = []struct {
	name     string
	min, max int
}{
	{"0-4", 0, 4},
	{"5-9", 5, 9},
	{"10-14", 10, 14},
	{"15-19", 15, 19},
	{"20", 20, 20},
}

// ScoreDistribution buckets attempts into the fixed score ranges. The
// ranges partition [0,20] with inclusive bounds on both ends.
func ScoreDistribution(attempts []models.AttemptRecord) []models.RangeCount {
	out := make([]models.RangeCount, len(scoreRanges))
	for i, r := range scoreRanges {
		out[i].Range = r.name
	}
	for _, a := range attempts {
		for i, r := range scoreRanges {
			if a.Score >= r.min && a.Score <= r.max {
				out[i].Count++
				break
			}
		}
	}
	return out
}

// QuizPopularity returns the five most-attempted quizzes by title,
// descending. Attempts whose quiz row is gone land in an "Unknown" bucket.
// Relative order between equal counts is unspecified.
func QuizPopularity(attempts []models.AttemptRecord) []models.NameValue {
	counts := make(map[string]int)
	for _, a := range attempts {
		title := a.QuizTitle
		if title == "" {
			title = "Unknown"
		}
		counts[title]++
	}

	ranked := make([]models.NameValue, 0, len(counts))
	for name, value := range counts {
		ranked = append(ranked, models.NameValue{Name: name, Value: value})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Value > ranked[j].Value })

	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	return ranked
}

// DifficultyMatrix reports average score and average time (whole minutes)
// per quiz. Quizzes with no attempts simply produce no group.
func DifficultyMatrix(attempts []models.AttemptRecord) []models.QuizMatrixPoint {
	type agg struct {
		score, seconds, count int
	}
	perQuiz := make(map[string]*agg)
	order := []string{}

	for _, a := range attempts {
		title := a.QuizTitle
		if title == "" {
			title = "Unknown"
		}
		g, ok := perQuiz[title]
		if !ok {
			g = &agg{}
			perQuiz[title] = g
			order = append(order, title)
		}
		g.score += a.Score
		g.seconds += a.TimeTakenSeconds
		g.count++
	}

	points := make([]models.QuizMatrixPoint, 0, len(order))
	for _, title := range order {
		g := perQuiz[title]
		points = append(points, models.QuizMatrixPoint{
			Name:     title,
			AvgScore: roundDiv(g.score, g.count),
			AvgTime:  roundDiv(g.seconds, g.count) / 60,
		})
	}
	return points
}

// TopicRadar averages scores per quiz category, normalized to a 0-100
// scale against the 20-point maximum. Missing categories fall back to
// "General".
func TopicRadar(attempts []models.AttemptRecord) []models.RadarPoint {
	type agg struct {
		total, count int
	}
	perCat := make(map[string]*agg)
	order := []string{}

	for _, a := range attempts {
		cat := a.QuizCategory
		if cat == "" {
			cat = "General"
		}
		g, ok := perCat[cat]
		if !ok {
			g = &agg{}
			perCat[cat] = g
			order = append(order, cat)
		}
		g.total += a.Score
		g.count++
	}

	points := make([]models.RadarPoint, 0, len(order))
	for _, cat := range order {
		g := perCat[cat]
		avg := float64(g.total) / float64(g.count)
		points = append(points, models.RadarPoint{
			Subject: cat,
			Score:   int(avg/maxQuizScore*100 + 0.5),
		})
	}
	return points
}

// PassFailRatio splits attempts at the fixed PassThreshold.
func PassFailRatio(attempts []models.AttemptRecord) []models.NameValue {
	passed := 0
	for _, a := range attempts {
		if a.Score >= PassThreshold {
			passed++
		}
	}
	return []models.NameValue{
		{Name: "Passed", Value: passed},
		{Name: "Failed", Value: len(attempts) - passed},
	}
}

// AvgScoreTrend reports the mean score of attempts completed on each of
// the trailing 30 days. A day without attempts reports 0, never null.
func AvgScoreTrend(attempts []models.AttemptRecord, now time.Time) []models.TrendPoint {
	type agg struct {
		total, count int
	}
	perDay := make(map[string]*agg)
	for _, a := range attempts {
		key := dayKey(a.CompletedAt)
		g, ok := perDay[key]
		if !ok {
			g = &agg{}
			perDay[key] = g
		}
		g.total += a.Score
		g.count++
	}

	points := make([]models.TrendPoint, 0, trendDays)
	for _, day := range trailingDays(now) {
		avg := 0
		if g, ok := perDay[dayKey(day)]; ok && g.count > 0 {
			avg = roundDiv(g.total, g.count)
		}
		points = append(points, models.TrendPoint{
			Date: day.Format("Jan 2"),
			Avg:  avg,
		})
	}
	return points
}

// RetentionCohorts bands users by how many attempts they made. Users with
// zero attempts do not appear, so the band totals sum to the number of
// distinct users with at least one attempt.
func RetentionCohorts(attempts []models.AttemptRecord) []models.NameValue {
	perUser := make(map[uuid.UUID]int)
	for _, a := range attempts {
		perUser[a.UserID]++
	}

	var one, twoToFive, sixPlus int
	for _, n := range perUser {
		switch {
		case n == 1:
			one++
		case n <= 5:
			twoToFive++
		default:
			sixPlus++
		}
	}

	return []models.NameValue{
		{Name: "1 Attempt", Value: one},
		{Name: "2-5 Attempts", Value: twoToFive},
		{Name: "6+ Attempts", Value: sixPlus},
	}
}

// trailingDays returns the last 30 calendar days ending at now, oldest first.
func trailingDays(now time.Time) []time.Time {
	days := make([]time.Time, trendDays)
	for i := 0; i < trendDays; i++ {
		days[i] = now.AddDate(0, 0, -(trendDays - 1 - i))
	}
	return days
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func roundDiv(total, count int) int {
	if count == 0 {
		return 0
	}
	return int(float64(total)/float64(count) + 0.5)
}
