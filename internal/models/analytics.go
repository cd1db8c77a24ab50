package models

// Chart dataset shapes returned by the admin analytics endpoint. Field
// names match what the dashboard's chart components bind to.

type DatePoint struct {
	Date  string `json:"date"`
	Users int    `json:"users"`
}

type HourPoint struct {
	Hour     string `json:"hour"`
	Attempts int    `json:"attempts"`
}

type RangeCount struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

type NameValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type QuizMatrixPoint struct {
	Name     string `json:"name"`
	AvgScore int    `json:"avgScore"`
	AvgTime  int    `json:"avgTime"` // minutes
}

type RadarPoint struct {
	Subject string `json:"subject"`
	Score   int    `json:"score"` // normalized 0-100
}

type TrendPoint struct {
	Date string `json:"date"`
	Avg  int    `json:"avg"`
}

type PlatformStats struct {
	TotalUsers    int `json:"totalUsers"`
	TotalQuizzes  int `json:"totalQuizzes"`
	TotalAttempts int `json:"totalAttempts"`
	AvgScore      int `json:"avgScore"`
}

type DashboardCharts struct {
	UserGrowth        []DatePoint       `json:"userGrowth"`
	TrafficHeatmap    []HourPoint       `json:"trafficHeatmap"`
	ScoreDistribution []RangeCount      `json:"scoreDistribution"`
	QuizPopularity    []NameValue       `json:"quizPopularity"`
	DifficultyMatrix  []QuizMatrixPoint `json:"difficultyMatrix"`
	TopicRadar        []RadarPoint      `json:"topicRadar"`
	PassFailRatio     []NameValue       `json:"passFailRatio"`
	AvgScoreTrend     []TrendPoint      `json:"avgScoreTrend"`
	RetentionCohorts  []NameValue       `json:"retentionCohorts"`
}

type Dashboard struct {
	Stats  PlatformStats   `json:"stats"`
	Charts DashboardCharts `json:"charts"`
}

// AttemptFeedback is the structured post-attempt AI summary.
type AttemptFeedback struct {
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	Recommendation string   `json:"recommendation"`
}
