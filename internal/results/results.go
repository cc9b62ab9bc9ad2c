// Package results turns a scored assessment into the text a candidate reads.
package results

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobprep/internal/types"
)

const (
	// HighThreshold is the score at which a trait counts as a strength.
	HighThreshold = 4.0
	// LowStressThreshold is the score at or below which stress tolerance is flagged.
	LowStressThreshold = 2.5

	barWidth = 20
	maxScore = 5.0
)

// Labels are the display names of the dimensions.
var Labels = map[types.Dimension]string{
	types.Communication:  "의사소통",
	types.Responsibility: "책임감",
	types.ProblemSolving: "문제해결",
	types.Growth:         "성장성",
	types.Stress:         "스트레스 내성",
	types.Adaptation:     "적응력",
}

// LikertLabels are the captions of answer values 1 through 5.
var LikertLabels = [5]string{"전혀 아니다", "아니다", "보통이다", "그렇다", "매우 그렇다"}

// Label returns the display name of d, or d itself when unknown.
func Label(d types.Dimension) string {
	if l, ok := Labels[d]; ok {
		return l
	}
	return string(d)
}

// TopTrait returns the highest scoring dimension. Ties keep the earlier dimension.
func TopTrait(v types.ScoreVector) types.Dimension {
	var top types.Dimension
	best := math.Inf(-1)
	for _, d := range types.Dimensions {
		s, ok := v.Get(d)
		if !ok || math.IsNaN(s) {
			continue
		}
		if s > best {
			best, top = s, d
		}
	}
	return top
}

type rule struct {
	dim      types.Dimension
	fires    func(float64) bool
	sentence string
}

func atLeastHigh(s float64) bool { return s >= HighThreshold }

var summaryRules = []rule{
	{types.Communication, atLeastHigh, "다른 사람과 생각을 주고받는 데 능숙하며 팀 안에서 원활하게 소통합니다."},
	{types.Responsibility, atLeastHigh, "맡은 일을 끝까지 책임지고 완수하려는 태도가 뚜렷합니다."},
	{types.ProblemSolving, atLeastHigh, "문제를 구조적으로 분석하고 해결책을 찾아내는 역량이 뛰어납니다."},
	{types.Growth, atLeastHigh, "새로운 지식과 기술을 배우려는 성장 의지가 강합니다."},
	{types.Stress, func(s float64) bool { return s <= LowStressThreshold }, "압박이 큰 상황에서 스트레스를 민감하게 받을 수 있어 관리 방법을 마련해 두는 것이 좋습니다."},
	{types.Stress, atLeastHigh, "압박감 속에서도 평정심을 유지하며 안정적으로 업무를 수행합니다."},
	{types.Adaptation, atLeastHigh, "새로운 환경과 변화에 빠르게 적응합니다."},
}

// BalancedSentence is the summary when no rule fires.
const BalancedSentence = "전반적으로 고른 성향을 보이며 특정 영역에 치우치지 않은 균형 잡힌 프로필입니다."

// Summary returns one sentence per rule that fires, in rule order.
func Summary(v types.ScoreVector) []string {
	var out []string
	for _, r := range summaryRules {
		if s, ok := v.Get(r.dim); ok && r.fires(s) {
			out = append(out, r.sentence)
		}
	}
	if len(out) == 0 {
		return []string{BalancedSentence}
	}
	return out
}

// Row is one line of the per-dimension table.
type Row struct {
	Dimension types.Dimension `json:"dimension"`
	Label     string          `json:"label"`
	Score     *float64        `json:"score"`
	Bar       string          `json:"bar"`
}

// Report is the presentable form of an assessment outcome.
type Report struct {
	Name          string          `json:"name,omitempty" yaml:"name,omitempty"`
	AssessmentID  int             `json:"assessment_id,omitempty" yaml:"assessment_id,omitempty"`
	TypeLabel     string          `json:"type_label,omitempty" yaml:"type_label,omitempty"`
	TopTrait      types.Dimension `json:"top_trait,omitempty" yaml:"top_trait,omitempty"`
	TopTraitLabel string          `json:"top_trait_label,omitempty" yaml:"top_trait_label,omitempty"`
	Summary       []string        `json:"summary" yaml:"summary"`
	Rows          []Row           `json:"rows" yaml:"rows"`
	Warnings      []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Analysis      *types.Analysis `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	CreatedAt     *time.Time      `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// Validity warnings.
const (
	WarnAttentionCheck = "주의 확인 문항에 올바르게 응답하지 않아 결과의 신뢰도가 낮을 수 있습니다."
	WarnExaggeration   = "응답이 지나치게 긍정적인 방향으로 치우쳐 결과가 과장되었을 수 있습니다."
)

// Input is what Build needs; assessment.Outcome carries the same fields.
type Input struct {
	Name         string
	AssessmentID int
	Result       types.AssessmentResult
	Analysis     *types.Analysis
}

// Build assembles the report for a result.
func Build(in Input) Report {
	v := in.Result.Scores
	r := Report{
		Name:         in.Name,
		AssessmentID: in.AssessmentID,
		TypeLabel:    in.Result.TypeLabel,
		Summary:      Summary(v),
		Analysis:     in.Analysis,
		CreatedAt:    in.Result.CreatedAt,
	}
	if top := TopTrait(v); top != "" {
		r.TopTrait, r.TopTraitLabel = top, Label(top)
	}
	for _, d := range types.Dimensions {
		row := Row{Dimension: d, Label: Label(d)}
		if s, ok := v.Get(d); ok {
			score := s
			row.Score = &score
			row.Bar = Bar(s)
		}
		r.Rows = append(r.Rows, row)
	}
	if !in.Result.AttentionCheckPass {
		r.Warnings = append(r.Warnings, WarnAttentionCheck)
	}
	if in.Result.ExaggerationFlag {
		r.Warnings = append(r.Warnings, WarnExaggeration)
	}
	return r
}

// FromScores builds a report for a bare score vector.
func FromScores(v types.ScoreVector) Report {
	return Build(Input{Result: types.AssessmentResult{Scores: v, AttentionCheckPass: true}})
}

// Bar draws score on a fixed-width 0..5 scale.
func Bar(score float64) string {
	filled := int(math.Round(math.Max(0, math.Min(score, maxScore)) / maxScore * barWidth))
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

var queryKeys = map[types.Dimension]string{
	types.Communication:  "comm",
	types.Responsibility: "resp",
	types.ProblemSolving: "prob",
	types.Growth:         "grow",
	types.Stress:         "stre",
	types.Adaptation:     "adap",
}

// RecommendQuery encodes the vector as recommendation query parameters. Missing
// dimensions are omitted.
func RecommendQuery(v types.ScoreVector) url.Values {
	q := url.Values{}
	for _, d := range types.Dimensions {
		if s, ok := v.Get(d); ok {
			q.Set(queryKeys[d], strconv.FormatFloat(s, 'f', -1, 64))
		}
	}
	return q
}
