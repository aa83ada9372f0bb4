package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"cognicare/internal/model"
)

// domainWeights are the fixed domain-priority weights used for the
// overall risk score. Memory and orientation carry the most signal.
var domainWeights = map[model.Domain]float64{
	model.DomainMemory:      1.5,
	model.DomainOrientation: 1.3,
	model.DomainExecutive:   1.3,
	model.DomainAttention:   1.0,
	model.DomainLanguage:    1.0,
	model.DomainMood:        0.8,
}

// KeyObservations are the free-text lists derived from domain scores,
// with no external call involved
type KeyObservations struct {
	Observations []string `json:"observations"`
	Concerns     []string `json:"concerns"`
	Strengths    []string `json:"strengths"`
}

// ScoringService computes domain scores and the overall risk
// classification. Pure and deterministic: same session in, same scores
// out, no I/O anywhere.
type ScoringService struct {
	bank *QuestionBank
}

// NewScoringService creates a new scoring service
func NewScoringService(bank *QuestionBank) *ScoringService {
	return &ScoringService{bank: bank}
}

// CalculateDomainScores recomputes all six domain scores fresh from the
// session's answer log
func (s *ScoringService) CalculateDomainScores(session *model.AssessmentSession) []model.DomainScore {
	scores := make([]model.DomainScore, 0, len(model.DomainOrder))
	for _, d := range model.DomainOrder {
		scores = append(scores, s.scoreDomain(session, d))
	}
	return scores
}

func (s *ScoringService) scoreDomain(session *model.AssessmentSession, d model.Domain) model.DomainScore {
	// Each question scores at most once: a correction replaces the
	// answer it amends instead of stacking on top of it.
	answers := session.LatestAnswersForDomain(d)
	totalInDomain := len(s.bank.QuestionsForDomain(d))

	raw := 0
	concerning := 0
	type finding struct {
		text   string
		points int
	}
	var findings []finding

	for _, a := range answers {
		if !a.IsAdaptive {
			if q, ok := s.bank.GetQuestionByID(a.QuestionID); ok {
				raw += a.Points * q.Weight
			}
		}
		// Adaptive answers count toward concern density and findings,
		// never toward the weighted raw score.
		if a.ConcernLevel == model.ConcernConcerning {
			concerning++
		}
		if a.ConcernLevel == model.ConcernModerate || a.ConcernLevel == model.ConcernConcerning {
			text := fmt.Sprintf("%s: %s", a.QuestionText, a.AnswerLabel)
			if a.IsAdaptive {
				text = "Follow-up finding: " + text
			}
			findings = append(findings, finding{text: text, points: a.Points})
		}
	}

	maxPossible := s.bank.MaxScoreForDomain(d)
	normalized := 0
	if maxPossible > 0 {
		normalized = int(math.Round(100 * float64(raw) / float64(maxPossible)))
	}

	ratio := 0.0
	if totalInDomain > 0 {
		ratio = float64(concerning) / float64(totalInDomain)
	}

	sort.SliceStable(findings, func(i, j int) bool { return findings[i].points > findings[j].points })
	keyFindings := make([]string, 0, 3)
	for _, f := range findings {
		if len(keyFindings) == 3 {
			break
		}
		keyFindings = append(keyFindings, f.text)
	}

	return model.DomainScore{
		Domain:            d,
		RawScore:          raw,
		MaxPossibleScore:  maxPossible,
		NormalizedScore:   normalized,
		ConcernLevel:      concernLevelFor(normalized, ratio),
		QuestionsAsked:    len(answers),
		ConcerningAnswers: concerning,
		KeyFindings:       keyFindings,
	}
}

// concernLevelFor applies the concern-density rule: either a high
// normalized score or a high share of concerning answers is enough
func concernLevelFor(normalized int, concerningRatio float64) model.ConcernLevel {
	switch {
	case normalized >= 75 || concerningRatio >= 0.5:
		return model.ConcernConcerning
	case normalized >= 50 || concerningRatio >= 0.3:
		return model.ConcernModerate
	case normalized >= 25 || concerningRatio >= 0.15:
		return model.ConcernMild
	default:
		return model.ConcernNone
	}
}

// OverallRisk computes the weighted risk score and walks the risk-level
// decision tree top-down, first match wins. Specific high-salience
// domain combinations outrank the raw average: memory plus orientation
// both concerning is clinically more significant than a diffusely
// elevated score.
func (s *ScoringService) OverallRisk(scores []model.DomainScore) (int, model.RiskLevel) {
	weightedSum := 0.0
	weightTotal := 0.0
	byDomain := make(map[model.Domain]model.DomainScore, len(scores))
	for _, ds := range scores {
		w := domainWeights[ds.Domain]
		weightedSum += float64(ds.NormalizedScore) * w
		weightTotal += w
		byDomain[ds.Domain] = ds
	}

	riskScore := 0
	if weightTotal > 0 {
		riskScore = int(math.Round(weightedSum / weightTotal))
	}

	concerningDomains := 0
	moderateDomains := 0
	for _, ds := range scores {
		switch ds.ConcernLevel {
		case model.ConcernConcerning:
			concerningDomains++
		case model.ConcernModerate:
			moderateDomains++
		}
	}

	memory := byDomain[model.DomainMemory].ConcernLevel
	orientation := byDomain[model.DomainOrientation].ConcernLevel
	executive := byDomain[model.DomainExecutive].ConcernLevel

	switch {
	case memory == model.ConcernConcerning && orientation == model.ConcernConcerning:
		return riskScore, model.RiskUrgent

	case riskScore >= 65 ||
		concerningDomains >= 2 ||
		memory == model.ConcernConcerning ||
		orientation == model.ConcernConcerning ||
		executive == model.ConcernConcerning:
		return riskScore, model.RiskConcerning

	case riskScore >= 40 ||
		concerningDomains >= 1 ||
		moderateDomains >= 2 ||
		memory == model.ConcernModerate ||
		orientation == model.ConcernModerate:
		return riskScore, model.RiskModerate

	default:
		return riskScore, model.RiskLow
	}
}

// IdentifyKeyObservations builds the observation/concern/strength lists
// from the score array and raw session counts
func (s *ScoringService) IdentifyKeyObservations(session *model.AssessmentSession, scores []model.DomainScore) KeyObservations {
	var obs KeyObservations

	totalConcerning := 0
	for _, ds := range scores {
		totalConcerning += ds.ConcerningAnswers

		switch ds.ConcernLevel {
		case model.ConcernConcerning:
			obs.Concerns = append(obs.Concerns, fmt.Sprintf(
				"%s shows a concerning pattern (%d/100, %d concerning answers)",
				domainLabel(ds.Domain), ds.NormalizedScore, ds.ConcerningAnswers))
		case model.ConcernModerate:
			obs.Concerns = append(obs.Concerns, fmt.Sprintf(
				"%s shows moderate signs worth watching (%d/100)",
				domainLabel(ds.Domain), ds.NormalizedScore))
		case model.ConcernNone:
			if ds.QuestionsAsked > 0 {
				obs.Strengths = append(obs.Strengths, fmt.Sprintf(
					"%s appears well preserved", domainLabel(ds.Domain)))
			}
		}
	}

	if totalConcerning > 0 {
		obs.Observations = append(obs.Observations, fmt.Sprintf(
			"%d answers across the screening indicated concerning changes", totalConcerning))
	}
	if session.AdaptiveQuestionsAsked > 0 {
		obs.Observations = append(obs.Observations, fmt.Sprintf(
			"%d follow-up questions were asked to clarify concerning answers",
			session.AdaptiveQuestionsAsked))
	}
	if len(obs.Concerns) == 0 {
		obs.Observations = append(obs.Observations,
			"No domain reached a concern threshold in this screening")
	}

	return obs
}

// CompareWithPrevious diffs two results per domain. Positive delta
// means worsening; deltas of +15 or more are called out by name.
func (s *ScoringService) CompareWithPrevious(current, previous *model.AssessmentResult) *model.ChangeFromPrevious {
	deltas := make([]model.DomainDelta, 0, len(current.DomainScores))
	sum := 0
	var declined []string

	for _, cur := range current.DomainScores {
		prev := previous.ScoreForDomain(cur.Domain)
		if prev == nil {
			continue
		}
		delta := cur.NormalizedScore - prev.NormalizedScore
		deltas = append(deltas, model.DomainDelta{Domain: cur.Domain, Delta: delta})
		sum += delta
		if delta >= 15 {
			declined = append(declined, domainLabel(cur.Domain))
		}
	}

	avg := 0.0
	if len(deltas) > 0 {
		avg = float64(sum) / float64(len(deltas))
	}

	trend := "stable"
	if avg <= -10 {
		trend = "improved"
	} else if avg >= 10 {
		trend = "declined"
	}

	summary := fmt.Sprintf("Compared with the previous screening, the overall picture is %s.", trend)
	if len(declined) > 0 {
		summary += " Notable decline in: " + strings.Join(declined, ", ") + "."
	}

	return &model.ChangeFromPrevious{
		PreviousResultID: previous.ID,
		OverallTrend:     trend,
		DomainDeltas:     deltas,
		Summary:          summary,
	}
}

func domainLabel(d model.Domain) string {
	switch d {
	case model.DomainMemory:
		return "Memory"
	case model.DomainOrientation:
		return "Orientation"
	case model.DomainAttention:
		return "Attention"
	case model.DomainLanguage:
		return "Language"
	case model.DomainExecutive:
		return "Executive function"
	case model.DomainMood:
		return "Mood and behavior"
	default:
		return string(d)
	}
}
