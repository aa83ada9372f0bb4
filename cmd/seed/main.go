package main

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cognicare/internal/config"
	"cognicare/internal/model"
	"cognicare/internal/repository"
	"cognicare/internal/service"
)

// Seeds a demo completed session and its generated result for local
// development. No AI provider is touched; the deterministic paths are
// used throughout.
func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB)
	sessionRepo := repository.NewSessionRepo(db)
	resultRepo := repository.NewResultRepo(db)

	bank := service.NewQuestionBank()
	scoring := service.NewScoringService(bank)

	now := time.Now()
	session := &model.AssessmentSession{
		ID:            model.NewSessionID("demo_group", "elder_demo", now),
		GroupID:       "demo_group",
		ElderID:       "elder_demo",
		ElderName:     "Margaret",
		ElderAge:      78,
		CaregiverID:   "caregiver_demo",
		CaregiverName: "Sam",
		Status:        model.SessionCompleted,
		CurrentDomain: model.DomainMood,
		StartedAt:     now.Add(-20 * time.Minute),
		EndedAt:       &now,
	}

	// Answer every baseline question with its lowest-concern option
	for _, d := range model.DomainOrder {
		for _, q := range bank.QuestionsForDomain(d) {
			opt := q.Options[0]
			session.Answers = append(session.Answers, model.QuestionAnswer{
				QuestionID:   q.ID,
				QuestionText: bank.FormatQuestionText(&q, session.ElderName),
				Domain:       q.Domain,
				Type:         q.Type,
				Answer:       opt.Value,
				AnswerLabel:  opt.Label,
				ConcernLevel: opt.ConcernLevel,
				Points:       opt.Points,
				AnsweredAt:   now,
			})
			session.BaselineQuestionsAnswered++
		}
		session.DomainsCompleted = append(session.DomainsCompleted, d)
	}

	if err := sessionRepo.Create(ctx, session); err != nil {
		log.Fatalf("failed to seed session: %v", err)
	}

	scores := scoring.CalculateDomainScores(session)
	riskScore, riskLevel := scoring.OverallRisk(scores)

	result := &model.AssessmentResult{
		ID:               model.ResultID(session.ID),
		SessionID:        session.ID,
		GroupID:          session.GroupID,
		ElderID:          session.ElderID,
		ElderName:        session.ElderName,
		DomainScores:     scores,
		OverallRiskScore: riskScore,
		OverallRiskLevel: riskLevel,
		Summary:          "Demo screening with no concerning observations.",
		Recommendations:  service.FallbackRecommendations(riskLevel, nil),
		SummarySource:    model.GeneratedByRule,
		Status:           model.ReviewPending,
		CreatedAt:        now,
	}

	if err := resultRepo.Save(ctx, result); err != nil {
		log.Fatalf("failed to seed result: %v", err)
	}

	log.Printf("seeded session %s and result %s (risk: %s)", session.ID, result.ID, riskLevel)
}
