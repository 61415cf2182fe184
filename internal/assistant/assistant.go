// Package assistant - ИИ-помощник: чат с контекстом объекта и планировщик этапов.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Spok95/maos-da-obra/internal/alerts"
	"github.com/Spok95/maos-da-obra/internal/apperr"
	"github.com/Spok95/maos-da-obra/internal/dashboard"
	"github.com/Spok95/maos-da-obra/internal/domain/civil"
	"github.com/Spok95/maos-da-obra/internal/domain/materials"
	"github.com/Spok95/maos-da-obra/internal/domain/steps"
	"github.com/Spok95/maos-da-obra/internal/infra/ai"
)

const (
	maxMessage = 2000
	maxSteps   = 30

	chatSystem = "Você é o assistente do app Mãos da Obra, especialista em construção e reforma no Brasil. " +
		"Responda em português, de forma prática e curta. Valores em reais."
	planSystem = "Você planeja obras residenciais no Brasil. Responda apenas com JSON no formato " +
		`{"steps":[{"name":"","durationDays":0}],"materials":[{"name":"","unit":"","quantity":0,"step":""}]}. ` +
		"Use nomes de etapas em português e no máximo 30 etapas."
)

type SnapshotLoader interface {
	Load(ctx context.Context, userID, workID uuid.UUID) (*dashboard.Snapshot, error)
}

// PlanStore сохраняет этапы и материалы плана целиком или не сохраняет ничего.
type PlanStore interface {
	SavePlan(ctx context.Context, st []steps.Step, mats []materials.Material) error
}

type Service struct {
	log   *slog.Logger
	gen   ai.Generator
	works SnapshotLoader
	plans PlanStore
	loc   *time.Location
	now   func() time.Time
}

func NewService(log *slog.Logger, gen ai.Generator, works SnapshotLoader, plans PlanStore, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		log:   log.With("component", "assistant"),
		gen:   gen,
		works: works,
		plans: plans,
		loc:   loc,
		now:   time.Now,
	}
}

// Chat отвечает на вопрос. С workID в запрос добавляется сводка объекта.
func (s *Service) Chat(ctx context.Context, userID uuid.UUID, message string, workID *uuid.UUID) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apperr.Invalid("message", "Digite uma mensagem.")
	}
	if len([]rune(message)) > maxMessage {
		return "", apperr.Invalid("message", "Mensagem muito longa.")
	}

	prompt := message
	if workID != nil {
		snap, err := s.works.Load(ctx, userID, *workID)
		if err != nil {
			return "", err
		}
		prompt = describe(*snap, civil.Today(s.now(), s.loc)) + "\n\nPergunta: " + message
	}
	answer, err := s.gen.Generate(ctx, ai.Prompt{System: chatSystem, Text: prompt})
	if err != nil {
		s.log.Warn("chat failed", "user_id", userID, "err", err)
		return "", err
	}
	return answer, nil
}

func describe(snap dashboard.Snapshot, today civil.Date) string {
	sum := dashboard.Summarize(snap, today)
	var b strings.Builder
	fmt.Fprintf(&b, "Obra: %s\n", snap.Work.Name)
	fmt.Fprintf(&b, "Orçamento: %s; gasto: %s; saldo: %s\n",
		alerts.FormatBRL(sum.BudgetPlanned), alerts.FormatBRL(sum.TotalSpent), alerts.FormatBRL(sum.Balance))
	fmt.Fprintf(&b, "Progresso: %d%%; etapas atrasadas: %d; materiais pendentes: %d\n",
		sum.Progress, sum.DelayedSteps, sum.PendingMaterials)
	for _, st := range snap.Steps {
		fmt.Fprintf(&b, "- etapa %s (%s)\n", st.Name, st.Status)
	}
	return b.String()
}

// PlannedStep и PlannedMaterial - разбор ответа модели.
type PlannedStep struct {
	Name         string `json:"name"`
	DurationDays int    `json:"durationDays"`
}

type PlannedMaterial struct {
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	Quantity decimal.Decimal `json:"quantity"`
	Step     string          `json:"step"`
}

type Plan struct {
	Steps     []PlannedStep     `json:"steps"`
	Materials []PlannedMaterial `json:"materials"`
	Applied   bool              `json:"applied"`
}

type PlanRequest struct {
	WorkID      uuid.UUID `json:"workId" binding:"required"`
	Description string    `json:"description" binding:"required,max=2000"`
	Apply       bool      `json:"apply"`
}

// PlanWork просит модель разбить объект на этапы и материалы. С Apply этапы
// создаются подряд от даты начала объекта (или сегодня), материалы привязываются
// к этапу по имени.
func (s *Service) PlanWork(ctx context.Context, userID uuid.UUID, req PlanRequest) (*Plan, error) {
	snap, err := s.works.Load(ctx, userID, req.WorkID)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("Obra: %s\nOrçamento: %s\nDescrição: %s",
		snap.Work.Name, alerts.FormatBRL(snap.Work.BudgetPlanned), strings.TrimSpace(req.Description))

	raw, err := s.gen.Generate(ctx, ai.Prompt{System: planSystem, Text: prompt, JSON: true})
	if err != nil {
		return nil, err
	}
	plan, err := ParsePlan(raw)
	if err != nil {
		s.log.Warn("plan parse failed", "work_id", req.WorkID, "err", err)
		return nil, err
	}
	if !req.Apply {
		return plan, nil
	}

	start := civil.Today(s.now(), s.loc)
	if snap.Work.StartDate != nil && !snap.Work.StartDate.IsZero() {
		start = *snap.Work.StartDate
	}
	if err := s.apply(ctx, req.WorkID, start, plan); err != nil {
		return nil, err
	}
	plan.Applied = true
	return plan, nil
}

// apply раскладывает этапы подряд от start. id этапов назначаются заранее,
// чтобы материалы ссылались на них в той же транзакции.
func (s *Service) apply(ctx context.Context, workID uuid.UUID, start civil.Date, plan *Plan) error {
	ids := make(map[string]uuid.UUID, len(plan.Steps))
	st := make([]steps.Step, 0, len(plan.Steps))
	cursor := start
	for _, ps := range plan.Steps {
		from := cursor
		to := cursor.AddDays(ps.DurationDays - 1)
		id := uuid.New()
		st = append(st, steps.Step{
			ID:        id,
			WorkID:    workID,
			Name:      ps.Name,
			StartDate: &from,
			EndDate:   &to,
			Status:    steps.StatusNotStarted,
		})
		if _, dup := ids[strings.ToLower(ps.Name)]; !dup {
			ids[strings.ToLower(ps.Name)] = id
		}
		cursor = to.AddDays(1)
	}
	mats := make([]materials.Material, 0, len(plan.Materials))
	for _, pm := range plan.Materials {
		m := materials.Material{WorkID: workID, Name: pm.Name, Unit: pm.Unit, PlannedQty: pm.Quantity}
		if id, ok := ids[strings.ToLower(pm.Step)]; ok {
			m.StepID = &id
		}
		mats = append(mats, m)
	}
	return s.plans.SavePlan(ctx, st, mats)
}

// ParsePlan разбирает JSON модели, в том числе обёрнутый в ```json.
// Пустые имена отбрасываются, длительность не меньше дня.
func ParsePlan(raw string) (*Plan, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var p Plan
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &p); err != nil {
		return nil, &apperr.ValidationError{Message: "A resposta da IA não pôde ser interpretada. Tente descrever a obra novamente."}
	}

	out := &Plan{}
	for _, st := range p.Steps {
		st.Name = strings.TrimSpace(st.Name)
		if st.Name == "" {
			continue
		}
		if st.DurationDays < 1 {
			st.DurationDays = 1
		}
		out.Steps = append(out.Steps, st)
		if len(out.Steps) == maxSteps {
			break
		}
	}
	for _, m := range p.Materials {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" || m.Quantity.IsNegative() {
			continue
		}
		out.Materials = append(out.Materials, m)
	}
	if len(out.Steps) == 0 {
		return nil, &apperr.ValidationError{Message: "A IA não sugeriu nenhuma etapa. Detalhe melhor a obra."}
	}
	return out, nil
}
