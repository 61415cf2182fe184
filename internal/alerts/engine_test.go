package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/maos-da-obra/internal/domain/civil"
	"github.com/Spok95/maos-da-obra/internal/domain/expenses"
	"github.com/Spok95/maos-da-obra/internal/domain/materials"
	"github.com/Spok95/maos-da-obra/internal/domain/notifications"
	"github.com/Spok95/maos-da-obra/internal/domain/steps"
	"github.com/Spok95/maos-da-obra/internal/domain/works"
	"github.com/Spok95/maos-da-obra/internal/infra/logger"
)

type memStore struct {
	items     []notifications.Notification
	failCheck bool
}

func (m *memStore) HasUnread(_ context.Context, userID uuid.UUID, tag string) (bool, error) {
	if m.failCheck {
		return false, errors.New("db down")
	}
	for _, n := range m.items {
		if n.UserID == userID && n.Tag == tag && !n.Read {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Create(_ context.Context, n *notifications.Notification) (*notifications.Notification, error) {
	n.ID = uuid.New()
	m.items = append(m.items, *n)
	return n, nil
}

func (m *memStore) tags() []string {
	var out []string
	for _, n := range m.items {
		out = append(out, n.Tag)
	}
	return out
}

var now = time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)

func newEngine(st Store) *Engine {
	e := NewEngine(logger.Discard(), st, 3, time.UTC)
	e.now = func() time.Time { return now }
	return e
}

func date(offset int) *civil.Date {
	d := civil.Today(now, time.UTC).AddDays(offset)
	return &d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func baseInput() Input {
	return Input{
		UserID: uuid.New(),
		Work:   works.Work{ID: uuid.New(), Name: "Casa da praia", BudgetPlanned: dec("1000")},
	}
}

func TestDelayRule(t *testing.T) {
	in := baseInput()
	late := steps.Step{ID: uuid.New(), Name: "Fundação", Status: steps.StatusInProgress, EndDate: date(-1)}
	done := steps.Step{ID: uuid.New(), Name: "Demolição", Status: steps.StatusCompleted, EndDate: date(-1)}
	in.Steps = []steps.Step{late, done}

	st := &memStore{}
	created := newEngine(st).Generate(context.Background(), in)
	require.Len(t, created, 1)
	assert.Equal(t, DelayTag(late.ID), created[0].Tag)
	assert.Equal(t, notifications.TypeWarning, created[0].Type)
}

func TestGenerateIsIdempotent(t *testing.T) {
	in := baseInput()
	in.Steps = []steps.Step{{ID: uuid.New(), Name: "Alvenaria", Status: steps.StatusNotStarted, EndDate: date(-5)}}
	in.Expenses = []expenses.Expense{{Amount: dec("900")}}

	st := &memStore{}
	e := newEngine(st)
	e.Generate(context.Background(), in)
	first := len(st.items)
	require.Equal(t, 2, first)

	e.Generate(context.Background(), in)
	assert.Equal(t, first, len(st.items))

	// после прочтения условие может сработать снова
	st.items[0].Read = true
	e.Generate(context.Background(), in)
	assert.Equal(t, first+1, len(st.items))
}

func TestBudgetOverrunTakesPrecedence(t *testing.T) {
	in := baseInput()
	in.Expenses = []expenses.Expense{{Amount: dec("600")}, {Amount: dec("410")}} // 101%

	st := &memStore{}
	created := newEngine(st).Generate(context.Background(), in)
	require.Len(t, created, 1)
	assert.Equal(t, BudgetOverrunTag(in.Work.ID), created[0].Tag)
	assert.Equal(t, notifications.TypeError, created[0].Type)
}

func TestBudgetWarningBand(t *testing.T) {
	cases := map[string]struct {
		spent string
		tag   func(uuid.UUID) string
	}{
		"84%":  {"840", nil},
		"85%":  {"850", BudgetWarningTag},
		"100%": {"1000", BudgetWarningTag},
		"over": {"1000.01", BudgetOverrunTag},
	}
	for name, tc := range cases {
		in := baseInput()
		in.Expenses = []expenses.Expense{{Amount: dec(tc.spent)}}
		got := newEngine(&memStore{}).Evaluate(in)
		if tc.tag == nil {
			assert.Empty(t, got, name)
			continue
		}
		require.Len(t, got, 1, name)
		assert.Equal(t, tc.tag(in.Work.ID), got[0].Tag, name)
	}

	in := baseInput()
	in.Work.BudgetPlanned = decimal.Zero
	in.Expenses = []expenses.Expense{{Amount: dec("10")}}
	assert.Empty(t, newEngine(&memStore{}).Evaluate(in), "no budget, no budget alerts")
}

func TestMaterialPendingRule(t *testing.T) {
	in := baseInput()
	soon := steps.Step{ID: uuid.New(), Name: "Reboco", Status: steps.StatusInProgress, EndDate: date(3)}
	later := steps.Step{ID: uuid.New(), Name: "Pintura", Status: steps.StatusNotStarted, EndDate: date(4)}
	closed := steps.Step{ID: uuid.New(), Name: "Piso", Status: steps.StatusCompleted, EndDate: date(1)}
	in.Steps = []steps.Step{soon, later, closed}

	pending := materials.Material{ID: uuid.New(), Name: "Cimento", Unit: "sc", StepID: &soon.ID, PlannedQty: dec("10"), PurchasedQty: dec("4")}
	bought := materials.Material{ID: uuid.New(), Name: "Areia", StepID: &soon.ID, PlannedQty: dec("5"), PurchasedQty: dec("5")}
	farAway := materials.Material{ID: uuid.New(), Name: "Tinta", StepID: &later.ID, PlannedQty: dec("3")}
	done := materials.Material{ID: uuid.New(), Name: "Porcelanato", StepID: &closed.ID, PlannedQty: dec("3")}
	loose := materials.Material{ID: uuid.New(), Name: "Prego", PlannedQty: dec("3")}
	in.Materials = []materials.Material{pending, bought, farAway, done, loose}

	got := newEngine(&memStore{}).Evaluate(in)
	require.Len(t, got, 1)
	assert.Equal(t, MaterialPendingTag(pending.ID), got[0].Tag)
	assert.Contains(t, got[0].Message, "Faltam 6 sc")
}

func TestRuleFailureDoesNotStopOthers(t *testing.T) {
	in := baseInput()
	in.Expenses = []expenses.Expense{{Amount: dec("2000")}}
	// правило с паникой не мешает остальным
	orig := rules
	defer func() { rules = orig }()
	rules = append([]rule{{name: "broken", eval: func(Input, civil.Date, int) []Alert { panic("bad date") }}}, orig...)

	st := &memStore{}
	created := newEngine(st).Generate(context.Background(), in)
	assert.Equal(t, []string{BudgetOverrunTag(in.Work.ID)}, st.tags())
	assert.Len(t, created, 1)
}

func TestDedupFailureSkipsInsert(t *testing.T) {
	in := baseInput()
	in.Expenses = []expenses.Expense{{Amount: dec("2000")}}
	st := &memStore{failCheck: true}
	assert.Empty(t, newEngine(st).Generate(context.Background(), in))
}

func TestOnCreatedHook(t *testing.T) {
	in := baseInput()
	in.Expenses = []expenses.Expense{{Amount: dec("2000")}}
	e := newEngine(&memStore{})
	var seen []string
	e.OnCreated = func(_ context.Context, n notifications.Notification) { seen = append(seen, n.Tag) }
	e.Generate(context.Background(), in)
	e.Generate(context.Background(), in)
	assert.Equal(t, []string{BudgetOverrunTag(in.Work.ID)}, seen)
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 95.900,00", FormatBRL(dec("95900")))
	assert.Equal(t, "R$ 0,50", FormatBRL(dec("0.5")))
	assert.Equal(t, "R$ 1.234.567,89", FormatBRL(dec("1234567.89")))
	assert.Equal(t, "-R$ 10,00", FormatBRL(dec("-10")))
}
