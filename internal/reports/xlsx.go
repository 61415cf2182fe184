// Package reports - выгрузка отчёта по объекту в Excel.
package reports

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/maos-da-obra/internal/dashboard"
	"github.com/Spok95/maos-da-obra/internal/domain/civil"
)

const (
	SheetSummary   = "Resumo"
	SheetSteps     = "Etapas"
	SheetMaterials = "Materiais"
	SheetExpenses  = "Despesas"
)

var stepStatus = map[string]string{
	"NOT_STARTED": "Não iniciada",
	"IN_PROGRESS": "Em andamento",
	"COMPLETED":   "Concluída",
}

// FileName - имя файла для Content-Disposition.
func FileName(workName string, at time.Time) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '_'
		}
		return -1
	}, workName)
	if name == "" {
		name = "obra"
	}
	return fmt.Sprintf("relatorio_%s_%s.xlsx", name, at.Format("20060102_1504"))
}

// Build формирует книгу с листами Resumo, Etapas, Materiais, Despesas.
func Build(s dashboard.Snapshot, today civil.Date) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return nil, fmt.Errorf("reports: rename: %w", err)
	}
	for _, name := range []string{SheetSteps, SheetMaterials, SheetExpenses} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("reports: sheet %s: %w", name, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("reports: style: %w", err)
	}

	sum := dashboard.Summarize(s, today)
	summary := [][]any{
		{"Obra", s.Work.Name},
		{"Endereço", s.Work.Address},
		{"Orçamento previsto", s.Work.BudgetPlanned.InexactFloat64()},
		{"Total gasto", sum.TotalSpent.InexactFloat64()},
		{"Total pago", sum.TotalPaid.InexactFloat64()},
		{"Saldo", sum.Balance.InexactFloat64()},
		{"Orçamento utilizado (%)", sum.BudgetUsedPct},
		{"Progresso (%)", sum.Progress},
		{"Etapas atrasadas", sum.DelayedSteps},
		{"Materiais pendentes", sum.PendingMaterials},
		{"Gerado em", today.String()},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(summary)), bold)

	stepNames := make(map[uuid.UUID]string, len(s.Steps))
	rows := [][]any{{"Etapa", "Início", "Fim", "Status", "Atrasada"}}
	for _, st := range s.Steps {
		stepNames[st.ID] = st.Name
		delayed := "Não"
		if st.IsDelayed(today) {
			delayed = "Sim"
		}
		rows = append(rows, []any{st.Name, dateCell(st.StartDate), dateCell(st.EndDate), stepStatus[string(st.Status)], delayed})
	}
	if err := writeTable(f, SheetSteps, rows, bold); err != nil {
		return nil, err
	}

	rows = [][]any{{"Material", "Unidade", "Etapa", "Previsto", "Comprado", "Custo total", "Pendente"}}
	for _, m := range s.Materials {
		pending := "Não"
		if m.IsPending() {
			pending = "Sim"
		}
		rows = append(rows, []any{
			m.Name, m.Unit, stepName(stepNames, m.StepID),
			m.PlannedQty.InexactFloat64(), m.PurchasedQty.InexactFloat64(), m.TotalCost.InexactFloat64(), pending,
		})
	}
	if err := writeTable(f, SheetMaterials, rows, bold); err != nil {
		return nil, err
	}

	rows = [][]any{{"Data", "Descrição", "Categoria", "Etapa", "Valor", "Pago"}}
	for _, e := range s.Expenses {
		rows = append(rows, []any{
			dateCell(&e.Date), e.Description, e.Category, stepName(stepNames, e.StepID),
			e.Amount.InexactFloat64(), e.PaidAmount.InexactFloat64(),
		})
	}
	if err := writeTable(f, SheetExpenses, rows, bold); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("reports: write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTable(f *excelize.File, sheet string, rows [][]any, header int) error {
	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return fmt.Errorf("reports: %s: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, header); err != nil {
		return fmt.Errorf("reports: %s: %w", sheet, err)
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("reports: %s: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("reports: %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func dateCell(d *civil.Date) string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.String()
}

func stepName(names map[uuid.UUID]string, id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return names[*id]
}
