// Package export writes funnels to spreadsheet files.
package export

import (
	"context"
	"fmt"
	"io"

	"github.com/vinizap/zapvenda/pkg/funnel"
	"github.com/vinizap/zapvenda/pkg/template"
	"github.com/xuri/excelize/v2"
)

const (
	FunnelsSheet = "Funis"
	StepsSheet   = "Etapas"

	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	funnelHeaders = []string{"ID", "Nome", "Descrição", "Ativo", "Etapas", "Criado em", "Atualizado em"}
	stepHeaders   = []string{"Funil", "Ordem", "Etapa", "Template", "Atraso (min)", "Condição", "Gatilho"}
)

// FunnelWorkbook writes one row per funnel on the Funis sheet and one row
// per step, in order, on the Etapas sheet. Template names are resolved
// through catalog; unknown templates are written by ID.
func FunnelWorkbook(ctx context.Context, w io.Writer, funnels []funnel.Funnel, catalog template.Catalog) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", FunnelsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(StepsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DCF8C6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if err := writeHeader(f, FunnelsSheet, funnelHeaders, headerStyle); err != nil {
		return err
	}
	if err := writeHeader(f, StepsSheet, stepHeaders, headerStyle); err != nil {
		return err
	}

	names := templateNames(ctx, catalog)

	stepRow := 2
	for i, fn := range funnels {
		row := []any{
			fn.ID, fn.Name, fn.Description, yesNo(fn.IsActive), len(fn.Steps),
			fn.CreatedAt.Format("2006-01-02 15:04"), fn.UpdatedAt.Format("2006-01-02 15:04"),
		}
		if err := writeRow(f, FunnelsSheet, i+2, row); err != nil {
			return err
		}

		for j, s := range fn.Steps {
			tplName := s.TemplateID
			if n, ok := names[s.TemplateID]; ok {
				tplName = n
			}
			row := []any{fn.Name, j + 1, s.Name, tplName, s.Delay, string(s.Condition), funnel.DescribeTrigger(s)}
			if err := writeRow(f, StepsSheet, stepRow, row); err != nil {
				return err
			}
			stepRow++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func templateNames(ctx context.Context, catalog template.Catalog) map[string]string {
	names := make(map[string]string)
	if catalog == nil {
		return names
	}
	list, err := catalog.List(ctx)
	if err != nil {
		return names
	}
	for _, t := range list {
		names[t.ID] = t.Name
	}
	return names
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}
