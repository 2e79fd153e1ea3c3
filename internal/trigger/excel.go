package trigger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet and label constants are the workbook contract: requirement blocks
// open with a 【ID】 header and carry a two-column label/value table.
const (
	TriggerSheet   = "Trigger_edit"
	HierarchySheet = "Requirement_of_Driver"

	blockOpen  = "【"
	blockClose = "】"

	labelSignalName = "信号名"
	labelValue      = "値"
	labelActionType = "アクションタイプ"
	labelTarget     = "ターゲット"
	labelRemarks    = "備考"
)

// tableOffset and tableRows bound the label/value table relative to a
// block header: it starts two rows below and spans at most five rows.
const (
	tableOffset = 2
	tableRows   = 5
)

// ParseWorkbook extracts every trigger description from the workbook's
// trigger sheet. A workbook without that sheet yields no descriptions.
func ParseWorkbook(path string) ([]Description, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(TriggerSheet)
	if err != nil {
		return nil, fmt.Errorf("lookup sheet %s: %w", TriggerSheet, err)
	}
	if idx < 0 {
		return nil, nil
	}

	rows, err := f.GetRows(TriggerSheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", TriggerSheet, err)
	}

	return parseTriggerRows(rows), nil
}

func parseTriggerRows(rows [][]string) []Description {
	var out []Description
	for i := range rows {
		header := cellAt(rows, i, 0)
		if !strings.HasPrefix(header, blockOpen) || !strings.Contains(header, blockClose) {
			continue
		}

		id, name, _ := strings.Cut(header, blockClose)
		d := Description{
			JamaID:          strings.TrimSpace(strings.TrimPrefix(id, blockOpen)),
			RequirementName: strings.TrimSpace(name),
		}
		parseTriggerTable(rows, i+tableOffset, &d)
		out = append(out, d)
	}
	return out
}

func parseTriggerTable(rows [][]string, start int, d *Description) {
	for i := 0; i < tableRows; i++ {
		label := strings.TrimSpace(cellAt(rows, start+i, 0))
		value := strings.TrimSpace(cellAt(rows, start+i, 1))
		if label == "" {
			continue
		}
		switch label {
		case labelSignalName:
			d.SignalName = value
		case labelValue:
			d.Value = coerceValue(value)
		case labelActionType:
			d.ActionType = value
		case labelTarget:
			d.Target = value
		case labelRemarks:
			d.Remarks = value
		}
	}
}

// coerceValue narrows a cell string to an int or float when it parses as
// one; otherwise the string is kept.
func coerceValue(s string) any {
	if s == "" {
		return ""
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func cellAt(rows [][]string, r, c int) string {
	if r < 0 || r >= len(rows) {
		return ""
	}
	if c >= len(rows[r]) {
		return ""
	}
	return rows[r][c]
}

// ParseHierarchy extracts the trigger descriptions whose requirement sits
// under the given hierarchy sequence (e.g. "1.2.3"), using the hierarchy
// sheet's sequence column to select requirement IDs.
func ParseHierarchy(path, hierarchySequence string) ([]Description, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}

	idx, err := f.GetSheetIndex(HierarchySheet)
	if err != nil || idx < 0 {
		f.Close()
		return nil, fmt.Errorf("workbook %s has no %s sheet", path, HierarchySheet)
	}

	rows, err := f.GetRows(HierarchySheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read sheet %s: %w", HierarchySheet, err)
	}
	f.Close()

	wanted := make(map[string]struct{})
	for i := 1; i < len(rows); i++ {
		sequence := strings.TrimSpace(cellAt(rows, i, 2))
		if sequence == "" || !strings.HasPrefix(sequence, hierarchySequence) {
			continue
		}
		if id := strings.TrimSpace(cellAt(rows, i, 0)); id != "" {
			wanted[id] = struct{}{}
		}
	}

	all, err := ParseWorkbook(path)
	if err != nil {
		return nil, err
	}

	var out []Description
	for _, d := range all {
		if _, ok := wanted[d.JamaID]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}
