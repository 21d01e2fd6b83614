package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
)

// PrizeImportResult reports what ParsePrizeCSV read
type PrizeImportResult struct {
	TotalRows int                   `json:"totalRows"`
	Prizes    []models.PrizeRequest `json:"prizes"`
	Errors    []string              `json:"errors"`
}

// ParsePrizeCSV reads prize rows with a header of name,type,value,quantity,probability.
// Column order is free and a few aliases are accepted. Bad rows are reported, not fatal.
func ParsePrizeCSV(r io.Reader) (*PrizeImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	nameIdx := findColumnIndex(header, []string{"name", "prize", "prize name"})
	typeIdx := findColumnIndex(header, []string{"type", "prize type"})
	valueIdx := findColumnIndex(header, []string{"value", "amount"})
	quantityIdx := findColumnIndex(header, []string{"quantity", "stock", "qty"})
	probabilityIdx := findColumnIndex(header, []string{"probability", "prob", "weight"})

	if nameIdx == -1 || typeIdx == -1 || probabilityIdx == -1 {
		return nil, fmt.Errorf("name, type and probability columns are required")
	}

	result := &PrizeImportResult{Prizes: []models.PrizeRequest{}, Errors: []string{}}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		result.TotalRows++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}

		prize, err := parsePrizeRow(row, nameIdx, typeIdx, valueIdx, quantityIdx, probabilityIdx)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}
		result.Prizes = append(result.Prizes, prize)
	}

	return result, nil
}

func parsePrizeRow(row []string, nameIdx, typeIdx, valueIdx, quantityIdx, probabilityIdx int) (models.PrizeRequest, error) {
	var prize models.PrizeRequest

	prize.Name = cell(row, nameIdx)
	if prize.Name == "" {
		return prize, fmt.Errorf("no prize name")
	}

	prize.Type = models.PrizeType(strings.ToLower(cell(row, typeIdx)))
	if !prize.Type.Valid() {
		return prize, fmt.Errorf("unknown prize type %q", cell(row, typeIdx))
	}

	if s := cell(row, valueIdx); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return prize, fmt.Errorf("invalid value: %s", s)
		}
		prize.Value = v
	}

	prize.Quantity = models.UnlimitedQuantity
	if s := cell(row, quantityIdx); s != "" {
		q, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return prize, fmt.Errorf("invalid quantity: %s", s)
		}
		prize.Quantity = q
	}

	s := strings.TrimSuffix(cell(row, probabilityIdx), "%")
	p, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return prize, fmt.Errorf("invalid probability: %s", s)
	}
	prize.Probability = p

	return prize, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// findColumnIndex finds the index of a column in the header
func findColumnIndex(header []string, possibleNames []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range possibleNames {
			if strings.ToLower(name) == h {
				return i
			}
		}
	}
	return -1
}
