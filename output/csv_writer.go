package output

import (
	"encoding/csv"
	"fmt"
	"os"

	"worksync/storage"
)

type CSVWriter struct{}

func (w *CSVWriter) Write(path string, rows []storage.OutcomeRow) error {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, outcomeValues(row))
	}
	return writeCSV(path, outcomeHeaders, records)
}

func writeCSV(path string, headers []string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv output %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}
	return nil
}
