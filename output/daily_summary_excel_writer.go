package output

func writeDailySummariesExcel(path string, summaries []DailySummary) error {
	records := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		records = append(records, dailyValues(summary))
	}
	return writeExcel(path, "Daily", dailyHeaders, records)
}
