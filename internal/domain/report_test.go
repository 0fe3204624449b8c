package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		DataDir:    "/abs/data",
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Items: []ItemResult{
			{Title: "The Matrix", Status: StatusSkipped},
			{Title: "", Status: StatusFailed}, // config 等合成项
			{Title: "Inception", Status: StatusProcessed},
			{Title: "Nope Nope", Status: StatusNotFound},
		},
	}

	r.Finalize()

	got := []string{r.Items[0].Title, r.Items[1].Title, r.Items[2].Title, r.Items[3].Title}
	assert.Equal(t, []string{"Inception", "Nope Nope", "The Matrix", ""}, got, "title==\"\" 必须排在最后")
	assert.Equal(t, ReportSummary{Processed: 1, Skipped: 1, Failed: 1, NotFound: 1}, r.Summary)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"started_at":"2026-02-09T02:00:00Z"`, "started_at 不是 UTC RFC3339")
}

func TestRunReport_MarshalJSON_EmptyItemsIsArray(t *testing.T) {
	b, err := json.Marshal(RunReport{})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"items":[]`)
}
