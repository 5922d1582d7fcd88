package aggregate

import (
	"testing"
	"time"

	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func annotated() []models.AnnotatedRow {
	day := time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)
	return []models.AnnotatedRow{
		{ID: "1", ReviewDate: &day, PrimaryCategory: "Electronics", ProductName: "Kindle", AspectLabel: "Brand", ModelSentimentLabel: "Positive"},
		{ID: "1", ReviewDate: &day, PrimaryCategory: "Electronics", ProductName: "Kindle", AspectLabel: "Price/Value", ModelSentimentLabel: "Positive"},
		{ID: "2", PrimaryCategory: "Electronics", ProductName: "Kindle", AspectLabel: "Battery / Power", ModelSentimentLabel: "Negative"},
		{ID: "3", PrimaryCategory: "Health & Beauty", ProductName: "Batteries", AspectLabel: "Battery / Power", ModelSentimentLabel: "Neutral"},
		{ID: "4", PrimaryCategory: "Electronics", ProductName: "Echo", AspectLabel: "Brand", ModelSentimentLabel: " Positive "},
	}
}

func TestByProduct(t *testing.T) {
	got := ByProduct(annotated())
	require.Len(t, got, 3)

	assert.Equal(t, []string{"Batteries", "Echo", "Kindle"}, []string{got[0].EntityKey, got[1].EntityKey, got[2].EntityKey})

	kindle := got[2]
	assert.Equal(t, 1, kindle.Positive)
	assert.Equal(t, 1, kindle.Negative)
	assert.Equal(t, 0, kindle.Neutral)
	assert.Equal(t, "+0.0%", kindle.PosNeg)
	assert.Equal(t, "100.0% (no neutral reviews)", kindle.PosNeu)

	echo := got[1]
	assert.Equal(t, 1, echo.Positive)
	assert.Equal(t, "100.0% (all positive reviews)", echo.PosAll)
	assert.Equal(t, "-100.0%", echo.NegAll)
}

func TestByCategory(t *testing.T) {
	got := ByCategory(annotated())
	require.Len(t, got, 2)

	electronics := got[0]
	assert.Equal(t, "Electronics", electronics.EntityKey)
	assert.Equal(t, 3, electronics.Total())
	assert.Equal(t, 2, electronics.Positive)
	assert.Equal(t, 1, electronics.Negative)
	assert.Equal(t, "+100.0%", electronics.PosNeg)

	assert.Equal(t, "Health & Beauty", got[1].EntityKey)
	assert.Equal(t, 1, got[1].Neutral)
}

func TestAggregateCountsMatchUniqueReviews(t *testing.T) {
	rows := annotated()
	total := 0
	for _, r := range ByCategory(rows) {
		total += r.Total()
	}
	assert.Equal(t, 4, total)
}

func TestAggregateSkipsUnknownLabels(t *testing.T) {
	rows := []models.AnnotatedRow{
		{ID: "1", ProductName: "Kindle", ModelSentimentLabel: "Mixed"},
		{ID: "2", ProductName: "Kindle", ModelSentimentLabel: "Negative"},
	}
	got := ByProduct(rows)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Total())
}

func TestAggregateEmpty(t *testing.T) {
	assert.Empty(t, ByProduct(nil))
}
