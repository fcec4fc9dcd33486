package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"infobox_scraper/internal/models"
)

func TestRecordStatsPipeline(t *testing.T) {
	p := recordStatsPipeline("Budget (US$)", "Box office (US$)")
	require.Len(t, p, 1)

	raw, err := bson.MarshalExtJSON(p[0], false, false)
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, `$getField`)
	assert.Contains(t, s, `"Budget (US$)"`)
	assert.Contains(t, s, `"Box office (US$)"`)
	assert.Contains(t, s, `"total_records"`)
}

func TestDocumentBSONShape(t *testing.T) {
	data, err := bson.Marshal(models.Document{NormalizedURL: "https://en.wikipedia.org/wiki/Up", ScrapedCount: 2})
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(data, &m))
	assert.Equal(t, "https://en.wikipedia.org/wiki/Up", m["normalized_url"])
	assert.Contains(t, m, "content_hash")
	assert.Contains(t, m, "excerpt")
	assert.NotContains(t, m, "_id")
}
