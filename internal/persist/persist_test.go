package persist

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infobox_scraper/internal/record"
)

func rawCollection() []*record.Record {
	a := record.New()
	a.Set(record.KeyTitle, record.Text("# 001: Toy Story 3"))
	a.Set(record.KeyWikiLink, record.Text("https://en.wikipedia.org/wiki/Toy_Story_3"))
	a.Set("Starring", record.List("Tom Hanks", "Tim Allen"))
	a.Set("Running time", record.Int(103))
	a.Set("Budget", record.Text("$200 million"))
	a.Set("Country", record.Text("United States <USA> & co"))

	b := record.New()
	b.Set(record.KeyTitle, record.Text("# 002: Sen to Chihiro"))
	b.Set(record.KeyWikiLink, record.Text("https://en.wikipedia.org/wiki/Spirited_Away"))
	b.Set("Japanese", record.Text("千と千尋の神隠し"))
	b.Set("Languages", record.List())

	return []*record.Record{a, b}
}

func richCollection() []*record.Record {
	recs := rawCollection()
	recs[0].Set("Budget (US$)", record.Money(2e8))
	recs[0].Set("Box office (US$)", record.NullMoney())
	recs[0].Set("Release date", record.Date(time.Date(2010, time.June, 18, 0, 0, 0, 0, time.UTC)))
	recs[1].Set("Release date", record.NullDate())
	recs[1].Set("Notes", record.Missing())
	return recs
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	recs := rawCollection()
	path := filepath.Join(t.TempDir(), "out", "records.json")

	require.NoError(t, WriteFile(path, JSONCodec{}, recs))
	back, err := ReadFile(path, JSONCodec{})
	require.NoError(t, err)

	assert.True(t, Verify(recs, back))
	assert.Equal(t, recs[0].Keys(), back[0].Keys())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "千と千尋の神隠し")
	assert.Contains(t, string(data), "<USA> & co")
	assert.Contains(t, string(data), "\n    {")
}

func TestJSONCodec_RejectsCanonicalValues(t *testing.T) {
	var buf bytes.Buffer
	err := JSONCodec{}.Encode(&buf, richCollection())
	assert.ErrorIs(t, err, record.ErrNotPrimitive)
}

func TestJSONCodec_EmptyCollection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONCodec{}.Encode(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	back, err := JSONCodec{}.Decode(&buf)
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestBSONCodec_RoundTrip(t *testing.T) {
	recs := richCollection()
	path := filepath.Join(t.TempDir(), "records.bson")

	require.NoError(t, WriteFile(path, BSONCodec{}, recs))
	back, err := ReadFile(path, BSONCodec{})
	require.NoError(t, err)

	require.Len(t, back, 2)
	assert.True(t, Verify(recs, back))
	assert.Equal(t, recs[0].Keys(), back[0].Keys())

	notes, ok := back[1].Get("Notes")
	require.True(t, ok)
	assert.Equal(t, record.KindMissing, notes.Kind())

	release, ok := back[1].Get("Release date")
	require.True(t, ok)
	assert.Equal(t, record.KindDate, release.Kind())
	assert.True(t, release.IsNull())
}

func TestBSONCodec_RejectsGarbage(t *testing.T) {
	_, err := BSONCodec{}.Decode(strings.NewReader("not bson"))
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	a := rawCollection()
	b := rawCollection()
	assert.True(t, Verify(a, b))

	b[1].Set("Japanese", record.Text("?"))
	assert.False(t, Verify(a, b))
	assert.False(t, Verify(a, a[:1]))
	assert.Equal(t, 1, firstDifference(a, b))
}

// lossyCodec drops every list field on the way back.
type lossyCodec struct{ JSONCodec }

func (lossyCodec) Name() string { return "lossy" }

func (c lossyCodec) Decode(r io.Reader) ([]*record.Record, error) {
	recs, err := c.JSONCodec.Decode(r)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		for _, key := range rec.Keys() {
			if v, _ := rec.Get(key); v.Kind() == record.KindList {
				rec.Delete(key)
			}
		}
	}
	return recs, nil
}

func TestCheckpoint_Policies(t *testing.T) {
	dir := t.TempDir()

	t.Run("match returns original", func(t *testing.T) {
		recs := rawCollection()
		got, err := Checkpoint{Name: "raw", Codec: JSONCodec{}, Path: filepath.Join(dir, "a.json")}.Run(recs)
		require.NoError(t, err)
		assert.Equal(t, recs, got)
	})

	t.Run("warn keeps in-memory collection", func(t *testing.T) {
		recs := rawCollection()
		got, err := Checkpoint{Name: "raw", Codec: lossyCodec{}, Path: filepath.Join(dir, "b.json"), Policy: MismatchWarn}.Run(recs)
		require.NoError(t, err)
		assert.Equal(t, recs, got)
	})

	t.Run("fail stops", func(t *testing.T) {
		_, err := Checkpoint{Name: "raw", Codec: lossyCodec{}, Path: filepath.Join(dir, "c.json"), Policy: MismatchFail}.Run(rawCollection())
		assert.ErrorIs(t, err, ErrRoundTripMismatch)
	})

	t.Run("reloaded continues with file contents", func(t *testing.T) {
		got, err := Checkpoint{Name: "raw", Codec: lossyCodec{}, Path: filepath.Join(dir, "d.json"), Policy: MismatchUseReloaded}.Run(rawCollection())
		require.NoError(t, err)
		assert.False(t, got[0].Has("Starring"))
	})

	t.Run("encode failure is an error", func(t *testing.T) {
		_, err := Checkpoint{Name: "raw", Codec: JSONCodec{}, Path: filepath.Join(dir, "e.json")}.Run(richCollection())
		assert.ErrorIs(t, err, record.ErrNotPrimitive)
	})
}

func TestParseMismatchPolicy(t *testing.T) {
	for _, p := range []MismatchPolicy{MismatchWarn, MismatchFail, MismatchUseReloaded} {
		got, err := ParseMismatchPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseMismatchPolicy("ignore")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, richCollection()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	header := rows[0]
	assert.Equal(t, []string{
		"title", "wiki_link", "Starring", "Running time", "Budget", "Country",
		"Budget (US$)", "Box office (US$)", "Release date", "Japanese", "Languages", "Notes",
	}, header)

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %q missing", name)
		return -1
	}

	assert.Equal(t, "Tom Hanks; Tim Allen", rows[1][col("Starring")])
	assert.Equal(t, "103", rows[1][col("Running time")])
	assert.Equal(t, "200000000", rows[1][col("Budget (US$)")])
	assert.Equal(t, "", rows[1][col("Box office (US$)")])
	assert.Equal(t, "June 18, 2010", rows[1][col("Release date")])
	assert.Equal(t, "", rows[1][col("Japanese")])
	assert.Equal(t, "千と千尋の神隠し", rows[2][col("Japanese")])
	assert.Equal(t, "", rows[2][col("Release date")])
}

func TestWriteExportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExportJSON(&buf, richCollection()))

	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)

	assert.Equal(t, 2e8, out[0]["Budget (US$)"])
	assert.Nil(t, out[0]["Box office (US$)"])
	assert.Equal(t, "June 18, 2010", out[0]["Release date"])
	assert.Equal(t, 103.0, out[0]["Running time"])
	assert.Nil(t, out[1]["Release date"])
	assert.True(t, strings.Index(buf.String(), `"title"`) < strings.Index(buf.String(), `"wiki_link"`))
	assert.Contains(t, buf.String(), "United States <USA> & co")
	assert.Contains(t, buf.String(), "\n    {\n        \"title\"")
}

func TestWriteExportJSON_NoHTMLEscaping(t *testing.T) {
	rec := record.New()
	rec.Set(record.KeyTitle, record.Text("# 001: Up"))
	rec.Set("Production companies", record.List("Walt Disney Pictures & Pixar"))
	rec.Set("Tagline", record.Text("<b>x</b> café"))

	var buf bytes.Buffer
	require.NoError(t, WriteExportJSON(&buf, []*record.Record{rec}))

	s := buf.String()
	assert.Contains(t, s, `"Walt Disney Pictures & Pixar"`)
	assert.Contains(t, s, `"<b>x</b> café"`)
	assert.NotContains(t, s, `\u0026`)
	assert.NotContains(t, s, `\u003c`)

	var primitive bytes.Buffer
	require.NoError(t, JSONCodec{}.Encode(&primitive, []*record.Record{rec}))
	assert.Contains(t, primitive.String(), `"<b>x</b> café"`)
}

func TestRecordDocument(t *testing.T) {
	doc := RecordDocument(richCollection()[0])

	keys := make([]string, 0, len(doc))
	for _, e := range doc {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, richCollection()[0].Keys(), keys)

	m := doc.Map()
	assert.Equal(t, []string{"Tom Hanks", "Tim Allen"}, m["Starring"])
	assert.Equal(t, int64(103), m["Running time"])
	assert.Equal(t, 2e8, m["Budget (US$)"])
	assert.Nil(t, m["Box office (US$)"])
	assert.Equal(t, time.Date(2010, time.June, 18, 0, 0, 0, 0, time.UTC), m["Release date"])
}

func TestExportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.csv")
	require.NoError(t, ExportFile(path, WriteCSV, richCollection()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "title,wiki_link,"))
}
