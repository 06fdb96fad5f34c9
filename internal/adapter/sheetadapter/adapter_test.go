package sheetadapter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/iztrace/leaderboard/internal/conf"
	"github.com/iztrace/leaderboard/pkg/gsheet"
	"github.com/iztrace/leaderboard/pkg/racetime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapReader map[string]gsheet.Grid

func (m mapReader) Read(_ context.Context, tab Tab) (gsheet.Grid, error) {
	g, ok := m[tab.Name]
	if !ok {
		return nil, errors.New("tab " + tab.Name + " not published")
	}
	return g, nil
}

func testParser(t *testing.T) racetime.Parser {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	return racetime.NewParser(loc, time.Date(2025, 11, 23, 0, 0, 0, 0, loc))
}

func testLayout() Layout {
	return Layout{
		Start:      Tab{Name: "start"},
		Finish:     Tab{Name: "finish"},
		Checkpoint: Tab{Name: "checkpoint", GID: 3},
		Categories: []CategoryTab{
			{Key: "10K Umum Putra", Tab: Tab{Name: "10K Umum Putra"}},
			{Key: "5K FUN RUN", Tab: Tab{Name: "5K FUN RUN"}},
		},
	}
}

func testGrids() mapReader {
	return mapReader{
		"10K Umum Putra": {
			{"No", "EPC", "NO BIB", "Nama Lengkap", "Jenis Kelamin", "Kategori"},
			{"1", "E1", "1001", "Budi", "Laki-laki", "10K Umum Putra"},
			{"2", "", "1002", "No Chip", "Laki-laki", "10K Umum Putra"},
			{"3", "E2", "1003", "Andi", "Laki-laki", ""},
		},
		"5K FUN RUN": {
			{"UID", "Bib Number", "Full Name", "Gender"},
			{"E3", "5001", "Sari", "Perempuan"},
			{"E1", "5002", "Duplicate", "Perempuan"},
		},
		"start": {
			{"EPC", "Start Time"},
			{"E1", "2025-11-23 07:00:05"},
			{"E1", "2025-11-23 07:00:01"},
			{"E1", "garbage"},
			{"E2", "07:00:00"},
		},
		"finish": {
			{"Tag", "Finish Time"},
			{"E1", "2025-11-23 08:00:00"},
			{"E1", "2025-11-23 08:05:00"},
			{"E1", "2025-11-23 07:59:00"},
			{"E3", ""},
		},
		"checkpoint": {
			{"EPC", "CP Time"},
			{"E1", "07:30:00"},
			{"E2", ""},
			{"E1", "07:45:00"},
		},
	}
}

func TestFetch(t *testing.T) {
	p := testParser(t)
	feed, err := NewAdapter(testGrids(), testLayout()).Fetch(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, feed.Participants, 3)
	e1 := feed.Participants[0]
	assert.Equal(t, "E1", e1.EPC)
	assert.Equal(t, "1001", e1.Bib)
	assert.Equal(t, "Budi", e1.Name)
	assert.Equal(t, "10K Umum Putra", e1.SourceCategoryKey)
	assert.Equal(t, "", feed.Participants[1].Category)

	e3 := feed.Participants[2]
	assert.Equal(t, "E3", e3.EPC)
	assert.Equal(t, "5K FUN RUN", e3.Category)
	assert.Equal(t, "Perempuan", e3.Gender)

	assert.Equal(t, p.Parse("2025-11-23 07:00:01").Ms, feed.Starts["E1"].Ms)
	assert.Equal(t, p.Parse("2025-11-23 07:00:00").Ms, feed.Starts["E2"].Ms)
	assert.Equal(t, p.Parse("2025-11-23 08:05:00").Ms, feed.Finishes["E1"].Ms)
	assert.NotContains(t, feed.Finishes, "E3")

	assert.Equal(t, []string{"07:30:00", "07:45:00"}, feed.Checkpoints["E1"])
	assert.Equal(t, []string{}, feed.Checkpoints["E2"])
}

func TestFetchCheckpointOptional(t *testing.T) {
	grids := testGrids()
	delete(grids, "checkpoint")

	feed, err := NewAdapter(grids, testLayout()).Fetch(context.Background(), testParser(t))
	require.NoError(t, err)
	assert.Empty(t, feed.Checkpoints)
}

func TestFetchFailsWithoutFinish(t *testing.T) {
	grids := testGrids()
	delete(grids, "finish")

	_, err := NewAdapter(grids, testLayout()).Fetch(context.Background(), testParser(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finish")
}

func TestParseTimesMissingColumns(t *testing.T) {
	p := testParser(t)
	assert.Empty(t, ParseTimes(gsheet.Grid{{"EPC", "Remarks"}, {"E1", "x"}}, p, PickLatest))
	assert.Empty(t, ParseTimes(nil, p, PickLatest))
}

func TestPickKeepsFirstUnparsedUntilParsed(t *testing.T) {
	bad := racetime.Instant{Raw: "x"}
	good := racetime.Instant{Ms: 10, OK: true}
	assert.True(t, PickLatest(bad, good))
	assert.False(t, PickLatest(good, bad))
	assert.True(t, PickEarliest(good, racetime.Instant{Ms: 5, OK: true}))
	assert.False(t, PickEarliest(good, racetime.Instant{Ms: 15, OK: true}))
}

func TestFileReader(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("roster.csv", "EPC,Nama,Gender\nE1,Budi,M\n")
	write("start.csv", "EPC,Times\nE1,07:00:00\n")
	write("finish.csv", "EPC,Times\nE1,08:00:00.250\n")

	layout := LayoutFromConf(conf.Feed{
		StartFile:  "start.csv",
		FinishFile: "finish.csv",
		Categories: []conf.Category{{Key: "10K", File: "roster.csv"}},
	})
	assert.False(t, layout.Checkpoint.IsSet())

	p := testParser(t)
	feed, err := NewAdapter(NewFileReader(dir), layout).Fetch(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, feed.Participants, 1)
	assert.Equal(t, "10K", feed.Participants[0].Category)
	assert.EqualValues(t, 3600250, feed.Finishes["E1"].Ms-feed.Starts["E1"].Ms)
}
