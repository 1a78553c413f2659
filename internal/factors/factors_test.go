package factors

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorlens/internal/config"
)

const sampleFactorFile = `This file was created by CMPT_ME_BEME_RETS using the 202401 CRSP database.
The 1-month TBill return is from Ibbotson and Associates, Inc.

,Mkt-RF,SMB,HML,RF
20240102,1.50,-0.30,0.20,0.002
20240103,-0.75,0.10,0.05,0.002
20240104,3.00,0.40,-0.10,0.002

Annual Factors: January-December
,Mkt-RF,SMB,HML,RF
2023,26.11,-3.17,-9.22,4.96
`

func TestParse(t *testing.T) {
	fs, err := Parse(strings.NewReader(sampleFactorFile), 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"Mkt-RF", "SMB", "HML"}, fs.Names)
	require.Len(t, fs.RF, 3)

	// Percent values must already be decimals here
	mkt := fs.Series["Mkt-RF"]
	require.Len(t, mkt, 3)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), mkt[0].Date)
	assert.InDelta(t, 0.015, mkt[0].Value, 1e-12)
	assert.InDelta(t, -0.0075, mkt[1].Value, 1e-12)
	assert.InDelta(t, 0.03, mkt[2].Value, 1e-12)
	assert.InDelta(t, 0.00002, fs.RF[0].Value, 1e-12)

	// The annual summary block must not leak into the daily series
	for _, series := range fs.Series {
		assert.Len(t, series, 3)
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		skipRows int
		wantErr  string
	}{
		{
			name:     "preamble longer than file",
			input:    "only line\n",
			skipRows: 5,
			wantErr:  "preamble",
		},
		{
			name:     "no header after preamble",
			input:    "preamble\n",
			skipRows: 1,
			wantErr:  "no header row",
		},
		{
			name:     "missing RF column",
			input:    "preamble\n,Mkt-RF,SMB,HML\n20240102,1.0,2.0,3.0\n",
			skipRows: 1,
			wantErr:  "expected RF",
		},
		{
			name:     "malformed value fails loudly",
			input:    ",Mkt-RF,RF\n20240102,abc,0.002\n",
			skipRows: 0,
			wantErr:  "parse Mkt-RF",
		},
		{
			name:     "column count mismatch",
			input:    ",Mkt-RF,RF\n20240102,1.0\n",
			skipRows: 0,
			wantErr:  "expected 3 columns",
		},
		{
			name:     "no daily rows",
			input:    ",Mkt-RF,RF\n",
			skipRows: 0,
			wantErr:  "no daily rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), tt.skipRows)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFactorSetIndependents(t *testing.T) {
	fs, err := Parse(strings.NewReader(sampleFactorFile), 3)
	require.NoError(t, err)

	t.Run("subset selection", func(t *testing.T) {
		sel, err := fs.Independents([]string{"Mkt-RF", "HML"})
		require.NoError(t, err)
		assert.Len(t, sel, 2)
	})

	t.Run("empty selection means all factors", func(t *testing.T) {
		sel, err := fs.Independents(nil)
		require.NoError(t, err)
		assert.Len(t, sel, 3)
	})

	t.Run("unknown factor rejected", func(t *testing.T) {
		_, err := fs.Independents([]string{"UMD"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown factor")
	})
}

// zipArchive builds an in-memory zip holding a single named member
func zipArchive(t *testing.T, memberName, content string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	member, err := w.Create(memberName)
	require.NoError(t, err)
	_, err = member.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestClientFetch(t *testing.T) {
	archive := zipArchive(t, "F-F_Research_Data_Factors_daily.CSV", sampleFactorFile)

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write(archive)
	}))
	defer server.Close()

	cfg := config.FactorsConfig{
		URL:             server.URL + "/F-F_Research_Data_Factors_daily_CSV.zip",
		SkipRows:        3,
		CacheDir:        t.TempDir(),
		CacheTTL:        time.Hour,
		DownloadTimeout: 5 * time.Second,
	}
	client := NewClient(cfg, nil)

	fs, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Mkt-RF", "SMB", "HML"}, fs.Names)
	assert.Equal(t, 1, requests)

	// Second fetch within the TTL is served from the disk cache
	_, err = client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
}

func TestClientFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(config.FactorsConfig{
		URL:             server.URL + "/factors.zip",
		SkipRows:        3,
		CacheDir:        t.TempDir(),
		DownloadTimeout: 5 * time.Second,
	}, nil)

	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestClientFetchNoMember(t *testing.T) {
	archive := zipArchive(t, "readme.md", "not data")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	client := NewClient(config.FactorsConfig{
		URL:             server.URL + "/factors.zip",
		SkipRows:        3,
		CacheDir:        t.TempDir(),
		DownloadTimeout: 5 * time.Second,
	}, nil)

	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no delimited member")
}
