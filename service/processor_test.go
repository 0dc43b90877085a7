package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CalverLabs/drsidx/client"
	"github.com/CalverLabs/drsidx/internal/runtable"
	"github.com/CalverLabs/drsidx/service"
)

// fixtureService emulates the resolution service for whole-run tests:
// an idx endpoint mapping accessions to ids, an expanded metadata endpoint,
// and an existence probe answering per-blob status codes.
type fixtureService struct {
	idx     map[string]string // accession -> drs id
	drsBase string
	objects map[string]string // drs id -> expanded metadata body
	probes  map[string]int    // blob id -> probe status (200 when absent)
}

func (f *fixtureService) start(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/idx/v1/"):
			accession := strings.TrimPrefix(r.URL.Path, "/idx/v1/")
			drsID, ok := f.idx[accession]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprintf(w, `{"drs-base":%q,"response":{%q:{"drs":%q}}}`, f.drsBase, accession, drsID)
		case strings.HasPrefix(r.URL.Path, "/ga4gh/drs/v1/objects/"):
			id := strings.TrimPrefix(r.URL.Path, "/ga4gh/drs/v1/objects/")
			if r.URL.Query().Get("expand") == "true" {
				body, ok := f.objects[id]
				if !ok {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				fmt.Fprint(w, body)
				return
			}
			if code, ok := f.probes[id]; ok {
				w.WriteHeader(code)
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newProcessor(t *testing.T, baseURL string) *service.Processor {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := client.NewClient(&client.Config{
		BaseURL:    baseURL,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Logger:     logger,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return service.NewProcessor(c, logger)
}

func inputTable(accessions ...string) *runtable.Table {
	t := runtable.New([]string{"Run", "BioProject"})
	for i, acc := range accessions {
		t.Append([]string{acc, fmt.Sprintf("PRJ%03d", i+1)})
	}
	return t
}

func TestProcessSingleOnlineBlob(t *testing.T) {
	fixture := &fixtureService{
		idx:     map[string]string{"SRR001": "OBJ1"},
		drsBase: "https://x",
		objects: map[string]string{"OBJ1": `{"id":"OBJ1","name":"SRR001"}`},
	}
	server := fixture.start(t)
	p := newProcessor(t, server.URL)

	full, online, err := p.Process(context.Background(), inputTable("SRR001"))
	require.NoError(t, err)

	require.Equal(t,
		[]string{"drs_id", "drs_uri", "name", "is_bundle", "is_online", "offline_count", "total_objects", "Run", "BioProject"},
		full.Header())
	require.Len(t, full.Rows(), 1)
	require.Equal(t,
		[]string{"OBJ1", "https://x/OBJ1", "SRR001", "false", "true", "0", "1", "SRR001", "PRJ001"},
		full.Rows()[0])

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	require.Len(t, online.Rows(), 1)
	require.Equal(t,
		[]string{"OBJ1", "drs://" + u.Host + "/OBJ1", "SRR001.sra", "SRR001", "PRJ001"},
		online.Rows()[0])
}

func TestProcessBundleWithOneOfflineMember(t *testing.T) {
	fixture := &fixtureService{
		idx:     map[string]string{"SRR002": "BND1"},
		drsBase: "https://x",
		objects: map[string]string{
			"BND1": `{"id":"BND1","name":"SRR002_bundle","contents":[{"id":"C1","name":"c1.lite"},{"id":"C2","name":"c2"},{"id":"C3","name":"c3.txt"}]}`,
		},
		probes: map[string]int{"C3": http.StatusConflict},
	}
	server := fixture.start(t)
	p := newProcessor(t, server.URL)

	full, online, err := p.Process(context.Background(), inputTable("SRR002"))
	require.NoError(t, err)

	require.Len(t, full.Rows(), 1)
	row := full.Rows()[0]
	require.Equal(t, "BND1", row[0])
	require.Equal(t, "true", row[3], "is_bundle")
	require.Equal(t, "true", row[4], "is_online")
	require.Equal(t, "1", row[5], "offline_count")
	require.Equal(t, "3", row[6], "total_objects")

	require.Len(t, online.Rows(), 2)
	require.Equal(t, "SRR002_bundle/c1.sralite", online.Rows()[0][2])
	require.Equal(t, "SRR002_bundle/c2.sra", online.Rows()[1][2])
}

func TestProcessUnresolvedAccessionStillAudited(t *testing.T) {
	fixture := &fixtureService{idx: map[string]string{}, drsBase: "https://x"}
	server := fixture.start(t)
	p := newProcessor(t, server.URL)

	full, online, err := p.Process(context.Background(), inputTable("SRR404"))
	require.NoError(t, err)

	require.Len(t, full.Rows(), 1)
	require.Equal(t,
		[]string{"", "", "", "false", "false", "0", "0", "SRR404", "PRJ001"},
		full.Rows()[0])
	require.Empty(t, online.Rows())
}

func TestProcessPreservesInputOrder(t *testing.T) {
	fixture := &fixtureService{
		idx:     map[string]string{"SRR001": "OBJ1", "SRR002": "OBJ2"},
		drsBase: "https://x",
		objects: map[string]string{
			"OBJ1": `{"id":"OBJ1","name":"a"}`,
			"OBJ2": `{"id":"OBJ2","name":"b"}`,
		},
	}
	server := fixture.start(t)
	p := newProcessor(t, server.URL)

	full, _, err := p.Process(context.Background(), inputTable("SRR002", "SRR001", "SRR404"))
	require.NoError(t, err)

	require.Len(t, full.Rows(), 3)
	require.Equal(t, "OBJ2", full.Rows()[0][0])
	require.Equal(t, "OBJ1", full.Rows()[1][0])
	require.Equal(t, "", full.Rows()[2][0])
}

func TestProcessRequiresRunColumn(t *testing.T) {
	fixture := &fixtureService{}
	server := fixture.start(t)
	p := newProcessor(t, server.URL)

	in := runtable.New([]string{"Accession"})
	in.Append([]string{"SRR001"})

	_, _, err := p.Process(context.Background(), in)
	require.Error(t, err)
}

func TestProcessMalformedMetadataAbortsRun(t *testing.T) {
	fixture := &fixtureService{
		idx:     map[string]string{"SRR001": "OBJ1"},
		drsBase: "https://x",
		objects: map[string]string{"OBJ1": `{"id":`},
	}
	server := fixture.start(t)
	p := newProcessor(t, server.URL)

	_, _, err := p.Process(context.Background(), inputTable("SRR001"))
	require.Error(t, err)
}
