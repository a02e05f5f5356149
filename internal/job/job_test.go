package job

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/inboundpanel/internal/inbound"
	"github.com/creamcroissant/inboundpanel/internal/service"
	"github.com/creamcroissant/inboundpanel/internal/support/logging"
)

type fakeExporter struct {
	at  time.Time
	err error
}

func (f *fakeExporter) Export(context.Context) (*service.ExportResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.ExportResult{
		Filename: inbound.ExportFilename(f.at),
		Document: inbound.ExportDocument{
			App:        "inboundpanel",
			Version:    "1.0",
			ExportedAt: f.at,
			Inbounds:   []inbound.ExportedProfile{{Protocol: inbound.ProtocolVLESS, Network: inbound.NetworkTCP, Security: inbound.SecurityNone, Port: 443, Tag: "vless-443"}},
		},
	}, nil
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestExportBackupWritesAndPrunes(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-72 * time.Hour)
	for i, name := range []string{"inbounds-a.json", "inbounds-b.json", "inbounds-c.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
		stamp := old.Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(path, stamp, stamp))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep me"), 0o600))

	at := time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)
	j := NewExportBackupJob(&fakeExporter{at: at}, dir, 2, logging.Discard())
	require.NoError(t, NewScheduler(logging.Discard()).RunNow(context.Background(), j))

	written := inbound.ExportFilename(at)
	assert.Equal(t, []string{written, "inbounds-c.json", "notes.txt"}, listDir(t, dir))

	data, err := os.ReadFile(filepath.Join(dir, written))
	require.NoError(t, err)
	var doc inbound.ExportDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "inboundpanel", doc.App)
	require.Len(t, doc.Inbounds, 1)
	assert.Equal(t, "vless-443", doc.Inbounds[0].Tag)
}

func TestExportBackupErrors(t *testing.T) {
	j := NewExportBackupJob(&fakeExporter{err: errors.New("db down")}, t.TempDir(), 0, nil)
	assert.Equal(t, 1, j.Keep)
	assert.ErrorContains(t, j.Run(context.Background()), "db down")

	var missing *ExportBackupJob
	assert.Error(t, missing.Run(context.Background()))
}

type countingJob struct{ runs chan struct{} }

func (c *countingJob) Name() string { return "test.counting" }
func (c *countingJob) Run(context.Context) error {
	c.runs <- struct{}{}
	return nil
}

func TestSchedulerRegisterAndRun(t *testing.T) {
	s := NewScheduler(logging.Discard(), WithTimeout(time.Second))

	_, err := s.Register("not a spec", &countingJob{})
	assert.Error(t, err)
	_, err = s.Register("", &countingJob{})
	assert.Error(t, err)
	_, err = s.Register("@every 1s", nil)
	assert.Error(t, err)

	job := &countingJob{runs: make(chan struct{}, 4)}
	_, err = s.Register("@every 1s", job)
	require.NoError(t, err)
	s.Start()
	s.Start()

	select {
	case <-job.runs:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
	<-s.Stop().Done()
	assert.NotNil(t, s.Stop())
}
