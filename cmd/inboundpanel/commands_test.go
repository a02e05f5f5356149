package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/inboundpanel/internal/inbound"
	"github.com/creamcroissant/inboundpanel/internal/service"
)

func TestExportTarget(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "existing.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o600))

	cases := []struct {
		output string
		want   string
	}{
		{"", ""},
		{"-", ""},
		{dir, filepath.Join(dir, "inbounds-x.json")},
		{file, file},
		{filepath.Join(dir, "new.json"), filepath.Join(dir, "new.json")},
		{filepath.Join(dir, "fresh") + string(os.PathSeparator), filepath.Join(dir, "fresh", "inbounds-x.json")},
	}
	for _, tc := range cases {
		got, err := exportTarget(tc.output, "inbounds-x.json")
		require.NoError(t, err, tc.output)
		assert.Equal(t, tc.want, got, tc.output)
	}
	info, err := os.Stat(filepath.Join(dir, "fresh"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestReadInput(t *testing.T) {
	data, err := readInput(strings.NewReader(`[{"protocol":"vless"}]`), "-")
	require.NoError(t, err)
	assert.Equal(t, `[{"protocol":"vless"}]`, string(data))

	_, err = readInput(nil, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPrintPackResult(t *testing.T) {
	var buf bytes.Buffer
	printPackResult(&buf, &service.PackResult{
		PlanID: "plan-1",
		Pack:   "standard",
		DryRun: true,
		Planned: []inbound.ExportedProfile{
			{Protocol: inbound.ProtocolVLESS, Network: "TCP", Security: "TLS", Port: 443, Tag: "vless-tls"},
		},
		Warnings: []string{"port 443 taken"},
	})
	out := buf.String()
	assert.Contains(t, out, "Pack standard (dry run, plan plan-1)")
	assert.Contains(t, out, "vless-tls")
	assert.Contains(t, out, "warning: port 443 taken")
	assert.NotContains(t, out, "Assigned to")
}

func TestPrintUserInbounds(t *testing.T) {
	var buf bytes.Buffer
	printUserInbounds(&buf, 3, []int64{4, 9, 12})
	assert.Equal(t, "User 3: 4, 9, 12\n", buf.String())

	buf.Reset()
	printUserInbounds(&buf, 5, nil)
	assert.Equal(t, "User 5 has no inbounds\n", buf.String())
}
