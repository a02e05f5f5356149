package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/inboundpanel/internal/inbound"
)

func TestBuiltinCatalog(t *testing.T) {
	c := Builtin()
	names := []string{}
	for _, p := range c.List() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"cdn", "reality", "standard"}, names)

	cdn, ok := c.Get("CDN")
	require.True(t, ok)
	require.NotEmpty(t, cdn.Entries)
	for _, entry := range cdn.Entries {
		assert.True(t, entry.CDN)
		assert.NotContains(t, entry.Fields, "cdn")
	}

	standard, ok := c.Get("standard")
	require.True(t, ok)
	assert.Equal(t, "vless", standard.Entries[0].Fields["protocol"])
	assert.Equal(t, 443, standard.Entries[0].Fields["port"])
}

func TestBuiltinPacksPlan(t *testing.T) {
	for _, pack := range Builtin().List() {
		plan, err := inbound.PlanPack(pack, inbound.PackRequest{ServerAddress: "node.example.com"}, inbound.NewAllocationContext())
		require.NoError(t, err, pack.Name)
		assert.Len(t, plan.Planned, len(pack.Entries), pack.Name)
	}

	reality, _ := Builtin().Get("reality")
	plan, err := inbound.PlanPack(reality, inbound.PackRequest{ServerAddress: "node.example.com"}, inbound.NewAllocationContext())
	require.NoError(t, err)
	assert.Equal(t, inbound.SecurityReality, plan.Planned[0].Security)
	assert.Equal(t, []string{"6ba85179e30d4fc2"}, plan.Planned[0].Stream.Reality.ShortIDs)
}

func TestLoadOverrideDir(t *testing.T) {
	dir := t.TempDir()
	override := []byte("name: Standard\nentries:\n  - protocol: socks\n    port: 1080\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "standard.yml"), override, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	c, err := Load(dir, nil)
	require.NoError(t, err)
	standard, ok := c.Get("standard")
	require.True(t, ok)
	require.Len(t, standard.Entries, 1)
	assert.Equal(t, "standard", standard.Title)
	assert.Len(t, c.List(), 3)
}

func TestLoadMissingDirFallsBack(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing"), nil)
	require.NoError(t, err)
	assert.Len(t, c.List(), 3)
}

func TestParseRejectsInvalidPacks(t *testing.T) {
	_, err := Parse([]byte("title: nameless\nentries:\n  - protocol: vless\n"))
	assert.ErrorIs(t, err, ErrInvalidPack)

	_, err = Parse([]byte("name: empty\n"))
	assert.ErrorIs(t, err, ErrInvalidPack)

	_, err = Parse([]byte("name: [broken"))
	assert.Error(t, err)
}
