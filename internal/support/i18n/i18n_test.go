package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateFallsBack(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, "端口已被其他入站占用", m.Translate("zh-cn", "error.port_conflict"))
	assert.Equal(t, "Imported 2 of 3 inbounds", m.Translate("fr-FR", "message.import_finished", 2, 3))
	assert.Equal(t, "missing.key", m.Translate("en-US", "missing.key"))
}

func TestMatch(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, "en-US", m.Match())
	assert.Equal(t, "zh-CN", m.Match("zh-CN,zh;q=0.9,en;q=0.8"))
	assert.Equal(t, "zh-CN", m.Match("", "zh"))
	assert.Equal(t, "en-US", m.Match("en-GB"))
	assert.Equal(t, []string{"en-US", "zh-CN"}, m.GetSupportedLanguages())
}

func TestLoadFromDirOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en-US.json"), []byte(`{"error.internal":"Boom"}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{`), 0o600))

	m, err := NewManager(WithLogger(nil))
	require.NoError(t, err)
	require.NoError(t, m.LoadFromDir(dir))
	require.NoError(t, m.LoadFromDir(filepath.Join(dir, "absent")))

	assert.Equal(t, "Boom", m.Translate("en-US", "error.internal"))
	assert.Equal(t, "Inbound not found", m.Translate("en-US", "error.inbound_not_found"))
}
