package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

// Manager 管理翻译内容。
type Manager struct {
	defaultLang  string
	translations map[string]map[string]string
	logger       *slog.Logger
	mu           sync.RWMutex

	matcher language.Matcher
	tags    []language.Tag
}

// Option 用于配置 Manager。
type Option func(*Manager)

// WithLogger 设置 Manager 使用的日志实例。
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDefaultLang 设置默认语言。
func WithDefaultLang(lang string) Option {
	return func(m *Manager) {
		m.defaultLang = lang
	}
}

// NewManager 创建 i18n Manager。
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		defaultLang:  "en-US",
		translations: make(map[string]map[string]string),
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if err := m.loadEmbeddedTranslations(); err != nil {
		return nil, err
	}
	if _, ok := m.translations[m.defaultLang]; !ok {
		return nil, fmt.Errorf("default language %s has no locale file", m.defaultLang)
	}
	m.rebuildMatcher()

	return m, nil
}

func (m *Manager) loadEmbeddedTranslations() error {
	entries, err := embeddedLocales.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("failed to read locales directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(entry.Name(), ".json")
		data, err := embeddedLocales.ReadFile("locales/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read locale file %s: %w", entry.Name(), err)
		}

		var content map[string]string
		if err := json.Unmarshal(data, &content); err != nil {
			return fmt.Errorf("failed to unmarshal locale file %s: %w", entry.Name(), err)
		}

		m.mu.Lock()
		m.translations[lang] = content
		m.mu.Unlock()
	}

	return nil
}

// LoadFromDir 从外部目录加载翻译文件，同名键覆盖内置翻译。
func (m *Manager) LoadFromDir(dir string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // 外部目录不存在也可以继续。
		}
		return fmt.Errorf("failed to read external locales directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			m.logger.Warn("failed to read external locale file", "file", file.Name(), "error", err)
			continue
		}

		var content map[string]string
		if err := json.Unmarshal(data, &content); err != nil {
			m.logger.Warn("failed to unmarshal external locale file", "file", file.Name(), "error", err)
			continue
		}

		m.mu.Lock()
		if _, exists := m.translations[lang]; !exists {
			m.translations[lang] = make(map[string]string)
		}
		for k, v := range content {
			m.translations[lang][k] = v
		}
		m.mu.Unlock()
	}
	m.rebuildMatcher()
	return nil
}

// rebuildMatcher 让默认语言排在第一位，这样匹配不到时 Matcher 会回到它。
func (m *Manager) rebuildMatcher() {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.translations))
	for name := range m.translations {
		if name != m.defaultLang {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	names = append([]string{m.defaultLang}, names...)

	tags := make([]language.Tag, 0, len(names))
	for _, name := range names {
		tag, err := language.Parse(name)
		if err != nil {
			m.logger.Warn("skip locale with invalid tag", "lang", name, "error", err)
			continue
		}
		tags = append(tags, tag)
	}
	m.tags = tags
	m.matcher = language.NewMatcher(tags)
}

// Match picks the best supported language for the given preferences, which may be plain
// tags ("zh-cn") or an Accept-Language header value. Empty input yields the default.
func (m *Manager) Match(preferences ...string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var wanted []language.Tag
	for _, pref := range preferences {
		pref = strings.TrimSpace(pref)
		if pref == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(pref)
		if err != nil {
			continue
		}
		wanted = append(wanted, tags...)
	}
	if len(wanted) == 0 || m.matcher == nil {
		return m.defaultLang
	}
	_, index, confidence := m.matcher.Match(wanted...)
	if confidence == language.No || index >= len(m.tags) {
		return m.defaultLang
	}
	return m.tags[index].String()
}

// Translate 按语言与键名返回翻译内容。
func (m *Manager) Translate(lang, key string, args ...interface{}) string {
	if m == nil {
		return format(key, args)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	// 规范化语言标签
	if tag, err := language.Parse(lang); err == nil {
		lang = tag.String()
	}

	if trans, ok := m.translations[lang]; ok {
		if val, ok := trans[key]; ok {
			return format(val, args)
		}
	}

	// 回退到默认语言
	if lang != m.defaultLang {
		if trans, ok := m.translations[m.defaultLang]; ok {
			if val, ok := trans[key]; ok {
				return format(val, args)
			}
		}
	}

	// 回退为原始 key
	return key
}

func format(val string, args []interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(val, args...)
	}
	return val
}

// GetSupportedLanguages 返回支持的语言列表，默认语言在前。
func (m *Manager) GetSupportedLanguages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	langs := make([]string, 0, len(m.tags))
	for _, tag := range m.tags {
		langs = append(langs, tag.String())
	}
	return langs
}

// GetTranslations 返回指定语言的完整翻译表。
func (m *Manager) GetTranslations(lang string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if trans, ok := m.translations[lang]; ok {
		// 返回副本，避免外部修改
		out := make(map[string]string, len(trans))
		for k, v := range trans {
			out[k] = v
		}
		return out
	}
	return nil
}
