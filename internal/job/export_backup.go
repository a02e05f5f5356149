package job

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/creamcroissant/inboundpanel/internal/service"
)

// Exporter 是备份任务需要的导出能力，service.InboundService 满足它。
type Exporter interface {
	Export(ctx context.Context) (*service.ExportResult, error)
}

// ExportBackupJob 定时把全部入站导出成 JSON 文件，并只保留最新的 Keep 份。
type ExportBackupJob struct {
	Exporter Exporter
	Dir      string
	Keep     int
	Logger   *slog.Logger
}

// NewExportBackupJob creates a backup job writing into dir.
func NewExportBackupJob(exporter Exporter, dir string, keep int, logger *slog.Logger) *ExportBackupJob {
	if logger == nil {
		logger = slog.Default()
	}
	if keep < 1 {
		keep = 1
	}
	return &ExportBackupJob{Exporter: exporter, Dir: dir, Keep: keep, Logger: logger}
}

// Name implements Runnable interface.
func (j *ExportBackupJob) Name() string {
	return "inbounds.export_backup"
}

// Run implements Runnable interface.
func (j *ExportBackupJob) Run(ctx context.Context) error {
	if j == nil || j.Exporter == nil || strings.TrimSpace(j.Dir) == "" {
		return fmt.Errorf("export backup job dependencies not configured / 备份任务依赖未配置")
	}
	result, err := j.Exporter.Export(ctx)
	if err != nil {
		return fmt.Errorf("export backup job: %w", err)
	}
	if err := os.MkdirAll(j.Dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	data, err := json.MarshalIndent(result.Document, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	target := filepath.Join(j.Dir, result.Filename)
	if err := writeFileAtomic(target, data); err != nil {
		return err
	}
	j.Logger.Info("inbound backup written", "file", target, "inbounds", len(result.Document.Inbounds))

	removed, err := j.prune()
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		j.Logger.Info("old inbound backups removed", "files", removed)
	}
	return nil
}

// prune 删除多出来的旧备份，按修改时间从新到旧保留 Keep 份。
func (j *ExportBackupJob) prune() ([]string, error) {
	entries, err := os.ReadDir(j.Dir)
	if err != nil {
		return nil, fmt.Errorf("list backup dir: %w", err)
	}
	type backup struct {
		name string
		mod  int64
	}
	var backups []backup
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "inbounds-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backup{name: name, mod: info.ModTime().UnixNano()})
	}
	sort.Slice(backups, func(a, b int) bool {
		if backups[a].mod != backups[b].mod {
			return backups[a].mod > backups[b].mod
		}
		return backups[a].name > backups[b].name
	})

	var removed []string
	for i := j.Keep; i < len(backups); i++ {
		if err := os.Remove(filepath.Join(j.Dir, backups[i].name)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove old backup: %w", err)
		}
		removed = append(removed, backups[i].name)
	}
	return removed, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".backup-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp backup: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename backup: %w", err)
	}
	return nil
}
