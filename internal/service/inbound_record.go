package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/creamcroissant/inboundpanel/internal/inbound"
	"github.com/creamcroissant/inboundpanel/internal/repository"
)

// toRecord flattens a profile into an inbounds row; settings holds the full projection.
func toRecord(p inbound.Profile) (*repository.Inbound, error) {
	settings, err := json.Marshal(inbound.ToExportProfile(p))
	if err != nil {
		return nil, fmt.Errorf("encode inbound settings: %w", err)
	}
	return &repository.Inbound{
		ID:            p.ID,
		Protocol:      string(p.Protocol),
		Network:       string(p.Network),
		Security:      string(p.Security),
		Port:          p.Port,
		Tag:           p.Tag,
		Remark:        p.Remark,
		ServerAddress: p.ServerAddress,
		Settings:      settings,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}, nil
}

// fromRecord 把数据库行还原为 Profile；列值优先于 settings 里的同名字段。
func fromRecord(rec *repository.Inbound) (inbound.Profile, error) {
	var e inbound.ExportedProfile
	if len(rec.Settings) > 0 {
		if err := json.Unmarshal(rec.Settings, &e); err != nil {
			return inbound.Profile{}, fmt.Errorf("decode inbound %d settings: %w", rec.ID, err)
		}
	}
	e.Protocol = inbound.Protocol(rec.Protocol)
	e.Network = inbound.Network(rec.Network)
	e.Security = inbound.Security(rec.Security)
	e.Port = rec.Port
	e.Tag = rec.Tag
	e.Remark = rec.Remark
	e.ServerAddress = rec.ServerAddress

	p := inbound.FromExportProfile(e)
	p.ID = rec.ID
	p.CreatedAt = rec.CreatedAt
	p.UpdatedAt = rec.UpdatedAt
	return p, nil
}

func fromRecords(recs []*repository.Inbound) ([]inbound.Profile, error) {
	out := make([]inbound.Profile, 0, len(recs))
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		p, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// mapRepoError 将仓储错误翻译为服务层错误。
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	var conflict *repository.ConflictError
	if errors.As(err, &conflict) {
		switch conflict.Field {
		case "port":
			return ErrPortConflict
		case "tag":
			return ErrTagConflict
		}
	}
	return err
}
