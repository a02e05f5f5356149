package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/inboundpanel/internal/inbound"
	"github.com/creamcroissant/inboundpanel/internal/preset"
	"github.com/creamcroissant/inboundpanel/internal/repository"
	"github.com/creamcroissant/inboundpanel/internal/security"
	"github.com/creamcroissant/inboundpanel/internal/service"
)

func newPackService(f *fixture) service.PackService {
	return service.NewPackService(f.store, preset.Builtin(), f.opts)
}

func TestPacksSummary(t *testing.T) {
	f := newFixture(t)
	packs := newPackService(f).Packs()
	require.Len(t, packs, 3)
	assert.Equal(t, "cdn", packs[0].Name)
	assert.Equal(t, "standard", packs[2].Name)
	assert.Equal(t, []string{"VLESS", "VMESS", "TROJAN", "SHADOWSOCKS"}, packs[2].Protocols)
	assert.Equal(t, 4, packs[2].Entries)
}

func TestApplyDryRunThenCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	packs := newPackService(f)

	req := inbound.PackRequest{ServerAddress: "node.example.com", ServerName: "node.example.com", DryRun: true}
	preview, err := packs.Apply(ctx, "standard", req)
	require.NoError(t, err)
	assert.True(t, preview.DryRun)
	assert.NotEmpty(t, preview.PlanID)
	require.Len(t, preview.Planned, 4)
	assert.Empty(t, preview.Created)
	assert.Nil(t, preview.Assignment)
	assert.Zero(t, f.count(t))

	req.DryRun = false
	committed, err := packs.Apply(ctx, "standard", req)
	require.NoError(t, err)
	assert.NotEqual(t, preview.PlanID, committed.PlanID)
	require.Len(t, committed.Created, len(preview.Planned))
	assert.EqualValues(t, len(preview.Planned), f.count(t))
	for i, created := range committed.Created {
		assert.Equal(t, preview.Planned[i], created.ExportedProfile)
	}
	require.NotNil(t, committed.Assignment)
	assert.Empty(t, committed.Assignment.RequestedUserIDs)

	events := f.audit.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, security.EventPackCommit, events[len(events)-1].Kind)

	again, err := packs.Apply(ctx, "standard", req)
	require.NoError(t, err)
	require.Len(t, again.Created, 4)
	assert.NotEqual(t, committed.Created[0].Port, again.Created[0].Port, "re-commit allocates fresh ports")
	assert.NotEmpty(t, again.Warnings)
	assert.EqualValues(t, 8, f.count(t))
}

func TestApplyRejectsBlankServer(t *testing.T) {
	f := newFixture(t)
	result, err := newPackService(f).Apply(context.Background(), "standard", inbound.PackRequest{ServerAddress: " "})
	require.ErrorIs(t, err, service.ErrServerAddressRequired)
	assert.Nil(t, result)
	assert.Zero(t, f.count(t))
}

func TestApplyUnknownPack(t *testing.T) {
	f := newFixture(t)
	_, err := newPackService(f).Apply(context.Background(), "nope", inbound.PackRequest{ServerAddress: "h"})
	assert.ErrorIs(t, err, service.ErrUnknownPack)
}

func TestApplyAssignsExistingMembersOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := service.NewDirectoryService(f.store)

	group, err := dir.AddGroup(ctx, "ops")
	require.NoError(t, err)
	user, err := dir.AddUser(ctx, "alice@example.com", []int64{group.ID})
	require.NoError(t, err)

	result, err := newPackService(f).Apply(ctx, "reality", inbound.PackRequest{
		ServerAddress: "node.example.com",
		ServerName:    "www.microsoft.com",
		UserIDs:       []int64{user.ID, 9999},
		GroupIDs:      []int64{group.ID, 4242},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Assignment)
	assert.Equal(t, 1, result.Assignment.AssignedUsers)
	assert.Equal(t, 1, result.Assignment.AssignedGroups)
	assert.Equal(t, []int64{user.ID, 9999}, result.Assignment.RequestedUserIDs)
	assert.Equal(t, []int64{group.ID, 4242}, result.Assignment.RequestedGroupIDs)

	ids, err := dir.UserInbounds(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, ids, len(result.Created))

	views, err := f.inbounds.List(ctx, repository.InboundFilter{Protocol: "vless"})
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestDirectoryValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := service.NewDirectoryService(f.store)

	_, err := dir.AddUser(ctx, "not-an-email", nil)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = dir.AddUser(ctx, "bob@example.com", []int64{77})
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = dir.AddGroup(ctx, "  ")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = dir.AddGroup(ctx, "ops")
	require.NoError(t, err)
	_, err = dir.AddGroup(ctx, "ops")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = dir.UserInbounds(ctx, 12345)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
