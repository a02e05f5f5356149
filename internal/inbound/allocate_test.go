package inbound

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatePortFallsBackOnInvalidInput(t *testing.T) {
	ctx := NewAllocationContext()
	assert.Equal(t, 443, ctx.AllocatePort(70000, 443))

	ctx = NewAllocationContext()
	ctx.ReservePort(443)
	assert.Equal(t, 444, ctx.AllocatePort("abc", 443))
}

func TestAllocatePortWrapsToUnprivilegedRange(t *testing.T) {
	ctx := NewAllocationContext()
	ctx.ReservePort(65535)
	assert.Equal(t, 1024, ctx.AllocatePort(65535, 65535))
}

func TestAllocatePortParsesLooseInput(t *testing.T) {
	ctx := NewAllocationContext()
	assert.Equal(t, 8443, ctx.AllocatePort(json.RawMessage(`"8443"`), 1))
	assert.Equal(t, 8444, ctx.AllocatePort(json.RawMessage(`8443.0`), 1))
	assert.Equal(t, 2000, ctx.AllocatePort(json.RawMessage(`8443.5`), 2000))
	assert.Equal(t, 3000, ctx.AllocatePort(nil, 3000))
	assert.True(t, ctx.PortUsed(3000))
}

func TestAllocatePortRecordsResult(t *testing.T) {
	ctx := NewAllocationContext()
	seen := map[int]bool{}
	for i := 0; i < 50; i++ {
		port := ctx.AllocatePort(443, 443)
		require.False(t, seen[port], "port %d allocated twice", port)
		seen[port] = true
	}
	_, ports := ctx.Len()
	assert.Equal(t, 50, ports)
}

func TestAllocateTagNormalizesAndSuffixes(t *testing.T) {
	ctx := NewAllocationContext()
	first := ctx.AllocateTag("My   Tag!", "x")
	assert.Equal(t, "my-tag!", first)

	second := ctx.AllocateTag("My Tag!", "x")
	assert.Equal(t, "my-tag!-1", second)

	third := ctx.AllocateTag("my tag!", "x")
	assert.Equal(t, "my-tag!-2", third, "suffix is applied to the original base")
}

func TestAllocateTagUsesFallbackBase(t *testing.T) {
	ctx := NewAllocationContext()
	assert.Equal(t, "vless-443", ctx.AllocateTag("   ", "VLESS 443"))
	assert.Equal(t, "vless-443-1", ctx.AllocateTag("", "vless-443"))
	assert.Equal(t, "inbound", ctx.AllocateTag("", ""))
}

func TestSeedAllocationContext(t *testing.T) {
	ctx := SeedAllocationContext([]Profile{
		{Tag: "vless-443", Port: 443},
		{Tag: "trojan", Port: 8443},
	})
	assert.True(t, ctx.TagUsed("VLESS-443"))
	assert.True(t, ctx.PortUsed(8443))
	assert.Equal(t, "trojan-1", ctx.AllocateTag("trojan", ""))
	assert.Equal(t, 444, ctx.AllocatePort(443, 443))
}
