package inbound

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(t *testing.T, doc string) Candidate {
	t.Helper()
	var c Candidate
	require.NoError(t, json.Unmarshal([]byte(doc), &c))
	return c
}

func TestComposeDefaults(t *testing.T) {
	ctx := NewAllocationContext()
	p := Compose(Candidate{}, 3, ctx)

	assert.Equal(t, ProtocolVLESS, p.Protocol)
	assert.Equal(t, NetworkWS, p.Network)
	assert.Equal(t, SecurityNone, p.Security)
	assert.Equal(t, 20003, p.Port)
	assert.Equal(t, "vless-20003", p.Tag)
	assert.Equal(t, VLESSFields{}, p.Variant)
	assert.Nil(t, p.Stream.Reality)
}

func TestComposeDropsUnknownFieldsAndGatesByProtocol(t *testing.T) {
	ctx := NewAllocationContext()
	p := Compose(candidate(t, `{
		"protocol": "vmess",
		"security": "reality",
		"port": "8080",
		"tag": "Edge WS",
		"flow": "xtls-rprx-vision",
		"realityPrivateKey": "k",
		"ssMethod": "aes-128-gcm",
		"injected": {"rm": "-rf"}
	}`), 0, ctx)

	assert.Equal(t, ProtocolVMESS, p.Protocol)
	assert.Equal(t, SecurityNone, p.Security)
	assert.Equal(t, 8080, p.Port)
	assert.Equal(t, "edge-ws", p.Tag)
	assert.Nil(t, p.Variant, "vmess carries no protocol fields")
	assert.Nil(t, p.Stream.Reality, "reality material requires reality security")
	assert.NotContains(t, fmt.Sprint(ToExportProfile(p)), "-rf")
}

func TestComposeLenientOptionalFields(t *testing.T) {
	ctx := NewAllocationContext()
	p := Compose(candidate(t, `{
		"protocol": "wireguard",
		"network": "tcp",
		"wgMtu": "1420",
		"wgAddress": "10.0.0.1/32, fd00::1/128",
		"wgAllowedIps": ["0.0.0.0/0", 7, {"x": 1}],
		"wgPrivateKey": {"not": "a string"},
		"domains": "a.example.com,,b.example.com ",
		"alpn": ["h2", "http/1.1"],
		"sni": 12
	}`), 0, ctx)

	wg, ok := p.Variant.(WireGuardFields)
	require.True(t, ok)
	assert.Equal(t, 1420, wg.MTU)
	assert.Equal(t, []string{"10.0.0.1/32", "fd00::1/128"}, wg.Address)
	assert.Equal(t, []string{"0.0.0.0/0", "7"}, wg.AllowedIPs)
	assert.Empty(t, wg.PrivateKey)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, p.Domains)
	assert.Equal(t, []string{"h2", "http/1.1"}, p.Stream.ALPN)
	assert.Equal(t, "12", p.Stream.SNI)
}

func TestComposeDokodemoTargetPortDefault(t *testing.T) {
	ctx := NewAllocationContext()
	p := Compose(candidate(t, `{"protocol": "dokodemo-door", "targetAddress": "1.1.1.1"}`), 0, ctx)
	assert.Equal(t, NetworkTCP, p.Network)
	assert.Equal(t, DokodemoFields{TargetAddress: "1.1.1.1", TargetPort: DefaultDokodemoTargetPort}, p.Variant)

	p = Compose(candidate(t, `{"protocol": "dokodemo-door", "targetPort": 53}`), 1, ctx)
	assert.Equal(t, 53, p.Variant.(DokodemoFields).TargetPort)
}

func TestComposeKeepsFreeFormTextVerbatim(t *testing.T) {
	ctx := NewAllocationContext()
	p := Compose(candidate(t, `{
		"remark": "<script>alert(1)</script>Tokyo <b>&amp;</b> Osaka",
		"serverAddress": " <i>edge.example.com</i> "
	}`), 0, ctx)
	assert.Equal(t, "<script>alert(1)</script>Tokyo <b>&amp;</b> Osaka", p.Remark)
	assert.Equal(t, "<i>edge.example.com</i>", p.ServerAddress)
}

func TestRemarkSurvivesExportReimport(t *testing.T) {
	remarks := []string{
		"VLESS <fast>",
		"&lt;b&gt;fast",
		"<b>bold</b> edge",
		"Tom & Jerry",
		"latency < 50ms",
		"1<2>3",
	}
	for i, remark := range remarks {
		t.Run(remark, func(t *testing.T) {
			raw, err := json.Marshal(map[string]any{"protocol": "vless", "remark": remark, "serverAddress": remark})
			require.NoError(t, err)

			first := Compose(candidate(t, string(raw)), i, NewAllocationContext())
			assert.Equal(t, remark, first.Remark)
			assert.Equal(t, remark, first.ServerAddress)

			again := Compose(ToExportProfile(first).Candidate(), i, NewAllocationContext())
			assert.Equal(t, first.Remark, again.Remark)
			assert.Equal(t, first.ServerAddress, again.ServerAddress)
		})
	}
}

func TestContainsMarkup(t *testing.T) {
	cases := map[string]bool{
		"VLESS <fast>":            true,
		"<b>bold</b>":             true,
		"<script>x</script>tokyo": true,
		"&lt;b&gt;fast":           false,
		"Tom & Jerry":             false,
		"latency < 50ms":          false,
		"1<2>3":                   false,
		"edge.example.com":        false,
	}
	for in, want := range cases {
		assert.Equal(t, want, ContainsMarkup(in), in)
	}
}

func TestComposeFallbacksKeptOpaque(t *testing.T) {
	ctx := NewAllocationContext()
	p := Compose(candidate(t, `{"protocol": "trojan", "network": "tcp", "fallbacks": [ {"dest": 80} ]}`), 0, ctx)
	assert.Equal(t, SecurityTLS, p.Security)
	assert.JSONEq(t, `[{"dest":80}]`, string(p.Variant.(TrojanFields).Fallbacks))

	p = Compose(candidate(t, `{"protocol": "vless", "fallbacks": "not-an-array"}`), 1, ctx)
	assert.Equal(t, json.RawMessage(`"not-an-array"`), p.Variant.(VLESSFields).Fallbacks)
}

func TestComposeBatchNeverCollides(t *testing.T) {
	existing := []Profile{
		{Tag: "vless-443", Port: 443},
		{Tag: "vless-20000", Port: 20000},
		{Tag: "shared", Port: 20001},
	}
	ctx := SeedAllocationContext(existing)

	items := []Candidate{
		candidate(t, `{"port": 443}`),
		candidate(t, `{}`),
		candidate(t, `{"tag": "shared"}`),
		candidate(t, `{"tag": "shared", "port": 443}`),
		candidate(t, `{"protocol": "trojan", "port": "bad"}`),
		candidate(t, `{"tag": "vless-443"}`),
	}

	tags := map[string]bool{}
	ports := map[int]bool{}
	for _, p := range existing {
		tags[p.Tag] = true
		ports[p.Port] = true
	}
	for i, item := range items {
		p := Compose(item, i, ctx)
		assert.False(t, tags[p.Tag], "tag %s collides", p.Tag)
		assert.False(t, ports[p.Port], "port %d collides", p.Port)
		tags[p.Tag] = true
		ports[p.Port] = true
	}
}

func TestRequestedPortAndTag(t *testing.T) {
	c := candidate(t, `{"port": "443", "tag": "My Tag"}`)
	port, ok := RequestedPort(c)
	assert.True(t, ok)
	assert.Equal(t, 443, port)
	assert.Equal(t, "my-tag", RequestedTag(c))

	_, ok = RequestedPort(candidate(t, `{"port": 0}`))
	assert.False(t, ok)
	assert.Empty(t, RequestedTag(Candidate{}))
}
