package inbound

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func realityProfile() Profile {
	return Profile{
		ID:            7,
		Protocol:      ProtocolVLESS,
		Network:       NetworkTCP,
		Security:      SecurityReality,
		Port:          443,
		Tag:           "vless-443",
		Remark:        "edge",
		ServerAddress: "edge.example.com",
		Stream: Stream{
			SNI:         "www.microsoft.com",
			Fingerprint: "chrome",
			ALPN:        []string{"h2"},
			Reality: &RealityFields{
				PrivateKey:  "priv",
				PublicKey:   "pub",
				ShortIDs:    []string{"a1", "b2"},
				ServerNames: []string{"www.microsoft.com"},
				Dest:        "www.microsoft.com:443",
			},
		},
		Domains: []string{"a.example.com", "b.example.com"},
		Variant: VLESSFields{Flow: "xtls-rprx-vision", Fallbacks: json.RawMessage(`[{"dest":80},{"dest":8080}]`)},
	}
}

func TestToExportProfileOmitsEmptyValues(t *testing.T) {
	p := Profile{Protocol: ProtocolVMESS, Network: NetworkWS, Security: SecurityNone, Port: 10086, Tag: "vmess"}
	data, err := json.Marshal(ToExportProfile(p))
	require.NoError(t, err)
	assert.JSONEq(t, `{"protocol":"VMESS","network":"WS","security":"NONE","port":10086,"tag":"vmess"}`, string(data))
}

func TestToExportProfileKeys(t *testing.T) {
	data, err := json.Marshal(ToExportProfile(realityProfile()))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	for _, key := range []string{
		"protocol", "network", "security", "port", "tag", "remark", "serverAddress", "sni", "alpn",
		"fingerprint", "realityPrivateKey", "realityPublicKey", "realityShortIds",
		"realityServerNames", "realityDest", "flow", "domains", "fallbacks",
	} {
		assert.Contains(t, doc, key)
	}
	assert.NotContains(t, doc, "id")
	assert.NotContains(t, doc, "wgMtu")
}

func TestExportCandidateRoundTrip(t *testing.T) {
	original := realityProfile()
	ctx := NewAllocationContext()
	p := Compose(ToExportProfile(original).Candidate(), 0, ctx)

	assert.Equal(t, original.Protocol, p.Protocol)
	assert.Equal(t, original.Network, p.Network)
	assert.Equal(t, original.Security, p.Security)
	assert.Equal(t, original.Port, p.Port)
	assert.Equal(t, original.Tag, p.Tag)
	assert.Equal(t, ToExportProfile(original), ToExportProfile(p))
}

func TestExportCandidateReallocatesInSameCollection(t *testing.T) {
	original := realityProfile()
	ctx := SeedAllocationContext([]Profile{original})
	p := Compose(ToExportProfile(original).Candidate(), 0, ctx)

	assert.Equal(t, 444, p.Port)
	assert.Equal(t, "vless-443-1", p.Tag)
	assert.Equal(t, original.Stream, p.Stream)
}

func TestBuildClonePayload(t *testing.T) {
	source := Profile{Protocol: ProtocolVLESS, Network: NetworkWS, Security: SecurityTLS, Port: 443, Tag: "vless-443"}
	payload := BuildClonePayload(source, []Profile{source})
	assert.Equal(t, "vless-443-copy", payload.Tag)
	assert.Equal(t, 444, payload.Port)
	assert.Equal(t, "vless-443 (Clone)", payload.Remark)

	taken := []Profile{source, {Tag: "vless-443-copy", Port: 444}, {Tag: "x", Port: 445}}
	payload = BuildClonePayload(Profile{Port: 443, Tag: "vless-443", Remark: "edge"}, taken)
	assert.Equal(t, "vless-443-copy-1", payload.Tag)
	assert.Equal(t, 446, payload.Port)
	assert.Equal(t, "edge (Clone)", payload.Remark)
}

func TestToEditableDraft(t *testing.T) {
	draft := ToEditableDraft(realityProfile())
	assert.Equal(t, "a.example.com, b.example.com", draft.Domains)
	assert.Equal(t, "[\n  {\n    \"dest\": 80\n  },\n  {\n    \"dest\": 8080\n  }\n]", draft.Fallbacks)

	data, err := json.Marshal(draft)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "a.example.com, b.example.com", doc["domains"])
	assert.Equal(t, "VLESS", doc["protocol"])
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2026, 10, 14, 8, 30, 5, 123000000, time.UTC)
	assert.Equal(t, "inbounds-2026-10-14T08-30-05-123Z.json", ExportFilename(at))
}

func TestFromExportProfileKeepsIdentity(t *testing.T) {
	original := realityProfile()
	original.ID = 0
	restored := FromExportProfile(ToExportProfile(original))
	assert.Equal(t, original, restored)
}
