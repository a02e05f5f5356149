// Package inbound 负责入站配置的规范化、端口/标签分配、导出与克隆，以及预设包规划。
//
// 包内所有函数都是纯计算：读取现有集合、持久化与成员分配由调用方处理。
package inbound

import "encoding/json"

// Protocol 表示入站协议。
type Protocol string

const (
	ProtocolVLESS        Protocol = "VLESS"
	ProtocolVMESS        Protocol = "VMESS"
	ProtocolTrojan       Protocol = "TROJAN"
	ProtocolShadowsocks  Protocol = "SHADOWSOCKS"
	ProtocolSOCKS        Protocol = "SOCKS"
	ProtocolHTTP         Protocol = "HTTP"
	ProtocolDokodemoDoor Protocol = "DOKODEMO_DOOR"
	ProtocolWireGuard    Protocol = "WIREGUARD"
	ProtocolMTProto      Protocol = "MTPROTO"
)

// Network 表示传输层。
type Network string

const (
	NetworkTCP         Network = "TCP"
	NetworkWS          Network = "WS"
	NetworkGRPC        Network = "GRPC"
	NetworkHTTP        Network = "HTTP"
	NetworkHTTPUpgrade Network = "HTTPUPGRADE"
	NetworkXHTTP       Network = "XHTTP"
)

// Security 表示传输安全层。
type Security string

const (
	SecurityNone    Security = "NONE"
	SecurityTLS     Security = "TLS"
	SecurityReality Security = "REALITY"
)

// Protocols lists every accepted protocol in display order.
var Protocols = []Protocol{
	ProtocolVLESS,
	ProtocolVMESS,
	ProtocolTrojan,
	ProtocolShadowsocks,
	ProtocolSOCKS,
	ProtocolHTTP,
	ProtocolDokodemoDoor,
	ProtocolWireGuard,
	ProtocolMTProto,
}

// Networks lists every accepted transport.
var Networks = []Network{NetworkTCP, NetworkWS, NetworkGRPC, NetworkHTTP, NetworkHTTPUpgrade, NetworkXHTTP}

// Securities lists every accepted security layer.
var Securities = []Security{SecurityNone, SecurityTLS, SecurityReality}

// Profile 是组装完成、可直接持久化的入站配置。
type Profile struct {
	ID            int64
	Protocol      Protocol
	Network       Network
	Security      Security
	Port          int
	Tag           string
	Remark        string
	ServerAddress string
	Stream        Stream
	Domains       []string
	// Variant is nil for protocols without protocol-specific fields (VMESS, SOCKS, HTTP).
	Variant   Variant
	CreatedAt int64
	UpdatedAt int64
}

// Stream holds the transport and security parameters shared by every protocol.
type Stream struct {
	SNI             string
	ALPN            []string
	Fingerprint     string
	WSPath          string
	WSHost          string
	GRPCServiceName string
	HTTPPath        string
	HTTPHost        string
	XHTTPPath       string
	XHTTPHost       string
	XHTTPMode       string
	// Reality is only set when the profile security is REALITY.
	Reality *RealityFields
}

// RealityFields 保存 REALITY 密钥材料，内容不做校验。
type RealityFields struct {
	PrivateKey  string
	PublicKey   string
	ShortIDs    []string
	ServerNames []string
	Dest        string
}

// Variant is the protocol-specific part of a profile. The set of implementations is closed.
type Variant interface {
	Protocol() Protocol
	flatten(e *ExportedProfile)
}

// VLESSFields 是 VLESS 特有字段。
type VLESSFields struct {
	Flow      string
	Fallbacks json.RawMessage
}

// TrojanFields 是 Trojan 特有字段。
type TrojanFields struct {
	Fallbacks json.RawMessage
}

// ShadowsocksFields 是 Shadowsocks 特有字段。
type ShadowsocksFields struct {
	Method string
}

// WireGuardFields 保存 WireGuard 密钥、对端与 MTU。
type WireGuardFields struct {
	PrivateKey    string
	PublicKey     string
	PeerPublicKey string
	PresharedKey  string
	Address       []string
	AllowedIPs    []string
	MTU           int
}

// DokodemoFields 是任意门的转发目标。
type DokodemoFields struct {
	TargetAddress string
	TargetPort    int
}

// MTProtoFields 是 MTProto 密钥。
type MTProtoFields struct {
	Secret string
}

func (VLESSFields) Protocol() Protocol       { return ProtocolVLESS }
func (TrojanFields) Protocol() Protocol      { return ProtocolTrojan }
func (ShadowsocksFields) Protocol() Protocol { return ProtocolShadowsocks }
func (WireGuardFields) Protocol() Protocol   { return ProtocolWireGuard }
func (DokodemoFields) Protocol() Protocol    { return ProtocolDokodemoDoor }
func (MTProtoFields) Protocol() Protocol     { return ProtocolMTProto }

func (v VLESSFields) flatten(e *ExportedProfile) {
	e.Flow = v.Flow
	e.Fallbacks = cloneRaw(v.Fallbacks)
}

func (v TrojanFields) flatten(e *ExportedProfile) {
	e.Fallbacks = cloneRaw(v.Fallbacks)
}

func (v ShadowsocksFields) flatten(e *ExportedProfile) {
	e.SSMethod = v.Method
}

func (v WireGuardFields) flatten(e *ExportedProfile) {
	e.WGPrivateKey = v.PrivateKey
	e.WGPublicKey = v.PublicKey
	e.WGPeerPublicKey = v.PeerPublicKey
	e.WGPresharedKey = v.PresharedKey
	e.WGAddress = cloneStrings(v.Address)
	e.WGAllowedIPs = cloneStrings(v.AllowedIPs)
	e.WGMTU = v.MTU
}

func (v DokodemoFields) flatten(e *ExportedProfile) {
	e.TargetAddress = v.TargetAddress
	e.TargetPort = v.TargetPort
}

func (v MTProtoFields) flatten(e *ExportedProfile) {
	e.MTProtoSecret = v.Secret
}

// Candidate 是未经信任的导入条目（任意 JSON 对象），只被 Compose 消费。
type Candidate map[string]json.RawMessage

// ExportedProfile is the portable flat projection of a profile. It is the payload of
// export files, clone requests and re-imports; empty values are omitted.
type ExportedProfile struct {
	Protocol      Protocol `json:"protocol"`
	Network       Network  `json:"network"`
	Security      Security `json:"security"`
	Port          int      `json:"port"`
	Tag           string   `json:"tag"`
	Remark        string   `json:"remark,omitempty"`
	ServerAddress string   `json:"serverAddress,omitempty"`

	SNI             string   `json:"sni,omitempty"`
	ALPN            []string `json:"alpn,omitempty"`
	Fingerprint     string   `json:"fingerprint,omitempty"`
	WSPath          string   `json:"wsPath,omitempty"`
	WSHost          string   `json:"wsHost,omitempty"`
	GRPCServiceName string   `json:"grpcServiceName,omitempty"`
	HTTPPath        string   `json:"httpPath,omitempty"`
	HTTPHost        string   `json:"httpHost,omitempty"`
	XHTTPPath       string   `json:"xhttpPath,omitempty"`
	XHTTPHost       string   `json:"xhttpHost,omitempty"`
	XHTTPMode       string   `json:"xhttpMode,omitempty"`

	RealityPrivateKey  string   `json:"realityPrivateKey,omitempty"`
	RealityPublicKey   string   `json:"realityPublicKey,omitempty"`
	RealityShortIDs    []string `json:"realityShortIds,omitempty"`
	RealityServerNames []string `json:"realityServerNames,omitempty"`
	RealityDest        string   `json:"realityDest,omitempty"`

	Flow     string `json:"flow,omitempty"`
	SSMethod string `json:"ssMethod,omitempty"`

	WGPrivateKey    string   `json:"wgPrivateKey,omitempty"`
	WGPublicKey     string   `json:"wgPublicKey,omitempty"`
	WGPeerPublicKey string   `json:"wgPeerPublicKey,omitempty"`
	WGPresharedKey  string   `json:"wgPresharedKey,omitempty"`
	WGAddress       []string `json:"wgAddress,omitempty"`
	WGAllowedIPs    []string `json:"wgAllowedIps,omitempty"`
	WGMTU           int      `json:"wgMtu,omitempty"`

	TargetAddress string `json:"targetAddress,omitempty"`
	TargetPort    int    `json:"targetPort,omitempty"`

	MTProtoSecret string `json:"mtprotoSecret,omitempty"`

	Domains   []string        `json:"domains,omitempty"`
	Fallbacks json.RawMessage `json:"fallbacks,omitempty"`
}

// EditableDraft is the form-facing view of a profile: multi-value fields are flattened
// to text so an operator can edit them in plain inputs.
type EditableDraft struct {
	ExportedProfile
	Domains   string `json:"domains,omitempty"`
	Fallbacks string `json:"fallbacks,omitempty"`
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
