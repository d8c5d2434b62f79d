package rules

import "github.com/SteelMorgan/hostlog-checker/internal/domain"

// nm prefixes a NetworkManager body with the "<level> [ts]" header
func nm(levels, body string) string {
	return `^<(?P<level>` + levels + `)>\s+\[\s*(?P<ts>\d+\.\d+)\]\s+` + body
}

// Network classifies NetworkManager messages.
// Severity-specific rules sit in front of the rules they would otherwise be
// shadowed by, and NM_WARNING / NM_ERROR precede GENERIC.
var Network = &Table{
	Name: "network",
	Rules: []Rule{
		named("CONNECTION_ACTIVATED", nm(`info|warn`,
			`(?:connection-activation:\s+connection\s+'(?P<conn_old>[^']+)'\s+activated|device\s+\((?P<device>[^)]+)\):\s+Activation:\s+successful,?\s+(?:connection\s+'(?P<conn_new>[^']+)')?)`),
			domain.NetConnectionActivated),
		named("CONNECTION_DEACTIVATED", nm(`info|warn|error`,
			`(?:connection-activation:\s+deactivated\s+connection\s+'(?P<conn_old>[^']+)'(?:\s+\(reason\s+'(?P<reason_old>[^']+)'\))?|device\s+\((?P<device>[^)]+)\):\s+state\s+change:\s+\S+\s+->\s+deactivated(?:\s+\(reason\s+'(?P<reason_new>[^']+)'[^)]*\))?)`),
			domain.NetConnectionDeactivated),
		named("DEVICE_ACTIVATION_WARN", nm(`warn|error`,
			`device\s+\((?P<device>[^)]+)\):\s+Activation:\s+(?P<result>failed),?\s+(?P<details>.*?)\.?\s*$`),
			domain.NetWarning),
		named("DEVICE_ACTIVATION", nm(`info|warn|error`,
			`device\s+\((?P<device>[^)]+)\):\s+Activation:\s+(?P<result>successful|starting\s+connection|failed),?\s+(?P<details>.*?)\.?\s*$`),
			domain.NetDeviceActivation),
		named("DEVICE_STATE_CHANGE", nm(`info|warn|debug`,
			`device\s+\((?P<device>[^)]+)\):\s+state\s+change:\s+(?P<from>\S+)\s+->\s+(?P<to>\S+)\s+\(reason\s+'(?P<reason>[^']*)',?\s*(?:sys-iface-state:\s+'(?P<sys_state>[^']+)'|managed-type:\s+'(?P<mgmt_type>[^']+)')?\)`),
			domain.NetDeviceStateChange),
		named("MANAGER_STATE", nm(`info|warn`,
			`manager:\s+(?:NetworkManager\s+state\s+is\s+now\s+(?P<state>\S+)|startup\s+complete|NetworkManager\s+\(version\s+(?P<version>[^)]+)\)\s+is\s+(?P<action>starting|stopping))`),
			domain.NetManagerState),
		named("MANAGER_WARN", nm(`warn`, `manager:\s+(?P<msg>.*)$`), domain.NetWarning),
		named("MANAGER_ERROR", nm(`error`, `manager:\s+(?P<msg>.*)$`), domain.NetError),
		named("DHCP_ERROR", nm(`warn|error`,
			`dhcp(?P<version>[46])?\s+\((?P<iface>[^)]+)\):\s+(?P<msg>.*)$`),
			domain.NetError),
		named("DHCP_EVENT", nm(`info|warn|debug`,
			`dhcp(?P<version>[46])?\s+\((?P<iface>[^)]+)\):\s+(?:state\s+changed\s+(?P<from>\S+)\s+->\s+(?P<to>\S+)|option\s+(?P<option>\S+)\s+=>\s+'?(?P<value>[^']+)'?|(?P<msg>.*))`),
			domain.NetDhcpEvent),
		named("DHCP_INIT", nm(`info`,
			`dhcp-init:\s+Using\s+DHCP\s+client\s+'(?P<client>[^']+)'`),
			domain.NetDhcpInit),
		named("POLICY_SET", nm(`info|warn`,
			`policy:\s+set\s+'(?P<connection>[^']+)'\s+\((?P<iface>[^)]+)\)\s+as\s+default\s+for\s+(?P<purpose>IPv4|IPv6|DNS|routing)`),
			domain.NetPolicySet),
		named("SUPPLICANT_STATE", nm(`info|debug`,
			`device\s+\((?P<device>[^)]+)\):\s+supplicant\s+(?:interface|management\s+interface)\s+state:\s+(?P<from>\S+)\s+->\s+(?P<to>\S+)`),
			domain.NetSupplicantState),
		named("WIFI_SCAN", nm(`info|debug`,
			`device\s+\((?P<device>[^)]+)\):\s+(?:wifi-scan:\s+.*|supplicant\s+interface\s+state:\s+.*scanning.*)`),
			domain.NetWifiScan),
		named("PLATFORM_ERROR", nm(`warn|error`,
			`platform(?:-linux)?:\s+(?P<operation>do-[^\s\[]+)\[(?P<details>[^\]]+)\]:\s+(?:failure\s+(?P<errno>\d+)\s+\((?P<error>[^)]+)\)|(?P<msg>.*))`),
			domain.NetPlatformError),
		named("SETTINGS_CONNECTION", nm(`info|warn`,
			`(?:settings|settings-connection):\s+(?P<msg>.*)`),
			domain.NetSettingsConnection),
		named("DNS_CONFIG", nm(`info|warn`,
			`dns(?:-mgr)?:\s+(?P<msg>.*)`),
			domain.NetDNSConfig),
		named("VPN_ERROR", nm(`error|warn`,
			`(?:vpn-connection|vpn):\s+(?P<msg>.*)$`),
			domain.NetError),
		named("VPN_EVENT", nm(`info|warn|error`,
			`(?:vpn-connection|vpn):\s+(?P<msg>.*)`),
			domain.NetVpnEvent),
		named("FIREWALL_EVENT", nm(`info|warn`, `firewall:\s+(?P<msg>.*)`), domain.NetFirewallEvent),
		named("AGENT_REQUEST", nm(`info|warn`, `agent-manager:\s+(?P<msg>.*)`), domain.NetAgentRequest),
		named("CONNECTIVITY_CHECK", nm(`info|warn`, `connectivity:\s+(?P<msg>.*)`), domain.NetConnectivityCheck),
		named("DISPATCHER", nm(`info|warn`, `dispatcher:\s+(?P<msg>.*)`), domain.NetDispatcher),
		named("LINK_EVENT", nm(`info|warn|debug`,
			`device\s+\((?P<device>[^)]+)\):\s+(?:link\s+(?P<state>connected|disconnected)|carrier:\s+link\s+(?P<carrier>connected|disconnected))`),
			domain.NetLinkEvent),
		named("VIRTUAL_DEVICE", nm(`info|warn`, `(?:bridge|bond|team|vlan):\s+(?P<msg>.*)`), domain.NetVirtualDevice),
		named("AUDIT", nm(`info|warn`, `audit:\s+(?P<msg>.*)`), domain.NetAudit),
		named("SYSTEMD", nm(`info|warn`, `systemd:\s+(?P<msg>.*)`), domain.NetSystemd),
		named("NM_WARNING", nm(`warn`, `(?P<component>\S+):\s+(?P<msg>.*)$`), domain.NetWarning),
		named("NM_ERROR", nm(`error`, `(?P<component>\S+):\s+(?P<msg>.*)$`), domain.NetError),
		named("GENERIC", nm(`info|warn|error|debug`, `(?P<component>\S+):\s+(?P<msg>.+)$`), domain.NetOther),
		catchAll(domain.NetOther),
	},
}
