// Package rules holds the fixed classification tables, one per log class.
// Tables are built once at package initialisation and are read-only afterwards.
package rules

import (
	"regexp"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
)

// TimestampField marks a positional capture that carries the record timestamp
// instead of an extracted field.
const TimestampField = "@timestamp"

// catchAllPattern matches any message containing a non-space character
const catchAllPattern = `(?s)^(.*\S.*)$`

// Field maps a capture group index to an output field name
type Field struct {
	Name  string
	Index int
}

// Rule is one (name, pattern, field map, kind) entry of a table
type Rule struct {
	Name           string
	Pattern        *regexp.Regexp
	Fields         []Field
	Kind           domain.EventKind
	TimestampGroup int // 0 when the rule carries no timestamp
}

// Table is an ordered rule list; the first matching rule wins
type Table struct {
	Name  string
	Rules []Rule
	// TrimMessage strips surrounding whitespace before matching
	TrimMessage bool
}

// pos builds a rule with positional captures: names[i] labels group i+1.
// Empty names are skipped, TimestampField marks the timestamp group.
func pos(name, pattern string, kind domain.EventKind, names ...string) Rule {
	r := Rule{
		Name:    name,
		Pattern: regexp.MustCompile(pattern),
		Kind:    kind,
	}
	for i, n := range names {
		switch n {
		case "":
		case TimestampField:
			r.TimestampGroup = i + 1
		default:
			r.Fields = append(r.Fields, Field{Name: n, Index: i + 1})
		}
	}
	return r
}

// named builds a rule whose fields are the pattern's named groups
func named(name, pattern string, kind domain.EventKind) Rule {
	r := Rule{
		Name:    name,
		Pattern: regexp.MustCompile(pattern),
		Kind:    kind,
	}
	for i, n := range r.Pattern.SubexpNames() {
		if n == "" {
			continue
		}
		r.Fields = append(r.Fields, Field{Name: n, Index: i})
	}
	return r
}

// catchAll is the terminal UNKNOWN rule every table ends with
func catchAll(kind domain.EventKind) Rule {
	return pos("UNKNOWN", catchAllPattern, kind, "message")
}

// Expand resolves requested event names into the set of rule names they
// select in this table. A name selects the rules listed for it in the alias
// table, every rule whose kind has that name, and a rule with that exact name.
// An empty request returns nil, meaning no filtering.
func (t *Table) Expand(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{})
	for _, n := range names {
		for _, ruleName := range aliases[n] {
			set[ruleName] = struct{}{}
		}
		for _, r := range t.Rules {
			if r.Name == n || r.Kind.String() == n {
				set[r.Name] = struct{}{}
			}
		}
	}
	return set
}

// Select returns the rules whose names are in allowed, in table order.
// A nil set returns the whole table.
func (t *Table) Select(allowed map[string]struct{}) []Rule {
	if allowed == nil {
		return t.Rules
	}
	out := make([]Rule, 0, len(allowed))
	for _, r := range t.Rules {
		if _, ok := allowed[r.Name]; ok {
			out = append(out, r)
		}
	}
	return out
}

// EventNames lists the distinct kind names a table can produce, in table order
func (t *Table) EventNames() []string {
	seen := make(map[string]struct{}, len(t.Rules))
	var names []string
	for _, r := range t.Rules {
		n := r.Kind.String()
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	return names
}

// All returns every table, keyed by table name
func All() map[string]*Table {
	return map[string]*Table{
		SSHD.Name:       SSHD,
		Sudo.Name:       Sudo,
		Login.Name:      Login,
		UserChange.Name: UserChange,
		Pkg.Name:        Pkg,
		Network.Name:    Network,
		Firewall.Name:   Firewall,
		Kernel.Name:     Kernel,
		Cron.Name:       Cron,
		System.Name:     System,
	}
}

// aliases maps public event names to the rule names they stand for.
// Kind names are matched automatically; this only lists the extra spellings.
var aliases = map[string][]string{
	"Success":             {"AUTH_SUCCESS", "SDDM_LOGIN_SUCCESS"},
	"Failure":             {"AUTH_FAILURE", "SDDM_LOGIN_FAILURE", "FAILED_PASSWORD_SSH", "INVALID_USER_ATTEMPT"},
	"SessionOpened":       {"SESSION_OPENED", "SYSTEMD_NEW_SESSION", "SYSTEMD_SESSION_OPENED_UID"},
	"SessionClosed":       {"SESSION_CLOSED", "SYSTEMD_SESSION_CLOSED", "SYSTEMD_SESSION_CLOSED_UID"},
	"ConnectionClosed":    {"CONNECTION_CLOSED"},
	"TooManyAuthFailures": {"TOO_MANY_AUTH"},
	"Warning":             {"WARNING", "NM_WARNING", "DEVICE_ACTIVATION_WARN", "MANAGER_WARN", "SUDO_WARNING"},
	"Info":                {"RECEIVED_DISCONNECT", "NEGOTIATION_FAILURE", "INFO"},
	"Other":               {"UNKNOWN", "GENERIC"},
	"Unknown":             {"UNKNOWN"},

	"IncorrectPassword":   {"INCORRECT_PASSWORD"},
	"AuthError":           {"AUTH_ERROR"},
	"CmdRun":              {"COMMAND_RUN"},
	"SessionOpenedSudo":   {"SESSION_OPENED_SUDO", "SESSION_OPENED_SU"},
	"NotInSudoers":        {"NOT_IN_SUDOERS"},
	"AuthUserUnknown":     {"AUTH_USER_UNKNOWN"},
	"FaillockUserUnknown": {"FAILLOCK"},
	"NoLoginRefused":      {"NOLOGIN_REFUSED"},
	"AccountExpired":      {"ACCOUNT_EXPIRED"},
	"AccountLocked":       {"ACCOUNT_LOCKED"},
	"PasswordChanged":     {"PASSWORD_CHANGED"},

	"NewUser":              {"NEW_USER"},
	"NewGroup":             {"NEW_GROUP"},
	"GroupAddedEtcGroup":   {"GROUP_ADDED_ETC_GROUP"},
	"GroupAddedEtcGshadow": {"GROUP_ADDED_ETC_GSHADOW"},
	"DeleteUser":           {"DELETE_USER"},
	"DeleteUserHome":       {"DELETE_USER_HOME"},
	"DeleteUserMail":       {"DELETE_USER_MAIL"},
	"DeleteGroup":          {"DELETE_GROUP"},
	"ModifyUser":           {"MODIFY_USER"},
	"ModifyGroup":          {"MODIFY_GROUP"},
	"PasswdChange":         {"USER_PASSWD_CHANGE"},
	"ShadowUpdated":        {"USER_SHADOW_UPDATED"},

	"PkgInstalled":   {"INSTALLED"},
	"PkgRemoved":     {"REMOVED"},
	"PkgUpgraded":    {"UPGRADED"},
	"PkgDowngraded":  {"DOWNGRADED"},
	"PkgReinstalled": {"REINSTALLED"},

	"CronCmd":             {"CRON_CMD"},
	"CronReload":          {"CRON_RELOAD"},
	"CronErrorBadCommand": {"CRON_ERROR_BAD_COMMAND"},
	"CronErrorBadMinute":  {"CRON_ERROR_BAD_MINUTE"},
	"CronErrorOther":      {"CRON_ERROR_OTHER"},
	"CronDenied":          {"CRON_DENIED"},
	"CronSessionOpen":     {"CRON_SESSION_OPEN"},
	"CronSessionClose":    {"CRON_SESSION_CLOSE"},

	"DeviceActivation":      {"DEVICE_ACTIVATION"},
	"DeviceStateChange":     {"DEVICE_STATE_CHANGE"},
	"ConnectionActivated":   {"CONNECTION_ACTIVATED"},
	"ConnectionDeactivated": {"CONNECTION_DEACTIVATED"},
	"ManagerState":          {"MANAGER_STATE"},
	"DhcpEvent":             {"DHCP_EVENT"},
	"DhcpInit":              {"DHCP_INIT"},
	"PolicySet":             {"POLICY_SET"},
	"SupplicantState":       {"SUPPLICANT_STATE"},
	"WifiScan":              {"WIFI_SCAN"},
	"PlatformError":         {"PLATFORM_ERROR"},
	"SettingsConnection":    {"SETTINGS_CONNECTION"},
	"DnsConfig":             {"DNS_CONFIG"},
	"VpnEvent":              {"VPN_EVENT"},
	"FirewallEvent":         {"FIREWALL_EVENT"},
	"AgentRequest":          {"AGENT_REQUEST"},
	"ConnectivityCheck":     {"CONNECTIVITY_CHECK"},
	"Dispatcher":            {"DISPATCHER"},
	"LinkEvent":             {"LINK_EVENT"},
	"VirtualDevice":         {"VIRTUAL_DEVICE"},
	"Audit":                 {"AUDIT"},
	"Systemd":               {"SYSTEMD"},

	"FirewalldServiceStarted":   {"SERVICE_STARTED"},
	"FirewalldServiceStopped":   {"SERVICE_STOPPED"},
	"FirewalldConfigReloaded":   {"CONFIG_RELOADED"},
	"FirewalldZoneChanged":      {"ZONE_CHANGED"},
	"FirewalldServiceModified":  {"SERVICE_MODIFIED"},
	"FirewalldPortModified":     {"PORT_MODIFIED"},
	"FirewalldRuleApplied":      {"RULE_APPLIED"},
	"FirewalldIptablesCommand":  {"IPTABLES_COMMAND"},
	"FirewalldInterfaceBinding": {"INTERFACE_BINDING"},
	"FirewalldCommandFailed":    {"COMMAND_FAILED"},
	"FirewalldOperationStatus":  {"OPERATION_STATUS"},
	"FirewalldModuleMessage":    {"MODULE_MSG"},
	"FirewalldDBusMessage":      {"DBUS_MSG"},

	"KernelPanic":        {"KERNEL_PANIC"},
	"OomKill":            {"OOM_KILL"},
	"Segfault":           {"SEGFAULT"},
	"UsbError":           {"USB_ERROR"},
	"UsbDescriptorError": {"USB_DESCRIPTOR_ERROR"},
	"UsbDeviceEvent":     {"USB_DEVICE_EVENT"},
	"DiskError":          {"DISK_ERROR"},
	"FsMount":            {"FS_MOUNT"},
	"FsError":            {"FS_ERROR"},
	"CpuError":           {"CPU_ERROR"},
	"MemoryError":        {"MEMORY_ERROR"},
	"DeviceDetected":     {"DEVICE_DETECTED"},
	"DriverEvent":        {"DRIVER_EVENT"},
	"NetInterface":       {"NET_INTERFACE"},
	"PciDevice":          {"PCI_DEVICE"},
	"AcpiEvent":          {"ACPI_EVENT"},
	"ThermalEvent":       {"THERMAL_EVENT"},
	"DmaError":           {"DMA_ERROR"},
	"AuditEvent":         {"AUDIT_EVENT"},
	"KernelTaint":        {"KERNEL_TAINT"},
	"FirmwareLoad":       {"FIRMWARE_LOAD"},
	"IrqEvent":           {"IRQ_EVENT"},
	"TaskKilled":         {"TASK_KILLED"},
	"RcuStall":           {"RCU_STALL"},
	"Watchdog":           {"WATCHDOG"},
	"BootEvent":          {"BOOT_EVENT"},
	"Emerg":              {"EMERG"},
	"Alert":              {"ALERT"},
	"Critical":           {"CRITICAL"},
	"Error":              {"ERROR"},
	"Notice":             {"NOTICE"},

	"InvalidProtocolId":     {"INVALID_PROTOCOL_ID"},
	"BadProtocolVersion":    {"BAD_PROTOCOL_VERSION"},
	"MajorVersionDiff":      {"MAJOR_VERSION_DIFF"},
	"BannerOrDispatchError": {"BANNER_OR_DISPATCH_ERROR"},
	"SocketReadFailure":     {"SOCKET_READ_FAILURE"},
}
