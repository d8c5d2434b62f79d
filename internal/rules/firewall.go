package rules

import "github.com/SteelMorgan/hostlog-checker/internal/domain"

// Firewall classifies firewalld messages
var Firewall = &Table{
	Name: "firewall",
	Rules: []Rule{
		pos("SERVICE_STARTED",
			`^firewalld\s+(?:is\s+)?running\s*$`,
			domain.FwServiceStarted),
		pos("SERVICE_STOPPED",
			`^firewalld\s+(?:is\s+)?stopped\s*$`,
			domain.FwServiceStopped),
		pos("CONFIG_RELOADED",
			`^(?:(?:firewalld|firewall):\s+(?:Configuration\s+)?reloaded|Reloading\s+firewall\s+rules)`,
			domain.FwConfigReloaded),
		pos("ZONE_CHANGED",
			`^Zone(?:\s+changes)?:?\s+(\w+)\s+(activated|changed|modified|added|removed)(?:\s+on\s+([a-z0-9.]+))?\s*$`,
			domain.FwZoneChanged, "zone", "action", "interface"),
		pos("SERVICE_MODIFIED",
			`^[Ss]ervice\s+(\S+)\s+(added|removed|enabled|disabled)(?:\s+in\s+zone\s+(\w+))?\s*$`,
			domain.FwServiceModified, "service", "action", "zone"),
		pos("PORT_MODIFIED",
			`^[Pp]ort\s+(\d+)/(\w+)\s+(opened|closed|added|removed)(?:\s+in\s+zone\s+(\w+))?\s*$`,
			domain.FwPortModified, "port", "protocol", "action", "zone"),
		pos("RULE_APPLIED",
			`^[Rr]ule\s+(added|removed|modified|applied)(?::\s+(.+?))?\s*$`,
			domain.FwRuleApplied, "action", "rule"),
		pos("IPTABLES_COMMAND",
			`^(?:WARNING|ERROR):\s+(?:COMMAND_FAILED:\s+)?'(/usr/sbin/(?:ip6?tables|nft|ebtables)(?:-restore|-save)?)(?:\s+[^']*)?'\s+(failed|succeeded):\s*(.*)$`,
			domain.FwIptablesCommand, "command", "status", "output"),
		pos("INTERFACE_BINDING",
			`^[Ii]nterface\s+([a-z0-9.:]+)\s+(added|removed|bound|unbound)(?:\s+(?:to|from)\s+zone\s+(\w+))?\s*$`,
			domain.FwInterfaceBinding, "interface", "action", "zone"),
		pos("COMMAND_FAILED",
			`^(?:ERROR|WARNING):\s+COMMAND_FAILED(?::\s*(.*))?$`,
			domain.FwCommandFailed, "detail"),
		pos("OPERATION_STATUS",
			`^(reload|restart|reload-and-restart)(?:ed)?\s+(completed|failed|successful)(?:\s+(.+?))?\s*$`,
			domain.FwOperationStatus, "operation", "status", "detail"),
		pos("MODULE_MSG",
			`^(?:ModuleConnector|Connector)(?:\(([^)]+)\))?\s+(?:MSG:)?\s*(.+?)(?:\s+\[(.+?)\])?\s*$`,
			domain.FwModuleMessage, "module", "message", "context"),
		pos("DBUS_MSG",
			`^(?:DBus|dbus)\s+(?:error|warning|info)?:?\s*(.+?)(?:\s+\[(.+?)\])?\s*$`,
			domain.FwDBusMessage, "message", "context"),
		pos("WARNING", `^WARNING:\s+(.+\S)\s*$`, domain.FwWarning, "message"),
		pos("ERROR", `^ERROR:\s+(.+\S)\s*$`, domain.FwError, "message"),
		pos("INFO", `^INFO:\s+(.+\S)\s*$`, domain.FwInfo, "message"),
		catchAll(domain.FwOther),
	},
}
