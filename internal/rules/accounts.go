package rules

import "github.com/SteelMorgan/hostlog-checker/internal/domain"

// UserChange classifies shadow-utils messages (useradd, userdel, usermod,
// groupadd, groupdel, groupmod, passwd)
var UserChange = &Table{
	Name: "userchange",
	Rules: []Rule{
		pos("NEW_USER",
			`^new\s+user:\s+name=([^,]+),\s+UID=(\d+),\s+GID=(\d+),\s+home=([^,]+),\s+shell=([^,]+?)(?:,\s+from=(\S+))?$`,
			domain.UserNewUser, "name", "uid", "gid", "home", "shell", "from"),
		pos("NEW_GROUP",
			`^new\s+group:\s+name=([^,]+),\s+GID=(\d+)$`,
			domain.UserNewGroup, "name", "gid"),
		pos("GROUP_ADDED_ETC_GROUP",
			`^group\s+added\s+to\s+/etc/group:\s+name=([^,]+),\s+GID=(\d+)$`,
			domain.UserGroupAdded, "name", "gid"),
		pos("GROUP_ADDED_ETC_GSHADOW",
			`^group\s+added\s+to\s+/etc/gshadow:\s+name=(\S+)$`,
			domain.UserGshadowAdded, "name"),
		pos("DELETE_USER",
			`^delete\s+user(?::\s+name=([^,]+),\s+UID=(\d+),\s+GID=(\d+),\s+home=([^,]+),\s+shell=(\S+)|\s+'([^']+)')$`,
			domain.UserDeleteUser, "name", "uid", "gid", "home", "shell", "name"),
		pos("DELETE_USER_HOME",
			`^delete\s+home\s+directory:\s+(.+)$`,
			domain.UserDeleteHome, "home"),
		pos("DELETE_USER_MAIL",
			`^delete\s+mail\s+spool:\s+(.+)$`,
			domain.UserDeleteMail, "spool"),
		pos("DELETE_GROUP",
			`^(?:delete\s+group:\s+name=([^,]+),\s+GID=(\d+)|group\s+'([^']+)'\s+removed(?:\s+from\s+(\S+))?)$`,
			domain.UserDeleteGroup, "name", "gid", "name", "database"),
		pos("MODIFY_USER",
			`^(?:usermod:\s+name=([^,]+),\s*(.*)|change\s+user\s+'([^']+)'\s+(.+)|add\s+'([^']+)'\s+to\s+(?:shadow\s+)?group\s+'([^']+)')$`,
			domain.UserModifyUser, "name", "change", "name", "change", "name", "group"),
		pos("MODIFY_GROUP",
			`^groupmod:\s+name=([^,]+),\s*(.*)$`,
			domain.UserModifyGroup, "name", "change"),
		pos("USER_PASSWD_CHANGE",
			`^(?:passwd\[(\d+)\]:\s+)?(?:pam_unix\(passwd:chauthtok\):\s+)?password\s+changed\s+for\s+(\S+)$`,
			domain.UserPasswdChange, "pid", "user"),
		pos("USER_SHADOW_UPDATED",
			`^shadow\s+file\s+updated\s+for\s+user\s+(\S+)$`,
			domain.UserShadowUpdated, "user"),
		catchAll(domain.UserOther),
	},
}

// Pkg classifies pacman.log lines. Every pacman line starts with a bracketed
// timestamp, which becomes the event timestamp.
var Pkg = &Table{
	Name: "pkgmanager",
	Rules: []Rule{
		pos("INSTALLED",
			`^\[([^\]]+)\]\s+\[ALPM\]\s+installed\s+(\S+)\s+\(([^)]+)\)$`,
			domain.PkgInstalled, TimestampField, "pkg_name", "version"),
		pos("REMOVED",
			`^\[([^\]]+)\]\s+\[ALPM\]\s+removed\s+(\S+)\s+\(([^)]+)\)$`,
			domain.PkgRemoved, TimestampField, "pkg_name", "version"),
		pos("UPGRADED",
			`^\[([^\]]+)\]\s+\[ALPM\]\s+upgraded\s+(\S+)\s+\(([^)]+?)\s+->\s+([^)]+)\)$`,
			domain.PkgUpgraded, TimestampField, "pkg_name", "version_from", "version_to"),
		pos("DOWNGRADED",
			`^\[([^\]]+)\]\s+\[ALPM\]\s+downgraded\s+(\S+)\s+\(([^)]+?)\s+->\s+([^)]+)\)$`,
			domain.PkgDowngraded, TimestampField, "pkg_name", "version_from", "version_to"),
		pos("REINSTALLED",
			`^\[([^\]]+)\]\s+\[ALPM\]\s+reinstalled\s+(\S+)\s+\(([^)]+)\)$`,
			domain.PkgReinstalled, TimestampField, "pkg_name", "version"),
		pos("TRANSACTION",
			`^\[([^\]]+)\]\s+\[ALPM\]\s+transaction\s+(started|completed|failed|interrupted)$`,
			domain.PkgTransaction, TimestampField, "state"),
		pos("PACMAN_COMMAND",
			`^\[([^\]]+)\]\s+\[PACMAN\]\s+Running\s+'(.+)'$`,
			domain.PkgCommand, TimestampField, "command"),
		pos("GENERIC",
			`^\[([^\]]+)\]\s+\[([^\]]+)\]\s+(.*\S.*)$`,
			domain.PkgOther, TimestampField, "source", "message"),
		catchAll(domain.PkgOther),
	},
}

// Cron classifies cronie messages
var Cron = &Table{
	Name:        "configchange",
	TrimMessage: true,
	Rules: []Rule{
		pos("CRON_CMD",
			`^\((\S+)\)\s+CMD\s+\((.+)\)$`,
			domain.CronCmd, "user", "command"),
		pos("CRON_RELOAD",
			`^\((\S+)\)\s+RELOAD\s+\(crontabs/(\S+)\)$`,
			domain.CronReload, "user", "crontab"),
		pos("CRON_ERROR_BAD_COMMAND",
			`^\((\S+)\)\s+ERROR\s+\(bad\s+command\)$`,
			domain.CronErrorBadCommand, "user"),
		pos("CRON_ERROR_BAD_MINUTE",
			`^\((\S+)\)\s+ERROR\s+\(bad\s+minute\)$`,
			domain.CronErrorBadMinute, "user"),
		pos("CRON_ERROR_OTHER",
			`^\((\S+)\)\s+ERROR\s+\((.+)\)$`,
			domain.CronErrorOther, "user", "error"),
		pos("CRON_DENIED",
			`^\((\S+)\)\s+AUTH\s+\(crontab\s+denied\)$`,
			domain.CronDenied, "user"),
		pos("CRON_SESSION_OPEN",
			`^pam_unix\(crond?:session\):\s+session\s+opened\s+for\s+user\s+([^\s(]+)(?:\(uid=(\d+)\))?(?:\s+by\s+\S*?\(uid=(\d+)\))?$`,
			domain.CronSessionOpen, "user", "uid", "by_uid"),
		pos("CRON_SESSION_CLOSE",
			`^pam_unix\(crond?:session\):\s+session\s+closed\s+for\s+user\s+(\S+)$`,
			domain.CronSessionClose, "user"),
		catchAll(domain.CronOther),
	},
}

// System classifies service manager (PID 1) messages
var System = &Table{
	Name: "system",
	Rules: []Rule{
		pos("UNIT_STARTED",
			`^Started\s+(.+?)\.?$`,
			domain.SystemUnitStarted, "unit"),
		pos("UNIT_STOPPED",
			`^Stopped\s+(.+?)\.?$`,
			domain.SystemUnitStopped, "unit"),
		pos("UNIT_START_FAILED",
			`^Failed\s+to\s+start\s+(.+?)\.?$`,
			domain.SystemUnitFailed, "unit"),
		pos("UNIT_FAILED",
			`^(\S+):\s+Failed\s+with\s+result\s+'([^']+)'\.?$`,
			domain.SystemUnitFailed, "unit", "result"),
		pos("TARGET_REACHED",
			`^Reached\s+target\s+(.+?)\.?$`,
			domain.SystemTargetReached, "target"),
		pos("STARTUP_FINISHED",
			`^Startup\s+finished\s+in\s+(.+?)\.?$`,
			domain.SystemStartupFinished, "durations"),
		catchAll(domain.SystemOther),
	},
}
