package rules

import "github.com/SteelMorgan/hostlog-checker/internal/domain"

// SSHD classifies sshd / sshd-session messages.
// Protocol errors precede WARNING, which needs an explicit severity prefix.
var SSHD = &Table{
	Name: "sshd",
	Rules: []Rule{
		pos("AUTH_SUCCESS",
			`^Accepted\s+(\w+)\s+for\s+(\S+)\s+from\s+([0-9A-Fa-f:.]+)\s+port\s+(\d+)(?:\s+ssh\d*)?\s*$`,
			domain.AuthSuccess, "method", "user", "ip", "port"),
		pos("AUTH_FAILURE",
			`^Failed\s+(\w+)\s+for\s+(?:invalid\s+user\s+)?(\S+)\s+from\s+([0-9A-Fa-f:.]+)\s+port\s+(\d+)(?:\s+ssh\d*)?\s*$`,
			domain.AuthFailure, "method", "user", "ip", "port"),
		pos("SESSION_OPENED",
			`^pam_unix\(sshd:session\):\s+session\s+opened(?:\s+for\s+user\s+([^\s(]+)(?:\(uid=(\d+)\))?)?`,
			domain.AuthSessionOpened, "user", "uid"),
		pos("SESSION_CLOSED",
			`^pam_unix\(sshd:session\):\s+session\s+closed(?:\s+for\s+user\s+([^\s(]+))?`,
			domain.AuthSessionClosed, "user"),
		pos("CONNECTION_CLOSED",
			`^Connection\s+(?:closed|reset)\s+by\s+(?:(?:authenticating|invalid)\s+user\s+(\S+)\s+)?([0-9A-Fa-f:.]+)\s+port\s+(\d+)(?:\s+\[([^\]]+)\])?\s*$`,
			domain.AuthConnectionClosed, "user", "ip", "port", "stage"),
		pos("RECEIVED_DISCONNECT",
			`^Received\s+disconnect\s+from\s+([0-9A-Fa-f:.]+)(?:\s+port\s+(\d+))?:\s*(\d+):\s*(.+?)(?:\s+\[preauth\])?\s*$`,
			domain.AuthInfo, "ip", "port", "code", "reason"),
		pos("NEGOTIATION_FAILURE",
			`^Unable\s+to\s+negotiate(?:\s+with)?\s+([0-9A-Fa-f:.]+)(?:\s+port\s+(\d+))?:\s*no\s+matching\s+(.*)$`,
			domain.AuthInfo, "ip", "port", "detail"),
		pos("TOO_MANY_AUTH",
			`^(?:Disconnect(?:ing|ed)(?:\s+(?:authenticating|invalid)\s+user\s+(\S+)\s+([0-9A-Fa-f:.]+)\s+port\s+(\d+))?:\s*)?Too\s+many\s+authentication\s+failures(?:\s+for\s+(?:invalid\s+user\s+)?(\S+))?\s*(?:\[preauth\])?\s*$`,
			domain.AuthTooManyAuthFailures, "user", "ip", "port", "user"),
		pos("INVALID_PROTOCOL_ID",
			`^kex_exchange_identification:\s*(?:read:\s*)?(Client\s+sent\s+invalid\s+protocol\s+identifier(?:\s+.*)?|Connection\s+(?:closed\s+by\s+remote\s+host|reset\s+by\s+peer))\s*$`,
			domain.AuthInvalidProtocolID, "reason"),
		pos("BAD_PROTOCOL_VERSION",
			`^Bad\s+protocol\s+version\s+identification\s+'(.+?)'(?:\s+from\s+([0-9A-Fa-f:.]+))?(?:\s+port\s+(\d+))?\s*$`,
			domain.AuthBadProtocolVersion, "version", "ip", "port"),
		pos("MAJOR_VERSION_DIFF",
			`^Protocol\s+major\s+versions\s+differ\s+for\s+([0-9A-Fa-f:.]+)\s+port\s+(\d+):\s*(\d+)\s*vs\.\s*(\d+)\s*$`,
			domain.AuthMajorVersionDiff, "ip", "port", "local_version", "remote_version"),
		pos("BANNER_OR_DISPATCH_ERROR",
			`^(?:banner\s+exchange|ssh_dispatch_run_fatal):\s+Connection\s+from\s+([0-9A-Fa-f:.]+)\s+port\s+(\d+):\s*(invalid\s+format|message\s+authentication\s+code\s+incorrect|Connection\s+corrupted)(?:\s+\[preauth\])?\s*$`,
			domain.AuthBannerOrDispatch, "ip", "port", "reason"),
		pos("SOCKET_READ_FAILURE",
			`^Read\s+from\s+socket\s+failed:\s+Connection\s+(?:reset|closed)\s+by\s+peer\s*$`,
			domain.AuthSocketReadFailure),
		pos("WARNING",
			`^(?:warning|WARNING|error|fatal):\s*(.+\S)\s*$`,
			domain.AuthWarning, "message"),
		catchAll(domain.AuthOther),
	},
}

// Sudo classifies sudo and su messages
var Sudo = &Table{
	Name:        "sudo",
	TrimMessage: true,
	Rules: []Rule{
		pos("COMMAND_RUN",
			`^(\S+)\s+:\s+TTY=(\S+)\s+;\s+PWD=(\S+)\s+;\s+USER=(\S+)\s+;\s+COMMAND=(.+)$`,
			domain.AuthCmdRun, "invoking_user", "tty", "pwd", "target_user", "command"),
		pos("SESSION_OPENED_SUDO",
			`^pam_unix\(sudo(?:-i)?:session\):\s+session\s+opened\s+for\s+user\s+([^\s(]+)\(uid=(\d+)\)\s+by\s+([^\s(]*)\(uid=(\d+)\)$`,
			domain.AuthSessionOpenedSudo, "target_user", "target_uid", "invoking_user", "invoking_uid"),
		pos("SESSION_OPENED_SU",
			`^pam_unix\(su(?:-l)?:session\):\s+session\s+opened\s+for\s+user\s+([^\s(]+)\(uid=(\d+)\)\s+by\s+([^\s(]*)\(uid=(\d+)\)$`,
			domain.AuthSessionOpenedSudo, "target_user", "target_uid", "invoking_user", "invoking_uid"),
		pos("SESSION_CLOSED",
			`^pam_unix\((?:sudo|sudo-i|su|su-l):session\):\s+session\s+closed\s+for\s+user\s+(\S+)$`,
			domain.AuthSessionClosed, "user"),
		pos("AUTH_FAILURE",
			`^pam_unix\((?:sudo|su|su-l):auth\):\s+authentication\s+failure;\s+logname=(\S*)\s+uid=(\d+)\s+euid=(\d+)\s+tty=(\S*)\s+ruser=(\S*)\s+rhost=(\S*)(?:\s+user=(\S+))?$`,
			domain.AuthFailure, "logname", "uid", "euid", "tty", "ruser", "rhost", "user"),
		pos("INCORRECT_PASSWORD",
			`^(\S+)\s+:\s+(\d+)\s+incorrect\s+password\s+attempts?\s+;\s+TTY=(\S+)\s+;\s+PWD=(\S+)\s+;\s+USER=(\S+)\s+;\s+COMMAND=(.+)$`,
			domain.AuthIncorrectPassword, "user", "attempts", "tty", "pwd", "target_user", "command"),
		pos("NOT_IN_SUDOERS",
			`^(?:(\S+)\s+is\s+not\s+in\s+the\s+sudoers\s+file|(\S+)\s+:\s+user\s+NOT\s+in\s+sudoers\b)`,
			domain.AuthNotInSudoers, "user", "user"),
		pos("AUTH_ERROR",
			`pam_unix\((?:sudo|su|su-l):auth\):\s+(.+?)(?:\s+\[\s*(\w+)\s*\])?\s*$`,
			domain.AuthError, "message", "user"),
		pos("SUDO_WARNING",
			`^sudo:\s+(.+)$`,
			domain.AuthWarning, "message"),
		catchAll(domain.AuthOther),
	},
}

// Login classifies local logins, display manager and logind messages.
// The systemd-user session rules precede the generic pam session rules.
var Login = &Table{
	Name: "login",
	Rules: []Rule{
		pos("AUTH_FAILURE",
			`pam_unix\(([^:]+):auth\):\s+authentication\s+failure(?:;.*?\buser=(\S+))?`,
			domain.AuthFailure, "service", "user"),
		pos("AUTH_USER_UNKNOWN",
			`pam_unix\(([^:]+):auth\):\s+.*\buser\b.*\bunknown`,
			domain.AuthUserUnknown, "service"),
		pos("FAILLOCK",
			`pam_faillock\(([^:]+):auth\):\s*(.*)`,
			domain.AuthFaillock, "service", "message"),
		pos("ACCOUNT_EXPIRED",
			`pam_unix\(([^:]+):account\):\s+account\s+(\S+)\s+has\s+expired`,
			domain.AuthAccountExpired, "service", "user"),
		pos("NOLOGIN_REFUSED",
			`pam_nologin\(([^:]+):auth\):\s+Refused\s+user\s+(\S+)`,
			domain.AuthNoLoginRefused, "service", "user"),
		pos("SYSTEMD_SESSION_OPENED_UID",
			`pam_unix\(systemd-user:session\):\s+session\s+opened\s+for\s+user\s+([^\s(]+)\s*\(uid=(\d+)\)`,
			domain.AuthSessionOpened, "user", "uid"),
		pos("SYSTEMD_SESSION_CLOSED_UID",
			`pam_unix\(systemd-user:session\):\s+session\s+closed\s+for\s+user\s+([^\s(]+)`,
			domain.AuthSessionClosed, "user"),
		pos("SESSION_OPENED",
			`pam_unix\(([^:]+):session\):\s+session\s+opened\s+for\s+user\s+([^\s(]+)(?:\s*\(uid=(\d+)\))?`,
			domain.AuthSessionOpened, "service", "user", "uid"),
		pos("SESSION_CLOSED",
			`pam_unix\(([^:]+):session\):\s+session\s+closed\s+for\s+user\s+([^\s(]+)`,
			domain.AuthSessionClosed, "service", "user"),
		pos("SYSTEMD_NEW_SESSION",
			`New\s+session\s+(\S+)\s+of\s+user\s+(\S+?)\.?$`,
			domain.AuthSessionOpened, "session_id", "user"),
		pos("SYSTEMD_SESSION_CLOSED",
			`Removed\s+session\s+(\S+?)\.?$`,
			domain.AuthSessionClosed, "session_id"),
		pos("SDDM_LOGIN_SUCCESS",
			`Authentication\s+for\s+user\s+"?([^\s"]+)"?\s+successful`,
			domain.AuthSuccess, "user"),
		pos("SDDM_LOGIN_FAILURE",
			`Authentication\s+failed\s+for\s+user\s+"?([^\s"]+)"?`,
			domain.AuthFailure, "user"),
		pos("FAILED_PASSWORD_SSH",
			`Failed\s+password\s+for\s+(?:invalid\s+user\s+)?(\S+)\s+from\s+(\S+)\s+port\s+(\d+)`,
			domain.AuthFailure, "user", "ip", "port"),
		pos("INVALID_USER_ATTEMPT",
			`Invalid\s+user\s+(\S+)\s+from\s+(\S+)`,
			domain.AuthFailure, "user", "ip"),
		pos("ACCOUNT_LOCKED",
			`pam_tally2?\([^)]*:auth\):\s+user\s+(\S+)\s+.*locked\s+due\s+to\s+(.*)`,
			domain.AuthAccountLocked, "user", "reason"),
		pos("PASSWORD_CHANGED",
			`pam_unix\(passwd:chauthtok\):\s+password\s+changed\s+for\s+(\S+)`,
			domain.AuthPasswordChanged, "user"),
		catchAll(domain.AuthOther),
	},
}
