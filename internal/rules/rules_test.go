package rules

import (
	"reflect"
	"testing"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
)

// firstMatch returns the first rule of t that matches msg
func firstMatch(t *testing.T, table *Table, msg string) Rule {
	t.Helper()
	for _, r := range table.Rules {
		if r.Pattern.MatchString(msg) {
			return r
		}
	}
	t.Fatalf("no rule of %s matched %q", table.Name, msg)
	return Rule{}
}

func TestTablesShape(t *testing.T) {
	for name, table := range All() {
		t.Run(name, func(t *testing.T) {
			if len(table.Rules) == 0 {
				t.Fatal("empty table")
			}
			last := table.Rules[len(table.Rules)-1]
			if last.Name != "UNKNOWN" {
				t.Errorf("last rule = %s, want UNKNOWN", last.Name)
			}
			if last.Kind.String() != "Other" {
				t.Errorf("catch-all kind = %s, want Other", last.Kind)
			}

			category := last.Kind.Category()
			for _, r := range table.Rules {
				if r.Kind.Category() != category {
					t.Errorf("rule %s has category %s, want %s", r.Name, r.Kind.Category(), category)
				}
				n := r.Pattern.NumSubexp()
				for _, f := range r.Fields {
					if f.Index < 1 || f.Index > n {
						t.Errorf("rule %s field %s uses group %d of %d", r.Name, f.Name, f.Index, n)
					}
				}
				if r.TimestampGroup > n {
					t.Errorf("rule %s timestamp group %d of %d", r.Name, r.TimestampGroup, n)
				}
			}
		})
	}
}

func TestCatchAllIsTotal(t *testing.T) {
	msgs := []string{"x", "  padded  ", "multi\nline message", "événement"}
	for name, table := range All() {
		catch := table.Rules[len(table.Rules)-1]
		for _, msg := range msgs {
			if !catch.Pattern.MatchString(msg) {
				t.Errorf("%s catch-all does not match %q", name, msg)
			}
		}
		if catch.Pattern.MatchString("   ") {
			t.Errorf("%s catch-all matches a blank message", name)
		}
	}
}

func TestRuleOrdering(t *testing.T) {
	tests := []struct {
		name     string
		table    *Table
		msg      string
		wantRule string
		wantKind domain.EventKind
	}{
		{
			name:     "sshd accepted key",
			table:    SSHD,
			msg:      "Accepted publickey for alice from 10.0.0.5 port 52314 ssh2",
			wantRule: "AUTH_SUCCESS",
			wantKind: domain.AuthSuccess,
		},
		{
			name:     "sshd connection closed by authenticating user",
			table:    SSHD,
			msg:      "Connection closed by authenticating user root 203.0.113.9 port 40022 [preauth]",
			wantRule: "CONNECTION_CLOSED",
			wantKind: domain.AuthConnectionClosed,
		},
		{
			name:     "sshd protocol id is not a warning",
			table:    SSHD,
			msg:      "kex_exchange_identification: Connection closed by remote host",
			wantRule: "INVALID_PROTOCOL_ID",
			wantKind: domain.AuthInvalidProtocolID,
		},
		{
			name:     "sshd prefixed error is a warning",
			table:    SSHD,
			msg:      "error: kex_exchange_identification: banner line contains invalid characters",
			wantRule: "WARNING",
			wantKind: domain.AuthWarning,
		},
		{
			name:     "sudo command",
			table:    Sudo,
			msg:      "alice : TTY=pts/0 ; PWD=/home/alice ; USER=root ; COMMAND=/usr/bin/pacman -Syu",
			wantRule: "COMMAND_RUN",
			wantKind: domain.AuthCmdRun,
		},
		{
			name:     "systemd-user session before generic session",
			table:    Login,
			msg:      "pam_unix(systemd-user:session): session opened for user alice(uid=1000) by alice(uid=0)",
			wantRule: "SYSTEMD_SESSION_OPENED_UID",
			wantKind: domain.AuthSessionOpened,
		},
		{
			name:     "login session",
			table:    Login,
			msg:      "pam_unix(login:session): session opened for user bob(uid=1001) by LOGIN(uid=0)",
			wantRule: "SESSION_OPENED",
			wantKind: domain.AuthSessionOpened,
		},
		{
			name:     "useradd",
			table:    UserChange,
			msg:      "new user: name=bob, UID=1001, GID=1001, home=/home/bob, shell=/bin/bash, from=/dev/pts/0",
			wantRule: "NEW_USER",
			wantKind: domain.UserNewUser,
		},
		{
			name:     "pacman upgrade",
			table:    Pkg,
			msg:      "[2025-01-02T10:00:00+0000] [ALPM] upgraded linux (6.6.1.arch1-1 -> 6.6.2.arch1-1)",
			wantRule: "UPGRADED",
			wantKind: domain.PkgUpgraded,
		},
		{
			name:     "pacman hook output falls to generic",
			table:    Pkg,
			msg:      "[2025-01-02T10:00:01+0000] [ALPM-SCRIPTLET] ==> Building image",
			wantRule: "GENERIC",
			wantKind: domain.PkgOther,
		},
		{
			name:     "failed activation is a warning",
			table:    Network,
			msg:      "<warn>  [1700000000.1234] device (wlan0): Activation: failed for connection 'Home'",
			wantRule: "DEVICE_ACTIVATION_WARN",
			wantKind: domain.NetWarning,
		},
		{
			name:     "dhcp warning before dhcp event",
			table:    Network,
			msg:      "<warn>  [1700000000.1234] dhcp4 (eth0): request timed out",
			wantRule: "DHCP_ERROR",
			wantKind: domain.NetError,
		},
		{
			name:     "dhcp info",
			table:    Network,
			msg:      "<info>  [1700000000.1234] dhcp4 (eth0): state changed new lease, address=192.168.1.10",
			wantRule: "DHCP_EVENT",
			wantKind: domain.NetDhcpEvent,
		},
		{
			name:     "manager state",
			table:    Network,
			msg:      "<info>  [1700000000.1234] manager: NetworkManager state is now CONNECTED_GLOBAL",
			wantRule: "MANAGER_STATE",
			wantKind: domain.NetManagerState,
		},
		{
			name:     "iptables command before command failed",
			table:    Firewall,
			msg:      "ERROR: COMMAND_FAILED: '/usr/sbin/iptables -w10 -t nat -X' failed: iptables: No chain",
			wantRule: "IPTABLES_COMMAND",
			wantKind: domain.FwIptablesCommand,
		},
		{
			name:     "bare command failed",
			table:    Firewall,
			msg:      "ERROR: COMMAND_FAILED",
			wantRule: "COMMAND_FAILED",
			wantKind: domain.FwCommandFailed,
		},
		{
			name:     "firewalld error reachable",
			table:    Firewall,
			msg:      "ERROR: ZONE_ALREADY_SET: public",
			wantRule: "ERROR",
			wantKind: domain.FwError,
		},
		{
			name:     "usb descriptor before usb error",
			table:    Kernel,
			msg:      "usb 1-2: device descriptor read/64, error -71",
			wantRule: "USB_DESCRIPTOR_ERROR",
			wantKind: domain.KernelUsbDescriptor,
		},
		{
			name:     "usb error",
			table:    Kernel,
			msg:      "usb 1-2: cannot reset port 1, error -110",
			wantRule: "USB_ERROR",
			wantKind: domain.KernelUsbError,
		},
		{
			name:     "boot banner",
			table:    Kernel,
			msg:      "Linux version 6.6.1-arch1-1 (linux@archlinux) (gcc 13.2.1)",
			wantRule: "BOOT_EVENT",
			wantKind: domain.KernelBootEvent,
		},
		{
			name:     "cron command",
			table:    Cron,
			msg:      "(root) CMD (run-parts /etc/cron.hourly)",
			wantRule: "CRON_CMD",
			wantKind: domain.CronCmd,
		},
		{
			name:     "cron bad minute before other error",
			table:    Cron,
			msg:      "(alice) ERROR (bad minute)",
			wantRule: "CRON_ERROR_BAD_MINUTE",
			wantKind: domain.CronErrorBadMinute,
		},
		{
			name:     "unit started",
			table:    System,
			msg:      "Started OpenSSH Daemon.",
			wantRule: "UNIT_STARTED",
			wantKind: domain.SystemUnitStarted,
		},
		{
			name:     "unit failed result",
			table:    System,
			msg:      "sshd.service: Failed with result 'exit-code'.",
			wantRule: "UNIT_FAILED",
			wantKind: domain.SystemUnitFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := firstMatch(t, tt.table, tt.msg)
			if got.Name != tt.wantRule {
				t.Errorf("first match = %s, want %s", got.Name, tt.wantRule)
			}
			if got.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", got.Kind, tt.wantKind)
			}
		})
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name  string
		table *Table
		names []string
		want  []string
	}{
		{
			name:  "no request selects everything",
			table: Sudo,
			names: nil,
			want:  nil,
		},
		{
			name:  "alias expands to both session forms",
			table: Sudo,
			names: []string{"SessionOpenedSudo"},
			want:  []string{"SESSION_OPENED_SUDO", "SESSION_OPENED_SU"},
		},
		{
			name:  "kind name selects every rule of that kind in order",
			table: Network,
			names: []string{"Warning"},
			want:  []string{"DEVICE_ACTIVATION_WARN", "MANAGER_WARN", "NM_WARNING"},
		},
		{
			name:  "multiple names keep table order",
			table: SSHD,
			names: []string{"TooManyAuthFailures", "Success"},
			want:  []string{"AUTH_SUCCESS", "TOO_MANY_AUTH"},
		},
		{
			name:  "unknown name selects nothing",
			table: Kernel,
			names: []string{"NoSuchEvent"},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed := tt.table.Expand(tt.names)
			if tt.want == nil {
				if allowed != nil {
					t.Fatalf("Expand(nil) = %v, want nil", allowed)
				}
				if got := tt.table.Select(allowed); len(got) != len(tt.table.Rules) {
					t.Errorf("Select(nil) returned %d rules, want %d", len(got), len(tt.table.Rules))
				}
				return
			}
			got := []string{}
			for _, r := range tt.table.Select(allowed) {
				got = append(got, r.Name)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Select(Expand(%v)) = %v, want %v", tt.names, got, tt.want)
			}
		})
	}
}

func TestEventNames(t *testing.T) {
	names := System.EventNames()
	want := []string{"UnitStarted", "UnitStopped", "UnitFailed", "TargetReached", "StartupFinished", "Other"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("EventNames() = %v, want %v", names, want)
	}
}
