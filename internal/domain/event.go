package domain

import "encoding/json"

// Category is the top-level event family of a log class
type Category string

const (
	CategoryAuth     Category = "Auth"
	CategoryUser     Category = "User"
	CategoryPackage  Category = "Package"
	CategoryNetwork  Category = "Network"
	CategoryFirewall Category = "Firewall"
	CategoryKernel   Category = "Kernel"
	CategoryConfig   Category = "Config"
	CategorySystem   Category = "System"
)

// EventKind is a fine-grained event type nested under a Category.
// Implemented only by the per-category kind types below.
type EventKind interface {
	Category() Category
	String() string
	eventKind()
}

// AuthKind covers ssh, sudo/su and login events
type AuthKind string

// UserKind covers account and group management
type UserKind string

// PackageKind covers package manager transactions
type PackageKind string

// NetworkKind covers NetworkManager events
type NetworkKind string

// FirewallKind covers firewalld events
type FirewallKind string

// KernelKind covers kernel ring buffer events
type KernelKind string

// ConfigKind covers scheduled job (cron) events
type ConfigKind string

// SystemKind covers service manager events
type SystemKind string

func (k AuthKind) Category() Category     { return CategoryAuth }
func (k UserKind) Category() Category     { return CategoryUser }
func (k PackageKind) Category() Category  { return CategoryPackage }
func (k NetworkKind) Category() Category  { return CategoryNetwork }
func (k FirewallKind) Category() Category { return CategoryFirewall }
func (k KernelKind) Category() Category   { return CategoryKernel }
func (k ConfigKind) Category() Category   { return CategoryConfig }
func (k SystemKind) Category() Category   { return CategorySystem }

func (k AuthKind) String() string     { return string(k) }
func (k UserKind) String() string     { return string(k) }
func (k PackageKind) String() string  { return string(k) }
func (k NetworkKind) String() string  { return string(k) }
func (k FirewallKind) String() string { return string(k) }
func (k KernelKind) String() string   { return string(k) }
func (k ConfigKind) String() string   { return string(k) }
func (k SystemKind) String() string   { return string(k) }

func (AuthKind) eventKind()     {}
func (UserKind) eventKind()     {}
func (PackageKind) eventKind()  {}
func (NetworkKind) eventKind()  {}
func (FirewallKind) eventKind() {}
func (KernelKind) eventKind()   {}
func (ConfigKind) eventKind()   {}
func (SystemKind) eventKind()   {}

// Auth events
const (
	AuthSuccess             AuthKind = "Success"
	AuthFailure             AuthKind = "Failure"
	AuthSessionOpened       AuthKind = "SessionOpened"
	AuthSessionClosed       AuthKind = "SessionClosed"
	AuthConnectionClosed    AuthKind = "ConnectionClosed"
	AuthTooManyAuthFailures AuthKind = "TooManyAuthFailures"
	AuthInfo                AuthKind = "Info"
	AuthWarning             AuthKind = "Warning"
	AuthIncorrectPassword   AuthKind = "IncorrectPassword"
	AuthError               AuthKind = "AuthError"
	AuthCmdRun              AuthKind = "CmdRun"
	AuthSessionOpenedSudo   AuthKind = "SessionOpenedSudo"
	AuthNotInSudoers        AuthKind = "NotInSudoers"
	AuthUserUnknown         AuthKind = "AuthUserUnknown"
	AuthFaillock            AuthKind = "FaillockUserUnknown"
	AuthNoLoginRefused      AuthKind = "NoLoginRefused"
	AuthAccountExpired      AuthKind = "AccountExpired"
	AuthAccountLocked       AuthKind = "AccountLocked"
	AuthPasswordChanged     AuthKind = "PasswordChanged"
	AuthInvalidProtocolID   AuthKind = "InvalidProtocolId"
	AuthBadProtocolVersion  AuthKind = "BadProtocolVersion"
	AuthMajorVersionDiff    AuthKind = "MajorVersionDiff"
	AuthBannerOrDispatch    AuthKind = "BannerOrDispatchError"
	AuthSocketReadFailure   AuthKind = "SocketReadFailure"
	AuthOther               AuthKind = "Other"
)

// User events
const (
	UserNewUser       UserKind = "NewUser"
	UserNewGroup      UserKind = "NewGroup"
	UserGroupAdded    UserKind = "GroupAddedEtcGroup"
	UserGshadowAdded  UserKind = "GroupAddedEtcGshadow"
	UserDeleteUser    UserKind = "DeleteUser"
	UserDeleteHome    UserKind = "DeleteUserHome"
	UserDeleteMail    UserKind = "DeleteUserMail"
	UserDeleteGroup   UserKind = "DeleteGroup"
	UserModifyUser    UserKind = "ModifyUser"
	UserModifyGroup   UserKind = "ModifyGroup"
	UserPasswdChange  UserKind = "PasswdChange"
	UserShadowUpdated UserKind = "ShadowUpdated"
	UserOther         UserKind = "Other"
)

// Package events
const (
	PkgInstalled   PackageKind = "PkgInstalled"
	PkgRemoved     PackageKind = "PkgRemoved"
	PkgUpgraded    PackageKind = "PkgUpgraded"
	PkgDowngraded  PackageKind = "PkgDowngraded"
	PkgReinstalled PackageKind = "PkgReinstalled"
	PkgTransaction PackageKind = "PkgTransaction"
	PkgCommand     PackageKind = "PkgCommand"
	PkgOther       PackageKind = "Other"
)

// Network events
const (
	NetConnectionActivated   NetworkKind = "ConnectionActivated"
	NetConnectionDeactivated NetworkKind = "ConnectionDeactivated"
	NetDeviceActivation      NetworkKind = "DeviceActivation"
	NetDeviceStateChange     NetworkKind = "DeviceStateChange"
	NetManagerState          NetworkKind = "ManagerState"
	NetDhcpEvent             NetworkKind = "DhcpEvent"
	NetDhcpInit              NetworkKind = "DhcpInit"
	NetPolicySet             NetworkKind = "PolicySet"
	NetSupplicantState       NetworkKind = "SupplicantState"
	NetWifiScan              NetworkKind = "WifiScan"
	NetPlatformError         NetworkKind = "PlatformError"
	NetSettingsConnection    NetworkKind = "SettingsConnection"
	NetDNSConfig             NetworkKind = "DnsConfig"
	NetVpnEvent              NetworkKind = "VpnEvent"
	NetFirewallEvent         NetworkKind = "FirewallEvent"
	NetAgentRequest          NetworkKind = "AgentRequest"
	NetConnectivityCheck     NetworkKind = "ConnectivityCheck"
	NetDispatcher            NetworkKind = "Dispatcher"
	NetLinkEvent             NetworkKind = "LinkEvent"
	NetVirtualDevice         NetworkKind = "VirtualDevice"
	NetAudit                 NetworkKind = "Audit"
	NetSystemd               NetworkKind = "Systemd"
	NetWarning               NetworkKind = "Warning"
	NetError                 NetworkKind = "Error"
	NetOther                 NetworkKind = "Other"
)

// Firewall events
const (
	FwServiceStarted   FirewallKind = "FirewalldServiceStarted"
	FwServiceStopped   FirewallKind = "FirewalldServiceStopped"
	FwConfigReloaded   FirewallKind = "FirewalldConfigReloaded"
	FwZoneChanged      FirewallKind = "FirewalldZoneChanged"
	FwServiceModified  FirewallKind = "FirewalldServiceModified"
	FwPortModified     FirewallKind = "FirewalldPortModified"
	FwRuleApplied      FirewallKind = "FirewalldRuleApplied"
	FwIptablesCommand  FirewallKind = "FirewalldIptablesCommand"
	FwInterfaceBinding FirewallKind = "FirewalldInterfaceBinding"
	FwCommandFailed    FirewallKind = "FirewalldCommandFailed"
	FwOperationStatus  FirewallKind = "FirewalldOperationStatus"
	FwModuleMessage    FirewallKind = "FirewalldModuleMessage"
	FwDBusMessage      FirewallKind = "FirewalldDBusMessage"
	FwWarning          FirewallKind = "Warning"
	FwError            FirewallKind = "Error"
	FwInfo             FirewallKind = "Info"
	FwOther            FirewallKind = "Other"
)

// Kernel events
const (
	KernelPanic          KernelKind = "KernelPanic"
	KernelOomKill        KernelKind = "OomKill"
	KernelSegfault       KernelKind = "Segfault"
	KernelUsbError       KernelKind = "UsbError"
	KernelUsbDescriptor  KernelKind = "UsbDescriptorError"
	KernelUsbDevice      KernelKind = "UsbDeviceEvent"
	KernelDiskError      KernelKind = "DiskError"
	KernelFsMount        KernelKind = "FsMount"
	KernelFsError        KernelKind = "FsError"
	KernelCPUError       KernelKind = "CpuError"
	KernelMemoryError    KernelKind = "MemoryError"
	KernelDeviceDetected KernelKind = "DeviceDetected"
	KernelDriverEvent    KernelKind = "DriverEvent"
	KernelNetInterface   KernelKind = "NetInterface"
	KernelPciDevice      KernelKind = "PciDevice"
	KernelAcpiEvent      KernelKind = "AcpiEvent"
	KernelThermalEvent   KernelKind = "ThermalEvent"
	KernelDmaError       KernelKind = "DmaError"
	KernelAuditEvent     KernelKind = "AuditEvent"
	KernelTaint          KernelKind = "KernelTaint"
	KernelFirmwareLoad   KernelKind = "FirmwareLoad"
	KernelIrqEvent       KernelKind = "IrqEvent"
	KernelTaskKilled     KernelKind = "TaskKilled"
	KernelRcuStall       KernelKind = "RcuStall"
	KernelWatchdog       KernelKind = "Watchdog"
	KernelBootEvent      KernelKind = "BootEvent"
	KernelEmerg          KernelKind = "Emerg"
	KernelAlert          KernelKind = "Alert"
	KernelCritical       KernelKind = "Critical"
	KernelError          KernelKind = "Error"
	KernelWarning        KernelKind = "Warning"
	KernelNotice         KernelKind = "Notice"
	KernelInfo           KernelKind = "Info"
	KernelOther          KernelKind = "Other"
)

// Config (cron) events
const (
	CronCmd             ConfigKind = "CronCmd"
	CronReload          ConfigKind = "CronReload"
	CronErrorBadCommand ConfigKind = "CronErrorBadCommand"
	CronErrorBadMinute  ConfigKind = "CronErrorBadMinute"
	CronErrorOther      ConfigKind = "CronErrorOther"
	CronDenied          ConfigKind = "CronDenied"
	CronSessionOpen     ConfigKind = "CronSessionOpen"
	CronSessionClose    ConfigKind = "CronSessionClose"
	CronOther           ConfigKind = "Other"
)

// System (service manager) events
const (
	SystemUnitStarted     SystemKind = "UnitStarted"
	SystemUnitStopped     SystemKind = "UnitStopped"
	SystemUnitFailed      SystemKind = "UnitFailed"
	SystemTargetReached   SystemKind = "TargetReached"
	SystemStartupFinished SystemKind = "StartupFinished"
	SystemOther           SystemKind = "Other"
)

// TypedEvent is the classified output of one record
type TypedEvent struct {
	Timestamp string
	LogClass  string
	Kind      EventKind
	Rule      string            // name of the rule that matched
	Fields    map[string]string // extracted captures
	Raw       RawRecord
}

type typedEventJSON struct {
	Timestamp string            `json:"timestamp"`
	LogClass  string            `json:"log_class"`
	Category  Category          `json:"category"`
	EventType string            `json:"event_type"`
	Rule      string            `json:"rule"`
	Data      map[string]string `json:"data"`
	RawMsg    RawRecord         `json:"raw_msg"`
}

// MarshalJSON flattens the kind into category + event_type
func (e TypedEvent) MarshalJSON() ([]byte, error) {
	aux := typedEventJSON{
		Timestamp: e.Timestamp,
		LogClass:  e.LogClass,
		Rule:      e.Rule,
		Data:      e.Fields,
		RawMsg:    e.Raw,
	}
	if e.Kind != nil {
		aux.Category = e.Kind.Category()
		aux.EventType = e.Kind.String()
	}
	if aux.Data == nil {
		aux.Data = map[string]string{}
	}
	return json.Marshal(aux)
}
