package rules

import "github.com/SteelMorgan/hostlog-checker/internal/domain"

// Kernel classifies kernel ring buffer messages.
// USB_DESCRIPTOR_ERROR precedes the broader USB_ERROR.
var Kernel = &Table{
	Name: "kernel",
	Rules: []Rule{
		pos("KERNEL_PANIC",
			`^[Kk]ernel\s+panic\s*[-:]\s*(.+?)(?:\s+CPU:\s*(\d+))?\s*$`,
			domain.KernelPanic, "reason", "cpu"),
		pos("OOM_KILL",
			`^(?:Out\s+of\s+memory|OOM\s+killer):\s*(?:Kill(?:ed|ing))?\s+process\s+(\d+)\s+\(([^)]+)\)(?:\s+score\s+(\d+))?`,
			domain.KernelOomKill, "pid", "process", "score"),
		pos("SEGFAULT",
			`^([^\[]+)\[(\d+)\]:\s+segfault\s+at\s+([0-9a-f]+)\s+ip\s+([0-9a-f]+)\s+sp\s+([0-9a-f]+)\s+error\s+(\d+)(?:\s+in\s+([^\[]+))?`,
			domain.KernelSegfault, "process", "pid", "address", "ip", "sp", "error", "library"),
		pos("USB_DESCRIPTOR_ERROR",
			`^usb\s+([\d.\-]+):\s+device\s+(?:descriptor|not\s+accepting\s+address)\s*(.*?),\s+error\s+(-?\d+)\s*$`,
			domain.KernelUsbDescriptor, "device", "detail", "code"),
		pos("USB_ERROR",
			`^usb\s+([\d.\-]+):\s+(.+?),\s+error\s+(-?\d+)\s*$`,
			domain.KernelUsbError, "device", "message", "code"),
		pos("USB_DEVICE_EVENT",
			`^usb\s+([\d.\-]+):\s+(New\s+USB\s+device\s+found|USB\s+disconnect),\s+(.+?)(?:\s+idVendor=([0-9a-f]+),\s+idProduct=([0-9a-f]+))?\s*$`,
			domain.KernelUsbDevice, "device", "action", "detail", "vendor", "product"),
		pos("DISK_ERROR",
			`^(?:end_request|blk_update_request|I/O\s+error):?\s+(?:I/O\s+error|critical\s+(?:medium|target)\s+error)?,?\s*dev\s+([^\s,]+),?\s+sector\s+(\d+)(?:\s+op\s+(\S+))?`,
			domain.KernelDiskError, "device", "sector", "op"),
		pos("FS_MOUNT",
			`^(?:EXT[234]|XFS|BTRFS|F2FS|VFAT|NTFS|ZFS)-fs\s+\(([^)]+)\):\s+(mounted|unmounted|remounted)\s*(.*?)\s*$`,
			domain.KernelFsMount, "device", "action", "detail"),
		pos("FS_ERROR",
			`^(?:EXT[234]|XFS|BTRFS|F2FS|NTFS|ZFS)-fs\s+(?:error|warning)\s+\(device\s+([^)]+)\):(?:\s+(.+?))?\s*$`,
			domain.KernelFsError, "device", "message"),
		pos("CPU_ERROR",
			`^(?:CPU|cpu)\s*(\d+)?:?\s+(?:temperature|Machine\s+Check\s+Exception|MCE|hardware\s+error)\s*(.+?)\s*$`,
			domain.KernelCPUError, "cpu", "detail"),
		pos("MEMORY_ERROR",
			`^(?:EDAC|Memory)\s+(?:error|CE|UE):?\s*(.+?)(?:\s+at\s+address\s+([0-9a-fx]+))?\s*$`,
			domain.KernelMemoryError, "detail", "address"),
		pos("DEVICE_DETECTED",
			`^(?:Found|Detected|Registered)\s+(?:device|hardware):\s+(.+?)(?:\s+at\s+([0-9a-fx:]+))?\s*$`,
			domain.KernelDeviceDetected, "device", "address"),
		pos("DRIVER_EVENT",
			`^(Loading|Unloading|Loaded|Unloaded)\s+(?:module|driver):\s+(\S+)(?:\s+(.+?))?\s*$`,
			domain.KernelDriverEvent, "action", "module", "detail"),
		pos("NET_INTERFACE",
			`^([a-z0-9]+):\s+(?:link\s+(?:up|down)|renamed\s+from\s+([a-z0-9]+)|NIC\s+Link\s+is\s+(?:Up|Down))\s*(?:at\s+(\d+)\s*(?:Mbps|Gbps))?`,
			domain.KernelNetInterface, "interface", "renamed_from", "speed"),
		pos("PCI_DEVICE",
			`^pci\s+([0-9a-f:.]+):\s+(.+?)\s*$`,
			domain.KernelPciDevice, "address", "detail"),
		pos("ACPI_EVENT",
			`^ACPI:?\s+(.+?)(?:\s+\[([^\]]+)\])?\s*$`,
			domain.KernelAcpiEvent, "message", "object"),
		pos("THERMAL_EVENT",
			`^(?:thermal|Thermal|Critical\s+temperature):?\s+(?:CPU|cpu|GPU|gpu|zone\s*(\d+))?\s*(.+?)(?:\s+temperature:?\s+([0-9.]+)(?:\s*°?C)?)?\s*$`,
			domain.KernelThermalEvent, "zone", "message", "temperature"),
		pos("DMA_ERROR",
			`^(?:DMA|dma):\s+(.+?)(?:\s+on\s+device\s+(\S+))?\s*$`,
			domain.KernelDmaError, "message", "device"),
		pos("AUDIT_EVENT",
			`^audit:?\s+type=(\d+)\s+(.+?)\s*$`,
			domain.KernelAuditEvent, "type", "message"),
		pos("KERNEL_TAINT",
			`^(?:Kernel\s+tainted:|Loading\s+tainted\s+module)\s+(\S+)(?:\s+(.+?))?\s*$`,
			domain.KernelTaint, "taint", "detail"),
		pos("FIRMWARE_LOAD",
			`^(?:firmware|Firmware):\s+(?:loading|loaded|failed\s+to\s+load)\s+(\S+)(?:\s+for\s+device\s+(\S+))?\s*$`,
			domain.KernelFirmwareLoad, "firmware", "device"),
		pos("IRQ_EVENT",
			`^(?:irq|IRQ)\s+(\d+):?\s+(.+?)\s*$`,
			domain.KernelIrqEvent, "irq", "message"),
		pos("TASK_KILLED",
			`^(?:Killed|Killing)\s+process\s+(\d+)\s+\(([^)]+)\)(?:\s+(.+?))?\s*$`,
			domain.KernelTaskKilled, "pid", "process", "detail"),
		pos("RCU_STALL",
			`^(?:rcu_sched|rcu_preempt)\s+(?:detected\s+stalls?|self-detected\s+stall)\s+on\s+CPUs?\s+(.+?)\s*$`,
			domain.KernelRcuStall, "cpus"),
		pos("WATCHDOG",
			`^(?:watchdog|Watchdog):\s+(.+?)(?:\s+on\s+CPU\s*#?(\d+))?\s*$`,
			domain.KernelWatchdog, "message", "cpu"),
		pos("BOOT_EVENT",
			`^(?:(?:Booting|Starting)\s+(?:kernel|Linux)|Linux)\s+(?:version\s+)?(\S+)?\s*(.*?)\s*$`,
			domain.KernelBootEvent, "version", "detail"),
		pos("EMERG", `^EMERGENCY:?\s+(.+\S)\s*$`, domain.KernelEmerg, "message"),
		pos("ALERT", `^ALERT:?\s+(.+\S)\s*$`, domain.KernelAlert, "message"),
		pos("CRITICAL", `^(?:CRITICAL|critical):?\s+(.+\S)\s*$`, domain.KernelCritical, "message"),
		pos("ERROR", `^(?:ERROR|error):?\s+(.+\S)\s*$`, domain.KernelError, "message"),
		pos("WARNING", `^(?:WARNING|warning):?\s+(.+\S)\s*$`, domain.KernelWarning, "message"),
		pos("NOTICE", `^(?:NOTICE|notice):?\s+(.+\S)\s*$`, domain.KernelNotice, "message"),
		pos("INFO", `^(?:INFO|info):?\s+(.+\S)\s*$`, domain.KernelInfo, "message"),
		catchAll(domain.KernelOther),
	},
}
