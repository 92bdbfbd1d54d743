package window

import "github.com/shirou/gopsutil/process"

// processName returns the executable name of pid, or "" when it cannot be read
func processName(pid int32) string {
	if pid <= 0 {
		return ""
	}

	proc, err := process.NewProcess(pid)
	if err != nil {
		return ""
	}
	name, err := proc.Name()
	if err != nil {
		return ""
	}
	return name
}
