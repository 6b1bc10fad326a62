//go:build windows

package locate

import "golang.org/x/sys/windows"

func roamingAppData() string {
	dir, err := windows.KnownFolderPath(windows.FOLDERID_RoamingAppData, windows.KF_FLAG_DEFAULT)
	if err != nil {
		return ""
	}
	return dir
}
