//go:build !windows

package locate

func roamingAppData() string { return "" }
