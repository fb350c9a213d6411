//go:build windows

package config

// windowsEnv maps unix variable names used in shared config files to their
// Windows equivalents.
var windowsEnv = map[string]string{
	"HOSTNAME": "COMPUTERNAME",
	"USER":     "USERNAME",
	"HOME":     "USERPROFILE",
}

func mapEnvKey(key string) string {
	if k, ok := windowsEnv[key]; ok {
		return k
	}
	return key
}
