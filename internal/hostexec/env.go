package hostexec

import (
	"os"
	"strings"
)

func currentEnv() []string {
	return os.Environ()
}

func envKey(kv string) (string, bool) {
	idx := strings.IndexByte(kv, '=')
	if idx < 0 {
		return "", false
	}
	return kv[:idx], true
}
