package enumerate

import (
	"context"
	"os"
	"strings"

	"github.com/terassyi/dotnetacquire/internal/event"
	"github.com/terassyi/dotnetacquire/internal/hostexec"
	"github.com/terassyi/dotnetacquire/internal/model"
)

const (
	uiLanguageEnv    = "DOTNET_CLI_UI_LANGUAGE"
	strictArchEnv    = "DOTNETACQUIRE_STRICT_ARCH"
	architectureLine = "Architecture:"
)

// InfoArchitecture runs the host with --info and scans for the
// "Architecture:" line, forcing English output so the scan is
// locale-independent. If the line is absent, it emits
// UnableToCheckArchitecture and returns "" (permissive match) unless
// strictArchEnv is set, in which case it returns ArchStrictUnknown
// (which never compares equal to anything).
func InfoArchitecture(ctx context.Context, hostPath string, sink event.Sink) model.Architecture {
	env := map[string]string{uiLanguageEnv: "en"}
	result, err := hostexec.Run(ctx, hostPath, []string{"--info"}, env)
	if err == nil && result.ExitCode == 0 {
		if a, ok := scanArchitectureLine(result.Stdout); ok {
			return a
		}
	}

	event.Emit(sink, event.UnableToCheckArchitecture, map[string]any{"host": hostPath})

	if os.Getenv(strictArchEnv) != "" {
		return model.ArchStrictUnknown
	}
	return model.ArchUnknown
}

func scanArchitectureLine(output string) (model.Architecture, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, architectureLine) {
			token := strings.TrimSpace(strings.TrimPrefix(line, architectureLine))
			return model.ParseArchitecture(token), true
		}
	}
	return "", false
}
