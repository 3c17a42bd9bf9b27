package policy

import (
	"fmt"
	"strings"

	clierr "github.com/ggonzalez94/gud-quote/internal/errors"
)

// AlwaysAllowed commands are exempt from the allowlist so a restricted CLI can
// still describe itself.
var AlwaysAllowed = []string{"version", "schema", "help"}

// CheckCommandAllowed enforces an allowlist of command paths. An empty allowlist
// permits everything; "*" matches any command; an entry also permits its
// subcommands.
func CheckCommandAllowed(allowlist []string, commandPath string) error {
	if len(allowlist) == 0 {
		return nil
	}
	path := normalize(commandPath)
	for _, exempt := range AlwaysAllowed {
		if path == exempt {
			return nil
		}
	}
	for _, allowed := range allowlist {
		entry := normalize(allowed)
		if entry == "*" || entry == path || strings.HasPrefix(path, entry+" ") {
			return nil
		}
	}
	return clierr.New(clierr.CodeBlocked, fmt.Sprintf("command %q blocked by --enable-commands policy", path))
}

func normalize(v string) string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(v)))
	return strings.Join(parts, " ")
}
