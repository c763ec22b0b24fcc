package groups

import (
	"strings"

	"go.uber.org/zap"
)

// Directory maps sender addresses to their configured group. Membership is
// loaded once at startup and read-only for the process lifetime; address
// matching is case-insensitive.
type Directory struct {
	byAddress map[string]string
	names     []string
	logger    *zap.Logger
}

// NewDirectory creates a directory from a group-name-to-addresses mapping
func NewDirectory(groups map[string][]string, logger *zap.Logger) *Directory {
	byAddress := make(map[string]string)
	names := make([]string, 0, len(groups))
	for name, members := range groups {
		names = append(names, name)
		for _, addr := range members {
			normalized := strings.ToLower(strings.TrimSpace(addr))
			if normalized == "" {
				continue
			}
			byAddress[normalized] = name
		}
	}

	if len(names) > 0 && logger != nil {
		logger.Info("Loaded sender groups",
			zap.Strings("groups", names),
			zap.Int("addresses", len(byAddress)))
	}

	return &Directory{
		byAddress: byAddress,
		names:     names,
		logger:    logger,
	}
}

// GroupFor returns the group a sender belongs to and whether it is assigned
func (d *Directory) GroupFor(sender string) (string, bool) {
	name, ok := d.byAddress[strings.ToLower(strings.TrimSpace(sender))]
	if !ok {
		return "", false
	}
	return name, true
}

// Names returns the configured group names
func (d *Directory) Names() []string {
	return append([]string(nil), d.names...)
}
