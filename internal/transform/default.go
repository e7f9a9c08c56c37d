package transform

import (
	"github.com/hpungsan/spans/internal/boolean"
	"github.com/hpungsan/spans/internal/config"
)

// Built-in transform names registered by NewDefaultDispatcher.
const (
	GroupName = "group"
	NotName   = "not"
)

// NewDefaultDispatcher returns a dispatcher with the built-in transforms:
// "group" using the configured spacing and "not" over the default domain.
func NewDefaultDispatcher(cfg *config.Config) *Dispatcher {
	spacing := DefaultMaxSpacing
	if cfg != nil && cfg.GroupMaxSpacing > 0 {
		spacing = cfg.GroupMaxSpacing
	}

	d := NewDispatcher()
	// Fresh dispatcher with distinct names; Register cannot fail here.
	_ = d.Register(GroupName, &Group{MaxSpacing: spacing})
	_ = d.Register(NotName, &Boolean{Label: NotName, Params: boolean.Params{Operation: boolean.NOT}})
	return d
}
