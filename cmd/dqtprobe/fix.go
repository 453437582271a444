package main

import (
	"context"

	"github.com/loykin/dqtprobe/internal/common"
	"github.com/loykin/dqtprobe/internal/mgmt"
)

// fixer is the slice of the management client the workaround needs.
type fixer interface {
	ListVhosts(ctx context.Context) ([]mgmt.Vhost, error)
	SetDefaultQueueType(ctx context.Context, vhost, value string) error
}

// executeFix applies the known workaround across the whole broker: every
// vhost whose default_queue_type holds the literal string "undefined" is
// rewritten to "classic", which restores redeclaration of existing queues.
// It returns the number of vhosts fixed.
func executeFix(ctx context.Context, admin fixer) (int, error) {
	logger := common.GetLogger().WithComponent("fix")

	vhosts, err := admin.ListVhosts(ctx)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, vh := range vhosts {
		if vh.DefaultQueueType != "undefined" {
			logger.Debug("vhost ok", "vhost", vh.Name, "default_queue_type", vh.DefaultQueueType)
			continue
		}
		logger.Warn("vhost has literal undefined default_queue_type", "vhost", vh.Name)
		if err := admin.SetDefaultQueueType(ctx, vh.Name, "classic"); err != nil {
			return fixed, err
		}
		logger.Info("vhost fixed", "vhost", vh.Name, "default_queue_type", "classic")
		fixed++
	}

	logger.Info("fix finished", "vhosts", len(vhosts), "fixed", fixed)
	return fixed, nil
}
