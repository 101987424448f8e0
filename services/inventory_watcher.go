package services

import (
	"context"
	"time"

	"hostsboard/common"
)

// StartInventoryWatcher reloads the inventory every interval using the
// current default toggle. A zero interval disables it; reloads then only
// happen at startup and on demand.
func StartInventoryWatcher(ctx context.Context, agg *Aggregator, settings *Settings, interval time.Duration) {
	if interval <= 0 {
		common.InfoLog("Inventory watcher disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				common.InfoLog("Inventory watcher stopped")
				return
			case <-ticker.C:
				id := agg.Reload(settings.Options(nil))
				common.DebugLog("Inventory watcher: periodic reload cycle=%s", id)
			}
		}
	}()

	common.InfoLog("Inventory watcher started (reloading every %s)", interval)
}
