package tracker

import (
	"context"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"pricewatch/internal/notifier"
	logx "pricewatch/pkg/logx"
)

// summaryParser accepts standard 5-field cron specs plus descriptors like
// @daily.
var summaryParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSummarySchedule validates a summary_schedule value.
func ParseSummarySchedule(spec string) (cron.Schedule, error) {
	return summaryParser.Parse(spec)
}

// summaryLoop posts a tracked-items digest at each activation of the
// configured cron schedule. The schedule is re-read every cycle, so
// enabling, disabling or editing it takes effect without a restart.
func (t *Tracker) summaryLoop(stop chan struct{}) {
	const recheck = time.Minute

	for {
		spec := t.store.LoadConfig(context.Background()).SummarySchedule
		if spec == "" {
			select {
			case <-stop:
				return
			case <-time.After(recheck):
			}
			continue
		}

		sched, err := ParseSummarySchedule(spec)
		if err != nil {
			// UpdateSettings validates the spec; this covers documents
			// edited out-of-band.
			t.log.Warn("invalid summary schedule", logx.String("spec", spec), logx.Err(err))
			select {
			case <-stop:
				return
			case <-time.After(recheck):
			}
			continue
		}

		next := sched.Next(time.Now())
		for {
			wait := time.Until(next)
			if wait <= 0 {
				t.sendSummary(context.Background())
				break
			}
			if wait > recheck {
				wait = recheck // wake early so schedule edits are noticed
			}
			select {
			case <-stop:
				return
			case <-time.After(wait):
			}
			if t.store.LoadConfig(context.Background()).SummarySchedule != spec {
				break
			}
		}
	}
}

func (t *Tracker) sendSummary(ctx context.Context) {
	cfg := t.store.LoadConfig(ctx)
	state := t.store.LoadState(ctx)

	items := make([]notifier.SummaryItem, 0, len(cfg.SKUs))
	for sku, item := range cfg.SKUs {
		if !item.Enabled {
			continue
		}
		si := notifier.SummaryItem{SKU: sku, Name: item.Name}
		if rec, ok := state[sku]; ok {
			si.Price = rec.Price
			si.Available = rec.Available
			if rec.Name != "" {
				si.Name = rec.Name
			}
		}
		items = append(items, si)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SKU < items[j].SKU })

	if err := t.alert.Summary(ctx, items); err != nil {
		t.log.Error("summary delivery failed", logx.Err(err))
	}
}
