/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package generator

import (
	"context"
	"sync"

	"github.com/friendsincode/grimnir_lineup/internal/lineup"
)

// overlayPlans reads through to a base store and keeps writes in memory.
type overlayPlans struct {
	base  PlanStore
	mu    sync.Mutex
	plans map[string]*lineup.LineupPlan
}

func newOverlayPlans(base PlanStore) *overlayPlans {
	return &overlayPlans{base: base, plans: make(map[string]*lineup.LineupPlan)}
}

func (o *overlayPlans) GetLineupPlan(ctx context.Context, date string) (*lineup.LineupPlan, error) {
	o.mu.Lock()
	p, ok := o.plans[date]
	o.mu.Unlock()
	if ok {
		return p, nil
	}
	return o.base.GetLineupPlan(ctx, date)
}

func (o *overlayPlans) SaveLineupPlan(_ context.Context, plan *lineup.LineupPlan) error {
	o.mu.Lock()
	o.plans[plan.LineupID] = plan
	o.mu.Unlock()
	return nil
}
