package reviews

import (
	"context"
	"time"
)

// termination decides when the feed is done. It is chosen once when the
// collector is built: knownTotal when the place reports its review count,
// unknownTotal otherwise.
type termination interface {
	// reached reports whether enough reviews have been collected.
	reached(collected int) bool
	// awaitMore runs after new content was requested. It returns false when
	// the feed should be treated as exhausted.
	awaitMore(ctx context.Context, c *Collector, rendered int) bool
	reason() string
	sealed()
}

type knownTotal struct {
	total int
}

func (k knownTotal) reached(collected int) bool {
	return collected >= k.total
}

func (knownTotal) awaitMore(context.Context, *Collector, int) bool {
	return true
}

func (knownTotal) reason() string { return ReasonTarget }
func (knownTotal) sealed() {}

type unknownTotal struct {
	timeout time.Duration
}

func (unknownTotal) reached(int) bool {
	return false
}

func (u unknownTotal) awaitMore(ctx context.Context, c *Collector, rendered int) bool {
	return c.driver.WaitUntil(ctx, func() bool {
		return c.renderedCount(ctx) > rendered
	}, u.timeout)
}

func (unknownTotal) reason() string { return ReasonExhausted }
func (unknownTotal) sealed() {}

func newTermination(expectedTotal int, growthTimeout time.Duration) termination {
	if expectedTotal > 0 {
		return knownTotal{total: expectedTotal}
	}
	return unknownTotal{timeout: growthTimeout}
}
