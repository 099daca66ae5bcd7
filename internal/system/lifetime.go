package system

import (
	"time"

	"github.com/l1jgo/ecs/internal/core/ecs"
)

var LifetimeQuery = ecs.Names(Lifetime)

// Expire counts down the Lifetime component's "remaining" seconds and
// destroys the entity once it runs out. Destruction lands on the next tick.
func Expire(w *ecs.World) ecs.UpdateFunc {
	return func(entities *ecs.EntitySet, dt, _ time.Duration) {
		entities.Each(func(e ecs.Entity) bool {
			lt := w.GetComponent(e, Lifetime)
			if lt == nil {
				return true
			}
			left := lt.Float("remaining") - dt.Seconds()
			lt.Set("remaining", left)
			if left <= 0 {
				_ = w.DestroyEntity(e)
			}
			return true
		})
	}
}
