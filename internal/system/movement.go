package system

import (
	"time"

	"github.com/l1jgo/ecs/internal/core/ecs"
)

// Component names used by the built-in systems.
const (
	Position = "Position"
	Velocity = "Velocity"
	Frozen   = "Frozen"
	Lifetime = "Lifetime"
)

// MovementQuery selects every moving entity that is not frozen.
var MovementQuery = ecs.NewQuery(ecs.Require(Position), ecs.Require(Velocity), ecs.Exclude(Frozen))

// Movement integrates Position by Velocity. Velocity is in units per second.
func Movement(w *ecs.World) ecs.UpdateFunc {
	return func(entities *ecs.EntitySet, dt, _ time.Duration) {
		secs := dt.Seconds()
		entities.Each(func(e ecs.Entity) bool {
			pos := w.GetComponent(e, Position)
			vel := w.GetComponent(e, Velocity)
			if pos == nil || vel == nil {
				return true
			}
			pos.Set("x", pos.Float("x")+vel.Float("x")*secs)
			pos.Set("y", pos.Float("y")+vel.Float("y")*secs)
			return true
		})
	}
}
