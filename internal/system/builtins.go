package system

import "github.com/l1jgo/ecs/internal/core/ecs"

// Builtins maps manifest builtin names to update functions bound to w.
func Builtins(w *ecs.World) map[string]ecs.UpdateFunc {
	return map[string]ecs.UpdateFunc{
		"movement": Movement(w),
		"lifetime": Expire(w),
	}
}

// RegisterDefaults registers the built-in components (if missing) and
// systems with their standard queries.
func RegisterDefaults(w *ecs.World) error {
	defaults := map[string]map[string]any{
		Position: {"x": 0.0, "y": 0.0},
		Velocity: {"x": 0.0, "y": 0.0},
		Frozen:   {},
		Lifetime: {"remaining": 0.0},
	}
	for _, name := range []string{Position, Velocity, Frozen, Lifetime} {
		if w.Components().Registered(name) {
			continue
		}
		if err := w.RegisterComponent(name, defaults[name]); err != nil {
			return err
		}
	}
	if err := w.RegisterSystem("Movement", MovementQuery, Movement(w)); err != nil {
		return err
	}
	return w.RegisterSystem("Lifetime", LifetimeQuery, Expire(w))
}
