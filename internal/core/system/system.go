package system

import (
	"time"

	"github.com/l1jgo/ecs/internal/core/ecs"
)

// Ticker is advanced one frame at a time. *ecs.World implements it.
type Ticker interface {
	Tick(dt time.Duration) ecs.TickStats
}

// Hook runs after every frame with that frame's stats, in registration order.
type Hook func(stats ecs.TickStats)
