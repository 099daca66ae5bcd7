package system

import (
	"context"
	"time"

	"github.com/l1jgo/ecs/internal/core/ecs"
	"github.com/l1jgo/ecs/internal/persist"
	"go.uber.org/zap"
)

// StatsSink stores batches of tick summaries. persist.TickStatsRepo is the
// production implementation.
type StatsSink interface {
	InsertBatch(ctx context.Context, world string, rows []persist.TickRow) error
	Prune(ctx context.Context, world string, cutoff time.Time) (int64, error)
}

// pruneInterval bounds how often old rows are deleted.
const pruneInterval = time.Hour

// StatsRecorder buffers one row per tick and writes them to a sink every
// interval ticks, in chunks of at most batchSize rows. Sink failures are
// logged and the rows dropped; the simulation never waits on them.
type StatsRecorder struct {
	sink      StatsSink
	world     string
	log       *zap.Logger
	buf       []persist.TickRow
	tickCount int
	interval  int
	batchSize int
	written   int
	dropped   int
	pruned    int64
	retention time.Duration
	lastPrune time.Time
	now       func() time.Time
}

func NewStatsRecorder(sink StatsSink, world string, intervalTicks, batchSize int, log *zap.Logger) *StatsRecorder {
	if log == nil {
		log = zap.NewNop()
	}
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	if batchSize <= 0 {
		batchSize = intervalTicks
	}
	return &StatsRecorder{
		sink:      sink,
		world:     world,
		log:       log,
		buf:       make([]persist.TickRow, 0, intervalTicks),
		interval:  intervalTicks,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// SetRetention makes Flush delete rows older than d, at most once per hour.
// Zero keeps every row.
func (s *StatsRecorder) SetRetention(d time.Duration) {
	s.retention = d
}

// Record is a Runner hook.
func (s *StatsRecorder) Record(st ecs.TickStats) {
	s.buf = append(s.buf, RowFromStats(st, s.now()))
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Flush()
}

// Flush writes every buffered row now. Called for graceful shutdown.
func (s *StatsRecorder) Flush() {
	rows := s.buf
	for len(rows) > 0 {
		n := min(len(rows), s.batchSize)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.sink.InsertBatch(ctx, s.world, rows[:n])
		cancel()

		if err != nil {
			s.dropped += n
			s.log.Warn("tick stats write failed",
				zap.String("world", s.world),
				zap.Int("rows", n),
				zap.Error(err))
		} else {
			s.written += n
		}
		rows = rows[n:]
	}
	s.buf = s.buf[:0]
	s.prune()
}

func (s *StatsRecorder) prune() {
	if s.retention <= 0 {
		return
	}
	now := s.now()
	if !s.lastPrune.IsZero() && now.Sub(s.lastPrune) < pruneInterval {
		return
	}
	s.lastPrune = now

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := s.sink.Prune(ctx, s.world, now.Add(-s.retention))
	if err != nil {
		s.log.Warn("tick stats prune failed", zap.String("world", s.world), zap.Error(err))
		return
	}
	s.pruned += n
	if n > 0 {
		s.log.Debug("tick stats pruned", zap.String("world", s.world), zap.Int64("rows", n))
	}
}

// Pending returns the number of buffered rows.
func (s *StatsRecorder) Pending() int { return len(s.buf) }

// Written and Dropped count rows handed to the sink since creation.
func (s *StatsRecorder) Written() int { return s.written }
func (s *StatsRecorder) Dropped() int { return s.dropped }

// Pruned counts rows the sink reported deleted by retention.
func (s *StatsRecorder) Pruned() int64 { return s.pruned }

// RowFromStats converts a frame summary into a persisted row.
func RowFromStats(st ecs.TickStats, at time.Time) persist.TickRow {
	return persist.TickRow{
		Tick:       st.Tick,
		Entities:   st.Entities,
		SystemsRun: st.Run.Systems,
		Skipped:    st.Run.Skipped,
		Failed:     st.Run.Failed,
		Destroyed:  st.Applied.Entities,
		Elapsed:    st.Elapsed,
		RecordedAt: at,
	}
}
