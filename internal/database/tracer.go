package database

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/deppfellow/nowcasting-api/internal/metrics"
)

type queryStartKey struct{}

type queryStart struct {
	at  time.Time
	sql string
}

// QueryTracer records query latency and logs queries slower than a
// threshold. A zero threshold keeps the metrics and disables the logging.
type QueryTracer struct {
	log       *zerolog.Logger
	threshold time.Duration
	now       func() time.Time
}

// NewQueryTracer returns a pgx.QueryTracer reporting to logger.
func NewQueryTracer(logger *zerolog.Logger, threshold time.Duration) *QueryTracer {
	return &QueryTracer{
		log:       logger,
		threshold: threshold,
		now:       time.Now,
	}
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: t.now(), sql: data.SQL})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}

	elapsed := t.now().Sub(start.at)

	status := "ok"
	if data.Err != nil {
		status = "error"
	}
	metrics.DBQueryDuration.WithLabelValues(status).Observe(elapsed.Seconds())

	if t.threshold > 0 && elapsed > t.threshold {
		t.log.Warn().
			Dur("duration", elapsed).
			Dur("threshold", t.threshold).
			Str("sql", strings.Join(strings.Fields(start.sql), " ")).
			Str("command_tag", data.CommandTag.String()).
			Msg("slow query")
	}
}
