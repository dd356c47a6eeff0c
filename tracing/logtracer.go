package tracing

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/sim/hooking"
)

// LogTracer writes page table events to a zap logger. Faults are logged at
// info level, everything else at debug level.
type LogTracer struct {
	logger *zap.Logger
}

// NewLogTracer creates a LogTracer.
func NewLogTracer(logger *zap.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

func hex(name string, v uint64) zap.Field {
	return zap.String(name, fmt.Sprintf("0x%x", v))
}

// Func logs the event.
func (t *LogTracer) Func(ctx hooking.HookCtx) {
	table := zap.String("table", domainName(ctx.Domain))

	switch item := ctx.Item.(type) {
	case vm.PageFault:
		t.logger.Info("page fault",
			table,
			hex("vaddr", uint64(item.VAddr)),
			zap.Stringer("kind", item.Kind),
			zap.Bool("write", item.Write),
			zap.Int("attempt", item.Attempt),
		)
	case vm.MappingEvent:
		t.logger.Debug(ctx.Pos.Name,
			table,
			hex("vaddr", uint64(item.VAddr)),
			hex("paddr", uint64(item.PAddr)),
		)
	case vm.AccessEvent:
		t.logger.Debug(ctx.Pos.Name,
			table,
			hex("vaddr", uint64(item.VAddr)),
			hex("paddr", uint64(item.PAddr)),
			zap.Uint8("data", item.Data),
		)
	}
}
