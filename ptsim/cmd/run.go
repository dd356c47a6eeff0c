package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/syifan/goseth"
	"go.uber.org/zap"

	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/logging"
	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mockpt"
	"github.com/sarchlab/pagesim/mem/vm/replay"
	"github.com/sarchlab/pagesim/monitoring"
	"github.com/sarchlab/pagesim/tracing"
)

var errAborted = errors.New("replay aborted")

var runCmd = &cobra.Command{
	Use:   "run TRACE",
	Short: "Replay a trace.",
	Long: "`run TRACE` replays the access trace in the file TRACE and " +
		"prints a summary of the faults and of the final state of the table.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		return runTrace(cmd.Context(), c, args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Int("pages", 16, "Number of virtual pages.")
	runCmd.Flags().Int("physical-pages", 0,
		"Number of physical frames. 0 means as many as virtual pages.")
	runCmd.Flags().Uint64("log2-page-size", 12, "Log2 of the page size.")
	runCmd.Flags().String("handler", "identity",
		"Page fault handler: identity or none.")
	runCmd.Flags().String("record", "",
		"Record the table activity into RECORD.sqlite3.")
	runCmd.Flags().String("emit-trace", "",
		"Write the table activity as a replayable trace into EMIT_TRACE.")
	runCmd.Flags().Bool("dump", false, "Dump the final table state.")
	runCmd.Flags().Bool("monitor", false,
		"Serve the final table state until interrupted.")
	runCmd.Flags().Int("port", 0, "Port of the monitor. 0 picks one.")
	runCmd.Flags().Bool("open-browser", false,
		"Open the monitor in the default browser.")
}

func runTrace(
	ctx context.Context,
	c config,
	tracePath string,
	out io.Writer,
) error {
	logger, err := logging.New(logging.Config{
		Level:  c.LogLevel,
		Format: c.LogFormat,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ops, err := readTrace(tracePath)
	if err != nil {
		logger.Error("cannot read trace", zap.Error(err))
		return err
	}

	pt := buildTable(c)

	counter := tracing.NewFaultCounter()
	pt.AcceptHook(counter)
	pt.AcceptHook(tracing.NewLogTracer(logger))

	reg := prometheus.NewRegistry()
	metrics, err := tracing.NewMetricsTracer(reg)
	if err != nil {
		return err
	}
	pt.AcceptHook(metrics)

	if c.Record != "" {
		recorder, err := openRecorder(c.Record)
		if err != nil {
			return err
		}
		defer func() { _ = recorder.Close() }()

		pt.AcceptHook(tracing.NewDBTracer(recorder))
	}

	var traceWriter *tracing.TraceWriter
	if c.EmitTrace != "" {
		f, err := os.Create(c.EmitTrace)
		if err != nil {
			return err
		}
		defer f.Close()

		traceWriter = tracing.NewTraceWriter(f)
		pt.AcceptHook(traceWriter)
	}

	logger.Info("replaying trace",
		zap.String("trace", tracePath),
		zap.Int("ops", len(ops)),
		zap.Int("pages", pt.NumPages()),
		zap.Uint64("page_size", pt.PageSize()))

	result, replayErr := replayOps(pt, ops)
	if errors.Is(replayErr, errAborted) {
		logger.Error("replay aborted", zap.Error(replayErr))
		return replayErr
	}

	if traceWriter != nil && traceWriter.Err() != nil {
		return fmt.Errorf("writing %s: %w", c.EmitTrace, traceWriter.Err())
	}

	state := pt.State()
	printSummary(out, pt, result, counter)

	if c.Dump {
		if err := dumpState(out, &state); err != nil {
			return err
		}
	}

	if replayErr != nil {
		logger.Error("trace expectations not met",
			zap.Int("mismatches", result.Mismatches),
			zap.Error(replayErr))
	}

	if c.Monitor {
		if err := serveMonitor(ctx, c, state, reg, logger); err != nil {
			return err
		}
	}

	return replayErr
}

func readTrace(path string) ([]replay.Op, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ops, err := replay.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return ops, nil
}

func buildTable(c config) *mockpt.MockPageTable {
	b := mockpt.MakeBuilder().
		WithNumPages(c.NumPages).
		WithLog2PageSize(c.Log2PageSize)

	if c.NumPhysicalPages > 0 {
		b = b.WithNumPhysicalPages(c.NumPhysicalPages)
	}

	if c.Handler == "identity" {
		b = b.WithHandler(mockpt.IdentityHandler)
	}

	return b.Build("PT")
}

func openRecorder(path string) (datarecording.DataRecorder, error) {
	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("recording file %s already exists", filename)
	}

	return datarecording.New(path), nil
}

// replayOps turns a contract violation of the table into an error, so that
// the command can report it and exit.
func replayOps(
	pt *mockpt.MockPageTable,
	ops []replay.Op,
) (result replay.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errAborted, r)
		}
	}()

	return replay.Run[*mockpt.MockEntry](pt, ops)
}

func printSummary(
	out io.Writer,
	pt *mockpt.MockPageTable,
	result replay.Result,
	counter *tracing.FaultCounter,
) {
	pages := pt.VirtualPages()
	dirty := vm.DirtyPages[*mockpt.MockEntry](pt, pages)
	workingSet := vm.SampleAccessed[*mockpt.MockEntry](pt, pages)

	fmt.Fprintf(out, "ops:         %d\n", result.Ops())
	fmt.Fprintf(out, "reads:       %d\n", result.Reads)
	fmt.Fprintf(out, "writes:      %d\n", result.Writes)
	fmt.Fprintf(out, "maps:        %d\n", result.Maps)
	fmt.Fprintf(out, "unmaps:      %d\n", result.Unmaps)
	fmt.Fprintf(out, "faults:      %d (%s %d, %s %d)\n",
		counter.Total(),
		vm.FaultNotPresent, counter.Count(vm.FaultNotPresent),
		vm.FaultProtection, counter.Count(vm.FaultProtection))
	fmt.Fprintf(out, "working set: %d pages\n", len(workingSet))
	fmt.Fprintf(out, "dirty:       %d pages\n", len(dirty))
	fmt.Fprintf(out, "mismatches:  %d\n", result.Mismatches)
}

func dumpState(out io.Writer, state *mockpt.State) error {
	serializer := goseth.NewSerializer()
	serializer.SetRoot(state)
	serializer.SetMaxDepth(3)

	if err := serializer.Serialize(out); err != nil {
		return fmt.Errorf("dumping table state: %w", err)
	}

	fmt.Fprintln(out)

	return nil
}

func serveMonitor(
	ctx context.Context,
	c config,
	state mockpt.State,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) error {
	m := monitoring.NewMonitor().
		WithPortNumber(c.Port).
		WithLogger(logger).
		WithMetrics(gatherer)
	m.RegisterTable(monitoring.Snapshot(state))

	url, err := m.StartServer()
	if err != nil {
		return err
	}

	if c.OpenBrowser {
		if err := m.OpenBrowser(url); err != nil {
			logger.Warn("cannot open browser", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	return m.StopServer()
}
