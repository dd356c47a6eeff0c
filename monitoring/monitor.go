// Package monitoring serves the state of page tables over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
	"go.uber.org/zap"

	"github.com/sarchlab/pagesim/mem/vm/mockpt"
	"github.com/sarchlab/pagesim/monitoring/web"
)

// maxStateDepth reaches the fields of each entry of a table state.
const maxStateDepth = 3

// A StateSource is a table that can report a snapshot of itself.
type StateSource interface {
	Name() string
	State() mockpt.State
}

// Monitor turns a set of page tables into a web server.
type Monitor struct {
	portNumber      int
	profileDuration time.Duration
	logger          *zap.Logger
	gatherer        prometheus.Gatherer

	tablesLock sync.Mutex
	tables     []StateSource

	server *http.Server
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
		logger:          zap.NewNop(),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random port when the server starts.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	m.portNumber = portNumber
	return m
}

// WithLogger sets the logger that reports the server lifecycle.
func (m *Monitor) WithLogger(logger *zap.Logger) *Monitor {
	m.logger = logger
	return m
}

// WithMetrics exposes the metrics of the gatherer at /metrics.
func (m *Monitor) WithMetrics(gatherer prometheus.Gatherer) *Monitor {
	m.gatherer = gatherer
	return m
}

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// RegisterTable adds a table to be monitored. Tables are looked up by name.
func (m *Monitor) RegisterTable(table StateSource) {
	m.tablesLock.Lock()
	defer m.tablesLock.Unlock()

	for _, t := range m.tables {
		if t.Name() == table.Name() {
			panic(fmt.Sprintf("table %s is already registered", table.Name()))
		}
	}

	m.tables = append(m.tables, table)
}

// Handler returns the router that serves the monitor.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/tables", m.listTables)
	r.HandleFunc("/api/table/{name}", m.tableDetails)
	r.HandleFunc("/api/table/{name}/entry/{vpn}", m.entryDetails)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	if m.gatherer != nil {
		r.Handle("/metrics",
			promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	}

	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// monitor.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	} else if m.portNumber != 0 {
		m.logger.Warn("port number is not allowed, using a random port",
			zap.Int("port", m.portNumber))
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", fmt.Errorf("listening on %s: %w", actualPort, err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			dieOnErr(err)
		}
	}()

	m.logger.Info("monitoring page tables", zap.String("url", url))

	return url, nil
}

// StopServer shuts the server down.
func (m *Monitor) StopServer() error {
	if m.server == nil {
		return nil
	}

	return m.server.Close()
}

// OpenBrowser opens the URL with the default browser of the system.
func (m *Monitor) OpenBrowser(url string) error {
	return browser.OpenURL(url)
}

func (m *Monitor) listTables(w http.ResponseWriter, _ *http.Request) {
	m.tablesLock.Lock()
	names := make([]string, 0, len(m.tables))
	for _, t := range m.tables {
		names = append(names, t.Name())
	}
	m.tablesLock.Unlock()

	writeJSON(w, names)
}

func (m *Monitor) tableDetails(w http.ResponseWriter, r *http.Request) {
	table := m.findTableOr404(w, mux.Vars(r)["name"])
	if table == nil {
		return
	}

	state := table.State()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&state)
	serializer.SetMaxDepth(maxStateDepth)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) entryDetails(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	table := m.findTableOr404(w, vars["name"])
	if table == nil {
		return
	}

	vpn, err := strconv.ParseUint(vars["vpn"], 0, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: bad page number %q", vars["vpn"])
		return
	}

	entry, found := table.State().Entry(vpn)
	if !found {
		w.WriteHeader(http.StatusNotFound)
		_, err = w.Write([]byte("Entry not found"))
		dieOnErr(err)
		return
	}

	writeJSON(w, entry)
}

func (m *Monitor) findTableOr404(
	w http.ResponseWriter,
	name string,
) StateSource {
	m.tablesLock.Lock()
	defer m.tablesLock.Unlock()

	for _, t := range m.tables {
		if t.Name() == name {
			return t
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Table not found"))
	dieOnErr(err)

	return nil
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
