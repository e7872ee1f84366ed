// Package monitoring turns a running simulation into an HTTP server that can
// pause it and inspect its devices.
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
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/juju/loggo"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/eeesim/p2p/coalescing"
	"github.com/sarchlab/eeesim/p2p/measurement"
	"github.com/sarchlab/eeesim/p2p/txqueue"
	"github.com/sarchlab/eeesim/sim/id"
	"github.com/sarchlab/eeesim/sim/timing"
)

var logger = loggo.GetLogger("eeesim.monitoring")

// Device is what the monitor shows of a coalescing device.
type Device interface {
	Name() string
	State() coalescing.State
	Cycle() uint64
	Queue() txqueue.Queue
	Counters() measurement.Counters
}

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	engine      timing.Engine
	devices     []Device
	portNumber  int
	openBrowser bool
	idGenerator id.IDGenerator
	registry    *prometheus.Registry

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		idGenerator: id.NewSequentialIDGenerator(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithOpenBrowser makes StartServer open the device list in a browser.
func (m *Monitor) WithOpenBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e timing.Engine) {
	m.engine = e
}

// RegisterDevice registers a device to be monitored.
func (m *Monitor) RegisterDevice(d Device) {
	for _, existing := range m.devices {
		if existing.Name() == d.Name() {
			log.Panicf("device %s registered twice", d.Name())
		}
	}

	m.devices = append(m.devices, d)
}

// Devices returns the registered devices.
func (m *Monitor) Devices() []Device {
	return m.devices
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.idGenerator.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the progress list.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Registry returns the Prometheus registry that backs /metrics.
func (m *Monitor) Registry() *prometheus.Registry {
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(newDeviceCollector(m))
	}

	return m.registry
}

// Handler returns the HTTP handler that serves the monitoring API.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/devices", m.listDevices)
	r.HandleFunc("/api/device/{name}", m.listDeviceDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/queues", m.listQueues)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":" + strconv.Itoa(m.portNumber)

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	url := fmt.Sprintf("http://localhost:%d/api/devices", port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	handler := m.Handler()
	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			logger.Warningf("cannot open browser: %v", err)
		}
	}

	return port
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := m.engine.CurrentTime()
	fmt.Fprintf(w, "{\"now\":%.12f}", now.Seconds())
}

type deviceRsp struct {
	Name              string  `json:"name"`
	State             string  `json:"state"`
	Cycle             uint64  `json:"cycle"`
	QueueFrames       int     `json:"queue_frames"`
	QueueBytes        int     `json:"queue_bytes"`
	QueueCapacity     int     `json:"queue_capacity"`
	Frames            uint64  `json:"frames"`
	Bytes             uint64  `json:"bytes"`
	LowPowerIntervals uint64  `json:"low_power_intervals"`
	LowPowerSeconds   float64 `json:"low_power_seconds"`
}

func summarize(d Device) deviceRsp {
	c := d.Counters()
	q := d.Queue()

	return deviceRsp{
		Name:              d.Name(),
		State:             d.State().String(),
		Cycle:             d.Cycle(),
		QueueFrames:       q.Len(),
		QueueBytes:        q.Bytes(),
		QueueCapacity:     q.Capacity(),
		Frames:            c.Frames,
		Bytes:             c.Bytes,
		LowPowerIntervals: c.LowPowerIntervals,
		LowPowerSeconds:   c.LowPowerTime.Seconds(),
	}
}

func (m *Monitor) listDevices(w http.ResponseWriter, _ *http.Request) {
	rsp := make([]deviceRsp, 0, len(m.devices))
	for _, d := range m.devices {
		rsp = append(rsp, summarize(d))
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listDeviceDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	device := m.findDeviceOr404(w, name)
	if device == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(device)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	DeviceName string `json:"device_name,omitempty"`
	FieldName  string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	device := m.findDeviceOr404(w, req.DeviceName)
	if device == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(device)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

type queueRsp struct {
	Queue string `json:"queue"`
	Level int    `json:"level"`
	Cap   int    `json:"cap"`
}

// listQueues reports the fullest transmit queues first.
func (m *Monitor) listQueues(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := queuesParseParams(r)
	if err != nil {
		http.Error(w, "Error: "+err.Error(), http.StatusBadRequest)
		return
	}

	queues := m.sortAndSelectQueues(sortMethod, limit, offset)

	rsp := make([]queueRsp, 0, len(queues))
	for _, q := range queues {
		rsp = append(rsp, queueRsp{
			Queue: q.Name(),
			Level: q.Bytes(),
			Cap:   q.Capacity(),
		})
	}

	writeJSON(w, rsp)
}

func queuesParseParams(
	r *http.Request,
) (sortMethod string, limit, offset int, err error) {
	sortMethod = r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "percent"
	}

	if sortMethod != "level" && sortMethod != "percent" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method: %s. Allowed values are `level` and `percent`",
			sortMethod)
	}

	limit, err = intParam(r, "limit")
	if err != nil {
		return "", 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return "", 0, 0, err
	}

	if limit < 0 || offset < 0 {
		return "", 0, 0, errors.New("limit and offset must not be negative")
	}

	return sortMethod, limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}

	return strconv.Atoi(s)
}

func queuePercent(q txqueue.Queue) float64 {
	return float64(q.Bytes()) / float64(q.Capacity())
}

func (m *Monitor) sortAndSelectQueues(
	sortMethod string,
	limit, offset int,
) []txqueue.Queue {
	queues := make([]txqueue.Queue, 0, len(m.devices))
	for _, d := range m.devices {
		queues = append(queues, d.Queue())
	}

	byLevel := func(i, j int) bool {
		if queues[i].Bytes() != queues[j].Bytes() {
			return queues[i].Bytes() > queues[j].Bytes()
		}

		return queuePercent(queues[i]) > queuePercent(queues[j])
	}

	byPercent := func(i, j int) bool {
		pi, pj := queuePercent(queues[i]), queuePercent(queues[j])
		if pi != pj {
			return pi > pj
		}

		return queues[i].Bytes() > queues[j].Bytes()
	}

	if sortMethod == "level" {
		sort.SliceStable(queues, byLevel)
	} else {
		sort.SliceStable(queues, byPercent)
	}

	if offset > len(queues) {
		offset = len(queues)
	}

	end := len(queues)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return queues[offset:end]
}

func (m *Monitor) findDeviceOr404(w http.ResponseWriter, name string) Device {
	for _, d := range m.devices {
		if d.Name() == name {
			return d
		}
	}

	http.Error(w, "Device not found", http.StatusNotFound)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	rsp := make([]ProgressSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		rsp = append(rsp, b.Snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, rsp)
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
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

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
