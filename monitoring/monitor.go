// Package monitoring turns a running simulation into a small HTTP server
// that exposes the engine clock and the process-variable database for
// inspection and external writes.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/beamline/pointingsim/pv"
	"github.com/beamline/pointingsim/sim"
)

// Monitor can turn a simulation into a server and allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	engine     sim.Engine
	registry   *pv.Registry
	portNumber int
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e sim.Engine) {
	m.engine = e
}

// RegisterRegistry registers the process-variable database to serve.
func (m *Monitor) RegisterRegistry(r *pv.Registry) {
	m.registry = r
}

// Router builds the HTTP router of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/pvs", m.listPVs)
	r.HandleFunc("/api/pv/{name}/detail", m.pvDetail)
	r.HandleFunc("/api/pv/{name}", m.readPV).Methods("GET")
	r.HandleFunc("/api/pv/{name}", m.writePV).Methods("PUT")
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.HandleFunc("/", m.index)

	return r
}

// StartServer starts the monitor as a web server with a custom port if
// wanted. It returns the port the server listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	fmt.Fprintf(
		os.Stderr,
		"Monitoring simulation with http://localhost:%d\n",
		port)

	go func() {
		err = http.Serve(listener, m.Router())
		dieOnErr(err)
	}()

	return port
}

func (m *Monitor) index(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "pointingsim serving %d process variables\n",
		len(m.registry.Variables()))
	fmt.Fprint(w, "\nEndpoints:\n")
	for _, e := range []string{
		"/api/now", "/api/pause", "/api/continue", "/api/pvs",
		"/api/pv/{name}", "/api/pv/{name}/detail",
		"/api/resource", "/api/profile",
	} {
		fmt.Fprintf(w, "  %s\n", e)
	}
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
	fmt.Fprintf(w, "{\"now\":%.10f}", now)
}

type pvRsp struct {
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	Doc         string `json:"doc,omitempty"`
	ReadOnly    bool   `json:"read_only"`
	Initialized bool   `json:"initialized"`
}

func (m *Monitor) listPVs(w http.ResponseWriter, _ *http.Request) {
	vars := m.registry.Variables()
	rsp := make([]pvRsp, 0, len(vars))
	for _, v := range vars {
		rsp = append(rsp, pvRsp{
			Path:        v.Path(),
			Kind:        v.Kind().String(),
			Doc:         v.Doc(),
			ReadOnly:    v.ReadOnly(),
			Initialized: v.Initialized(),
		})
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type valueRsp struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

func (m *Monitor) readPV(w http.ResponseWriter, r *http.Request) {
	v := m.findVariableOr404(w, mux.Vars(r)["name"])
	if v == nil {
		return
	}

	rsp := valueRsp{
		Path:  v.Path(),
		Kind:  v.Kind().String(),
		Value: v.Get().Interface(),
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type writeReq struct {
	Value any `json:"value"`
}

func (m *Monitor) writePV(w http.ResponseWriter, r *http.Request) {
	v := m.findVariableOr404(w, mux.Vars(r)["name"])
	if v == nil {
		return
	}

	req := writeReq{}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	val, err := valueFromJSON(v.Kind(), req.Value)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	accepted, err := m.registry.Write(v.Path(), val)
	if err != nil {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	rsp := valueRsp{
		Path:  v.Path(),
		Kind:  v.Kind().String(),
		Value: accepted.Interface(),
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

// valueFromJSON converts a decoded JSON value into a database value of the
// given kind. JSON numbers arrive as float64.
func valueFromJSON(kind pv.Kind, raw any) (pv.Value, error) {
	switch kind {
	case pv.Int:
		f, ok := raw.(float64)
		if !ok {
			return pv.Value{}, fmt.Errorf("expected a number, got %T", raw)
		}
		return pv.NewInt(int64(f)), nil
	case pv.Float:
		f, ok := raw.(float64)
		if !ok {
			return pv.Value{}, fmt.Errorf("expected a number, got %T", raw)
		}
		return pv.NewFloat(f), nil
	case pv.IntArray:
		fs, err := floatSlice(raw)
		if err != nil {
			return pv.Value{}, err
		}
		is := make([]int64, len(fs))
		for i, f := range fs {
			is[i] = int64(f)
		}
		return pv.NewInts(is), nil
	case pv.FloatArray:
		fs, err := floatSlice(raw)
		if err != nil {
			return pv.Value{}, err
		}
		return pv.NewFloats(fs), nil
	default:
		return pv.Value{}, fmt.Errorf("unsupported kind %s", kind)
	}
}

func floatSlice(raw any) ([]float64, error) {
	elems, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array, got %T", raw)
	}

	fs := make([]float64, len(elems))
	for i, e := range elems {
		f, ok := e.(float64)
		if !ok {
			return nil, fmt.Errorf("expected a number, got %T", e)
		}
		fs[i] = f
	}

	return fs, nil
}

func (m *Monitor) pvDetail(w http.ResponseWriter, r *http.Request) {
	v := m.findVariableOr404(w, mux.Vars(r)["name"])
	if v == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(v)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) findVariableOr404(
	w http.ResponseWriter,
	name string,
) *pv.Variable {
	v, found := m.registry.Lookup(name)
	if !found {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Variable not found"))
		dieOnErr(err)
		return nil
	}

	return v
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

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
