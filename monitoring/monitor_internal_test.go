package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/beamline/pointingsim/pv"
	"github.com/beamline/pointingsim/sim"
)

var _ = Describe("Monitor", func() {
	var (
		m        *Monitor
		registry *pv.Registry
		server   *httptest.Server
	)

	BeforeEach(func() {
		registry = pv.NewRegistry("LAS:TEST:")
		root := registry.Root()
		root.ReadOnlyFloat("current", 500.0).WithDoc("Beam current")
		nf := root.Group("NF")
		nf.Float("NOISE", 5.0)
		nf.IntArray("shape", []int64{2, 3})

		m = NewMonitor()
		m.RegisterEngine(sim.NewSerialEngine())
		m.RegisterRegistry(registry)

		server = httptest.NewServer(m.Router())
	})

	AfterEach(func() {
		server.Close()
	})

	get := func(path string) (*http.Response, map[string]any) {
		rsp, err := http.Get(server.URL + path)
		Expect(err).To(BeNil())

		body := map[string]any{}
		if rsp.StatusCode == http.StatusOK {
			err = json.NewDecoder(rsp.Body).Decode(&body)
			Expect(err).To(BeNil())
		}
		rsp.Body.Close()

		return rsp, body
	}

	put := func(path, body string) (*http.Response, map[string]any) {
		req, err := http.NewRequest(
			http.MethodPut,
			server.URL+path,
			strings.NewReader(body))
		Expect(err).To(BeNil())

		rsp, err := http.DefaultClient.Do(req)
		Expect(err).To(BeNil())

		decoded := map[string]any{}
		if rsp.StatusCode == http.StatusOK {
			err = json.NewDecoder(rsp.Body).Decode(&decoded)
			Expect(err).To(BeNil())
		}
		rsp.Body.Close()

		return rsp, decoded
	}

	It("should report the current time", func() {
		rsp, body := get("/api/now")

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["now"]).To(Equal(0.0))
	})

	It("should list all variables", func() {
		rsp, err := http.Get(server.URL + "/api/pvs")
		Expect(err).To(BeNil())
		defer rsp.Body.Close()

		var list []pvRsp
		err = json.NewDecoder(rsp.Body).Decode(&list)
		Expect(err).To(BeNil())

		Expect(list).To(HaveLen(3))
		Expect(list[0].Path).To(Equal("LAS:TEST:current"))
		Expect(list[0].ReadOnly).To(BeTrue())
		Expect(list[0].Doc).To(Equal("Beam current"))
	})

	It("should read a variable", func() {
		rsp, body := get("/api/pv/LAS:TEST:NF:NOISE")

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["path"]).To(Equal("LAS:TEST:NF:NOISE"))
		Expect(body["kind"]).To(Equal("float"))
		Expect(body["value"]).To(Equal(5.0))
	})

	It("should return 404 for an unknown variable", func() {
		rsp, _ := get("/api/pv/LAS:TEST:NF:BOGUS")

		Expect(rsp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("should write a variable", func() {
		rsp, body := put(
			"/api/pv/LAS:TEST:NF:NOISE", `{"value": 2.5}`)

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		Expect(body["value"]).To(Equal(2.5))

		v, _ := registry.Lookup("LAS:TEST:NF:NOISE")
		Expect(v.Float()).To(Equal(2.5))
	})

	It("should write an array variable", func() {
		rsp, _ := put(
			"/api/pv/LAS:TEST:NF:shape", `{"value": [4, 5]}`)

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))

		v, _ := registry.Lookup("LAS:TEST:NF:shape")
		Expect(v.Get().Ints()).To(Equal([]int64{4, 5}))
	})

	It("should refuse to write a read-only variable", func() {
		rsp, _ := put("/api/pv/LAS:TEST:current", `{"value": 9}`)

		Expect(rsp.StatusCode).To(Equal(http.StatusForbidden))
	})

	It("should reject malformed bodies", func() {
		rsp, _ := put("/api/pv/LAS:TEST:NF:NOISE", `{"value": "abc"}`)

		Expect(rsp.StatusCode).To(Equal(http.StatusBadRequest))
	})
})
