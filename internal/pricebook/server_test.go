package pricebook

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		recognizer  *mockRecognizer
		storage     *mockStorage
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		recognizer = newMockRecognizer()
		storage = newMockStorage()
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		service = NewServiceWithDeps(db, recognizer, nil, storage, &sequenceIDGenerator{}, &stepClock{})
		server = NewServerWithMux(service, auth, "1.2.3", http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	do := func(method, path string, body io.Reader, contentType string) *http.Response {
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	decode := func(resp *http.Response, v any) {
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	upload := func(filename, contentType string, data []byte) (*bytes.Buffer, string) {
		body := &bytes.Buffer{}
		w := multipart.NewWriter(body)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := w.CreatePart(h)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Close()).To(Succeed())
		return body, w.FormDataContentType()
	}

	Describe("GET /healthz", func() {
		It("should report the version", func() {
			resp := do(http.MethodGet, "/healthz", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]string
			decode(resp, &body)
			Expect(body).To(Equal(map[string]string{"status": "ok", "version": "1.2.3"}))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "ana", Password: "feira"}
		})

		It("should reject requests without credentials", func() {
			resp := do(http.MethodGet, "/api/scans", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("should accept valid credentials", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/scans", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("ana", "feira")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should leave the health check open", func() {
			resp := do(http.MethodGet, "/healthz", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("CORS preflight", func() {
		It("should answer OPTIONS with no content", func() {
			resp := do(http.MethodOptions, "/api/scans", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("DELETE"))
		})
	})

	Describe("POST /api/scans", func() {
		BeforeEach(func() {
			recognizer.text = "BANANA PRATA\nTOTAL R$ 5,43\n"
		})

		It("should scan the uploaded photo", func() {
			body, ct := upload("banana.jpg", "", []byte("jpeg"))
			resp := do(http.MethodPost, "/api/scans", body, ct)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var scan Scan
			decode(resp, &scan)
			Expect(scan.ID).To(Equal("id-1"))
			Expect(scan.ProductName).To(HaveValue(Equal("Banana Prata")))
			Expect(scan.VarejoPrice).To(HaveValue(Equal(5.43)))
			Expect(scan.ContentType).To(Equal("image/jpeg"))
		})

		It("should report an unreadable label as an empty result, not an error", func() {
			recognizer.text = ""
			recognizer.err = errors.New("provider down")
			body, ct := upload("banana.heic", "", []byte("heic"))
			resp := do(http.MethodPost, "/api/scans", body, ct)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var raw map[string]any
			decode(resp, &raw)
			Expect(raw).To(HaveKeyWithValue("product_name", BeNil()))
			Expect(raw).To(HaveKeyWithValue("varejo_price", BeNil()))
			Expect(raw).To(HaveKeyWithValue("content_type", "image/heic"))
		})

		It("should reject a request without a file", func() {
			body := &bytes.Buffer{}
			w := multipart.NewWriter(body)
			Expect(w.WriteField("other", "x")).To(Succeed())
			Expect(w.Close()).To(Succeed())

			resp := do(http.MethodPost, "/api/scans", body, w.FormDataContentType())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			var errBody map[string]string
			decode(resp, &errBody)
			Expect(errBody["error"]).To(ContainSubstring("No file was selected"))
		})

		It("should reject a body that is not a form", func() {
			resp := do(http.MethodPost, "/api/scans", strings.NewReader("hello"), "text/plain")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should report storage failures", func() {
			storage.saveErr = errors.New("disk full")
			body, ct := upload("banana.jpg", "image/jpeg", []byte("jpeg"))
			resp := do(http.MethodPost, "/api/scans", body, ct)
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("POST /api/extract", func() {
		It("should read the posted text", func() {
			resp := do(http.MethodPost, "/api/extract", strings.NewReader(`{"text":"FEIJAO CARIOCA 1KG\nR$ 7,90\nR$ 6,50\n"}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var raw map[string]any
			decode(resp, &raw)
			Expect(raw).To(Equal(map[string]any{
				"product_name":  "Feijao Carioca 1kg",
				"varejo_price":  7.90,
				"atacado_price": 6.50,
				"atacado_qty":   nil,
			}))
		})

		It("should reject invalid JSON", func() {
			resp := do(http.MethodPost, "/api/extract", strings.NewReader(`{`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/scans", func() {
		It("should return an empty array when there are no scans", func() {
			resp := do(http.MethodGet, "/api/scans", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.TrimSpace(string(body))).To(Equal("[]"))
		})

		It("should return 500 when the database fails", func() {
			db.listErr = errors.New("boom")
			resp := do(http.MethodGet, "/api/scans", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("scan by ID", func() {
		BeforeEach(func() {
			db.scans["id-9"] = &Scan{ID: "id-9", Filename: "id-9_label.png", ContentType: "image/png"}
			storage.files["id-9_label.png"] = []byte("png-bytes")
		})

		It("should return the scan", func() {
			resp := do(http.MethodGet, "/api/scans/id-9", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var scan Scan
			decode(resp, &scan)
			Expect(scan.ID).To(Equal("id-9"))
		})

		It("should return 404 for unknown scans", func() {
			resp := do(http.MethodGet, "/api/scans/nope", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should serve the photo", func() {
			resp := do(http.MethodGet, "/api/scans/id-9/file", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(Equal([]byte("png-bytes")))
		})

		It("should delete the scan", func() {
			resp := do(http.MethodDelete, "/api/scans/id-9", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.scans).NotTo(HaveKey("id-9"))
		})

		It("should return 404 when deleting an unknown scan", func() {
			resp := do(http.MethodDelete, "/api/scans/nope", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("POST /api/prices", func() {
		It("should record a price given as a number", func() {
			resp := do(http.MethodPost, "/api/prices", strings.NewReader(`{"product":"Arroz Camil 5kg","price":12.49,"price_type":"varejo"}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var record PriceRecord
			decode(resp, &record)
			Expect(record.Price).To(Equal(12.49))
			Expect(record.Quantity).To(Equal(1))
			Expect(record.ProductKey).To(Equal("arroz camil 5kg"))
		})

		It("should accept a price written the Brazilian way", func() {
			resp := do(http.MethodPost, "/api/prices", strings.NewReader(`{"product":"Arroz","price":"R$ 9,99","price_type":"atacado","quantity":3}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var record PriceRecord
			decode(resp, &record)
			Expect(record.Price).To(Equal(9.99))
			Expect(record.PriceType).To(Equal(Atacado))
			Expect(record.Quantity).To(Equal(3))
		})

		It("should reject a missing price", func() {
			resp := do(http.MethodPost, "/api/prices", strings.NewReader(`{"product":"Arroz"}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should reject an invalid record", func() {
			resp := do(http.MethodPost, "/api/prices", strings.NewReader(`{"product":"","price":1}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			var errBody map[string]string
			decode(resp, &errBody)
			Expect(errBody["error"]).To(ContainSubstring("product name is required"))
		})
	})

	Describe("price history and comparison", func() {
		BeforeEach(func() {
			db.prices["arroz camil 5kg"] = []*PriceRecord{
				{ID: "p1", Product: "Arroz Camil 5kg", ProductKey: "arroz camil 5kg", Price: 10.00, PriceType: Varejo, Quantity: 1},
			}
		})

		It("should return the history", func() {
			resp := do(http.MethodGet, "/api/prices?product=ARROZ+CAMIL+5KG", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var records []PriceRecord
			decode(resp, &records)
			Expect(records).To(HaveLen(1))
		})

		It("should return an empty array for unknown products", func() {
			resp := do(http.MethodGet, "/api/prices?product=leite", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.TrimSpace(string(body))).To(Equal("[]"))
		})

		It("should require a product", func() {
			resp := do(http.MethodGet, "/api/prices", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should compare a shelf price", func() {
			resp := do(http.MethodGet, "/api/prices/compare?product=arroz+camil+5kg&price=8,90", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var c Comparison
			decode(resp, &c)
			Expect(c.Verdict).To(Equal(Cheaper))
			Expect(c.DiffPercent).To(BeNumerically("~", -11.0, 0.001))
		})

		It("should return 404 without history", func() {
			resp := do(http.MethodGet, "/api/prices/compare?product=leite&price=5", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should reject an invalid price", func() {
			resp := do(http.MethodGet, "/api/prices/compare?product=arroz&price=abc", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})
})
