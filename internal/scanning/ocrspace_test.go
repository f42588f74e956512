package scanning

import (
	"context"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("OCRSpace", func() {
	var (
		server     *ghttp.Server
		recognizer *OCRSpace
		text       string
		err        error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		recognizer, err = NewOCRSpace("test-key", server.URL()+"/parse/image")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		text, err = recognizer.Recognize(context.Background(), []byte("jpeg-bytes"), "image/jpeg")
	})

	When("the API reads the label", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/parse/image"),
				ghttp.VerifyHeaderKV("apikey", "test-key"),
				func(w http.ResponseWriter, r *http.Request) {
					defer GinkgoRecover()
					Expect(r.ParseMultipartForm(1 << 20)).To(Succeed())
					Expect(r.FormValue("language")).To(Equal("por"))
					Expect(r.FormValue("OCREngine")).To(Equal("2"))
					Expect(r.FormValue("base64Image")).To(HavePrefix("data:image/jpeg;base64,"))
				},
				ghttp.RespondWith(http.StatusOK, `{"ParsedResults":[{"ParsedText":"ARROZ 5KG\r\nVarejo R$ 12,49"}],"IsErroredOnProcessing":false}`),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the text", func() {
			Expect(text).To(Equal("ARROZ 5KG\r\nVarejo R$ 12,49"))
		})
	})

	When("the API is rate limiting", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusTooManyRequests, "slow down", http.Header{"Retry-After": []string{"30"}}))
		})

		It("should return a RateLimitError with the retry delay", func() {
			var rlErr *RateLimitError
			Expect(err).To(BeAssignableToTypeOf(rlErr))
			Expect(err.(*RateLimitError).RetryAfter.Seconds()).To(BeNumerically("==", 30))
		})
	})

	When("the API rejects the key", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusForbidden, "The API key is invalid"))
		})

		It("should return a ProviderError with the status", func() {
			Expect(err).To(MatchError(ContainSubstring("status 403")))
		})
	})

	When("the API finds no text", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{"ParsedResults":[{"ParsedText":""}],"IsErroredOnProcessing":false}`))
		})

		It("should return ErrNoText", func() {
			Expect(err).To(MatchError(ErrNoText))
		})
	})
})

var _ = Describe("NewOCRSpace", func() {
	It("should require an api key", func() {
		_, err := NewOCRSpace("", "")
		Expect(err).To(MatchError(ContainSubstring("api key is required")))
	})

	It("should default to the public endpoint", func() {
		r, err := NewOCRSpace("key", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.HasPrefix(r.endpoint, "https://api.ocr.space")).To(BeTrue())
	})
})

var _ = Describe("Ollama", func() {
	var (
		server     *ghttp.Server
		recognizer *Ollama
		text       string
		err        error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		recognizer, err = NewOllama(server.URL(), "llava")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		text, err = recognizer.Recognize(context.Background(), encodePNG(testImage(4, 4)), "image/png")
	})

	When("the model transcribes the label", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: "```\nFEIJAO CARIOCA 1KG\nR$ 7,90\n```"},
					Done:    true,
				}),
			))
		})

		It("should return the cleaned transcript", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("FEIJAO CARIOCA 1KG\nR$ 7,90"))
		})
	})

	When("the model returns nothing", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{Done: true}))
		})

		It("should return ErrNoText", func() {
			Expect(err).To(MatchError(ErrNoText))
		})
	})

	When("the model is not installed", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, `{"error":"model 'llava' not found"}`))
		})

		It("should return a ProviderError", func() {
			Expect(err).To(MatchError(ContainSubstring("ollama error (status 404)")))
		})
	})
})
