package agent

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"nsfgraph/datasources"
)

type stubLLM struct {
	resp       string
	err        error
	lastSystem string
	lastPrompt string
}

func (s *stubLLM) CompleteWithSystem(system, prompt string) (string, error) {
	s.lastSystem = system
	s.lastPrompt = prompt
	return s.resp, s.err
}

func TestTranslate(t *testing.T) {
	t.Run("parses fenced JSON into string params", func(t *testing.T) {
		llm := &stubLLM{resp: "```json\n{\"keyword\": \"water\", \"awardeeStateCode\": \"TN\", \"rpp\": 25}\n```"}
		a := New(llm, nil)

		params, err := a.Translate("Find water research grants in Tennessee")

		assert.NoError(t, err)
		assert.Equal(t, "water", params["keyword"])
		assert.Equal(t, "TN", params["awardeeStateCode"])
		assert.Equal(t, "25", params["rpp"])
		assert.Contains(t, llm.lastSystem, "NSF")
	})

	t.Run("keeps the error marker as a param", func(t *testing.T) {
		llm := &stubLLM{resp: `{"error": "the question is not about NSF awards"}`}
		a := New(llm, nil)

		params, err := a.Translate("what is the capital of France")

		assert.NoError(t, err)
		assert.Equal(t, "the question is not about NSF awards", params["error"])
	})

	t.Run("non-JSON output is an error", func(t *testing.T) {
		llm := &stubLLM{resp: "Sure! Here are some parameters you could use..."}
		a := New(llm, nil)

		_, err := a.Translate("water grants")

		assert.Error(t, err)
	})

	t.Run("transport failure propagates", func(t *testing.T) {
		llm := &stubLLM{err: assert.AnError}
		a := New(llm, nil)

		_, err := a.Translate("water grants")

		assert.Error(t, err)
	})
}

func TestExecute(t *testing.T) {
	t.Run("fetches awards for translated params", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "water", r.URL.Query().Get("keyword"))
			w.Write([]byte(`{"response":{"metadata":{"totalCount":1},"award":[{"id":"1","pdPIName":"JANE DOE"}]}}`))
		}))
		defer srv.Close()

		a := New(&stubLLM{resp: `{"keyword": "water"}`}, datasources.NewNSFClient(srv.URL, time.Second))
		params, results, err := a.Execute("water research grants")

		assert.NoError(t, err)
		assert.Equal(t, "water", params["keyword"])
		assert.Len(t, results.Response.Award, 1)
	})

	t.Run("error marker short-circuits without an API call", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Write([]byte(`{"response":{"metadata":{"totalCount":0},"award":[]}}`))
		}))
		defer srv.Close()

		a := New(&stubLLM{resp: `{"error": "unclear question"}`}, datasources.NewNSFClient(srv.URL, time.Second))
		params, results, err := a.Execute("mumble mumble")

		assert.NoError(t, err)
		assert.Nil(t, results)
		assert.Equal(t, "unclear question", params["error"])
		assert.Zero(t, calls)
	})

	t.Run("fetch failure surfaces as the error with params intact", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		a := New(&stubLLM{resp: `{"keyword": "water"}`}, datasources.NewNSFClient(srv.URL, time.Second))
		params, results, err := a.Execute("water research grants")

		assert.Error(t, err)
		assert.Nil(t, results)
		assert.Equal(t, "water", params["keyword"])
	})
}

func TestSummarize(t *testing.T) {
	t.Run("no results short-circuits without an LLM call", func(t *testing.T) {
		llm := &stubLLM{resp: "should not be used"}
		a := New(llm, nil)

		digest, err := a.Summarize("water grants", nil)

		assert.NoError(t, err)
		assert.Equal(t, "No matching awards were found.", digest)
		assert.Empty(t, llm.lastPrompt)
	})

	t.Run("prompts with at most ten awards", func(t *testing.T) {
		llm := &stubLLM{resp: "Twelve awards study water."}
		a := New(llm, nil)

		resp := &datasources.AwardsResponse{}
		for i := 0; i < 12; i++ {
			resp.Response.Award = append(resp.Response.Award, datasources.AwardRecord{
				ID: string(rune('A' + i)), PIName: "PI " + string(rune('A'+i)),
			})
		}
		resp.Response.Metadata.TotalCount = 12

		digest, err := a.Summarize("water grants", resp)

		assert.NoError(t, err)
		assert.Equal(t, "Twelve awards study water.", digest)
		assert.Contains(t, llm.lastPrompt, "PI A")
		assert.NotContains(t, llm.lastPrompt, "PI L") // the 12th award
		assert.Contains(t, llm.lastPrompt, "12 total matches")
	})
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "water", stringify("water"))
	assert.Equal(t, "25", stringify(float64(25)))
	assert.Equal(t, "1000000", stringify(float64(1000000)))
	assert.Equal(t, "true", stringify(true))
}
