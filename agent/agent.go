package agent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"nsfgraph/datasources"
	"nsfgraph/logger"
)

// translateSystemPrompt instructs the model to reformat a free-text
// question into NSF Awards API request parameters.
const translateSystemPrompt = `You are a translator for NSF research award queries. Take the user's question and reformat it into a JSON object of NSF Awards API request parameters and values.

Key request parameters (the full list is in the NSF Awards API documentation):
keyword: search term
rpp: results per page, range 1 to 25
id: unique award identifier
agency: agency name, e.g. NSF
awardeeCity: city name
awardeeCountryCode: country code
awardeeName: name of the awardee entity, e.g. "university+of+south+florida"
awardeeStateCode: two-letter state code
awardeeZipCode: 9 digit zip code
coPDPI: co principal investigator name
estimatedTotalAmtFrom: estimated total amount, values greater than
estimatedTotalAmtTo: estimated total amount, values less than
fundsObligatedAmtFrom: funds obligated, values greater than
fundsObligatedAmtTo: funds obligated, values less than
pdPIName: Principal Investigator or Project Director name

Output rules:
1. Output only the JSON object, no explanations or markdown.
2. Only include parameters clearly specified in the user's question.
3. Use + instead of spaces in multi-word values.
4. Format dates as MM/DD/YYYY.
5. Convert amount descriptions to integers (over 1 million = 1000000).
6. If the question is unclear or impossible, output {"error": "description of the issue"}.`

// Completer is the LLM capability the agent depends on.
type Completer interface {
	CompleteWithSystem(system, prompt string) (string, error)
}

// Agent translates natural-language questions about NSF awards into API
// parameters, fetches the matching records, and can summarize results.
type Agent struct {
	LLM Completer
	NSF *datasources.NSFClient
}

func New(llm Completer, nsf *datasources.NSFClient) *Agent {
	return &Agent{LLM: llm, NSF: nsf}
}

// Translate converts a question into NSF API parameters. An untranslatable
// question comes back as a map holding an "error" key; only transport-level
// failures return a non-nil error.
func (a *Agent) Translate(question string) (map[string]string, error) {
	resp, err := a.LLM.CompleteWithSystem(translateSystemPrompt, question)
	if err != nil {
		return nil, fmt.Errorf("translation request failed: %v", err)
	}

	var raw map[string]interface{}
	cleaned := cleanJSON(resp)
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("json parse error: %v | raw: %s", err, resp)
	}

	params := make(map[string]string, len(raw))
	for k, v := range raw {
		params[k] = stringify(v)
	}
	return params, nil
}

// Execute runs the full pipeline for one question: translate, then fetch.
// A translation error marker short-circuits with nil results and no API
// call; a fetch failure surfaces as the returned error, which callers
// treat as "no results" without retrying.
func (a *Agent) Execute(question string) (map[string]string, *datasources.AwardsResponse, error) {
	params, err := a.Translate(question)
	if err != nil {
		return nil, nil, err
	}
	if msg, ok := params["error"]; ok {
		logger.Warn(logger.StatusQuery, "Untranslatable query: %s", msg)
		return params, nil, nil
	}

	logger.Info(logger.StatusQuery, "Translated params: %v", params)

	results, err := a.NSF.FetchAwards(params)
	if err != nil {
		return params, nil, err
	}
	return params, results, nil
}

// Summarize produces a short prose digest of up to ten awards for the
// original question via a second LLM call.
func (a *Agent) Summarize(question string, results *datasources.AwardsResponse) (string, error) {
	if results == nil || len(results.Response.Award) == 0 {
		return "No matching awards were found.", nil
	}

	awards := results.Response.Award
	if len(awards) > 10 {
		awards = awards[:10]
	}

	var b strings.Builder
	for _, rec := range awards {
		fmt.Fprintf(&b, "- %s: %q, PI %s at %s, %s, $%s, started %s\n",
			rec.ID, rec.Title, rec.PIName, rec.AwardeeName, rec.FundProgramName,
			rec.EstimatedTotalAmt, rec.StartDate)
	}

	prompt := fmt.Sprintf(`The user asked: %q

These NSF awards matched (%d total matches):
%s
Write a concise prose summary of these awards answering the user's question. A short paragraph, no markdown, no bullet points.`,
		question, int(results.Response.Metadata.TotalCount), b.String())

	return a.LLM.CompleteWithSystem("", prompt)
}

// cleanJSON strips markdown code fences the model sometimes wraps around
// its output.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// stringify renders a decoded JSON value as an API parameter value.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
