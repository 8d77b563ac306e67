package datasources

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// NSFClient interfaces with the public NSF Awards REST API.
// Documentation: https://www.research.gov/common/webapi/awardapisearch-v1.htm
type NSFClient struct {
	BaseURL string
	Client  *http.Client

	// PerPage is the rpp value sent when the translated params carry none.
	// Zero disables the default and leaves rpp to the API.
	PerPage int
}

// defaultPrintFields asks the API for the fields the graph builder ingests;
// abstractText is not returned unless requested explicitly.
const defaultPrintFields = "id,title,pdPIName,awardeeName,fundProgramName,estimatedTotalAmt,startDate,abstractText"

func NewNSFClient(baseURL string, timeout time.Duration) *NSFClient {
	if baseURL == "" {
		baseURL = "http://api.nsf.gov/services/v1/awards.json"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &NSFClient{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// AwardRecord is one award as returned by the API. All fields are optional:
// an empty string means the field was absent or blank, and the graph builder
// substitutes its documented default at ingest time.
type AwardRecord struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	PIName            string `json:"pdPIName"`
	AwardeeName       string `json:"awardeeName"`
	FundProgramName   string `json:"fundProgramName"`
	EstimatedTotalAmt string `json:"estimatedTotalAmt"`
	StartDate         string `json:"startDate"`
	AbstractText      string `json:"abstractText"`
}

// FlexInt tolerates the API serving counts as either numbers or strings.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// Metadata carries the result totals for a query.
type Metadata struct {
	TotalCount FlexInt `json:"totalCount"`
}

// AwardsResponse mirrors the API payload envelope.
type AwardsResponse struct {
	Response struct {
		Metadata Metadata      `json:"metadata"`
		Award    []AwardRecord `json:"award"`
	} `json:"response"`
}

// FetchAwards queries the awards endpoint with the given parameters.
// A network error or non-2xx status is returned as an error; callers treat
// either as "no results" and do not retry.
func (c *NSFClient) FetchAwards(params map[string]string) (*AwardsResponse, error) {
	vals := url.Values{}
	for k, v := range params {
		vals.Set(k, v)
	}
	if vals.Get("printFields") == "" {
		vals.Set("printFields", defaultPrintFields)
	}
	if vals.Get("rpp") == "" && c.PerPage > 0 {
		vals.Set("rpp", strconv.Itoa(c.PerPage))
	}

	req, err := http.NewRequest("GET", c.BaseURL+"?"+vals.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "NSFGraph/1.0")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nsf API request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("nsf API error %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result AwardsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse nsf response: %v", err)
	}

	return &result, nil
}
