// Request and response types for the Brainus API
package brainus

import (
	"encoding/json"
	"strings"
)

// Well-known filter keys accepted by the query endpoint
const (
	FilterSubject = "subject"
	FilterGrade   = "grade"
)

// QueryFilters narrows retrieval to documents whose metadata matches every entry
type QueryFilters map[string]string

// NewQueryFilters returns an empty filter set
func NewQueryFilters() QueryFilters {
	return QueryFilters{}
}

// WithSubject sets the subject filter and returns the receiver for chaining
func (f QueryFilters) WithSubject(subject string) QueryFilters {
	f[FilterSubject] = subject
	return f
}

// WithGrade sets the grade filter and returns the receiver for chaining
func (f QueryFilters) WithGrade(grade string) QueryFilters {
	f[FilterGrade] = grade
	return f
}

// QueryRequest is the payload of a query call. Only Query is required;
// empty optional fields are left out of the wire payload.
type QueryRequest struct {
	Query   string       `json:"query" required:"true" minLength:"1" description:"Question to answer from the document store"`
	StoreID string       `json:"store_id,omitempty" description:"Document store to search; the account default is used when omitted"`
	Model   string       `json:"model,omitempty" description:"Model identifier to generate the answer with"`
	Filters QueryFilters `json:"filters,omitempty" description:"Metadata filters such as subject or grade"`
}

// Validate checks the request before anything is sent
func (r QueryRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return NewError("query must not be empty")
	}
	return nil
}

// Citation points at a source document supporting the answer
type Citation struct {
	DocumentName string `json:"document_name"`
	Pages        []int  `json:"pages"`
}

// QueryResponse is the answer returned by a query call
type QueryResponse struct {
	Answer       string     `json:"answer"`
	HasCitations bool       `json:"has_citations"`
	Citations    []Citation `json:"citations"`
}

// UnmarshalJSON keeps Citations and each citation's Pages non-nil so that
// callers can range and compare without nil checks
func (r *QueryResponse) UnmarshalJSON(data []byte) error {
	type alias QueryResponse
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Citations == nil {
		a.Citations = []Citation{}
	}
	for i := range a.Citations {
		if a.Citations[i].Pages == nil {
			a.Citations[i].Pages = []int{}
		}
	}
	*r = QueryResponse(a)
	return nil
}

// UsageStats summarizes account usage for the current billing period
type UsageStats struct {
	TotalRequests   int     `json:"total_requests"`
	QuotaPercentage float64 `json:"quota_percentage"`
	// QuotaRemaining is nil when the server did not report it
	QuotaRemaining *int `json:"quota_remaining,omitempty"`
}

// Plan names a service tier
type Plan string

// PlanInfo describes one service tier
type PlanInfo struct {
	Name               Plan `json:"name"`
	RateLimitPerMinute int  `json:"rate_limit_per_minute"`
	// MonthlyQuota is nil for plans without a monthly cap
	MonthlyQuota  *int     `json:"monthly_quota,omitempty"`
	PriceLKR      *float64 `json:"price_lkr,omitempty"`
	AllowedModels []string `json:"allowed_models"`
}

// IsUnlimited reports whether the plan has no monthly quota
func (p PlanInfo) IsUnlimited() bool {
	return p.MonthlyQuota == nil
}

// AllowsModel reports whether model is usable on this plan
func (p PlanInfo) AllowsModel(model string) bool {
	for _, m := range p.AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}

// plansEnvelope is the wrapped form of the plans listing
type plansEnvelope struct {
	Plans []PlanInfo `json:"plans"`
}

// decodePlans accepts either a bare array or {"plans": [...]}
func decodePlans(body []byte) ([]PlanInfo, error) {
	trimmed := strings.TrimSpace(string(body))
	var plans []PlanInfo
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(body, &plans); err != nil {
			return nil, err
		}
	} else {
		var env plansEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, err
		}
		plans = env.Plans
	}
	if plans == nil {
		plans = []PlanInfo{}
	}
	for i := range plans {
		if plans[i].AllowedModels == nil {
			plans[i].AllowedModels = []string{}
		}
	}
	return plans, nil
}
