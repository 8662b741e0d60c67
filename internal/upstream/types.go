package upstream

import (
	"encoding/json"
)

// QuoteResponse from GET /api/quote/{tickers}.
type QuoteResponse struct {
	payload

	Results []QuoteResult `json:"results"`

	// Shared request metadata. On fan-out merges the first-seen value wins.
	RequestedAt  string `json:"requestedAt,omitempty"`
	UsedRange    string `json:"usedRange,omitempty"`
	UsedInterval string `json:"usedInterval,omitempty"`
	Took         string `json:"took,omitempty"`
}

// QuoteResult is one instrument in a quote response. Raw always holds the
// exact provider JSON for snapshot persistence.
type QuoteResult struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortName"`
	LongName  string `json:"longName"`
	Currency  string `json:"currency"`
	Type      string `json:"type"`
	Sector    string `json:"sector"`
	Industry  string `json:"industry"`
	ISIN      string `json:"isin"`
	ISINCode  string `json:"isinCode"`
	LogoLower string `json:"logourl"`
	LogoCamel string `json:"logoUrl"`

	RegularMarketPrice         *float64 `json:"regularMarketPrice"`
	RegularMarketPreviousClose *float64 `json:"regularMarketPreviousClose"`
	RegularMarketChange        *float64 `json:"regularMarketChange"`
	RegularMarketChangePct     *float64 `json:"regularMarketChangePercent"`
	RegularMarketTime          any      `json:"regularMarketTime"`

	HistoricalDataPrice []HistoricalPoint `json:"historicalDataPrice"`
	DividendsData       *DividendsData    `json:"dividendsData"`
	FinancialData       json.RawMessage   `json:"financialData"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw provider payload alongside the decoded form.
func (q *QuoteResult) UnmarshalJSON(b []byte) error {
	type alias QuoteResult
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*q = QuoteResult(a)
	q.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// Name returns the best available display name.
func (q *QuoteResult) Name() string {
	if q.LongName != "" {
		return q.LongName
	}
	return q.ShortName
}

// Isin returns the ISIN under either provider alias.
func (q *QuoteResult) Isin() string {
	if q.ISIN != "" {
		return q.ISIN
	}
	return q.ISINCode
}

// Logo returns the logo URL under either provider alias.
func (q *QuoteResult) Logo() string {
	if q.LogoLower != "" {
		return q.LogoLower
	}
	return q.LogoCamel
}

// HistoricalPoint is one OHLCV candle. Date arrives as epoch seconds,
// epoch milliseconds, or an ISO string depending on the endpoint.
type HistoricalPoint struct {
	Date     any      `json:"date"`
	Open     *float64 `json:"open"`
	High     *float64 `json:"high"`
	Low      *float64 `json:"low"`
	Close    *float64 `json:"close"`
	Volume   *float64 `json:"volume"`
	AdjClose *float64 `json:"adjustedClose"`

	Raw json.RawMessage `json:"-"`
}

func (p *HistoricalPoint) UnmarshalJSON(b []byte) error {
	type alias HistoricalPoint
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*p = HistoricalPoint(a)
	p.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// DividendsData wraps the cash dividend history of a quote result.
type DividendsData struct {
	CashDividends []CashDividend `json:"cashDividends"`
}

// CashDividend is one cash event.
type CashDividend struct {
	AssetIssued   string   `json:"assetIssued"`
	PaymentDate   any      `json:"paymentDate"`
	Rate          *float64 `json:"rate"`
	RelatedTo     string   `json:"relatedTo"`
	Label         string   `json:"label"`
	LastDatePrior any      `json:"lastDatePrior"`

	Raw json.RawMessage `json:"-"`
}

func (d *CashDividend) UnmarshalJSON(b []byte) error {
	type alias CashDividend
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*d = CashDividend(a)
	d.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// -----------------------------------------------------------------------------
// Catalog listing
// -----------------------------------------------------------------------------

// ListResponse from GET /api/quote/list (paginated catalog listing).
type ListResponse struct {
	payload

	Stocks  []ListEntry `json:"stocks"`
	Results []ListEntry `json:"results"`

	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int   `json:"totalCount"`
	HasNextPage *bool `json:"hasNextPage"`
}

// Entries returns whichever result array the provider populated.
func (r *ListResponse) Entries() []ListEntry {
	if len(r.Stocks) > 0 {
		return r.Stocks
	}
	return r.Results
}

// HasMore normalizes the provider's inconsistent pagination metadata into
// one contract: the explicit flag when present, else a page-count compare.
func (r *ListResponse) HasMore() bool {
	if r.HasNextPage != nil {
		return *r.HasNextPage
	}
	if r.TotalPages > 0 {
		return r.CurrentPage < r.TotalPages
	}
	return false
}

// ListEntry is one catalog listing record. The provider emits either a bare
// ticker string or an object; Item is nil for the bare-ticker variant.
type ListEntry struct {
	Symbol string
	Item   *ListItem
	Raw    json.RawMessage
}

// UnmarshalJSON decodes the tagged variant: structured object first,
// falling back to the bare-identifier form.
func (e *ListEntry) UnmarshalJSON(b []byte) error {
	e.Raw = append(json.RawMessage(nil), b...)

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		e.Symbol = s
		e.Item = nil
		return nil
	}

	var item ListItem
	if err := json.Unmarshal(b, &item); err != nil {
		return err
	}
	e.Item = &item
	e.Symbol = item.Ticker()
	return nil
}

// ListItem is the object variant of a listing record, with the provider's
// field aliases spelled out.
type ListItem struct {
	Symbol    string `json:"symbol"`
	Stock     string `json:"stock"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	Type      string `json:"type"`
	Sector    string `json:"sector"`
	Category  string `json:"category"`
	ISIN      string `json:"isin"`
	LogoLower string `json:"logourl"`
	LogoCamel string `json:"logoUrl"`
}

// Ticker resolves the symbol under either alias.
func (i *ListItem) Ticker() string {
	if i.Symbol != "" {
		return i.Symbol
	}
	return i.Stock
}

// DisplayName resolves the name under either alias.
func (i *ListItem) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.ShortName
}

// SectorName resolves the sector under either alias.
func (i *ListItem) SectorName() string {
	if i.Sector != "" {
		return i.Sector
	}
	return i.Category
}

// Logo resolves the logo URL under either alias.
func (i *ListItem) Logo() string {
	if i.LogoLower != "" {
		return i.LogoLower
	}
	return i.LogoCamel
}

// ListOptions configures a QuoteList request.
type ListOptions struct {
	Type     string
	Sector   string
	Search   string
	SortBy   string
	Page     int
	PageSize int
}

// -----------------------------------------------------------------------------
// V2 resources
// -----------------------------------------------------------------------------

// CryptoResponse from GET /api/v2/crypto.
type CryptoResponse struct {
	payload

	Coins []json.RawMessage `json:"coins"`
}

// CurrencyResponse from GET /api/v2/currency.
type CurrencyResponse struct {
	payload

	Currency []CurrencyPair `json:"currency"`
}

// CurrencyPair is one conversion rate snapshot.
type CurrencyPair struct {
	FromCurrency string `json:"fromCurrency"`
	ToCurrency   string `json:"toCurrency"`
	Name         string `json:"name"`
	High         string `json:"high"`
	Low          string `json:"low"`
	BidPrice     string `json:"bidPrice"`
	AskPrice     string `json:"askPrice"`
	UpdatedAt    string `json:"updatedAtDate"`
}

// MacroPoint is one indicator observation (inflation, prime rate).
type MacroPoint struct {
	Date  string `json:"date"`
	Value string `json:"value"`
	Epoch any    `json:"epochDate"`
}

// InflationResponse from GET /api/v2/inflation.
type InflationResponse struct {
	payload

	Inflation []MacroPoint `json:"inflation"`
}

// PrimeRateResponse from GET /api/v2/prime-rate.
type PrimeRateResponse struct {
	payload

	PrimeRate []MacroPoint `json:"prime-rate"`
}

// AvailableResponse from the /available probe endpoints.
type AvailableResponse struct {
	payload

	Indexes []string `json:"indexes"`
	Stocks  []string `json:"stocks"`
	Coins   []string `json:"coins"`

	Currencies []struct {
		Currency string `json:"currency"`
		Name     string `json:"name"`
	} `json:"currencies"`

	Countries []string `json:"countries"`
}
