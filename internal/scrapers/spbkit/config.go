package spbkit

type Config struct {
	IndexUrl    string            `json:"index_url" default:"http://www.spbkit.edu.ru/index.php"`
	IndexParams map[string]string `json:"index_params"`
	AnchorLabel string            `json:"anchor_label" default:"Замены в расписании"`
	AnchorClass string            `json:"anchor_class" default:"sublevel"`
	// EndpointPath is appended to the scheme and host of the resolved anchor.
	EndpointPath   string `json:"endpoint_path" default:"/replacements/api/fetch-rep"`
	TimeoutSeconds int    `json:"timeout_seconds" default:"10"`
	// RequestsPerSecond limits outgoing requests, 0 disables the limit.
	RequestsPerSecond float64 `json:"requests_per_second" default:"1"`
	CloudflareBypass  bool    `json:"cloudflare_bypass" default:"true"`
}

// DefaultIndexParams are the query parameters of the page that links to
// the replacements endpoint.
func DefaultIndexParams() map[string]string {
	return map[string]string{
		"option": "com_content",
		"task":   "view",
		"id":     "28",
		"Itemid": "65",
	}
}

// withDefaults fills the fields that have no usable zero value, so that a
// Config built in code behaves like one read through configutil.
// CloudflareBypass and RequestsPerSecond are left as given since their zero
// values are meaningful.
func (c Config) withDefaults() Config {
	if c.AnchorLabel == "" {
		c.AnchorLabel = "Замены в расписании"
	}
	if c.AnchorClass == "" {
		c.AnchorClass = "sublevel"
	}
	if c.EndpointPath == "" {
		c.EndpointPath = "/replacements/api/fetch-rep"
	}
	if c.IndexParams == nil {
		c.IndexParams = DefaultIndexParams()
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
	return c
}
