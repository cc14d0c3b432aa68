package bundle

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
)

// Minifier compresses JavaScript source.
type Minifier interface {
	Minify(ctx context.Context, source string) (*Output, error)
}

// Output is a minifier's answer. Code may be empty when Errors is not.
type Output struct {
	Code     string
	Errors   []Diagnostic
	Warnings []Diagnostic
	Stats    *Statistics
}

// Statistics are the size figures reported by the compile service.
type Statistics struct {
	OriginalSize       int `json:"originalSize"`
	OriginalGzipSize   int `json:"originalGzipSize"`
	CompressedSize     int `json:"compressedSize"`
	CompressedGzipSize int `json:"compressedGzipSize"`
	CompileTime        int `json:"compileTime"`
}

// ClosureOptions configures a ClosureMinifier.
type ClosureOptions struct {
	URL              string
	CompilationLevel string
	Timeout          time.Duration
	UserAgent        string
}

// ClosureMinifier posts source to a Closure Compiler compatible service.
// Requests are never retried.
type ClosureMinifier struct {
	opts   ClosureOptions
	client *req.Client
}

// NewClosureMinifier creates a minifier for the service at opts.URL.
func NewClosureMinifier(opts ClosureOptions) *ClosureMinifier {
	if opts.CompilationLevel == "" {
		opts.CompilationLevel = "SIMPLE_OPTIMIZATIONS"
	}

	client := req.C().
		SetCommonRetryCount(0).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal)
	if opts.UserAgent != "" {
		client.SetUserAgent(opts.UserAgent)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	return &ClosureMinifier{opts: opts, client: client}
}

type closureMessage struct {
	Type    string `json:"type"`
	File    string `json:"file"`
	Lineno  int    `json:"lineno"`
	Charno  int    `json:"charno"`
	Error   string `json:"error"`
	Warning string `json:"warning"`
	Line    string `json:"line"`
}

type closureServerError struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

type closureResponse struct {
	CompiledCode *string              `json:"compiledCode"`
	Errors       []closureMessage     `json:"errors"`
	Warnings     []closureMessage     `json:"warnings"`
	ServerErrors []closureServerError `json:"serverErrors"`
	Statistics   *Statistics          `json:"statistics"`
}

// Form builds the request body for source.
func (m *ClosureMinifier) Form(source string) url.Values {
	form := url.Values{}
	form.Set("compilation_level", m.opts.CompilationLevel)
	form.Add("output_info", "compiled_code")
	form.Add("output_info", "errors")
	form.Add("output_info", "warnings")
	form.Add("output_info", "statistics")
	form.Set("output_format", "json")
	form.Set("js_code", source)
	return form
}

// Minify submits source in a single request. Transport failures, non-2xx
// responses, undecodable bodies and service-level errors are returned as
// *MinifierError. Compilation errors are not failures.
func (m *ClosureMinifier) Minify(ctx context.Context, source string) (*Output, error) {
	resp, err := m.client.R().
		SetContext(ctx).
		SetFormDataFromValues(m.Form(source)).
		Post(m.opts.URL)
	if err != nil {
		return nil, &MinifierError{URL: m.opts.URL, Err: err}
	}
	if resp.IsErrorState() {
		return nil, &MinifierError{URL: m.opts.URL, StatusCode: resp.StatusCode}
	}

	var body closureResponse
	if err := json.Unmarshal(resp.Bytes(), &body); err != nil {
		return nil, &MinifierError{
			URL:        m.opts.URL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}

	if len(body.ServerErrors) > 0 || body.CompiledCode == nil {
		merr := &MinifierError{URL: m.opts.URL, StatusCode: resp.StatusCode}
		for _, se := range body.ServerErrors {
			merr.ServerErrors = append(merr.ServerErrors, fmt.Sprintf("%d %s", se.Code, se.Error))
		}
		if len(merr.ServerErrors) == 0 {
			merr.Err = fmt.Errorf("response has no compiledCode")
		}
		return nil, merr
	}

	out := &Output{Code: *body.CompiledCode, Stats: body.Statistics}
	for _, e := range body.Errors {
		out.Errors = append(out.Errors, Diagnostic{
			Line: e.Lineno, Column: e.Charno, Severity: SeverityError, Message: e.Error + e.Warning,
		})
	}
	for _, w := range body.Warnings {
		out.Warnings = append(out.Warnings, Diagnostic{
			Line: w.Lineno, Column: w.Charno, Severity: SeverityWarning, Message: w.Error + w.Warning,
		})
	}
	return out, nil
}
