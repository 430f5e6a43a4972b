// Package tools holds the deterministic helpers the tutor can run without
// the LLM, and the rules that pick one from free text.
package tools

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Tool names
const (
	Calc       = "calc"
	Wiki       = "wiki"
	Deriva     = "deriva"
	Integra    = "integra"
	Limite     = "limite"
	Resuelve   = "resuelve"
	Simplifica = "simplifica"
	Units      = "u"
	MolarMass  = "mm"
	Suvat      = "suvat"
	Stats      = "stats"
	Plot       = "plot"
	Analiza    = "analiza"
)

// UnknownTool is returned by Run for names outside the registry
const UnknownTool = "Tool no reconocido."

// Payload carries the parsed arguments of a tool invocation. Each tool
// reads only its own fields.
type Payload struct {
	Expr    string             `json:"expr,omitempty"`
	Var     string             `json:"var,omitempty"`
	At      string             `json:"at,omitempty"`
	Dir     string             `json:"dir,omitempty"`
	Query   string             `json:"query,omitempty"`
	Lang    string             `json:"lang,omitempty"`
	Eq      string             `json:"eq,omitempty"`
	Formula string             `json:"formula,omitempty"`
	Values  map[string]float64 `json:"values,omitempty"`
	List    string             `json:"list,omitempty"`
	XSpec   string             `json:"xspec,omitempty"`
	Code    string             `json:"code,omitempty"`
}

// Option configures a Registry
type Option func(*Registry)

// WithHTTPClient replaces the client used by the wiki tool
func WithHTTPClient(c *http.Client) Option {
	return func(r *Registry) {
		if c != nil {
			r.httpClient = c
		}
	}
}

// WithWikiEndpoint points the wiki tool at a fixed base URL instead of
// https://<lang>.wikipedia.org
func WithWikiEndpoint(base string) Option {
	return func(r *Registry) {
		base = strings.TrimRight(base, "/")
		r.wikiBase = func(string) string { return base }
	}
}

// WithPlotDir sets the directory plot images are written to
func WithPlotDir(dir string) Option {
	return func(r *Registry) {
		if dir != "" {
			r.plotDir = dir
		}
	}
}

// Registry runs tools by name
type Registry struct {
	httpClient *http.Client
	wikiBase   func(lang string) string
	plotDir    string
	log        *zap.SugaredLogger
}

// NewRegistry creates a registry with the given options
func NewRegistry(logger *zap.SugaredLogger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Registry{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		wikiBase:   func(lang string) string { return fmt.Sprintf("https://%s.wikipedia.org", lang) },
		plotDir:    "plots",
		log:        logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the named tool. It never fails: bad input and internal
// faults come back as a readable message.
func (r *Registry) Run(ctx context.Context, name string, p Payload) (out string) {
	name = strings.ToLower(strings.TrimSpace(name))
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Errorf("Tool %s panicked: %v", name, rec)
			out = fmt.Sprintf("Error interno en el tool %s: %v", name, rec)
		}
	}()

	start := time.Now()
	defer func() {
		r.log.Debugf("Tool %s finished in %v", name, time.Since(start))
	}()

	switch name {
	case Calc:
		return calc(p.Expr)
	case Wiki:
		return r.wiki(ctx, p.Query, p.Lang)
	case Deriva:
		return deriva(p.Expr, p.Var)
	case Integra:
		return integra(p.Expr, p.Var)
	case Limite:
		return limite(p.Expr, p.Var, p.At, p.Dir)
	case Resuelve:
		return resuelve(p.Eq, p.Var)
	case Simplifica:
		return simplifica(p.Expr)
	case Units:
		return convert(p.Expr)
	case MolarMass:
		return molarMass(p.Formula)
	case Suvat:
		return suvat(p.Values)
	case Stats:
		return statsList(p.List)
	case Plot:
		return r.plot(p.Expr, p.XSpec)
	case Analiza:
		return analyze(ctx, p.Code)
	}
	return UnknownTool
}
