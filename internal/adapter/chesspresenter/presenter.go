// Package chesspresenter prints bridge results for people and scripts.
package chesspresenter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/park285/cheese-engine-bridge/pkg/bridgedto"
)

// Presenter writes results either as text blocks or as indented JSON.
type Presenter struct {
	out       io.Writer
	json      bool
	formatter *Formatter
}

func NewPresenter(out io.Writer, asJSON bool) *Presenter {
	return &Presenter{out: out, json: asJSON, formatter: NewFormatter()}
}

func (p *Presenter) Show(v any) error {
	if p == nil || p.out == nil {
		return nil
	}
	if p.json {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	var text string
	switch r := v.(type) {
	case *bridgedto.AnalyzeResponse:
		text = p.formatter.Analyze(r)
	case *bridgedto.ReviewResponse:
		text = p.formatter.Review(r)
	case *bridgedto.OpeningResponse:
		text = p.formatter.Opening(r)
	case *bridgedto.Capabilities:
		text = p.formatter.Capabilities(r)
	case *bridgedto.Strength:
		text = p.formatter.Strength(r)
	default:
		return fmt.Errorf("no text form for %T", v)
	}
	_, err := fmt.Fprintln(p.out, text)
	return err
}
