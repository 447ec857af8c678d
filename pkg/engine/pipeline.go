package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

// Pipeline passes.
const (
	passConvert   = "convert"
	passFormat    = "format"
	passCalculate = "calculate"
)

// pipeline maps raw rows to attribute rows for one execution:
//  1. regular attributes are extracted and converted
//  2. regular attributes are formatted
//  3. virtual attributes are calculated from the row so far
//  4. virtual attributes are formatted
//
// Attributes the caller may not see are left nil and never extracted,
// formatted or calculated. Per-attribute failures are logged, not returned.
type pipeline struct {
	query    string
	regular  []models.AttributeDef
	virtual  []models.AttributeDef
	names    []string
	cache    *MetadataCache
	qc       *models.QueryContext
	logger   *zap.Logger
	failures int
}

func newPipeline(def *models.QueryDefinition, cache *MetadataCache, qc *models.QueryContext, logger *zap.Logger) *pipeline {
	p := &pipeline{
		query:  def.Name(),
		names:  def.AttributeNames(),
		cache:  cache,
		qc:     qc,
		logger: logger,
	}
	for _, a := range def.Attributes() {
		if a.Virtual {
			p.virtual = append(p.virtual, a)
		} else {
			p.regular = append(p.regular, a)
		}
	}
	return p
}

func (p *pipeline) apply(raw *RawRow) *models.Row {
	row := models.NewRow(p.names)

	for _, a := range p.regular {
		if !p.qc.IsVisible(a) {
			continue
		}
		v, ok := ExtractFor(a, p.cache, raw)
		if !ok || v == nil {
			continue
		}
		converted, err := Convert(v, a.Type)
		if err != nil {
			p.warn(a, passConvert, err)
			converted = v
		}
		p.set(row, a, converted)
	}

	p.formatAll(row, p.regular)

	for _, a := range p.virtual {
		if !p.qc.IsVisible(a) {
			continue
		}
		v, err := p.calculate(a, row)
		if err != nil {
			p.warn(a, passCalculate, err)
			continue
		}
		converted, err := Convert(v, a.Type)
		if err != nil {
			p.warn(a, passConvert, err)
			continue
		}
		p.set(row, a, converted)
	}

	p.formatAll(row, p.virtual)
	return row
}

func (p *pipeline) formatAll(row *models.Row, attrs []models.AttributeDef) {
	for _, a := range attrs {
		if a.Formatter == nil || !p.qc.IsVisible(a) {
			continue
		}
		v := row.Value(a.Name)
		if v == nil {
			continue
		}
		s, err := p.format(a, v)
		if err != nil {
			p.warn(a, passFormat, err)
			continue
		}
		p.set(row, a, s)
	}
}

func (p *pipeline) calculate(a models.AttributeDef, row *models.Row) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("calculator panicked: %v", r)
		}
	}()
	return a.Calculator(row, p.qc)
}

func (p *pipeline) format(a models.AttributeDef, v any) (s string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("formatter panicked: %v", r)
		}
	}()
	return a.Formatter(v)
}

func (p *pipeline) set(row *models.Row, a models.AttributeDef, v any) {
	if err := row.Set(a.Name, v); err != nil {
		p.warn(a, "set", err)
	}
}

func (p *pipeline) warn(a models.AttributeDef, pass string, err error) {
	p.failures++
	p.logger.Warn("Attribute processing failed",
		zap.String("query", p.query),
		zap.String("attribute", a.Name),
		zap.String("pass", pass),
		zap.Error(err))
}
