package models

import "context"

// PreProcessor runs before SQL assembly and may adjust parameters or reject the request.
type PreProcessor interface {
	PreProcess(ctx context.Context, qc *QueryContext) error
}

// RowProcessor runs once per row after the attribute pipeline.
type RowProcessor interface {
	ProcessRow(ctx context.Context, row *Row, qc *QueryContext) error
}

// PostProcessor runs once over the complete result.
type PostProcessor interface {
	PostProcess(ctx context.Context, result *Result, qc *QueryContext) error
}

// PreProcessorFunc adapts a function to PreProcessor.
type PreProcessorFunc func(ctx context.Context, qc *QueryContext) error

func (f PreProcessorFunc) PreProcess(ctx context.Context, qc *QueryContext) error {
	return f(ctx, qc)
}

// RowProcessorFunc adapts a function to RowProcessor.
type RowProcessorFunc func(ctx context.Context, row *Row, qc *QueryContext) error

func (f RowProcessorFunc) ProcessRow(ctx context.Context, row *Row, qc *QueryContext) error {
	return f(ctx, row, qc)
}

// PostProcessorFunc adapts a function to PostProcessor.
type PostProcessorFunc func(ctx context.Context, result *Result, qc *QueryContext) error

func (f PostProcessorFunc) PostProcess(ctx context.Context, result *Result, qc *QueryContext) error {
	return f(ctx, result, qc)
}
