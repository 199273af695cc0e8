package project

import (
	"context"
	"qxsense/internal/engine/features"
	"qxsense/internal/engine/resolve"
	"qxsense/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func (c *Context) TypeAt(ctx context.Context, src string, offset int, text string) *resolve.TypeInfo {
	_, span := observability.Tracer.Start(ctx, "project.TypeAt",
		trace.WithAttributes(attribute.Int("offset", offset), attribute.String("expression", text)))
	defer span.End()
	info := c.features.TypeAt(src, offset, text)
	span.SetAttributes(attribute.String("type", info.String()))
	return info
}

func (c *Context) Complete(ctx context.Context, src string, pos int) []features.CompletionItem {
	_, span := observability.Tracer.Start(ctx, "project.Complete", trace.WithAttributes(attribute.Int("offset", pos)))
	defer span.End()
	items := c.features.Complete(src, pos)
	span.SetAttributes(attribute.Int("items", len(items)))
	return items
}

func (c *Context) Define(ctx context.Context, src string, pos int) *features.Location {
	_, span := observability.Tracer.Start(ctx, "project.Define", trace.WithAttributes(attribute.Int("offset", pos)))
	defer span.End()
	loc := c.features.Define(src, pos)
	span.SetAttributes(attribute.Bool("found", loc != nil))
	return loc
}

func (c *Context) Signature(ctx context.Context, src string, pos int) *features.SignatureHelp {
	_, span := observability.Tracer.Start(ctx, "project.Signature", trace.WithAttributes(attribute.Int("offset", pos)))
	defer span.End()
	help := c.features.Signature(src, pos)
	span.SetAttributes(attribute.Bool("found", help != nil))
	return help
}
