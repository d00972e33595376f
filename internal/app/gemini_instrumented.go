package app

import (
	"context"
	"time"

	"github.com/yungbote/eduplanner-backend/internal/observability"
	"github.com/yungbote/eduplanner-backend/internal/platform/gemini"
)

type instrumentedGemini struct {
	inner   gemini.Client
	metrics *observability.Metrics
}

func instrumentGemini(inner gemini.Client) gemini.Client {
	if inner == nil {
		return nil
	}
	return &instrumentedGemini{inner: inner, metrics: observability.Current()}
}

func (c *instrumentedGemini) GenerateText(ctx context.Context, system string, user string) (string, error) {
	start := time.Now()
	out, err := c.inner.GenerateText(ctx, system, user)
	c.observe("text", err, time.Since(start))
	return out, err
}

func (c *instrumentedGemini) GenerateJSON(ctx context.Context, system string, user string, schema *gemini.Schema, out any) error {
	start := time.Now()
	err := c.inner.GenerateJSON(ctx, system, user, schema, out)
	c.observe("json", err, time.Since(start))
	return err
}

func (c *instrumentedGemini) Enabled() bool { return c.inner.Enabled() }

func (c *instrumentedGemini) observe(mode string, err error, dur time.Duration) {
	if c == nil || c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.ObserveGeneration(mode, status, dur)
}
