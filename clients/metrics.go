package clients

import (
	"context"
	"fmt"
)

// BaselineContract names the definition of the "input_" metrics: each metric
// of the unprocessed mixture against the references. The engine must echo it.
const BaselineContract = "input-vs-mixture/v1"

// --- Metrics engine (/metrics) ---
type MetricsReq struct {
	Mixture          []float32   `json:"mixture"`
	References       [][]float32 `json:"references"`
	Estimates        [][]float32 `json:"estimates"`
	SampleRate       int         `json:"sample_rate"`
	Metrics          []string    `json:"metrics"`
	BaselineContract string      `json:"baseline_contract"`
}
type MetricsResp struct {
	Metrics          map[string]float64 `json:"metrics"`
	BaselineContract string             `json:"baseline_contract"`
}

func (h *HTTP) Metrics(ctx context.Context, url string, req MetricsReq) (*MetricsResp, error) {
	var out MetricsResp
	if err := h.postJSON(ctx, "metrics", url+"/metrics", req, &out); err != nil {
		return nil, err
	}
	if out.BaselineContract != req.BaselineContract {
		return nil, fmt.Errorf("metrics: baseline contract %q, want %q", out.BaselineContract, req.BaselineContract)
	}
	return &out, nil
}

// MetricsEngine computes per-utterance quality metrics.
type MetricsEngine struct {
	h   *HTTP
	url string
}

func (h *HTTP) MetricsEngine(url string) *MetricsEngine { return &MetricsEngine{h: h, url: url} }

func (m *MetricsEngine) Compute(ctx context.Context, mix []float32, refs, est [][]float32, sampleRate int, metrics []string) (map[string]float64, error) {
	resp, err := m.h.Metrics(ctx, m.url, MetricsReq{
		Mixture:          mix,
		References:       refs,
		Estimates:        est,
		SampleRate:       sampleRate,
		Metrics:          metrics,
		BaselineContract: BaselineContract,
	})
	if err != nil {
		return nil, err
	}
	return resp.Metrics, nil
}
