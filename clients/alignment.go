package clients

import (
	"context"
	"fmt"
)

// PairwiseNegSISDR is the pairwise cost used to pick the source permutation.
const PairwiseNegSISDR = "pairwise_neg_sisdr"

// --- Permutation alignment (/pit) ---
type PITReq struct {
	Estimates  [][]float32 `json:"estimates"`
	References [][]float32 `json:"references"`
	Loss       string      `json:"loss"`
}
type PITResp struct {
	Loss      float64     `json:"loss"`
	Reordered [][]float32 `json:"reordered"`
}

func (h *HTTP) PIT(ctx context.Context, url string, req PITReq) (*PITResp, error) {
	var out PITResp
	if err := h.postJSON(ctx, "pit", url+"/pit", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Aligner reorders estimated sources to best match the references.
type Aligner struct {
	h   *HTTP
	url string
}

func (h *HTTP) Aligner(url string) *Aligner { return &Aligner{h: h, url: url} }

func (a *Aligner) Align(ctx context.Context, est, refs [][]float32) (float64, [][]float32, error) {
	resp, err := a.h.PIT(ctx, a.url, PITReq{Estimates: est, References: refs, Loss: PairwiseNegSISDR})
	if err != nil {
		return 0, nil, err
	}
	if len(resp.Reordered) != len(est) {
		return 0, nil, fmt.Errorf("pit: got %d sources back, sent %d", len(resp.Reordered), len(est))
	}
	return resp.Loss, resp.Reordered, nil
}
