package clients

import (
	"context"
	"fmt"
	"net/url"

	"github.com/maastricht-university/segan-eval/checkpoint"
)

// --- Model factory (/models) ---
type BuildReq struct {
	TrainConf map[string]any `json:"train_conf"`
}
type BuildResp struct {
	ModelID    string              `json:"model_id"`
	Parameters []checkpoint.Tensor `json:"parameters"`
}

func (h *HTTP) BuildModel(ctx context.Context, base string, trainConf map[string]any) (*BuildResp, error) {
	var out BuildResp
	if err := h.postJSON(ctx, "build model", base+"/models", BuildReq{TrainConf: trainConf}, &out); err != nil {
		return nil, err
	}
	if out.ModelID == "" {
		return nil, fmt.Errorf("build model: empty model id")
	}
	return &out, nil
}

// --- Checkpoint inspection (/checkpoints/inspect) ---
type InspectReq struct {
	Path string `json:"path"`
}
type InspectResp struct {
	Weights []checkpoint.Tensor `json:"weights"`
}

func (h *HTTP) InspectCheckpoint(ctx context.Context, base, path string) ([]checkpoint.Tensor, error) {
	var out InspectResp
	if err := h.postJSON(ctx, "inspect checkpoint", base+"/checkpoints/inspect", InspectReq{Path: path}, &out); err != nil {
		return nil, err
	}
	return out.Weights, nil
}

// --- Checkpoint loading (/models/{id}/load) ---
type LoadReq struct {
	Path    string            `json:"path"`
	Mapping map[string]string `json:"mapping"`
	Device  string            `json:"device"`
}
type LoadResp struct {
	Status string `json:"status"`
}

func (h *HTTP) LoadWeights(ctx context.Context, base, modelID string, req LoadReq) error {
	var out LoadResp
	return h.postJSON(ctx, "load weights", modelURL(base, modelID, "load"), req, &out)
}

// --- Forward pass (/models/{id}/forward) ---
type ForwardReq struct {
	Samples []float32 `json:"samples"`
}
type ForwardResp struct {
	Samples []float32 `json:"samples"`
}

func (h *HTTP) Forward(ctx context.Context, base, modelID string, samples []float32) ([]float32, error) {
	var out ForwardResp
	if err := h.postJSON(ctx, "forward", modelURL(base, modelID, "forward"), ForwardReq{Samples: samples}, &out); err != nil {
		return nil, err
	}
	if len(out.Samples) != len(samples) {
		return nil, fmt.Errorf("forward: got %d samples, sent %d", len(out.Samples), len(samples))
	}
	return out.Samples, nil
}

func modelURL(base, id, action string) string {
	return base + "/models/" + url.PathEscape(id) + "/" + action
}

// Model is a generator held by the generator service.
type Model struct {
	h    *HTTP
	base string
	ID   string
}

// Forward runs the generator on one window of samples.
func (m *Model) Forward(ctx context.Context, slice []float32) ([]float32, error) {
	return m.h.Forward(ctx, m.base, m.ID, slice)
}

// LoadGenerator builds the generator described by trainConf, maps the
// generator weights of the checkpoint at path onto it and places it on device.
func (h *HTTP) LoadGenerator(ctx context.Context, base string, trainConf map[string]any, path, device string) (*Model, error) {
	built, err := h.BuildModel(ctx, base, trainConf)
	if err != nil {
		return nil, err
	}
	weights, err := h.InspectCheckpoint(ctx, base, path)
	if err != nil {
		return nil, err
	}
	mapping, err := checkpoint.GeneratorMapping(weights, built.Parameters)
	if err != nil {
		return nil, err
	}
	if err := h.LoadWeights(ctx, base, built.ModelID, LoadReq{Path: path, Mapping: mapping, Device: device}); err != nil {
		return nil, err
	}
	return &Model{h: h, base: base, ID: built.ModelID}, nil
}
