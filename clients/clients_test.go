package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/segan-eval/checkpoint"
)

type fakeGenerator struct {
	params  []checkpoint.Tensor
	weights []checkpoint.Tensor
	loaded  LoadReq
	runIDs  []string
}

func (f *fakeGenerator) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, v any) {
		assert.NoError(t, json.NewEncoder(w).Encode(v))
	}
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		f.runIDs = append(f.runIDs, r.Header.Get(RequestIDHeader))
		var req BuildReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.TrainConf, "data")
		reply(w, BuildResp{ModelID: "g1", Parameters: f.params})
	})
	mux.HandleFunc("/checkpoints/inspect", func(w http.ResponseWriter, r *http.Request) {
		reply(w, InspectResp{Weights: f.weights})
	})
	mux.HandleFunc("/models/g1/load", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.loaded))
		reply(w, LoadResp{Status: "ok"})
	})
	mux.HandleFunc("/models/g1/forward", func(w http.ResponseWriter, r *http.Request) {
		var req ForwardReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		for i := range req.Samples {
			req.Samples[i] *= 2
		}
		reply(w, ForwardResp{Samples: req.Samples})
	})
	return mux
}

func TestLoadGeneratorAndForward(t *testing.T) {
	f := &fakeGenerator{
		params: []checkpoint.Tensor{{Name: "enc.weight", Shape: []int{4}}},
		weights: []checkpoint.Tensor{
			{Name: "generator.enc.weight", Shape: []int{4}},
			{Name: "discriminator.enc.weight", Shape: []int{9}},
		},
	}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	h := NewHTTP(5*time.Second, "run-1")
	ctx := context.Background()
	m, err := h.LoadGenerator(ctx, srv.URL, map[string]any{"data": map[string]any{"n_src": 1}}, "/ckpt/b.ckpt", "cpu")
	require.NoError(t, err)
	assert.Equal(t, "g1", m.ID)
	assert.Equal(t, []string{"run-1"}, f.runIDs)
	assert.Equal(t, LoadReq{
		Path:    "/ckpt/b.ckpt",
		Mapping: map[string]string{"generator.enc.weight": "enc.weight"},
		Device:  "cpu",
	}, f.loaded)

	out, err := m.Forward(ctx, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6}, out)
}

func TestLoadGeneratorShapeMismatch(t *testing.T) {
	f := &fakeGenerator{
		params:  []checkpoint.Tensor{{Name: "enc.weight", Shape: []int{4}}},
		weights: []checkpoint.Tensor{{Name: "generator.enc.weight", Shape: []int{5}}},
	}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	_, err := NewHTTP(5*time.Second, "").LoadGenerator(context.Background(), srv.URL, map[string]any{"data": nil}, "x.ckpt", "cpu")
	assert.ErrorIs(t, err, checkpoint.ErrShapeMismatch)
	assert.Empty(t, f.loaded.Path, "weights must not be loaded")
}

func TestServiceErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := NewHTTP(time.Second, "").Aligner(srv.URL).Align(context.Background(), [][]float32{{1}}, [][]float32{{1}})
	assert.ErrorContains(t, err, "500")
	assert.ErrorContains(t, err, "boom")
}

func TestAlign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pit", r.URL.Path)
		var req PITReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, PairwiseNegSISDR, req.Loss)
		json.NewEncoder(w).Encode(PITResp{Loss: -12.5, Reordered: [][]float32{req.Estimates[1], req.Estimates[0]}})
	}))
	defer srv.Close()

	loss, got, err := NewHTTP(time.Second, "").Aligner(srv.URL).Align(context.Background(),
		[][]float32{{1, 1}, {2, 2}}, [][]float32{{2, 2}, {1, 1}})
	require.NoError(t, err)
	assert.Equal(t, -12.5, loss)
	assert.Equal(t, [][]float32{{2, 2}, {1, 1}}, got)
}

func TestMetricsEngine(t *testing.T) {
	contract := BaselineContract
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req MetricsReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 16000, req.SampleRate)
		assert.Equal(t, []string{"si_sdr"}, req.Metrics)
		json.NewEncoder(w).Encode(MetricsResp{
			Metrics:          map[string]float64{"si_sdr": 10, "input_si_sdr": 4},
			BaselineContract: contract,
		})
	}))
	defer srv.Close()

	eng := NewHTTP(time.Second, "").MetricsEngine(srv.URL)
	call := func() (map[string]float64, error) {
		return eng.Compute(context.Background(), []float32{0}, [][]float32{{0}}, [][]float32{{0}}, 16000, []string{"si_sdr"})
	}

	got, err := call()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"si_sdr": 10, "input_si_sdr": 4}, got)

	contract = "input-vs-clean/v2"
	_, err = call()
	assert.ErrorContains(t, err, "baseline contract")
}
