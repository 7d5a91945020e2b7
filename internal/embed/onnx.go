package embed

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig locates a sentence-transformer exported to ONNX (for example
// all-MiniLM-L6-v2) and its tokenizer.json.
type ONNXConfig struct {
	OrtLibrary    string
	ModelPath     string
	TokenizerPath string
	MaxSeqLen     int
	HiddenSize    int
}

// ONNXEmbedder runs the model in-process and mean-pools the last hidden
// state over non-padding tokens.
type ONNXEmbedder struct {
	cfg     ONNXConfig
	tk      *tokenizer.Tokenizer
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
	modelID string
}

var (
	ortOnce sync.Once
	ortErr  error
)

func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
		return nil, errors.New("onnx embedder: model and tokenizer paths are required")
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 256
	}
	if cfg.HiddenSize <= 0 {
		cfg.HiddenSize = 384
	}

	ortOnce.Do(func() {
		if cfg.OrtLibrary != "" {
			ort.SetSharedLibraryPath(cfg.OrtLibrary)
		}
		ortErr = ort.InitializeEnvironment()
	})
	if ortErr != nil {
		return nil, fmt.Errorf("init onnxruntime: %w", ortErr)
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", cfg.TokenizerPath, err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"}, nil)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", cfg.ModelPath, err)
	}

	return &ONNXEmbedder{
		cfg:     cfg,
		tk:      tk,
		session: session,
		modelID: filepath.Base(cfg.ModelPath),
	}, nil
}

func (o *ONNXEmbedder) ModelID() string { return "onnx/" + o.modelID }

// Close releases the session. The shared runtime environment stays up for
// the life of the process.
func (o *ONNXEmbedder) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}
	err := o.session.Destroy()
	o.session = nil
	return err
}

// EmbedText implements Embedder.
func (o *ONNXEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	enc, err := o.tk.EncodeSingle(NormalizeText(text), true)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	ids := enc.GetIds()
	mask := enc.GetAttentionMask()
	if len(ids) > o.cfg.MaxSeqLen {
		ids = ids[:o.cfg.MaxSeqLen]
		mask = mask[:o.cfg.MaxSeqLen]
	}
	n := len(ids)
	if n == 0 {
		return make([]float32, o.cfg.HiddenSize), nil
	}

	inputIDs := make([]int64, n)
	attention := make([]int64, n)
	typeIDs := make([]int64, n)
	for i := range ids {
		inputIDs[i] = int64(ids[i])
		attention[i] = int64(mask[i])
	}

	shape := ort.NewShape(1, int64(n))
	idsT, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, err
	}
	defer idsT.Destroy()
	maskT, err := ort.NewTensor(shape, attention)
	if err != nil {
		return nil, err
	}
	defer maskT.Destroy()
	typeT, err := ort.NewTensor(shape, typeIDs)
	if err != nil {
		return nil, err
	}
	defer typeT.Destroy()
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(n), int64(o.cfg.HiddenSize)))
	if err != nil {
		return nil, err
	}
	defer out.Destroy()

	o.mu.Lock()
	if o.session == nil {
		o.mu.Unlock()
		return nil, errors.New("onnx embedder is closed")
	}
	err = o.session.Run([]ort.Value{idsT, maskT, typeT}, []ort.Value{out})
	o.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("run model: %w", err)
	}

	return meanPool(out.GetData(), attention, o.cfg.HiddenSize), nil
}

// meanPool averages token vectors whose attention mask is set.
func meanPool(hidden []float32, mask []int64, dim int) []float32 {
	vec := make([]float32, dim)
	var count float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for i, x := range row {
			vec[i] += x
		}
		count++
	}
	if count == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= count
	}
	return vec
}
