package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"scribe/internal/logging"
	"scribe/internal/pipeline"
	"scribe/internal/transcript"
)

// Provider materializes the pipeline's inference capabilities as WhisperX
// worker subprocesses.
type Provider struct {
	cfg    Config
	logger *slog.Logger
}

// NewProvider creates a WhisperX capability provider.
func NewProvider(cfg Config, logger *slog.Logger) *Provider {
	if cfg.UVX == "" {
		cfg.UVX = UVXCommand
	}
	if cfg.Device == "" {
		cfg.Device = CPUDevice
	}
	return &Provider{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "whisperx"),
	}
}

// workerArgs builds the uvx invocation for one worker. CUDA installs need
// the torch wheel index ahead of PyPI.
func (p *Provider) workerArgs(device, driver, spec string) []string {
	args := make([]string, 0, 10)
	if device == CUDADevice {
		args = append(args, "--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}
	args = append(args, "--from", PackageSpec, "python", "-c", driver, spec)
	return args
}

func (p *Provider) logPath(role string) string {
	if p.cfg.ToolLogDir == "" {
		return ""
	}
	name := fmt.Sprintf("%s-%s.log", role, time.Now().UTC().Format("20060102-150405"))
	return filepath.Join(p.cfg.ToolLogDir, name)
}

func (p *Provider) startWorker(ctx context.Context, role, driver string, device string, spec any) (*worker, error) {
	encoded, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode %s worker config: %w", role, err)
	}
	args := p.workerArgs(device, driver, string(encoded))
	return startWorker(ctx, p.cfg.UVX, args, role, p.logPath(role), p.logger)
}

type asrSpec struct {
	Model       string  `json:"model"`
	Device      string  `json:"device"`
	ComputeType string  `json:"compute_type"`
	VADMethod   string  `json:"vad_method,omitempty"`
	VADOnset    float64 `json:"vad_onset,omitempty"`
	VADOffset   float64 `json:"vad_offset,omitempty"`
}

type asrRequest struct {
	AudioPath string `json:"audio_path"`
	Language  string `json:"language,omitempty"`
	Task      string `json:"task,omitempty"`
	BatchSize int    `json:"batch_size,omitempty"`
	ChunkSize int    `json:"chunk_size,omitempty"`
}

type asrResult struct {
	Segments []transcript.Segment `json:"segments"`
	Language string               `json:"language"`
}

// Load implements pipeline.ModelLoader by starting a transcription worker
// that holds the requested model until closed.
func (p *Provider) Load(ctx context.Context, key pipeline.ModelKey) (pipeline.Model, error) {
	spec := asrSpec{
		Model:       key.Model,
		Device:      key.Device,
		ComputeType: key.ComputeType,
		VADMethod:   p.cfg.VADMethod,
		VADOnset:    p.cfg.VADOnset,
		VADOffset:   p.cfg.VADOffset,
	}
	w, err := p.startWorker(ctx, "asr", asrDriver, key.Device, spec)
	if err != nil {
		return nil, err
	}
	return &asrModel{worker: w}, nil
}

type asrModel struct {
	worker *worker
}

func (m *asrModel) Transcribe(ctx context.Context, req pipeline.TranscribeRequest) (pipeline.TranscribeResult, error) {
	raw, err := m.worker.call(ctx, asrRequest{
		AudioPath: req.AudioPath,
		Language:  req.Language,
		Task:      req.Task,
		BatchSize: req.BatchSize,
		ChunkSize: req.ChunkSize,
	})
	if err != nil {
		return pipeline.TranscribeResult{}, err
	}
	var result asrResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return pipeline.TranscribeResult{}, fmt.Errorf("parse transcription result: %w", err)
	}
	doc := &transcript.Document{Segments: result.Segments, Language: result.Language}
	return pipeline.TranscribeResult{Document: doc, Language: result.Language}, nil
}

func (m *asrModel) Close() error {
	return m.worker.Close()
}

type alignSpec struct {
	Language   string `json:"language"`
	Device     string `json:"device"`
	AlignModel string `json:"align_model,omitempty"`
}

type alignRequest struct {
	AudioPath            string               `json:"audio_path"`
	Segments             []transcript.Segment `json:"segments"`
	InterpolateMethod    string               `json:"interpolate_method,omitempty"`
	ReturnCharAlignments bool                 `json:"return_char_alignments"`
}

type alignResult struct {
	Segments []transcript.Segment `json:"segments"`
}

// LoadAligner implements pipeline.AlignerLoader with a per-language
// alignment worker.
func (p *Provider) LoadAligner(ctx context.Context, language, modelOverride string) (pipeline.Aligner, error) {
	spec := alignSpec{
		Language:   language,
		Device:     p.cfg.Device,
		AlignModel: modelOverride,
	}
	w, err := p.startWorker(ctx, "align", alignDriver, p.cfg.Device, spec)
	if err != nil {
		return nil, err
	}
	return &alignerWorker{worker: w}, nil
}

type alignerWorker struct {
	worker *worker
}

func (a *alignerWorker) Align(ctx context.Context, req pipeline.AlignRequest) (*transcript.Document, error) {
	if req.Document == nil {
		return nil, fmt.Errorf("align: document required")
	}
	raw, err := a.worker.call(ctx, alignRequest{
		AudioPath:            req.AudioPath,
		Segments:             req.Document.Segments,
		InterpolateMethod:    req.InterpolateMethod,
		ReturnCharAlignments: req.ReturnCharAlignments,
	})
	if err != nil {
		return nil, err
	}
	var result alignResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parse alignment result: %w", err)
	}
	return &transcript.Document{Segments: result.Segments, Language: req.Document.Language}, nil
}

func (a *alignerWorker) Close() error {
	return a.worker.Close()
}

type diarizeSpec struct {
	Device  string `json:"device"`
	HFToken string `json:"hf_token,omitempty"`
}

type diarizeRequest struct {
	AudioPath   string `json:"audio_path"`
	MinSpeakers int    `json:"min_speakers,omitempty"`
	MaxSpeakers int    `json:"max_speakers,omitempty"`
}

type diarizeResult struct {
	Turns []transcript.SpeakerTurn `json:"turns"`
}

// LoadDiarizer implements pipeline.DiarizerLoader. The worker carries the
// Hugging Face token needed for the gated pyannote models.
func (p *Provider) LoadDiarizer(ctx context.Context) (pipeline.Diarizer, error) {
	spec := diarizeSpec{
		Device:  p.cfg.Device,
		HFToken: p.cfg.HFToken,
	}
	w, err := p.startWorker(ctx, "diarize", diarizeDriver, p.cfg.Device, spec)
	if err != nil {
		return nil, err
	}
	return &diarizerWorker{worker: w}, nil
}

type diarizerWorker struct {
	worker *worker
}

func (d *diarizerWorker) Diarize(ctx context.Context, req pipeline.DiarizeRequest) ([]transcript.SpeakerTurn, error) {
	raw, err := d.worker.call(ctx, diarizeRequest{
		AudioPath:   req.AudioPath,
		MinSpeakers: req.MinSpeakers,
		MaxSpeakers: req.MaxSpeakers,
	})
	if err != nil {
		return nil, err
	}
	var result diarizeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parse diarization result: %w", err)
	}
	return result.Turns, nil
}

func (d *diarizerWorker) Close() error {
	return d.worker.Close()
}

var (
	_ pipeline.ModelLoader    = (*Provider)(nil)
	_ pipeline.AlignerLoader  = (*Provider)(nil)
	_ pipeline.DiarizerLoader = (*Provider)(nil)
)
