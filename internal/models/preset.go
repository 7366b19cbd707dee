package models

// Stage identifies which model call a preset is for.
type Stage string

const (
	// StageDirect is the single call made when the input fits the ceiling.
	StageDirect Stage = "direct"
	// StageChunk summarizes one chunk.
	StageChunk Stage = "chunk"
	// StageCombine produces the final summary from combined chunk summaries.
	StageCombine Stage = "combine"
)

// Preset holds decoding parameters passed opaquely to the model.
type Preset struct {
	DoSample    bool    `json:"do_sample"`
	NumBeams    int     `json:"num_beams"`
	Temperature float64 `json:"temperature,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

var (
	reliablePreset = Preset{DoSample: false, NumBeams: 5}
	creativePreset = Preset{DoSample: true, NumBeams: 5, Temperature: 1.2, TopK: 50, TopP: 0.9}
	// the final combine call samples from a wider distribution
	creativeCombinePreset = Preset{DoSample: true, NumBeams: 5, Temperature: 1.2, TopK: 100, TopP: 0.95}
)

// PresetFor maps a mode and stage to generation parameters. Chunk partials
// are always decoded deterministically; only the direct and combine calls
// follow the mode.
func PresetFor(mode Mode, stage Stage) Preset {
	if mode != ModeCreative || stage == StageChunk {
		return reliablePreset
	}
	if stage == StageCombine {
		return creativeCombinePreset
	}
	return creativePreset
}
