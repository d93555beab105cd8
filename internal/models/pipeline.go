package models

// Pipeline intermediates: the Scene Composer produces VisualClips, the Audio
// Synchronizer an AudioClip, and the Timeline Assembler combines both into a
// RenderSpec consumed by the Encoder.

// Layer is one composed visual element inside a clip, already resolved and
// ordered by Z.
type Layer struct {
	Kind     ElementType `json:"kind"`
	Source   string      `json:"source,omitempty"` // resolved asset path for image/video
	Text     string      `json:"text,omitempty"`
	Style    TextStyle   `json:"style,omitempty"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Rotation float64     `json:"rotation"`
	Opacity  float64     `json:"opacity"`
	FadeIn   float64     `json:"fade_in"`
	FadeOut  float64     `json:"fade_out"`
	Z        int         `json:"z"`
}

// VisualClip is one scene rendered down to a declarative clip spec: a
// background plus layers, sized to the render settings.
type VisualClip struct {
	SceneOrder      int     `json:"scene_order"`
	Duration        float64 `json:"duration"` // seconds, = scene duration
	BackgroundColor string  `json:"background_color,omitempty"`
	BackgroundPath  string  `json:"background_path,omitempty"` // rasterized gradient
	Layers          []Layer `json:"layers,omitempty"`
	Title           string  `json:"title,omitempty"`
}

// LoopIndefinite marks a segment whose source must repeat until the segment
// duration is filled, used when the source's natural length is unknown.
const LoopIndefinite = -1

// AudioSegment is one fitted track placement inside the mix. Loops counts the
// extra repetitions applied to fill the target window (0 = play once,
// LoopIndefinite = repeat until the duration clamp cuts it).
type AudioSegment struct {
	Source   string    `json:"source"`
	Track    TrackType `json:"track"`
	Start    float64   `json:"start"`    // offset in the mix, seconds
	Duration float64   `json:"duration"` // after fit, seconds
	Loops    int       `json:"loops"`
	Volume   float64   `json:"volume"` // effective, ducking already applied
	FadeIn   float64   `json:"fade_in"`
	FadeOut  float64   `json:"fade_out"`
}

// AudioClip is the single mixed audio track covering the full timeline.
type AudioClip struct {
	Duration float64        `json:"duration"`
	Segments []AudioSegment `json:"segments,omitempty"`
}

// Anchor is an advisory alignment hint: the audio cue found nearest a scene
// boundary within the sync tolerance window. Downstream consumers may use it;
// the pipeline itself never modifies audio because of one.
type Anchor struct {
	Boundary float64 `json:"boundary"` // scene boundary timestamp
	Cue      float64 `json:"cue"`      // matched audio cue timestamp
	Offset   float64 `json:"offset"`   // cue - boundary
	Type     string  `json:"type,omitempty"`
}

// TimedClip places a VisualClip on the assembled timeline.
type TimedClip struct {
	VisualClip
	Start float64 `json:"start"` // offset in the final timeline, seconds
}

// Transition is one crossfade window joining two consecutive clips.
type Transition struct {
	FromScene int     `json:"from_scene"`
	ToScene   int     `json:"to_scene"`
	Offset    float64 `json:"offset"` // where the crossfade begins
	Duration  float64 `json:"duration"`
}

// RenderSpec is the fully-assembled timeline handed to the Encoder.
type RenderSpec struct {
	Settings      Settings     `json:"settings"`
	Clips         []TimedClip  `json:"clips"`
	Transitions   []Transition `json:"transitions,omitempty"`
	Audio         AudioClip    `json:"audio"`
	Anchors       []Anchor     `json:"anchors,omitempty"`
	TotalDuration float64      `json:"total_duration"`
}
