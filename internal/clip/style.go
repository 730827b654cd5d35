package clip

import (
	"github.com/ivlev/framestudio/internal/timecode"
)

// Style carries the presentation fields shared by every clip type.
// Type-specific presentation lives in the per-variant payloads.
type Style struct {
	Stroke       *Stroke `json:"stroke,omitempty"`
	Shadow       *Shadow `json:"shadow,omitempty"`
	BorderRadius float64 `json:"borderRadius,omitempty"`
}

// Stroke is an outline drawn around the clip's bounds.
type Stroke struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// Shadow is a drop shadow behind the clip.
type Shadow struct {
	Color   string  `json:"color"`
	Blur    float64 `json:"blur"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// TextPayload is the text-clip variant payload.
type TextPayload struct {
	Text       string  `json:"text"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize"`
	Color      string  `json:"color"`
	Align      string  `json:"align,omitempty"`
	LineHeight float64 `json:"lineHeight,omitempty"`
}

// MediaPayload is shared by video, audio and image clips.
type MediaPayload struct {
	Src    string  `json:"src"`
	Volume float64 `json:"volume,omitempty"`
	Muted  bool    `json:"muted,omitempty"`
	// DPI applies to document-backed sources.
	DPI int `json:"dpi,omitempty"`
	// Page selects a page for document-backed sources.
	Page int `json:"page,omitempty"`
}

// EffectPayload marks an adjustment-layer clip: the named post-process
// applies to everything stacked below while the clip is active.
type EffectPayload struct {
	Name      string  `json:"name"`
	Intensity float64 `json:"intensity,omitempty"`
}

// Word is a single timed caption word. From and To are in-clip times.
type Word struct {
	Text      string          `json:"text"`
	From      timecode.Micros `json:"from"`
	To        timecode.Micros `json:"to"`
	IsKeyWord bool            `json:"isKeyWord,omitempty"`
}

// CaptionColors selects colors for the three word states.
type CaptionColors struct {
	Base    string `json:"base"`
	Active  string `json:"active"`
	KeyWord string `json:"keyWord"`
}

// DefaultCaptionColors returns the standard caption palette.
func DefaultCaptionColors() CaptionColors {
	return CaptionColors{Base: "#ffffff", Active: "#facc15", KeyWord: "#4ade80"}
}

// CaptionPayload is the caption-clip variant payload.
type CaptionPayload struct {
	Words    []Word        `json:"words"`
	Colors   CaptionColors `json:"colors"`
	FontSize float64       `json:"fontSize,omitempty"`
}

func (p *CaptionPayload) clone() *CaptionPayload {
	out := *p
	out.Words = append([]Word(nil), p.Words...)
	return &out
}

// ActiveWords returns the indices of words spoken at an in-clip time.
func (p *CaptionPayload) ActiveWords(rel timecode.Micros) []int {
	var active []int
	for i, w := range p.Words {
		if rel >= w.From && rel < w.To {
			active = append(active, i)
		}
	}
	return active
}

// ColorFor resolves the display color for a word at an in-clip time.
func (p *CaptionPayload) ColorFor(i int, rel timecode.Micros) string {
	w := p.Words[i]
	switch {
	case rel >= w.From && rel < w.To && w.IsKeyWord:
		return p.Colors.KeyWord
	case rel >= w.From && rel < w.To:
		return p.Colors.Active
	default:
		return p.Colors.Base
	}
}
