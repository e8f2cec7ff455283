package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

// Multi-stage downloads reset the tool's own percentage counter between
// stages, so raw percentages are remapped onto a single 0-100 scale:
// video 0-45, audio 45-90, merge/postprocess 90-100. Single-stage
// downloads span 0-90 with the final 10 reserved for postprocessing.
// The consumer owns monotonicity; the parser only remaps and clamps.
const (
	stageFirstTwoStageEnd = 45
	stageSecondEnd        = 90
)

var percentRe = regexp.MustCompile(`^\[download\]\s+([0-9]+(?:\.[0-9]+)?)%`)

// Update is one parsed progress sample.
type Update struct {
	Percent int

	// Postprocess is true once the tool entered its merge or
	// transcode stage.
	Postprocess bool
}

// ProgressParser turns the tool's line-oriented progress output into
// Updates. It is not safe for concurrent use.
type ProgressParser struct {
	twoStage     bool
	destinations int
	post         bool
}

// NewProgressParser returns a parser. twoStage hints that separate
// video and audio fetches are expected; the parser adapts if the hint
// turns out wrong.
func NewProgressParser(twoStage bool) *ProgressParser {
	return &ProgressParser{twoStage: twoStage}
}

// Parse consumes one output line. ok is false for lines that carry no
// progress information.
func (pp *ProgressParser) Parse(line string) (u Update, ok bool) {
	line = strings.TrimSpace(line)

	if strings.HasPrefix(line, "[download] Destination:") {
		pp.destinations++
		if pp.destinations > 1 {
			pp.twoStage = true
		}
		return Update{}, false
	}

	if strings.HasPrefix(line, "[Merger]") ||
		strings.HasPrefix(line, "[ExtractAudio]") ||
		strings.HasPrefix(line, "[FixupM3u8]") ||
		strings.HasPrefix(line, "[ffmpeg]") {
		pp.post = true
		return Update{Percent: stageSecondEnd, Postprocess: true}, true
	}

	m := percentRe.FindStringSubmatch(line)
	if m == nil {
		return Update{}, false
	}
	raw, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Update{}, false
	}
	if raw < 0 {
		raw = 0
	} else if raw > 100 {
		raw = 100
	}

	if pp.post {
		// Fixup stages re-emit download lines; stay at the
		// postprocess mark.
		return Update{Percent: stageSecondEnd, Postprocess: true}, true
	}

	switch {
	case pp.twoStage && pp.destinations <= 1:
		u.Percent = int(raw * stageFirstTwoStageEnd / 100)
	case pp.twoStage:
		u.Percent = stageFirstTwoStageEnd + int(raw*(stageSecondEnd-stageFirstTwoStageEnd)/100)
	default:
		u.Percent = int(raw * stageSecondEnd / 100)
	}
	return u, true
}
