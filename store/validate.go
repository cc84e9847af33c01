package store

import (
	"fmt"

	"github.com/alphapresenter/alphapresenter/playback"
)

// IssueKind classifies a validation finding.
type IssueKind string

const (
	IssueTimer IssueKind = "timer"
	IssueLoop  IssueKind = "loop"
	IssueText  IssueKind = "text"
	IssueAudio IssueKind = "audio"
)

// SlideIssues collects the findings for one slide.
type SlideIssues struct {
	Index        int
	Kinds        map[IssueKind]bool
	Descriptions []string
}

func (si *SlideIssues) add(kind IssueKind, format string, args ...any) {
	si.Kinds[kind] = true
	si.Descriptions = append(si.Descriptions, fmt.Sprintf(format, args...))
}

// ValidatePlaylist checks a playlist for configurations that would
// silently do nothing at playback time: timers that can never matter,
// loops that never trigger, self loops, broken text ranges and missing
// audio programs. Findings are advisory; playback degrades gracefully
// either way.
func (s *Store) ValidatePlaylist(playlist *playback.Playlist) []SlideIssues {
	if playlist == nil || len(playlist.Slides) == 0 {
		return nil
	}

	var found []SlideIssues
	total := len(playlist.Slides)
	for i, slide := range playlist.Slides {
		issues := SlideIssues{Index: i, Kinds: make(map[IssueKind]bool)}
		loopTarget := slide.LoopToSlide

		// A duration timer on the last slide with no text only matters
		// if it loops somewhere other than itself.
		if i == total-1 && slide.Duration > 0 && slide.TextOverlay == nil {
			if loopTarget == 0 || loopTarget == i+1 {
				issues.add(IssueTimer, "useless timer on last slide")
			}
		}

		// A loop target without a duration never fires.
		if loopTarget > 0 && slide.Duration == 0 {
			issues.add(IssueLoop, "inactive loop (zero duration)")
		}

		if loopTarget > total {
			issues.add(IssueLoop, "loop target %d beyond playlist end", loopTarget)
		}

		if loopTarget == i+1 && total > 1 {
			lastSelfHold := i == total-1 && slide.Duration > 0 && slide.TextOverlay == nil
			if !lastSelfHold {
				issues.add(IssueLoop, "slide loops to itself")
			}
		}

		if slide.TextOverlay != nil {
			s.validateOverlay(slide.TextOverlay, &issues)
		}

		if slide.AudioProgramName != "" {
			if _, err := s.LoadProgram(slide.AudioProgramName); err != nil {
				issues.add(IssueAudio, "audio program %q missing", slide.AudioProgramName)
			}
		}

		if len(issues.Kinds) > 0 {
			found = append(found, issues)
		}
	}
	s.log.Info("playlist validated", "slides", total, "slides_with_issues", len(found))
	return found
}

func (s *Store) validateOverlay(ov *playback.TextOverlay, issues *SlideIssues) {
	if ov.ParagraphName == "" {
		issues.add(IssueText, "text overlay has no paragraph name")
		return
	}
	para, err := s.LoadParagraph(ov.ParagraphName)
	if err != nil {
		issues.add(IssueText, "paragraph %q missing", ov.ParagraphName)
		return
	}
	total := len(para.Sentences)
	if total == 0 {
		issues.add(IssueText, "paragraph %q is empty", ov.ParagraphName)
		return
	}
	start := ov.StartSentence - 1
	end := ov.EndSentence.Resolve(total)
	if start < 0 || start >= total || end < start || end >= total {
		issues.add(IssueText, "text range invalid for %q", ov.ParagraphName)
	}
}
