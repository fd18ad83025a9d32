package analysis

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusInitialized       Status = "initialized"
	StatusIndexed           Status = "indexed"
	StatusFeaturesExtracted Status = "features_extracted"
	StatusTemplatesDetected Status = "templates_detected"
	StatusTOCExtracted      Status = "toc_extracted"
	StatusCompleted         Status = "completed"
)

var statusRank = map[Status]int{
	StatusInitialized:       0,
	StatusIndexed:           1,
	StatusFeaturesExtracted: 2,
	StatusTemplatesDetected: 3,
	StatusTOCExtracted:      4,
	StatusCompleted:         5,
}

// Run is the analysis aggregate for a single graph invocation.
type Run struct {
	ProjectIdx int64
	UserID     string
	Files      []InputFile

	Status Status
	Errors []string

	Collection      string
	Documents       []*Document
	Chunks          []Chunk
	Features        []ExtractedFeature
	Templates       []AttachmentTemplate
	PrimaryTemplate *AttachmentTemplate
	TOC             *TOC
}

func NewRun(projectIdx int64, userID string, files []InputFile) *Run {
	return &Run{
		ProjectIdx: projectIdx,
		UserID:     strings.TrimSpace(userID),
		Files:      files,
		Status:     StatusInitialized,
		Errors:     []string{},
	}
}

// Advance moves the status forward; a lower status is ignored.
func (r *Run) Advance(s Status) {
	if statusRank[s] > statusRank[r.Status] {
		r.Status = s
	}
}

func (r *Run) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Announcement returns the first announcement document, if any.
func (r *Run) Announcement() *Document {
	for _, d := range r.Documents {
		if d.Type == DocumentAnnouncement {
			return d
		}
	}
	return nil
}

func (r *Run) Document(filename string) *Document {
	for _, d := range r.Documents {
		if d.Filename == filename {
			return d
		}
	}
	return nil
}

func (r *Run) Feature(code string) *ExtractedFeature {
	for i := range r.Features {
		if r.Features[i].Code == code {
			return &r.Features[i]
		}
	}
	return nil
}
