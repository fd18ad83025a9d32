package pipeline

import "github.com/yungbote/bizplan-backend/internal/domain/analysis"

const (
	FormSourceTemplate = "TEMPLATE"
	FormSourceTOC      = "TOC"

	UserFormTemplate = "template_based"
	UserFormTOC      = "toc_based"
)

type DocumentSummary struct {
	DocumentID       string                `json:"document_id"`
	Filename         string                `json:"file_name"`
	DocumentType     analysis.DocumentType `json:"document_type"`
	PageCount        int                   `json:"page_count"`
	AttachmentNumber *int                  `json:"attachment_number,omitempty"`
}

type FeaturesSummary struct {
	TotalCount int `json:"total_count"`
}

// UserForm is what the author fills: the template itself or the derived TOC.
type UserForm struct {
	Type         string             `json:"type"`
	TemplateFile string             `json:"template_file,omitempty"`
	Sections     []analysis.Section `json:"sections"`
}

type Response struct {
	Status              string                        `json:"status"`
	ProjectIdx          int64                         `json:"project_idx"`
	UserID              string                        `json:"user_id"`
	FormSource          string                        `json:"form_source"`
	Documents           []DocumentSummary             `json:"documents"`
	FeaturesSummary     FeaturesSummary               `json:"features_summary"`
	Features            []analysis.ExtractedFeature   `json:"features"`
	AttachmentTemplates []analysis.AttachmentTemplate `json:"attachment_templates"`
	TableOfContents     *analysis.TOC                 `json:"table_of_contents"`
	UserForm            UserForm                      `json:"user_form"`
	Errors              []string                      `json:"errors"`
}

func NewResponse(run *analysis.Run) *Response {
	r := &Response{
		Status:              "success",
		ProjectIdx:          run.ProjectIdx,
		UserID:              run.UserID,
		FormSource:          FormSourceTOC,
		Documents:           make([]DocumentSummary, 0, len(run.Documents)),
		FeaturesSummary:     FeaturesSummary{TotalCount: len(run.Features)},
		Features:            run.Features,
		AttachmentTemplates: run.Templates,
		TableOfContents:     run.TOC,
		UserForm:            UserForm{Type: UserFormTOC},
		Errors:              run.Errors,
	}
	for _, d := range run.Documents {
		r.Documents = append(r.Documents, DocumentSummary{
			DocumentID:       d.ID,
			Filename:         d.Filename,
			DocumentType:     d.Type,
			PageCount:        d.PageCount,
			AttachmentNumber: d.AttachmentNumber,
		})
	}
	if r.Features == nil {
		r.Features = []analysis.ExtractedFeature{}
	}
	if r.AttachmentTemplates == nil {
		r.AttachmentTemplates = []analysis.AttachmentTemplate{}
	}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if run.TOC != nil {
		r.UserForm.Sections = run.TOC.Sections
		if run.TOC.Source == analysis.SourceTemplate {
			r.FormSource = FormSourceTemplate
			r.UserForm.Type = UserFormTemplate
			r.UserForm.TemplateFile = run.TOC.SourceFile
		}
	}
	return r
}
