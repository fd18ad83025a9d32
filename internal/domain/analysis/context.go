package analysis

// Context is the analysis output the drafting agent and verifier consume.
type Context struct {
	Features      []ExtractedFeature `json:"extracted_features"`
	TOC           *TOC               `json:"table_of_contents"`
	DraftStrategy string             `json:"draft_strategy,omitempty"`
}

func (c *Context) Feature(code string) *ExtractedFeature {
	if c == nil {
		return nil
	}
	for i := range c.Features {
		if c.Features[i].Code == code {
			return &c.Features[i]
		}
	}
	return nil
}

func (c *Context) Sections() []Section {
	if c == nil || c.TOC == nil {
		return nil
	}
	return c.TOC.Sections
}
