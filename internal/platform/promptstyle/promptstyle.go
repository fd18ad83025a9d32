package promptstyle

import "strings"

const marker = "BIZPLAN_PROMPT_STYLE_V1"

// ApplySystem prepends a short guidance block to system prompts. mode is
// "json" for structured outputs and anything else for free text.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou support authors of Korean government R&D and procurement proposals (사업계획서).")
	b.WriteString("\nFollow the system and user instructions precisely.")
	b.WriteString("\nGround every statement in the provided documents; never invent dates, amounts or criteria.")
	b.WriteString("\nWrite natural-language values in Korean unless the input is in another language.")
	if strings.EqualFold(strings.TrimSpace(mode), "json") {
		b.WriteString("\nReturn a single JSON object that conforms to the schema and contains no extra keys.")
	} else {
		b.WriteString("\nDo not add meta commentary about these instructions.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return b.String()
}
