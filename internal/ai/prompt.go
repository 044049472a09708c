package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thywilljoshua/repot-ai/internal/template"
)

const (
	// MaxSourceRunes caps how much source material goes into one prompt.
	MaxSourceRunes = 9000
	// MaxWrittenRunes caps each already-written section quoted back to the model.
	MaxWrittenRunes = 300
)

// SystemPrompt is the system instruction for a document type label.
func SystemPrompt(docType string) string {
	return fmt.Sprintf("You are an expert teaching assistant who helps students write a %s. Answer in an academic, logically structured way.", docType)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + " ... (truncated)"
}

// StepPrompt asks for the keys of one generation step as a JSON object.
// written holds the text of sections filled so far; the step's own keys are
// left out so a rewrite starts fresh.
func StepPrompt(docType string, step template.Step, source string, written map[string]string) string {
	keys := step.Section()
	var only string
	if len(step.Keys) == 1 {
		only = fmt.Sprintf("Put the content under the %q key.", step.Keys[0])
	} else {
		only = "Put each item's content as a string under its own key."
	}
	sep := ""
	if keys != "" {
		sep = ", "
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional document writer. Using the material provided, write the items below and return them as JSON.\n\n")
	fmt.Fprintf(&b, "[Document type]: %s\n[Items]: %s\n\n", docType, keys)
	b.WriteString("[Allowed output keys]\n")
	fmt.Fprintf(&b, "- Use only these keys: %s%s%s1~%s%d, %s\n", keys, sep, template.TablePrefix, template.TablePrefix, template.MaxTables, template.DeleteKey)
	b.WriteString("- Any other key (title, content, ...) is forbidden.\n\n")
	b.WriteString("[Rules]\n")
	b.WriteString("1) Write professional Korean. No markdown.\n")
	b.WriteString("2) Output JSON only, no explanations.\n")
	b.WriteString("3) Do not assert what the material does not say; you may write that it could not be confirmed from the material.\n")
	fmt.Fprintf(&b, "4) No markdown tables. Tables go only under %s1~%s%d as {\"title\": ..., \"columns\": [...], \"rows\": [[...]]}.\n", template.TablePrefix, template.TablePrefix, template.MaxTables)
	b.WriteString("5) APPENDIX must be a string. No objects, arrays or tables in APPENDIX.\n")
	fmt.Fprintf(&b, "6) To remove a table, list it under %s: {\"%s\": [\"TABLE_9\"]}\n", template.DeleteKey, template.DeleteKey)
	fmt.Fprintf(&b, "7) Every key other than %s* must hold a string value.\n", template.TablePrefix)
	fmt.Fprintf(&b, "8) %s\n\n", only)
	fmt.Fprintf(&b, "[Additional request]: %s\n\n", step.Request)
	if prev := writtenContext(step, written); prev != "" {
		b.WriteString("[Already written] (keep consistent, do not repeat)\n")
		b.WriteString(prev)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "[Material]: %s\n", truncate(source, MaxSourceRunes))
	return b.String()
}

func writtenContext(step template.Step, written map[string]string) string {
	own := template.NewKeySet(step.Keys)
	keys := make([]string, 0, len(written))
	for k, v := range written {
		if strings.TrimSpace(v) != "" && !own.Has(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, truncate(strings.TrimSpace(written[k]), MaxWrittenRunes))
	}
	return b.String()
}

// FeedbackPrompt asks for a corrective patch over any allowed key.
func FeedbackPrompt(docType, feedback string, allowed []string, hintedDeletes []string) string {
	hints := "none"
	if len(hintedDeletes) > 0 {
		hints = strings.Join(hintedDeletes, ", ")
	}

	var b strings.Builder
	b.WriteString("You generate document correction patches. Turn the user's feedback into a JSON patch for the document.\n\n")
	fmt.Fprintf(&b, "[Document type]: %s\n[User feedback]: %s\n\n", docType, feedback)
	fmt.Fprintf(&b, "[Allowed keys]:\n%s\n\n", strings.Join(allowed, ", "))
	b.WriteString("[Rules]\n")
	b.WriteString("1) Respond with JSON only.\n")
	b.WriteString("2) Give a new value under the key of every item to change.\n")
	fmt.Fprintf(&b, "3) List keys to remove in the %s array, e.g. {\"%s\": [\"TABLE_9\"]}\n", template.DeleteKey, template.DeleteKey)
	fmt.Fprintf(&b, "4) Tables only under %s* (object form). APPENDIX must be a string.\n", template.TablePrefix)
	fmt.Fprintf(&b, "5) If the user asks to remove a table, %s must contain the %s* key.\n", template.DeleteKey, template.TablePrefix)
	fmt.Fprintf(&b, "6) Every key other than %s* must hold a string value.\n\n", template.TablePrefix)
	fmt.Fprintf(&b, "[Table removal candidates]\n%s\n\n", hints)
	b.WriteString("[Example output]\n{\n  \"DELETE\": [\"TABLE_9\"],\n  \"NOTES\": \"revised notes...\"\n}\n")
	return b.String()
}
