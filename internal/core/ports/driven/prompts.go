package driven

// PromptStore provides access to prompt templates sent to the
// classification collaborator. Implementations may load prompts from
// user-editable files or fall back to embedded defaults.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next
	// access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptClassify asks the collaborator to classify one fragment.
	// The template expects a %s placeholder for the fragment text.
	PromptClassify = "classify"
)
