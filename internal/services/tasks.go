package services

// TaskPreset is a canned task instruction offered by the CLI
type TaskPreset struct {
	Name        string `json:"name"`
	Instruction string `json:"instruction"`
}

// DefaultTaskPresets returns the built-in task presets in display order
func DefaultTaskPresets() []TaskPreset {
	return []TaskPreset{
		{
			Name:        "add_product_tags",
			Instruction: "Add relevant product tags to the product. Check first if the product already has tags and which tags are already available. If you think there are tags missing you are allowed to create new ones yourself.",
		},
		{
			Name:        "add_short_description",
			Instruction: "Add a short description to the product based on the information you can find about this product.",
		},
	}
}

// FindTaskPreset looks up a preset by name
func FindTaskPreset(name string) (TaskPreset, bool) {
	for _, preset := range DefaultTaskPresets() {
		if preset.Name == name {
			return preset, true
		}
	}
	return TaskPreset{}, false
}
