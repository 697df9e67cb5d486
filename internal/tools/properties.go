package tools

// Property names a mutable product field tracked by the rollback engine
type Property string

// Tracked product properties
const (
	PropertyTitle            Property = "title"
	PropertyDescription      Property = "description"
	PropertyShortDescription Property = "short_description"
	PropertyTags             Property = "tags"
)

// PropertyTools names the fetch and update tools of a property and the
// argument key the update tool takes its value under.
type PropertyTools struct {
	FetchTool  string
	UpdateTool string
	ArgKey     string
}

// propertyTable is the single source of truth for the mapping between tool
// names and product fields. The rollback engine and the CLI both consult it.
var propertyTable = map[Property]PropertyTools{
	PropertyTitle: {
		FetchTool:  "get_product_title",
		UpdateTool: "update_product_title",
		ArgKey:     "title",
	},
	PropertyDescription: {
		FetchTool:  "get_product_description",
		UpdateTool: "update_product_description",
		ArgKey:     "description",
	},
	PropertyShortDescription: {
		FetchTool:  "get_product_short_description",
		UpdateTool: "update_product_short_description",
		ArgKey:     "short_description",
	},
	PropertyTags: {
		FetchTool:  "get_product_tags",
		UpdateTool: "update_product_tags",
		ArgKey:     "tags",
	},
}

// Tools returns the fetch/update tool binding of a property
func (p Property) Tools() (PropertyTools, bool) {
	t, ok := propertyTable[p]
	return t, ok
}

// PropertyForUpdateTool maps an update tool name to the property it
// mutates. Read-only tools have no mapping.
func PropertyForUpdateTool(toolName string) (Property, bool) {
	for property, t := range propertyTable {
		if t.UpdateTool == toolName {
			return property, true
		}
	}
	return "", false
}
