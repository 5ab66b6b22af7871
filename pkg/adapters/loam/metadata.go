package loam

// DocTypeExploration marks the document holding exploration settings.
const DocTypeExploration = "exploration"

// DocumentMetadata is the frontmatter of a document in an exploration
// directory. One document per directory carries `type: exploration`; the
// rest describe states, their markdown body becoming the state content.
type DocumentMetadata struct {
	Type string `json:"type" mapstructure:"type"`

	// Exploration settings
	Title     string `json:"title" mapstructure:"title"`
	Category  string `json:"category" mapstructure:"category"`
	InitState string `json:"init_state" mapstructure:"init_state"`

	// Name overrides the state name derived from the file name.
	Name string `json:"name" mapstructure:"name"`

	Widget       string         `json:"widget" mapstructure:"widget"`
	WidgetArgs   map[string]any `json:"widget_args" mapstructure:"widget_args"`
	Sticky       bool           `json:"sticky" mapstructure:"sticky"`
	Rules        []LoaderRule   `json:"rules" mapstructure:"rules"`
	Options      []LoaderRule   `json:"options" mapstructure:"options"`
	ParamChanges []LoaderParam  `json:"param_changes" mapstructure:"param_changes"`

	// To is shorthand for the default rule's destination.
	To string `json:"to" mapstructure:"to"`
}

type LoaderRule struct {
	Name        string         `json:"name" mapstructure:"name"`
	Description string         `json:"description" mapstructure:"description"`
	Inputs      map[string]any `json:"inputs" mapstructure:"inputs"`
	Condition   string         `json:"condition" mapstructure:"condition"`
	To          string         `json:"to" mapstructure:"to"`
	Feedback    []string       `json:"feedback" mapstructure:"feedback"`
	// Text is the choice label for options. It is also used as the implicit
	// match condition when Condition is empty.
	Text string `json:"text" mapstructure:"text"`
}

type LoaderParam struct {
	Name      string         `json:"name" mapstructure:"name"`
	Generator string         `json:"generator" mapstructure:"generator"`
	Args      map[string]any `json:"args" mapstructure:"args"`
}
