package domain

// WidgetInstance describes a widget rendered inside a page.
type WidgetInstance struct {
	BlockIndex int            `json:"blockIndex"`
	WidgetID   string         `json:"widget_id"`
	Args       map[string]any `json:"customization_args,omitempty"`
}

// Page is what the player returns for a state: the learner-facing view.
type Page struct {
	Title                 string           `json:"title"`
	HTML                  string           `json:"html"`
	InteractiveWidgetHTML string           `json:"interactiveWidgetHtml"`
	Params                map[string]any   `json:"params"`
	StateID               string           `json:"stateId"`
	Widgets               []WidgetInstance `json:"widgets"`
	BlockNumber           int              `json:"blockNumber"`
	Finished              bool             `json:"finished"`
}

// Submission is a learner answer posted to the player.
type Submission struct {
	Answer      any            `json:"answer"`
	BlockNumber int            `json:"blockNumber"`
	Channel     string         `json:"channel,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
}
