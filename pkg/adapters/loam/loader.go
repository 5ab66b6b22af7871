package loam

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/loam"
)

// Loader reads explorations authored as markdown directories: each
// exploration is a folder whose documents are its states.
type Loader struct {
	Repo *loam.TypedRepository[DocumentMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[DocumentMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Load assembles the exploration stored under the `<id>/` folder.
func (l *Loader) Load(ctx context.Context, id string) (*domain.Exploration, error) {
	docIDs, err := l.documents(ctx)
	if err != nil {
		return nil, err
	}

	members := docIDs[id]
	if len(members) == 0 {
		return nil, domain.ErrExplorationNotFound
	}

	exp := &domain.Exploration{
		ID:         id,
		ParamSpecs: map[string]domain.ParamSpec{},
		States:     map[string]*domain.State{},
	}
	sources := make(map[string]string)

	for _, docID := range members {
		doc, err := l.Repo.Get(ctx, docID)
		if err != nil {
			return nil, fmt.Errorf("loam get failed for %s: %w", docID, err)
		}
		meta := doc.Data

		if meta.Type == DocTypeExploration {
			exp.Title = meta.Title
			exp.Category = meta.Category
			exp.InitStateName = meta.InitState
			for _, pc := range meta.ParamChanges {
				exp.ParamChanges = append(exp.ParamChanges, convertParam(pc))
			}
			continue
		}

		name := meta.Name
		if name == "" {
			name = path.Base(docID)
		}
		if existing, ok := sources[name]; ok {
			return nil, fmt.Errorf("collision detected: state '%s' is defined in both '%s' and '%s'", name, existing, docID)
		}
		sources[name] = docID
		exp.States[name] = buildState(name, meta, doc.Content)
	}

	if len(exp.States) == 0 {
		return nil, fmt.Errorf("exploration %s has no states", id)
	}
	if exp.InitStateName == "" {
		exp.InitStateName = exp.StateNames()[0]
	}
	if exp.Title == "" {
		exp.Title = id
	}
	return exp, nil
}

// List returns the exploration folders found in the repository.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	docIDs, err := l.documents(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docIDs))
	for id := range docIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// documents groups normalized document IDs by their parent folder.
// Top-level documents belong to no exploration and are skipped.
func (l *Loader) documents(ctx context.Context) (map[string][]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	groups := make(map[string][]string)
	for _, doc := range docs {
		id := trimExtension(doc.ID)
		dir := path.Dir(id)
		if dir == "." {
			continue
		}
		groups[dir] = append(groups[dir], id)
	}
	for dir := range groups {
		sort.Strings(groups[dir])
	}
	return groups, nil
}

func buildState(name string, meta DocumentMetadata, content string) *domain.State {
	state := domain.NewState(name)
	state.Content = []domain.ContentBlock{{Type: domain.ContentText, Value: strings.TrimSpace(content)}}

	if meta.Widget != "" {
		state.Widget.WidgetID = meta.Widget
	}
	if meta.WidgetArgs != nil {
		state.Widget.CustomizationArgs = meta.WidgetArgs
	}
	state.Widget.Sticky = meta.Sticky

	for _, pc := range meta.ParamChanges {
		state.ParamChanges = append(state.ParamChanges, convertParam(pc))
	}

	rules := make([]domain.RuleSpec, 0, len(meta.Options)+len(meta.Rules)+1)
	var choices []any
	for _, opt := range meta.Options {
		if opt.Text != "" {
			choices = append(choices, opt.Text)
		}
		rules = append(rules, convertRule(opt))
	}
	for _, r := range meta.Rules {
		rules = append(rules, convertRule(r))
	}

	// Options imply a multiple choice widget unless one is named.
	if len(choices) > 0 && meta.Widget == "" {
		state.Widget.WidgetID = "MultipleChoiceInput"
		if _, ok := state.Widget.CustomizationArgs["choices"]; !ok {
			state.Widget.CustomizationArgs["choices"] = choices
		}
	}

	hasDefault := false
	for _, r := range rules {
		if r.IsDefault() {
			hasDefault = true
		}
	}
	if !hasDefault {
		dest := meta.To
		if dest == "" {
			dest = name
		}
		rules = append(rules, domain.RuleSpec{
			Name:        domain.DefaultRuleName,
			Description: domain.DefaultRuleName,
			Dest:        dest,
		})
	}

	state.Widget.Handlers = []domain.Handler{{Name: domain.SubmitHandler, RuleSpecs: rules}}
	return state
}

func convertRule(lr LoaderRule) domain.RuleSpec {
	r := domain.RuleSpec{
		Name:        lr.Name,
		Description: lr.Description,
		Inputs:      lr.Inputs,
		Condition:   lr.Condition,
		Dest:        lr.To,
		Feedback:    lr.Feedback,
	}
	if lr.Text != "" {
		if r.Condition == "" {
			r.Condition = fmt.Sprintf("answer == '%s'", strings.ReplaceAll(lr.Text, "'", "\\'"))
		}
		if r.Name == "" {
			r.Name = "Equals"
		}
		if r.Description == "" {
			r.Description = "is equal to {{x|UnicodeString}}"
			r.Inputs = map[string]any{"x": lr.Text}
		}
	}
	if r.Name == "" && r.Condition != "" {
		r.Name = "Matches"
	}
	return r
}

func convertParam(lp LoaderParam) domain.ParamChange {
	return domain.ParamChange{
		Name:              lp.Name,
		GeneratorID:       lp.Generator,
		CustomizationArgs: lp.Args,
	}
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable, emitting the exploration ID owning each
// changed document.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				dir := path.Dir(trimExtension(evt.ID))
				if dir == "." {
					continue
				}
				select {
				case ch <- dir:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
