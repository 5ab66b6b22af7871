package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/lessonkit/pkg/domain"
)

// apply mutates the graph according to c. Values are decoded so that change
// lists read back from JSON replay the same way as in-process ones.
func (s *Store) apply(c domain.Change) error {
	switch c.Property {
	case domain.PropertyStateName:
		newName, err := domain.DecodeValue[string](c.NewValue)
		if err != nil {
			return err
		}
		oldName := c.StateName
		if oldName == "" {
			if oldName, err = domain.DecodeValue[string](c.OldValue); err != nil {
				return err
			}
		}
		if _, ok := s.exp.States[oldName]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrStateNotFound, oldName)
		}
		if err := s.validateNewName(oldName, strings.TrimSpace(newName)); err != nil {
			return err
		}
		s.rename(oldName, strings.TrimSpace(newName))
		return nil

	case domain.PropertyAddState:
		if err := s.validateNewName("", c.StateName); err != nil {
			return err
		}
		st, err := domain.DecodeValue[*domain.State](c.NewValue)
		if err != nil {
			return err
		}
		if st == nil {
			st = domain.NewState(c.StateName)
		}
		s.exp.States[c.StateName] = st.Clone()
		return nil

	case domain.PropertyDeleteState:
		if _, ok := s.exp.States[c.StateName]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrStateNotFound, c.StateName)
		}
		if c.StateName == s.exp.InitStateName {
			return fmt.Errorf("%w: %s", domain.ErrDeleteInitState, c.StateName)
		}
		s.remove(c.StateName)
		return nil

	case domain.PropertyTitle, domain.PropertyCategory, domain.PropertyInitStateName:
		v, err := domain.DecodeValue[string](c.NewValue)
		if err != nil {
			return err
		}
		switch c.Property {
		case domain.PropertyTitle:
			s.exp.Title = v
		case domain.PropertyCategory:
			s.exp.Category = v
		default:
			if _, ok := s.exp.States[v]; !ok {
				return fmt.Errorf("%w: %s", domain.ErrStateNotFound, v)
			}
			s.exp.InitStateName = v
		}
		return nil

	case domain.PropertyParamSpecs:
		specs, err := domain.DecodeValue[map[string]domain.ParamSpec](c.NewValue)
		if err != nil {
			return err
		}
		s.exp.ParamSpecs = make(map[string]domain.ParamSpec, len(specs))
		for k, v := range specs {
			s.exp.ParamSpecs[k] = v
		}
		return nil
	}

	st, ok := s.exp.States[c.StateName]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrStateNotFound, c.StateName)
	}
	return applyStateProperty(st, c.Property, c.NewValue, s.checkDests)
}

func applyStateProperty(st *domain.State, property string, value any, checkDests func([]domain.Handler) error) error {
	switch property {
	case domain.PropertyContent:
		v, err := domain.DecodeValue[[]domain.ContentBlock](value)
		if err != nil {
			return err
		}
		st.Content = append([]domain.ContentBlock(nil), v...)
	case domain.PropertyParamChanges:
		v, err := domain.DecodeValue[[]domain.ParamChange](value)
		if err != nil {
			return err
		}
		st.ParamChanges = domain.CloneParamChanges(v)
	case domain.PropertyWidgetID:
		v, err := domain.DecodeValue[string](value)
		if err != nil {
			return err
		}
		st.Widget.WidgetID = v
	case domain.PropertyWidgetCustomizationArgs:
		v, err := domain.DecodeValue[map[string]any](value)
		if err != nil {
			return err
		}
		st.Widget.CustomizationArgs = domain.CloneArgs(v)
	case domain.PropertyWidgetHandlers:
		v, err := domain.DecodeValue[[]domain.Handler](value)
		if err != nil {
			return err
		}
		if err := checkDests(v); err != nil {
			return err
		}
		st.Widget.Handlers = domain.CloneHandlers(v)
	case domain.PropertyWidgetSticky:
		v, err := domain.DecodeValue[bool](value)
		if err != nil {
			return err
		}
		st.Widget.Sticky = v
	default:
		return fmt.Errorf("%w: unknown property %q", domain.ErrInvalidChange, property)
	}
	return nil
}

// rename moves the state and rewrites references in one step.
func (s *Store) rename(oldName, newName string) {
	s.exp.States[newName] = s.exp.States[oldName]
	delete(s.exp.States, oldName)

	for _, st := range s.exp.States {
		for i := range st.Widget.Handlers {
			for j := range st.Widget.Handlers[i].RuleSpecs {
				if st.Widget.Handlers[i].RuleSpecs[j].Dest == oldName {
					st.Widget.Handlers[i].RuleSpecs[j].Dest = newName
				}
			}
		}
	}
	if s.exp.InitStateName == oldName {
		s.exp.InitStateName = newName
	}
}

// remove deletes a state, pointing dangling rules back at their source.
func (s *Store) remove(name string) {
	delete(s.exp.States, name)
	for source, st := range s.exp.States {
		for i := range st.Widget.Handlers {
			for j := range st.Widget.Handlers[i].RuleSpecs {
				if st.Widget.Handlers[i].RuleSpecs[j].Dest == name {
					st.Widget.Handlers[i].RuleSpecs[j].Dest = source
				}
			}
		}
	}
}

// revert applies the inverse of c.
func (s *Store) revert(c domain.Change) error {
	switch c.Property {
	case domain.PropertyStateName:
		newName, err := domain.DecodeValue[string](c.NewValue)
		if err != nil {
			return err
		}
		if _, ok := s.exp.States[newName]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrStateNotFound, newName)
		}
		s.rename(newName, c.StateName)
		return nil

	case domain.PropertyAddState:
		if _, ok := s.exp.States[c.StateName]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrStateNotFound, c.StateName)
		}
		delete(s.exp.States, c.StateName)
		return nil

	case domain.PropertyDeleteState:
		old, err := domain.DecodeValue[domain.DeletedState](c.OldValue)
		if err != nil {
			return err
		}
		if old.State == nil {
			return fmt.Errorf("%w: deleted state %s was not recorded", domain.ErrInvalidChange, c.StateName)
		}
		s.exp.States[c.StateName] = old.State.Clone()
		for source, handlers := range old.Handlers {
			if st, ok := s.exp.States[source]; ok {
				st.Widget.Handlers = domain.CloneHandlers(handlers)
			}
		}
		return nil
	}

	inverse := c
	inverse.NewValue, inverse.OldValue = c.OldValue, c.NewValue
	return s.apply(inverse)
}
