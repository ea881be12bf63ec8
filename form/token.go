package form

import "strings"

// TokenVisibility is the state of the "show token" control.
type TokenVisibility struct {
	Visible bool
}

// InputType is the type attribute of the token input.
func (t TokenVisibility) InputType() string {
	if t.Visible {
		return "text"
	}
	return "password"
}

// Label is the accessible label of the toggle; it names the next action.
func (t TokenVisibility) Label() string {
	if t.Visible {
		return "Hide token"
	}
	return "Show token"
}

// Pressed is the aria-pressed value of the toggle.
func (t TokenVisibility) Pressed() string {
	if t.Visible {
		return "true"
	}
	return "false"
}

// Mask renders token for display.
func (t TokenVisibility) Mask(token string) string {
	if t.Visible {
		return token
	}
	return strings.Repeat("•", len([]rune(token)))
}
