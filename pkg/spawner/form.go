package spawner

import (
	"net/url"
	"strings"

	"beluga/pkg/spec"
)

// Default templates for the profile selection form. Recognized
// placeholders: {option_template}, {name}, {title}, {selected}.
const (
	DefaultFormTemplate = `<label for="profile">Select configuration:</label>
<select class="form-control" name="profile" required autofocus>
{option_template}
</select>
`

	DefaultOptionTemplate = `<option value="{name}" {selected}>{title}</option>`
)

// OptionsForm renders the profile selection form. Empty when no profiles
// are configured; the first profile renders preselected.
func (s *Spawner) OptionsForm() string {
	return RenderOptionsForm(s.opts.Profiles, s.opts.FormTemplate, s.opts.OptionTemplate)
}

// RenderOptionsForm renders a profile selection form from the given
// templates. Empty templates fall back to the defaults.
func RenderOptionsForm(profiles []spec.Profile, formTemplate, optionTemplate string) string {
	if len(profiles) == 0 {
		return ""
	}
	if formTemplate == "" {
		formTemplate = DefaultFormTemplate
	}
	if optionTemplate == "" {
		optionTemplate = DefaultOptionTemplate
	}

	var options strings.Builder
	for i, profile := range profiles {
		selected := ""
		if i == 0 {
			selected = "selected"
		}
		option := optionTemplate
		option = strings.ReplaceAll(option, "{name}", profile.Name)
		option = strings.ReplaceAll(option, "{title}", profile.DisplayTitle())
		option = strings.ReplaceAll(option, "{selected}", selected)
		options.WriteString(option)
	}

	return strings.ReplaceAll(formTemplate, "{option_template}", options.String())
}

// OptionsFromForm resolves the submitted profile selection against the
// configured profile list. Missing or unknown selections yield nil.
func (s *Spawner) OptionsFromForm(form url.Values) *spec.Profile {
	selected := form.Get("profile")
	if selected == "" {
		return nil
	}
	for i := range s.opts.Profiles {
		if s.opts.Profiles[i].Name == selected {
			return &s.opts.Profiles[i]
		}
	}
	return nil
}
