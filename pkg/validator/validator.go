package validator

import (
	"sort"
	"strings"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

// First returns one message deterministically (lowest field name), for
// transports that carry a single error string.
func (v ValidationErrors) First() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	if len(fields) == 0 {
		return ""
	}
	return v[fields[0]]
}

func ValidateDisplayName(name string) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("display_name", "Display name is required")
	} else if len(name) > 100 {
		errs.Add("display_name", "Display name is too long")
	}

	return errs
}

func ValidateGroupChat(name string, memberCount int) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Group name is required")
	} else if len(name) > 100 {
		errs.Add("name", "Group name is too long")
	}

	if memberCount == 0 {
		errs.Add("member_ids", "Group needs at least one member")
	}

	return errs
}
