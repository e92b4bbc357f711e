package accountd

import "regexp"

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	namePattern  = regexp.MustCompile(`^[A-Za-z\s]+$`)
)

// Rule is a single (field, predicate, message) entry of a validation chain.
// Check receives the trimmed value of Field.
type Rule struct {
	Field   string
	Check   func(value string) bool
	Message string
}

// RunRules evaluates every rule in order and collects all failures instead
// of short-circuiting on the first. Rules for a field that was already
// reported missing are skipped so a blank field yields one error, not a
// cascade.
func RunRules(values map[string]string, rules []Rule) []FieldError {
	var out []FieldError
	missing := map[string]bool{}
	for _, rule := range rules {
		v := values[rule.Field]
		if missing[rule.Field] {
			continue
		}
		if rule.Check(v) {
			continue
		}
		if v == "" {
			missing[rule.Field] = true
		}
		out = append(out, FieldError{Field: rule.Field, Message: rule.Message})
	}
	return out
}

func notEmpty(v string) bool { return v != "" }
func minLen(n int) func(string) bool {
	return func(v string) bool { return len(v) >= n }
}
func maxLen(n int) func(string) bool {
	return func(v string) bool { return len(v) <= n }
}

// RegistrationRules is the validation chain for POST /register.
func RegistrationRules() []Rule {
	return []Rule{
		{"firstName", notEmpty, "First name is required"},
		{"firstName", minLen(2), "First name must be between 2 and 50 characters"},
		{"firstName", maxLen(50), "First name must be between 2 and 50 characters"},
		{"firstName", namePattern.MatchString, "First name can only contain letters and spaces"},
		{"lastName", notEmpty, "Last name is required"},
		{"lastName", minLen(2), "Last name must be between 2 and 50 characters"},
		{"lastName", maxLen(50), "Last name must be between 2 and 50 characters"},
		{"lastName", namePattern.MatchString, "Last name can only contain letters and spaces"},
		{"email", notEmpty, "Email is required"},
		{"email", emailPattern.MatchString, "Please provide a valid email"},
		{"password", notEmpty, "Password is required"},
		{"password", minLen(8), "Password must be at least 8 characters long"},
	}
}

// LoginRules is the validation chain for POST /login.
func LoginRules() []Rule {
	return []Rule{
		{"email", notEmpty, "Email is required"},
		{"email", emailPattern.MatchString, "Please provide a valid email"},
		{"password", notEmpty, "Password is required"},
	}
}
