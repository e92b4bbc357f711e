package accountd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistrationRules(t *testing.T) {
	valid := map[string]string{
		"firstName": "Ann",
		"lastName":  "Lee",
		"email":     "a@x.com",
		"password":  "password1",
	}

	tests := []struct {
		name      string
		mutate    map[string]string
		wantField string
		wantMsg   string
	}{
		{name: "valid input"},
		{
			name:      "missing first name",
			mutate:    map[string]string{"firstName": ""},
			wantField: "firstName",
			wantMsg:   "First name is required",
		},
		{
			name:      "first name too short",
			mutate:    map[string]string{"firstName": "A"},
			wantField: "firstName",
			wantMsg:   "First name must be between 2 and 50 characters",
		},
		{
			name:      "last name with digits",
			mutate:    map[string]string{"lastName": "Lee3"},
			wantField: "lastName",
			wantMsg:   "Last name can only contain letters and spaces",
		},
		{
			name:      "invalid email",
			mutate:    map[string]string{"email": "not-an-email"},
			wantField: "email",
			wantMsg:   "Please provide a valid email",
		},
		{
			name:      "short password",
			mutate:    map[string]string{"password": "short"},
			wantField: "password",
			wantMsg:   "Password must be at least 8 characters long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string]string{}
			for k, v := range valid {
				values[k] = v
			}
			for k, v := range tt.mutate {
				values[k] = v
			}

			errs := RunRules(values, RegistrationRules())
			if tt.wantField == "" {
				assert.Empty(t, errs)
				return
			}
			assert.NotEmpty(t, errs)
			assert.Equal(t, tt.wantField, errs[0].Field)
			assert.Equal(t, tt.wantMsg, errs[0].Message)
		})
	}
}

func TestRunRulesCollectsAllFailures(t *testing.T) {
	values := map[string]string{
		"firstName": "",
		"lastName":  "",
		"email":     "bad",
		"password":  "x",
	}
	errs := RunRules(values, RegistrationRules())

	fields := map[string]int{}
	for _, e := range errs {
		fields[e.Field]++
	}
	// Every field reports, and a blank field reports once, not a cascade.
	assert.Equal(t, 1, fields["firstName"])
	assert.Equal(t, 1, fields["lastName"])
	assert.Equal(t, 1, fields["email"])
	assert.Equal(t, 1, fields["password"])
}

func TestRunRulesMultipleFailuresPerField(t *testing.T) {
	values := map[string]string{"firstName": "7", "lastName": "Lee", "email": "a@x.com", "password": "password1"}
	errs := RunRules(values, RegistrationRules())

	// "7" is too short and not letters: both rules report.
	var msgs []string
	for _, e := range errs {
		if e.Field == "firstName" {
			msgs = append(msgs, e.Message)
		}
	}
	assert.Len(t, msgs, 2)
}

func TestLoginRules(t *testing.T) {
	assert.Empty(t, RunRules(map[string]string{"email": "a@x.com", "password": "pw"}, LoginRules()))

	errs := RunRules(map[string]string{"email": "", "password": ""}, LoginRules())
	assert.Len(t, errs, 2)
}
