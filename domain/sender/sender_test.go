package sender_test

import (
	"testing"
	"time"

	"github.com/artpar/sage/domain/sender"
)

const sendersYAML = `
senders:
  corporate_owner: Example Corp
  data_receivers:
    - name: Data Office
      email: data@example.com
  senders_list:
    - sender_id: acme
      name: Acme Ltd
      responsible_person:
        name: Jan Kowalski
        email: jan@acme.example
        phone: "+48 123 456 789"
      allowed_methods: [sftp, api]
      packages:
        - name: monthly_report
      submission_frequency:
        type: monthly
        deadline:
          if_monthly:
            day: 10
            time: "12:00"
      configurations:
        sftp:
          host: sftp.acme.example
        api:
          token: secret
`

func mustParse(t *testing.T) *sender.Spec {
	t.Helper()
	spec, err := sender.ParseSpec([]byte(sendersYAML))
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}
	return spec
}

func TestParseSpec(t *testing.T) {
	spec := mustParse(t)
	if spec.CorporateOwner != "Example Corp" {
		t.Errorf("corporate owner = %q", spec.CorporateOwner)
	}

	snd, ok := spec.Find("acme")
	if !ok {
		t.Fatal("sender acme not found")
	}
	if !snd.Authorized("monthly_report") {
		t.Error("acme must be authorized for monthly_report")
	}
	if snd.Authorized("other_package") {
		t.Error("acme must not be authorized for other_package")
	}
	if !snd.AllowsMethod(sender.MethodSFTP) || !snd.AllowsMethod(sender.MethodAPI) {
		t.Error("allowed methods not honored")
	}
	if snd.AllowsMethod(sender.MethodEmail) {
		t.Error("email must not be allowed")
	}

	if _, ok := spec.Find("ghost"); ok {
		t.Error("unknown sender id must not resolve")
	}
}

func TestParseSpec_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no senders key", "package:\n  name: x\n"},
		{"missing owner", "senders:\n  data_receivers:\n    - name: a\n      email: a@b\n  senders_list:\n    - sender_id: s\n"},
		{"missing receivers", "senders:\n  corporate_owner: c\n  senders_list:\n    - sender_id: s\n"},
		{"invalid method", `
senders:
  corporate_owner: c
  data_receivers:
    - name: a
      email: a@b
  senders_list:
    - sender_id: s
      name: S
      responsible_person: {name: n, email: e, phone: p}
      allowed_methods: [carrier_pigeon]
      configurations: {}
`},
		{"missing method configuration", `
senders:
  corporate_owner: c
  data_receivers:
    - name: a
      email: a@b
  senders_list:
    - sender_id: s
      name: S
      responsible_person: {name: n, email: e, phone: p}
      allowed_methods: [sftp]
      configurations:
        api: {}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sender.ParseSpec([]byte(tt.src)); err == nil {
				t.Error("ParseSpec succeeded, want error")
			}
		})
	}
}

func TestDeadlineViolations_Monthly(t *testing.T) {
	spec := mustParse(t)
	snd, _ := spec.Find("acme")

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"well before deadline day", time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC), 0},
		{"deadline day before cutoff", time.Date(2024, 5, 10, 11, 59, 0, 0, time.UTC), 0},
		{"deadline day at cutoff", time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC), 0},
		{"deadline day past cutoff", time.Date(2024, 5, 10, 12, 1, 0, 0, time.UTC), 1},
		{"past deadline day", time.Date(2024, 5, 11, 8, 0, 0, 0, time.UTC), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snd.DeadlineViolations(tt.now)
			if len(got) != tt.want {
				t.Errorf("violations = %v, want %d", got, tt.want)
			}
		})
	}
}

func TestDeadlineViolations_Weekly(t *testing.T) {
	snd := &sender.Sender{
		Frequency: &sender.Frequency{
			Type: "weekly",
			Deadline: sender.Deadline{
				Weekly: &sender.WeeklyDeadline{DayOfWeek: "Wednesday", Time: "17:00"},
			},
		},
	}

	// 2024-05-06 is a Monday.
	monday := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	if got := snd.DeadlineViolations(monday); len(got) != 0 {
		t.Errorf("monday violations = %v", got)
	}
	wednesdayLate := time.Date(2024, 5, 8, 17, 30, 0, 0, time.UTC)
	if got := snd.DeadlineViolations(wednesdayLate); len(got) != 1 {
		t.Errorf("wednesday late violations = %v", got)
	}
	thursday := time.Date(2024, 5, 9, 8, 0, 0, 0, time.UTC)
	if got := snd.DeadlineViolations(thursday); len(got) != 1 {
		t.Errorf("thursday violations = %v", got)
	}
}

func TestDeadlineViolations_Daily(t *testing.T) {
	snd := &sender.Sender{
		Frequency: &sender.Frequency{
			Type: "daily",
			Deadline: sender.Deadline{
				Daily: &sender.DailyDeadline{Time: "09:30"},
			},
		},
	}

	if got := snd.DeadlineViolations(time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC)); len(got) != 0 {
		t.Errorf("at cutoff violations = %v", got)
	}
	if got := snd.DeadlineViolations(time.Date(2024, 5, 6, 9, 31, 0, 0, time.UTC)); len(got) != 1 {
		t.Errorf("past cutoff violations = %v", got)
	}
}

func TestDeadlineViolations_NoFrequency(t *testing.T) {
	snd := &sender.Sender{}
	if got := snd.DeadlineViolations(time.Now()); got != nil {
		t.Errorf("violations = %v, want none", got)
	}
}

func TestDeadlineViolations_IncompleteDeclaration(t *testing.T) {
	snd := &sender.Sender{
		Frequency: &sender.Frequency{Type: "monthly"},
	}
	if got := snd.DeadlineViolations(time.Now()); len(got) != 1 {
		t.Errorf("violations = %v, want declaration finding", got)
	}
}
