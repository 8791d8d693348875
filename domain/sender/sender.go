// Package sender defines sender specifications: who may submit which
// packages, via which channels, and on what schedule.
package sender

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Method is a submission channel.
type Method string

const (
	MethodSFTP  Method = "sftp"
	MethodEmail Method = "email"
	MethodAPI   Method = "api"
	MethodLocal Method = "local"
)

var allowedMethods = map[Method]bool{
	MethodSFTP:  true,
	MethodEmail: true,
	MethodAPI:   true,
	MethodLocal: true,
}

// Receiver is a result notification target.
type Receiver struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// Responsible identifies the person accountable for a sender.
type Responsible struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Phone string `yaml:"phone"`
}

// PackageRef names a package a sender is authorized to submit.
type PackageRef struct {
	Name string `yaml:"name"`
}

// Deadline is the submission cutoff for one frequency type.
type Deadline struct {
	Monthly *MonthlyDeadline `yaml:"if_monthly"`
	Weekly  *WeeklyDeadline  `yaml:"if_weekly"`
	Daily   *DailyDeadline   `yaml:"if_daily"`
}

// MonthlyDeadline is a day-of-month plus time cutoff.
type MonthlyDeadline struct {
	Day  int    `yaml:"day"`
	Time string `yaml:"time"`
}

// WeeklyDeadline is a weekday plus time cutoff.
type WeeklyDeadline struct {
	DayOfWeek string `yaml:"day_of_week"`
	Time      string `yaml:"time"`
}

// DailyDeadline is a time-of-day cutoff.
type DailyDeadline struct {
	Time string `yaml:"time"`
}

// Frequency declares how often a sender must submit.
type Frequency struct {
	Type     string   `yaml:"type"` // "monthly", "weekly", "daily"
	Deadline Deadline `yaml:"deadline"`
}

// Sender is one authorized submitter.
type Sender struct {
	ID             string                       `yaml:"sender_id"`
	Name           string                       `yaml:"name"`
	Responsible    Responsible                  `yaml:"responsible_person"`
	AllowedMethods []Method                     `yaml:"allowed_methods"`
	Packages       []PackageRef                 `yaml:"packages"`
	Frequency      *Frequency                   `yaml:"submission_frequency"`
	Configurations map[string]map[string]string `yaml:"configurations"`
}

// Spec is one senders document.
type Spec struct {
	CorporateOwner string     `yaml:"corporate_owner"`
	Receivers      []Receiver `yaml:"data_receivers"`
	Senders        []Sender   `yaml:"senders_list"`
}

type document struct {
	Senders *Spec `yaml:"senders"`
}

// ParseSpec decodes and schema-checks a senders YAML document.
func ParseSpec(data []byte) (*Spec, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse senders: %w", err)
	}
	if doc.Senders == nil {
		return nil, fmt.Errorf("missing top-level 'senders' key")
	}
	s := doc.Senders

	if s.CorporateOwner == "" {
		return nil, fmt.Errorf("senders missing 'corporate_owner'")
	}
	if len(s.Receivers) == 0 {
		return nil, fmt.Errorf("senders missing 'data_receivers'")
	}
	for _, r := range s.Receivers {
		if r.Name == "" {
			return nil, fmt.Errorf("data receiver missing 'name'")
		}
		if r.Email == "" {
			return nil, fmt.Errorf("data receiver %q missing 'email'", r.Name)
		}
	}
	if len(s.Senders) == 0 {
		return nil, fmt.Errorf("senders missing 'senders_list'")
	}
	for _, snd := range s.Senders {
		if snd.ID == "" {
			return nil, fmt.Errorf("sender missing 'sender_id'")
		}
		if snd.Name == "" {
			return nil, fmt.Errorf("sender %q missing 'name'", snd.ID)
		}
		if snd.Responsible.Name == "" || snd.Responsible.Email == "" || snd.Responsible.Phone == "" {
			return nil, fmt.Errorf("sender %q has incomplete 'responsible_person'", snd.ID)
		}
		if len(snd.AllowedMethods) == 0 {
			return nil, fmt.Errorf("sender %q missing 'allowed_methods'", snd.ID)
		}
		for _, m := range snd.AllowedMethods {
			if !allowedMethods[m] {
				return nil, fmt.Errorf("sender %q has invalid method %q", snd.ID, m)
			}
		}
		if snd.Configurations == nil {
			return nil, fmt.Errorf("sender %q missing 'configurations'", snd.ID)
		}
		for _, m := range snd.AllowedMethods {
			if _, ok := snd.Configurations[string(m)]; !ok {
				return nil, fmt.Errorf("sender %q missing configuration for method %q", snd.ID, m)
			}
		}
	}

	return s, nil
}

// Find returns the sender with the given id.
func (s *Spec) Find(id string) (*Sender, bool) {
	for i := range s.Senders {
		if s.Senders[i].ID == id {
			return &s.Senders[i], true
		}
	}
	return nil, false
}

// Authorized reports whether the sender may submit the named package.
func (s *Sender) Authorized(packageName string) bool {
	for _, p := range s.Packages {
		if p.Name == packageName {
			return true
		}
	}
	return false
}

// AllowsMethod reports whether the sender may use the given channel.
func (s *Sender) AllowsMethod(m Method) bool {
	for _, allowed := range s.AllowedMethods {
		if allowed == m {
			return true
		}
	}
	return false
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// DeadlineViolations checks a submission at the given time against the
// sender's frequency deadlines. Each violation is one human-readable finding;
// an empty result means the submission is on time.
func (s *Sender) DeadlineViolations(now time.Time) []string {
	if s.Frequency == nil {
		return nil
	}
	var violations []string

	switch s.Frequency.Type {
	case "monthly":
		d := s.Frequency.Deadline.Monthly
		if d == nil {
			return []string{"monthly frequency declared without 'if_monthly' deadline"}
		}
		if now.Day() > d.Day {
			violations = append(violations, fmt.Sprintf("submission past monthly deadline (day %d)", d.Day))
		} else if now.Day() == d.Day && pastTime(now, d.Time) {
			violations = append(violations, fmt.Sprintf("submission past time limit (%s)", d.Time))
		}

	case "weekly":
		d := s.Frequency.Deadline.Weekly
		if d == nil {
			return []string{"weekly frequency declared without 'if_weekly' deadline"}
		}
		limit, ok := weekdays[strings.ToLower(d.DayOfWeek)]
		if !ok {
			return []string{fmt.Sprintf("invalid day_of_week %q", d.DayOfWeek)}
		}
		if now.Weekday() > limit {
			violations = append(violations, fmt.Sprintf("submission past weekly deadline (%s)", d.DayOfWeek))
		} else if now.Weekday() == limit && pastTime(now, d.Time) {
			violations = append(violations, fmt.Sprintf("submission past time limit (%s)", d.Time))
		}

	case "daily":
		d := s.Frequency.Deadline.Daily
		if d == nil {
			return []string{"daily frequency declared without 'if_daily' deadline"}
		}
		if pastTime(now, d.Time) {
			violations = append(violations, fmt.Sprintf("submission past time limit (%s)", d.Time))
		}
	}

	return violations
}

// pastTime reports whether now is past an "HH:MM" cutoff within its day.
func pastTime(now time.Time, cutoff string) bool {
	if cutoff == "" {
		return false
	}
	parts := strings.SplitN(cutoff, ":", 3)
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	minute := 0
	if len(parts) > 1 {
		if m, err := strconv.Atoi(parts[1]); err == nil {
			minute = m
		}
	}
	if now.Hour() != hour {
		return now.Hour() > hour
	}
	return now.Minute() > minute
}
