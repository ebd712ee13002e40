package child

import (
	"fmt"
	"strings"
	"time"
)

// PuppetMode selects the tone the puppet speaks with.
type PuppetMode string

const (
	ModeAffectionate PuppetMode = "AFFECTIONATE"
	ModeEnergetic    PuppetMode = "ENERGETIC"
)

// ParseMode validates a mode coming from a client.
func ParseMode(raw string) (PuppetMode, error) {
	switch PuppetMode(strings.ToUpper(strings.TrimSpace(raw))) {
	case ModeAffectionate:
		return ModeAffectionate, nil
	case ModeEnergetic:
		return ModeEnergetic, nil
	default:
		return "", fmt.Errorf("unknown puppet mode %q", raw)
	}
}

// Puppet is the persona a child talks to.
type Puppet struct {
	Name string     `json:"name"`
	Mode PuppetMode `json:"mode"`
}

// Child is a registered young user.
type Child struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	BirthDate         *time.Time `json:"birthDate,omitempty"`
	HospitalizedSince *time.Time `json:"hospitalizedSince,omitempty"`
	ProfileImageURL   string     `json:"profileImageUrl,omitempty"`
	Puppet            *Puppet    `json:"puppet,omitempty"`
}

// Age returns the child's age in whole years at now, or nil when unknown.
func (c Child) Age(now time.Time) *int {
	if c.BirthDate == nil {
		return nil
	}
	b := *c.BirthDate
	years := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return &years
}

// HospitalDay returns the 1-based day of the current hospital stay.
func (c Child) HospitalDay(now time.Time) *int {
	if c.HospitalizedSince == nil {
		return nil
	}
	start := calendarDay(c.HospitalizedSince.In(now.Location()))
	days := int(calendarDay(now).Sub(start).Hours()/24) + 1
	return &days
}

// PuppetMode returns the configured mode, defaulting to affectionate.
func (c Child) PuppetMode() PuppetMode {
	if c.Puppet == nil || c.Puppet.Mode == "" {
		return ModeAffectionate
	}
	return c.Puppet.Mode
}

// Profile is the "my page" view of a child.
type Profile struct {
	Name               string     `json:"name"`
	Age                string     `json:"age"`
	HospitalizationDay string     `json:"hospitalizationDays"`
	ProfileImageURL    string     `json:"profileImageUrl,omitempty"`
	PuppetName         string     `json:"puppetName"`
	PuppetMode         PuppetMode `json:"puppetMode"`
}

// BuildProfile renders display strings for the profile page.
func BuildProfile(c Child, now time.Time) Profile {
	profile := Profile{
		Name:               c.Name,
		Age:                "age unknown",
		HospitalizationDay: "hospital day unknown",
		ProfileImageURL:    c.ProfileImageURL,
		PuppetMode:         c.PuppetMode(),
	}
	if age := c.Age(now); age != nil {
		profile.Age = fmt.Sprintf("%d years old", *age)
	}
	if day := c.HospitalDay(now); day != nil {
		profile.HospitalizationDay = fmt.Sprintf("hospital day %d", *day)
	}
	if c.Puppet != nil {
		profile.PuppetName = c.Puppet.Name
	}
	return profile
}

// calendarDay maps t's local date onto UTC midnight so day differences are
// always whole multiples of 24 hours.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
