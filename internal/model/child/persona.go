package child

import (
	"strings"
	"time"
)

const (
	DefaultChildName  = "Little Lion"
	DefaultChildAge   = 7
	DefaultPuppetName = "Tori"
)

// Persona is the resolved child and puppet context a prompt is built from.
type Persona struct {
	ChildName  string
	ChildAge   int
	PuppetName string
	Mode       PuppetMode
}

// DefaultPersona is used when nothing is known about the child.
func DefaultPersona() Persona {
	return Persona{
		ChildName:  DefaultChildName,
		ChildAge:   DefaultChildAge,
		PuppetName: DefaultPuppetName,
		Mode:       ModeAffectionate,
	}
}

// ApplyRecord fills the persona from a stored child.
func (p *Persona) ApplyRecord(c Child, now time.Time) {
	if c.Name != "" {
		p.ChildName = c.Name
	}
	if age := c.Age(now); age != nil {
		p.ChildAge = *age
	}
	if c.Puppet != nil && c.Puppet.Name != "" {
		p.PuppetName = c.Puppet.Name
	}
	p.Mode = c.PuppetMode()
}

// Override applies values supplied with a request; they win over stored ones.
func (p *Persona) Override(childName string, childAge *int, puppetName string) {
	if name := strings.TrimSpace(childName); name != "" {
		p.ChildName = name
	}
	if childAge != nil {
		p.ChildAge = *childAge
	}
	if name := strings.TrimSpace(puppetName); name != "" {
		p.PuppetName = name
	}
}
