// Package ingest turns fabric descriptions (YAML/JSON documents and legacy
// array/switch text dumps) into snapshot records.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-fabric/pkg/fabric"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
	"github.com/dd0wney/cluso-fabric/pkg/validation"
)

// DefaultSpeed is assumed for ports whose record carries no speed at all.
const DefaultSpeed = 32

// Document is the structured description of one fabric.
type Document struct {
	Fabric   string         `yaml:"fabric,omitempty" json:"fabric,omitempty"`
	Arrays   []ArrayRecord  `yaml:"arrays,omitempty" json:"arrays,omitempty"`
	Switches []SwitchRecord `yaml:"switches,omitempty" json:"switches,omitempty"`
	Hosts    []HostRecord   `yaml:"hosts,omitempty" json:"hosts,omitempty"`
	Targets  []TargetRecord `yaml:"targets,omitempty" json:"targets,omitempty"`
	Ports    []PortRecord   `yaml:"ports,omitempty" json:"ports,omitempty"`
	Zones    []ZoneRecord   `yaml:"zones,omitempty" json:"zones,omitempty"`
}

// ArrayRecord describes a storage array.
type ArrayRecord struct {
	Name            string `yaml:"name" json:"name" validate:"required"`
	WWNN            string `yaml:"wwnn,omitempty" json:"wwnn,omitempty" validate:"omitempty,wwn"`
	NodeCount       int    `yaml:"node_count" json:"node_count" validate:"gte=0,lte=64"`
	Serial          string `yaml:"serial,omitempty" json:"serial,omitempty"`
	SoftwareVersion string `yaml:"software_version,omitempty" json:"software_version,omitempty"`
}

// SwitchRecord describes a switch chassis and its ports. The switch name is
// the switch identifier of every port listed under it.
type SwitchRecord struct {
	Name    string             `yaml:"name" json:"name" validate:"required"`
	WWNN    string             `yaml:"wwnn,omitempty" json:"wwnn,omitempty" validate:"omitempty,wwn"`
	Vendor  string             `yaml:"vendor,omitempty" json:"vendor,omitempty"`
	Model   string             `yaml:"model,omitempty" json:"model,omitempty"`
	Release string             `yaml:"release,omitempty" json:"release,omitempty"`
	Ports   []SwitchPortRecord `yaml:"ports,omitempty" json:"ports,omitempty"`
}

// SwitchPortRecord is one port of a SwitchRecord.
type SwitchPortRecord struct {
	WWPN       string `yaml:"wwpn" json:"wwpn" validate:"required,wwn"`
	Index      int    `yaml:"index" json:"index" validate:"gte=0"`
	Speed      string `yaml:"speed,omitempty" json:"speed,omitempty"`
	Class      string `yaml:"class,omitempty" json:"class,omitempty"`
	Connection string `yaml:"connection,omitempty" json:"connection,omitempty" validate:"omitempty,wwn"`
}

// HostRecord describes a host and its HBA ports.
type HostRecord struct {
	Name     string           `yaml:"name" json:"name" validate:"required"`
	HBA      string           `yaml:"hba,omitempty" json:"hba,omitempty"`
	Firmware string           `yaml:"firmware,omitempty" json:"firmware,omitempty"`
	Driver   string           `yaml:"driver,omitempty" json:"driver,omitempty"`
	Ports    []HostPortRecord `yaml:"ports,omitempty" json:"ports,omitempty"`
}

// HostPortRecord is one initiator port of a HostRecord.
type HostPortRecord struct {
	WWPN       string `yaml:"wwpn" json:"wwpn" validate:"required,wwn"`
	WWNN       string `yaml:"wwnn,omitempty" json:"wwnn,omitempty" validate:"omitempty,wwn"`
	Speed      string `yaml:"speed,omitempty" json:"speed,omitempty"`
	Connection string `yaml:"connection,omitempty" json:"connection,omitempty" validate:"omitempty,wwn"`
}

// TargetRecord is one array port. PortID is the vendor "node:slot:port"
// address; Node overrides the node key derived from it.
type TargetRecord struct {
	WWPN       string `yaml:"wwpn" json:"wwpn" validate:"required,wwn"`
	WWNN       string `yaml:"wwnn,omitempty" json:"wwnn,omitempty" validate:"omitempty,wwn"`
	Array      string `yaml:"array" json:"array" validate:"required"`
	PortID     string `yaml:"port_id,omitempty" json:"port_id,omitempty"`
	Node       string `yaml:"node,omitempty" json:"node,omitempty"`
	Speed      string `yaml:"speed,omitempty" json:"speed,omitempty"`
	Connection string `yaml:"connection,omitempty" json:"connection,omitempty" validate:"omitempty,wwn"`
}

// PortRecord is a flat, role-tagged port for feeds that do not group ports
// by owner. Switch ports without a Switch fall back to SwitchIDFromWWPN.
type PortRecord struct {
	WWPN       string `yaml:"wwpn" json:"wwpn" validate:"required,wwn"`
	Role       string `yaml:"role" json:"role" validate:"required,role"`
	WWNN       string `yaml:"wwnn,omitempty" json:"wwnn,omitempty" validate:"omitempty,wwn"`
	PortID     string `yaml:"port_id,omitempty" json:"port_id,omitempty"`
	Speed      string `yaml:"speed,omitempty" json:"speed,omitempty"`
	Connection string `yaml:"connection,omitempty" json:"connection,omitempty" validate:"omitempty,wwn"`
	Host       string `yaml:"host,omitempty" json:"host,omitempty"`
	Array      string `yaml:"array,omitempty" json:"array,omitempty"`
	Node       string `yaml:"node,omitempty" json:"node,omitempty"`
	Switch     string `yaml:"switch,omitempty" json:"switch,omitempty"`
	Index      int    `yaml:"index,omitempty" json:"index,omitempty" validate:"gte=0"`
	Class      string `yaml:"class,omitempty" json:"class,omitempty"`
}

// ZoneRecord is a named zone.
type ZoneRecord struct {
	Name    string   `yaml:"name" json:"name" validate:"required"`
	Members []string `yaml:"members" json:"members"`
}

// ErrEmptyDocument is returned when the input holds no document at all.
var ErrEmptyDocument = errors.New("empty fabric document")

// Decode parses a YAML or JSON document. Unknown fields are rejected so
// that typos in hand-written inventories surface early.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, fmt.Errorf("decode fabric document: %w", err)
	}
	return &doc, nil
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

// Encode writes doc as YAML.
func Encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode fabric document: %w", err)
	}
	return enc.Close()
}

// Records converts the document into snapshot records. Records that fail
// validation are skipped and reported as issues; speeds that cannot be
// parsed become zero capacity.
func (d *Document) Records() snapshot.Records {
	c := &converter{}

	for _, a := range d.Arrays {
		if !c.valid(a, a.Name) {
			continue
		}
		c.rec.Arrays = append(c.rec.Arrays, snapshot.ArrayRecord{
			TargetArray: fabric.TargetArray{
				WWNN:         a.WWNN,
				Name:         a.Name,
				NodeCount:    a.NodeCount,
				SerialNumber: a.Serial,
			},
			SoftwareVersion: a.SoftwareVersion,
		})
	}

	for _, s := range d.Switches {
		if !c.valid(s, s.Name) {
			continue
		}
		c.rec.Nodes = append(c.rec.Nodes, fabric.SwitchNode{
			Name:           s.Name,
			WWNN:           s.WWNN,
			Vendor:         s.Vendor,
			Model:          s.Model,
			ReleaseVersion: s.Release,
			PortCount:      len(s.Ports),
		})
		for _, p := range s.Ports {
			if !c.valid(p, p.WWPN) {
				continue
			}
			c.rec.Ports = append(c.rec.Ports, fabric.Port{
				WWPN:       p.WWPN,
				Role:       fabric.RoleSwitch,
				WWNN:       s.WWNN,
				Speed:      c.speed(p.WWPN, p.Speed),
				Connection: p.Connection,
				SwitchID:   s.Name,
				PortIndex:  p.Index,
				Class:      fabric.ParsePortClass(p.Class),
			})
		}
	}

	for _, h := range d.Hosts {
		if !c.valid(h, h.Name) {
			continue
		}
		c.rec.Nodes = append(c.rec.Nodes, fabric.InitiatorNode{
			Name:            h.Name,
			HBA:             h.HBA,
			FirmwareVersion: h.Firmware,
			DriverVersion:   h.Driver,
		})
		for _, p := range h.Ports {
			if !c.valid(p, p.WWPN) {
				continue
			}
			c.rec.Ports = append(c.rec.Ports, fabric.Port{
				WWPN:       p.WWPN,
				Role:       fabric.RoleInitiator,
				WWNN:       p.WWNN,
				Speed:      c.speed(p.WWPN, p.Speed),
				Connection: p.Connection,
				NodeName:   h.Name,
			})
		}
	}

	for _, t := range d.Targets {
		if !c.valid(t, t.WWPN) {
			continue
		}
		c.rec.Ports = append(c.rec.Ports, fabric.Port{
			WWPN:       t.WWPN,
			Role:       fabric.RoleTarget,
			WWNN:       t.WWNN,
			PortID:     t.PortID,
			Speed:      c.speed(t.WWPN, t.Speed),
			Connection: t.Connection,
			ArrayName:  t.Array,
			NodeKey:    t.Node,
		})
	}

	for _, p := range d.Ports {
		if !c.valid(p, p.WWPN) {
			continue
		}
		c.rec.Ports = append(c.rec.Ports, c.flatPort(p))
	}

	for _, z := range d.Zones {
		zone := fabric.Zone{Name: z.Name, Members: z.Members}
		if err := validation.ValidateZone(zone); err != nil {
			c.reject(z.Name, err)
			continue
		}
		c.rec.Zones = append(c.rec.Zones, zone)
	}

	return c.rec
}

type converter struct {
	rec snapshot.Records
}

func (c *converter) valid(record any, id string) bool {
	if err := validation.Struct(record); err != nil {
		c.reject(id, err)
		return false
	}
	return true
}

func (c *converter) reject(id string, err error) {
	c.rec.Issues = append(c.rec.Issues, fabric.Issue{
		Kind:   fabric.IssueInvalidRecord,
		ID:     id,
		Detail: err.Error(),
	})
}

// speed parses a record speed. A missing speed means DefaultSpeed; an
// unparseable one means no capacity.
func (c *converter) speed(id, s string) int {
	if strings.TrimSpace(s) == "" {
		return DefaultSpeed
	}
	n, ok := fabric.ParseSpeed(s)
	if !ok {
		c.rec.Issues = append(c.rec.Issues, fabric.Issue{
			Kind:   fabric.IssueMalformedSpeed,
			ID:     id,
			Detail: fmt.Sprintf("speed %q has no digits, treated as 0", s),
		})
		return 0
	}
	return n
}

func (c *converter) flatPort(p PortRecord) fabric.Port {
	role, _ := fabric.ParseRole(p.Role) // validated
	port := fabric.Port{
		WWPN:       p.WWPN,
		Role:       role,
		WWNN:       p.WWNN,
		PortID:     p.PortID,
		Speed:      c.speed(p.WWPN, p.Speed),
		Connection: p.Connection,
	}
	switch role {
	case fabric.RoleInitiator:
		port.NodeName = p.Host
	case fabric.RoleTarget:
		port.ArrayName = p.Array
		port.NodeKey = p.Node
	case fabric.RoleSwitch:
		port.SwitchID = p.Switch
		if port.SwitchID == "" {
			port.SwitchID = SwitchIDFromWWPN(p.WWPN)
		}
		port.PortIndex = p.Index
		port.Class = fabric.ParsePortClass(p.Class)
	}
	return port
}
