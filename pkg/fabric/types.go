package fabric

import (
	"fmt"
	"strconv"
	"strings"
)

// Role is the discriminant of a Port.
type Role int

const (
	RoleInitiator Role = iota
	RoleTarget
	RoleSwitch
)

// String returns the lower-case role name used in records and reports
func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleTarget:
		return "target"
	case RoleSwitch:
		return "switch"
	default:
		return "unknown"
	}
}

// IsEndpoint reports whether ports of this role may terminate a path.
func (r Role) IsEndpoint() bool {
	return r == RoleInitiator || r == RoleTarget
}

// ParseRole converts a record role string to a Role
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "initiator", "host", "i":
		return RoleInitiator, nil
	case "target", "t":
		return RoleTarget, nil
	case "switch", "s":
		return RoleSwitch, nil
	default:
		return 0, fmt.Errorf("%w: unknown port role %q", ErrInvalidRecord, s)
	}
}

// PortClass is the switch-port class. Only meaningful for switch-role ports.
type PortClass int

const (
	// ClassUnknown means the class is inferred from the physical connection.
	ClassUnknown PortClass = iota
	// ClassFabric is an F-port facing an end device.
	ClassFabric
	// ClassExpansion is an E-port facing another switch.
	ClassExpansion
)

func (c PortClass) String() string {
	switch c {
	case ClassFabric:
		return "fabric"
	case ClassExpansion:
		return "expansion"
	default:
		return "unknown"
	}
}

// ParsePortClass accepts the vendor spellings seen in switch dumps
// ("F-Port", "E-Port", "f-port") as well as "fabric" and "expansion".
// Anything else is ClassUnknown.
func ParsePortClass(s string) PortClass {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f", "f-port", "fport", "f_port", "fabric":
		return ClassFabric
	case "e", "e-port", "eport", "e_port", "expansion":
		return ClassExpansion
	default:
		return ClassUnknown
	}
}

// Port is the atomic addressable endpoint of the fabric.
type Port struct {
	WWPN       string
	Role       Role
	WWNN       string    // owning node, optional
	PortID     string    // vendor port address, e.g. "0:3:1" for array ports
	Speed      int       // Gbps
	Connection string    // WWPN of the physically connected port, if any
	NodeName   string    // host name for initiators, node name for targets
	ArrayName  string    // owning array for targets, may carry a node suffix
	NodeKey    string    // explicit storage-node grouping key for targets
	SwitchID   string    // switch ports only
	PortIndex  int       // switch ports only
	Class      PortClass // switch ports only
}

// IsConnected reports whether the port has a physical counterpart.
func (p *Port) IsConnected() bool {
	return p.Connection != ""
}

// IsEndpoint reports whether the port is an initiator or a target.
func (p *Port) IsEndpoint() bool {
	return p.Role.IsEndpoint()
}

// StorageNodeKey returns the grouping key of a target port's storage node.
// An explicit NodeKey wins, then a node suffix on ArrayName, then the first
// field of a "node:slot:port" PortID, falling back to the whole PortID.
func (p *Port) StorageNodeKey() string {
	if p.NodeKey != "" {
		return p.NodeKey
	}
	if _, key := SplitArrayName(p.ArrayName); key != "" {
		return key
	}
	if i := strings.IndexByte(p.PortID, ':'); i >= 0 {
		return p.PortID[:i]
	}
	return p.PortID
}

// BaseArrayName returns ArrayName with any node suffix stripped.
func (p *Port) BaseArrayName() string {
	return BaseArrayName(p.ArrayName)
}

// StorageNodeName returns the deterministic name of the array node this
// target port belongs to, or "" when the port carries no array.
func (p *Port) StorageNodeName() string {
	base := p.BaseArrayName()
	if base == "" {
		return ""
	}
	return ArrayNodeName(base, p.StorageNodeKey())
}

func (p *Port) String() string {
	switch p.Role {
	case RoleSwitch:
		return fmt.Sprintf("Switch(wwpn=%s, switch=%s, port=%d)", p.WWPN, p.SwitchID, p.PortIndex)
	case RoleTarget:
		return fmt.Sprintf("Target(wwpn=%s, array=%s)", p.WWPN, p.ArrayName)
	default:
		return fmt.Sprintf("Initiator(wwpn=%s, host=%s)", p.WWPN, p.NodeName)
	}
}

// NodeKind discriminates the Node variants.
type NodeKind int

const (
	NodeKindTargetArray NodeKind = iota
	NodeKindSwitch
	NodeKindInitiator
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindTargetArray:
		return "target"
	case NodeKindSwitch:
		return "switch"
	case NodeKindInitiator:
		return "initiator"
	default:
		return "unknown"
	}
}

// Node is descriptive metadata. Nodes never take part in traversal.
type Node interface {
	NodeName() string
	Kind() NodeKind
}

// TargetArrayNode is one controller node of a storage array.
type TargetArrayNode struct {
	Name            string
	SoftwareVersion string
	Array           string
}

func (n TargetArrayNode) NodeName() string { return n.Name }
func (n TargetArrayNode) Kind() NodeKind   { return NodeKindTargetArray }

// SwitchNode describes a switch chassis.
type SwitchNode struct {
	Name           string
	WWNN           string
	Vendor         string
	Model          string
	ReleaseVersion string
	PortCount      int
}

func (n SwitchNode) NodeName() string { return n.Name }
func (n SwitchNode) Kind() NodeKind   { return NodeKindSwitch }

// InitiatorNode describes a host and its HBA.
type InitiatorNode struct {
	Name            string
	HBA             string
	FirmwareVersion string
	DriverVersion   string
}

func (n InitiatorNode) NodeName() string { return n.Name }
func (n InitiatorNode) Kind() NodeKind   { return NodeKindInitiator }

// TargetArray is a storage system owning NodeCount nodes named
// "{Name}-node{i}" for i in [0, NodeCount).
type TargetArray struct {
	WWNN         string
	Name         string
	NodeCount    int
	SerialNumber string
}

// NodeNames returns the deterministic names of the array's nodes.
func (a TargetArray) NodeNames() []string {
	if a.NodeCount <= 0 {
		return nil
	}
	names := make([]string, a.NodeCount)
	for i := range names {
		names[i] = ArrayNodeName(a.Name, strconv.Itoa(i))
	}
	return names
}

// HasNode reports whether key is a node ordinal owned by the array.
func (a TargetArray) HasNode(key string) bool {
	i, err := strconv.Atoi(key)
	if err != nil {
		return false
	}
	return i >= 0 && i < a.NodeCount
}

// Zone is an unordered set of port identifiers allowed to communicate.
type Zone struct {
	Name    string
	Members []string
}

// ArrayNodeName builds the canonical node name "{array}-node{key}".
func ArrayNodeName(array, key string) string {
	return array + "-node" + key
}

// BaseArrayName strips a "-node{n}" or "_node{n}" suffix from an array name.
func BaseArrayName(name string) string {
	base, _ := SplitArrayName(name)
	return base
}

// SplitArrayName splits a "-node{n}" or "_node{n}" suffix off an array
// name. key is "" when the name carries no numeric node suffix.
func SplitArrayName(name string) (base, key string) {
	lower := strings.ToLower(name)
	for _, sep := range []string{"-node", "_node"} {
		i := strings.LastIndex(lower, sep)
		if i < 0 {
			continue
		}
		suffix := name[i+len(sep):]
		if suffix != "" && isDigits(suffix) {
			return name[:i], suffix
		}
	}
	return name, ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
