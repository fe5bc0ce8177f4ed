package fabric

// IssueKind classifies a tolerated inconsistency in snapshot input.
type IssueKind string

const (
	IssueDanglingConnection   IssueKind = "dangling_connection"
	IssueAsymmetricConnection IssueKind = "asymmetric_connection"
	IssueDuplicatePort        IssueKind = "duplicate_port"
	IssueInvalidRecord        IssueKind = "invalid_record"
	IssueMalformedSpeed       IssueKind = "malformed_speed"
	IssueMissingSwitchID      IssueKind = "missing_switch_id"
	IssueUnknownArrayNode     IssueKind = "unknown_array_node"
	IssueUnknownZoneMember    IssueKind = "unknown_zone_member"
)

// Issue is a non-fatal finding recorded while loading a snapshot.
// Analysis always continues past an Issue.
type Issue struct {
	Kind   IssueKind `json:"kind" yaml:"kind"`
	ID     string    `json:"id" yaml:"id"`
	Detail string    `json:"detail" yaml:"detail"`
}
