package ingest

import "github.com/dd0wney/cluso-fabric/pkg/fabric"

// switchIDOctets is how many leading WWPN octets identify the chassis.
const switchIDOctets = 6

// SwitchIDFromWWPN guesses the switch a port belongs to from the leading
// octets of its WWPN. It is only used for feeds that do not name the switch
// and is wrong for vendors that encode the port number elsewhere; explicit
// switch identifiers always win.
func SwitchIDFromWWPN(wwpn string) string {
	norm := fabric.NormalizeWWN(wwpn)
	if n := switchIDOctets * 2; len(norm) > n {
		return norm[:n]
	}
	return norm
}
