package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-fabric/pkg/fabric"
)

// DumpOptions fills in what a legacy dump does not carry.
type DumpOptions struct {
	// ArrayName names the single array the dump was taken from.
	ArrayName string
}

// DefaultArrayName is used when DumpOptions.ArrayName is empty.
const DefaultArrayName = "array"

type dumpSection int

const (
	sectionNone dumpSection = iota
	sectionShowport
	sectionShowhost
	sectionPortdev
	sectionZoning
	sectionNodeInfo
	sectionSwitchInfo
)

// ParseDump reads the text capture of array and switch CLI output:
//
//	showport output:            N:S:P | type | ... | WWNN | WWPN
//	showhost output:            one host WWPN per line
//	showportdev fcfabric ... | grep "Online"
//	                            index | WWPN | class | ... | speed | peer WWPN
//	zoning info:                "zone ..." starts a zone, other lines are members
//	Node information variables: node_count=, node_version=
//	host_info=                  "<HBA> FW:<fw> DVR:<driver>"
//	Switch info:                switch_name=, switch_logical_name=, ...
//
// Unrecognized lines are ignored. Array ports and host ports carry no
// speed in these captures and get DefaultSpeed.
func ParseDump(r io.Reader, opts DumpOptions) (*Document, error) {
	p := &dumpParser{
		arrayName: opts.ArrayName,
		doc:       &Document{},
		hostIndex: make(map[string]int),
	}
	if p.arrayName == "" {
		p.arrayName = DefaultArrayName
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.line(strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	p.finish()
	return p.doc, nil
}

type dumpParser struct {
	arrayName string
	doc       *Document
	section   dumpSection
	zone      *ZoneRecord

	hostIndex map[string]int // host name -> index in doc.Hosts
	hostInfo  string

	nodeCount   int
	nodeVersion string
	haveNodes   bool

	sw map[string]string
}

func (p *dumpParser) line(line string) {
	switch {
	case strings.Contains(line, "showport output:"):
		p.enter(sectionShowport)
		return
	case strings.Contains(line, "showhost output:"):
		p.enter(sectionShowhost)
		return
	case strings.Contains(line, "showportdev fcfabric"):
		p.enter(sectionPortdev)
		return
	case strings.Contains(line, "zoning info:"):
		p.enter(sectionZoning)
		return
	case strings.Contains(line, "Node information variables:"):
		p.enter(sectionNodeInfo)
		return
	case strings.HasPrefix(line, "host_info"):
		p.enter(sectionNone)
		if _, v, ok := strings.Cut(line, "="); ok {
			p.hostInfo = strings.TrimSpace(v)
		}
		return
	case strings.Contains(line, "Switch info:"):
		p.enter(sectionSwitchInfo)
		return
	}

	switch p.section {
	case sectionShowport:
		p.showport(line)
	case sectionShowhost:
		p.showhost(line)
	case sectionPortdev:
		p.portdev(line)
	case sectionZoning:
		p.zoning(line)
	case sectionNodeInfo:
		p.nodeInfo(line)
	case sectionSwitchInfo:
		p.switchInfo(line)
	}
}

func (p *dumpParser) enter(s dumpSection) {
	p.flushZone()
	p.section = s
}

func splitColumns(line string) []string {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func (p *dumpParser) showport(line string) {
	if !strings.Contains(line, "|") {
		return
	}
	cols := splitColumns(line)
	if len(cols) < 5 {
		return
	}
	nsp, kind, wwnn, wwpn := cols[0], strings.ToLower(cols[1]), cols[3], cols[4]
	if wwpn == "" {
		return
	}
	switch kind {
	case "target":
		p.doc.Targets = append(p.doc.Targets, TargetRecord{
			WWPN:   wwpn,
			WWNN:   wwnn,
			Array:  p.arrayName,
			PortID: nsp,
		})
	case "initiator":
		p.addHostPort("Host_"+strings.ReplaceAll(nsp, ":", "_"), HostPortRecord{WWPN: wwpn, WWNN: wwnn})
	}
}

func (p *dumpParser) showhost(line string) {
	if line == "" || strings.HasPrefix(line, "showhost") {
		return
	}
	wwpn := line
	name := fabric.NormalizeWWN(wwpn)
	if len(name) > 8 {
		name = name[len(name)-8:]
	}
	p.addHostPort("Host_"+name, HostPortRecord{WWPN: wwpn})
}

func (p *dumpParser) addHostPort(host string, port HostPortRecord) {
	i, ok := p.hostIndex[host]
	if !ok {
		i = len(p.doc.Hosts)
		p.hostIndex[host] = i
		p.doc.Hosts = append(p.doc.Hosts, HostRecord{Name: host})
	}
	p.doc.Hosts[i].Ports = append(p.doc.Hosts[i].Ports, port)
}

func (p *dumpParser) portdev(line string) {
	if !strings.Contains(line, "|") {
		return
	}
	cols := splitColumns(line)
	if len(cols) < 6 {
		return
	}
	index, err := strconv.Atoi(cols[0])
	if err != nil {
		return // header row
	}
	p.doc.Ports = append(p.doc.Ports, PortRecord{
		WWPN:       cols[1],
		Role:       "switch",
		Class:      cols[2],
		Speed:      cols[4],
		Connection: cols[5],
		Switch:     SwitchIDFromWWPN(cols[1]),
		Index:      index,
	})
}

func (p *dumpParser) zoning(line string) {
	if line == "" {
		return
	}
	if strings.HasPrefix(line, "zone") {
		p.flushZone()
		name := strings.TrimSpace(strings.TrimLeft(strings.TrimPrefix(line, "zone"), ": "))
		if name == "" {
			name = fmt.Sprintf("zone_%d", len(p.doc.Zones)+1)
		}
		p.zone = &ZoneRecord{Name: name}
		return
	}
	if p.zone == nil {
		p.zone = &ZoneRecord{Name: fmt.Sprintf("zone_%d", len(p.doc.Zones)+1)}
	}
	p.zone.Members = append(p.zone.Members, line)
}

func (p *dumpParser) flushZone() {
	if p.zone != nil && len(p.zone.Members) > 0 {
		p.doc.Zones = append(p.doc.Zones, *p.zone)
	}
	p.zone = nil
}

func keyValue(line string) (string, string, bool) {
	k, v, ok := strings.Cut(line, "=")
	return strings.TrimSpace(k), strings.TrimSpace(v), ok
}

func (p *dumpParser) nodeInfo(line string) {
	k, v, ok := keyValue(line)
	if !ok {
		return
	}
	switch k {
	case "node_count":
		if n, err := strconv.Atoi(v); err == nil {
			p.nodeCount = n
			p.haveNodes = true
		}
	case "node_version":
		p.nodeVersion = v
	}
}

func (p *dumpParser) switchInfo(line string) {
	k, v, ok := keyValue(line)
	if !ok {
		return
	}
	if p.sw == nil {
		p.sw = make(map[string]string)
	}
	p.sw[k] = v
}

func (p *dumpParser) finish() {
	p.flushZone()

	if p.haveNodes {
		p.doc.Arrays = append(p.doc.Arrays, ArrayRecord{
			Name:            p.arrayName,
			NodeCount:       p.nodeCount,
			SoftwareVersion: p.nodeVersion,
		})
	}

	if p.hostInfo != "" {
		hba, fw, driver := parseHostInfo(p.hostInfo)
		for i := range p.doc.Hosts {
			p.doc.Hosts[i].HBA = hba
			p.doc.Hosts[i].Firmware = fw
			p.doc.Hosts[i].Driver = driver
		}
	}

	if p.sw != nil && p.sw["switch_vendor"] != "" {
		name := p.sw["switch_logical_name"]
		if name == "" {
			name = "switch_1"
		}
		p.doc.Switches = append(p.doc.Switches, SwitchRecord{
			Name:    name,
			WWNN:    p.sw["switch_name"],
			Vendor:  p.sw["switch_vendor"],
			Model:   p.sw["switch_model"],
			Release: p.sw["switch_release"],
		})
	}
}

// parseHostInfo splits "SN1610Q FW:v9.12.01 DVR:v10.02.10.00-k1".
func parseHostInfo(info string) (hba, firmware, driver string) {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return "", "", ""
	}
	hba = fields[0]
	for _, f := range fields[1:] {
		switch {
		case strings.HasPrefix(f, "FW:"):
			firmware = strings.TrimPrefix(f, "FW:")
		case strings.HasPrefix(f, "DVR:"):
			driver = strings.TrimPrefix(f, "DVR:")
		}
	}
	return hba, firmware, driver
}
