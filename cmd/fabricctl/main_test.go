package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-fabric/pkg/capacity"
	"github.com/dd0wney/cluso-fabric/pkg/config"
	"github.com/dd0wney/cluso-fabric/pkg/fabrictest"
	"github.com/dd0wney/cluso-fabric/pkg/zoning"
)

const testDocument = `
arrays:
  - {name: arr1, node_count: 2}
hosts:
  - name: esx01
    ports:
      - {wwpn: "10:00:00:10:9b:00:00:01", speed: 32G, connection: "20:11:00:02:ac:00:00:01"}
targets:
  - {wwpn: "20:11:00:02:ac:00:00:01", array: arr1, port_id: "0:1:1", speed: 16G, connection: "10:00:00:10:9b:00:00:01"}
zones:
  - {name: z1, members: ["10:00:00:10:9b:00:00:01", "20:11:00:02:ac:00:00:01"]}
`

const (
	hostWWPN   = "10:00:00:10:9b:00:00:01"
	targetWWPN = "20:11:00:02:ac:00:00:01"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{config.EnvConfig, config.EnvPort, config.EnvSnapshot, config.EnvThreshold, config.EnvLogLevel} {
		t.Setenv(env, "")
	}
}

func writeDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fabric.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testDocument), 0o644))
	return path
}

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_Summary(t *testing.T) {
	clearEnv(t)
	out, _, err := runCmd(t, "-snapshot", writeDocument(t), "summary")
	require.NoError(t, err)

	assert.Contains(t, out, "Initiators   1")
	assert.Contains(t, out, "Targets      1")
	assert.Contains(t, out, "no load issues")
}

func TestRun_PathJSON(t *testing.T) {
	clearEnv(t)
	out, _, err := runCmd(t, "-snapshot", writeDocument(t), "-json", "path", hostWWPN, targetWWPN)
	require.NoError(t, err)

	var res pathResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Path.Found)
	assert.Equal(t, []string{hostWWPN, targetWWPN}, res.Path.Hops)
	require.NotNil(t, res.Speed)
	assert.Equal(t, 16, res.Speed.Effective)
}

func TestRun_HostConnectivity(t *testing.T) {
	clearEnv(t)
	snap := writeDocument(t)

	out, _, err := runCmd(t, "-snapshot", snap, "host", hostWWPN)
	require.NoError(t, err)
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "not connected to every array node")

	out, _, err = runCmd(t, "-snapshot", snap, "-json", "host", hostWWPN)
	require.NoError(t, err)
	var report zoning.ConnectivityReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.FullyConnected)
	require.Len(t, report.Arrays, 1)
	assert.Equal(t, 2, report.Arrays[0].ExpectedNodes)
}

func TestRun_Threshold(t *testing.T) {
	clearEnv(t)
	// One 32G host on one 16G target port: ratio 1.
	out, _, err := runCmd(t, "-snapshot", writeDocument(t), "-threshold", "0.5", "-json", "nodes")
	require.NoError(t, err)

	var reports []capacity.NodeReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Oversubscribed)
	assert.Equal(t, capacity.Ratio(1), reports[0].Ratio)
}

func TestRun_Convert(t *testing.T) {
	clearEnv(t)
	dst := filepath.Join(t.TempDir(), "copy.yaml.sz")

	out, _, err := runCmd(t, "-snapshot", writeDocument(t), "convert", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	out, _, err = runCmd(t, "-snapshot", dst, "-json", "hosts")
	require.NoError(t, err)
	var mapping zoning.HostMapping
	require.NoError(t, json.Unmarshal([]byte(out), &mapping))
	assert.Equal(t, []string{targetWWPN}, mapping[hostWWPN])
}

func TestRun_Errors(t *testing.T) {
	clearEnv(t)
	snap := writeDocument(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no snapshot", []string{"summary"}, "no snapshot"},
		{"unknown command", []string{"-snapshot", snap, "frobnicate"}, "unknown command"},
		{"path arity", []string{"-snapshot", snap, "path", hostWWPN}, "want 2 arguments"},
		{"unknown port", []string{"-snapshot", snap, "path", hostWWPN, "ff:ff"}, "not found"},
		{"switch port filter", []string{"-snapshot", snap, "ports", "fabric"}, "role"},
		{"missing file", []string{"-snapshot", filepath.Join(t.TempDir(), "nope.yaml"), "summary"}, "open"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCmd(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), tt.want)
		})
	}

	_, stderr, err := runCmd(t, "-snapshot", snap)
	assert.True(t, errors.Is(err, errUsage))
	assert.Contains(t, stderr, "Commands:")
}

func TestRenderNodes(t *testing.T) {
	snap := fabrictest.ScenarioC(4).Load(t)
	reports := capacity.AnalyzeNodes(snap, capacity.Options{})

	out := renderNodes(reports, capacity.DefaultThreshold)
	assert.Contains(t, out, "arr1-node0")
	assert.Contains(t, out, "5.00")
	assert.Contains(t, out, "1 node oversubscribed")
}

func TestRenderISL(t *testing.T) {
	snap := fabrictest.ScenarioC(0).Load(t)
	out := renderISL(capacity.AnalyzeISLs(snap, capacity.Options{}), capacity.DefaultThreshold)
	assert.Contains(t, out, "sw1<->sw2")
	assert.Contains(t, out, "nothing oversubscribed")

	single := renderISL(capacity.AnalyzeISLs(fabrictest.ScenarioB().Load(t), capacity.Options{}), capacity.DefaultThreshold)
	assert.Contains(t, single, capacity.StatusSingleSwitch)
}

func TestRenderPath(t *testing.T) {
	a := &app{snap: fabrictest.ScenarioB().Load(t)}
	res, err := a.findPath("I1", "T1")
	require.NoError(t, err)

	out := renderPathResult(res)
	assert.Contains(t, out, "3 hops, effective speed 16G")
	assert.Contains(t, out, "I1 → F1 → F2 → T1")
	assert.Contains(t, out, "limiting")

	res, err = a.findPath("I1", "I1")
	require.NoError(t, err)
	assert.Contains(t, renderPathResult(res), "0 hops")
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "inf", formatRatio(capacity.Ratio(math.Inf(1))))
	assert.Equal(t, "4.50", formatRatio(4.5))
	assert.Equal(t, "2x16G, 1x32G", formatSpeeds(map[int]int{32: 1, 16: 2}))
	assert.Equal(t, "", formatSpeeds(nil))
}
