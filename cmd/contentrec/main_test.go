package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtures = `{
  "content": [
    {"id": "A", "title": "Finance basics", "type": "episode", "categories": ["finance"], "published": true},
    {"id": "B", "title": "Finance deep dive", "type": "episode", "categories": ["finance"], "published": true},
    {"id": "C", "title": "Tax report", "type": "report", "categories": ["tax"], "published": true}
  ],
  "events": [
    {"event_type": "content_interaction", "action": "view", "content_id": "C", "user_id": "u1"},
    {"event_type": "content_interaction", "action": "share", "content_id": "C", "user_id": "u2"}
  ]
}`

func setup(t *testing.T) (configPath, fixturesPath string) {
	t.Helper()
	dir := t.TempDir()
	configPath = filepath.Join(dir, "contentrec.yaml")
	fixturesPath = filepath.Join(dir, "fixtures.json")
	cfg := "store:\n  backend: sqlite\n  sqlite:\n    path: " + filepath.Join(dir, "rec.db") + "\nlog:\n  level: disabled\n"
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o600))
	require.NoError(t, os.WriteFile(fixturesPath, []byte(fixtures), 0o600))
	return configPath, fixturesPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSeedAndQuery(t *testing.T) {
	configPath, fixturesPath := setup(t)

	out, err := run(t, "--config", configPath, "seed", fixturesPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content": 3, "events": 2}`, out)

	out, err = run(t, "--config", configPath, "similar", "A", "--limit", "2")
	require.NoError(t, err)
	var res struct {
		Strategy string `json:"strategy"`
		Items    []struct {
			ContentID string   `json:"content_id"`
			Reasons   []string `json:"reasons"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotEmpty(t, res.Items)
	assert.Equal(t, "B", res.Items[0].ContentID)

	out, err = run(t, "--config", configPath, "trending", "--window", "day")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Items, 1)
	assert.Equal(t, "C", res.Items[0].ContentID)

	out, err = run(t, "--config", configPath, "--human", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "items: 3")
}

func TestMemoryBackendWithFixtures(t *testing.T) {
	_, fixturesPath := setup(t)

	out, err := run(t, "--fixtures", fixturesPath, "recommend", "--content", "A", "--user", "u1", "--limit", "3")
	require.NoError(t, err)
	var resp struct {
		Results []struct {
			Strategy string `json:"strategy"`
		} `json:"results"`
		Merged []json.RawMessage `json:"merged"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Results, 3)
	assert.LessOrEqual(t, len(resp.Merged), 3)
}

func TestInvalidInput(t *testing.T) {
	_, err := run(t, "trending", "--window", "year")
	assert.Error(t, err)

	_, err = run(t, "similar", "A", "--limit", "-1")
	assert.Error(t, err)

	_, err = run(t, "seed", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
