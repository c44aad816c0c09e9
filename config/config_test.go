package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AeyeOps/mgit-sub001/provider"
)

const sampleConfig = `providers:
  - name: work-ado
    kind: azuredevops
    endpoint: https://dev.azure.com/acme
    token: $MGIT_TEST_ADO_TOKEN
    concurrency: 8
    rate_per_second: 10
  - name: public-gh
    kind: github
    token: literal-token
  - name: team-bb
    kind: bitbucket
defaults:
  workers: 6
  mode: pull
  target: ~/repos
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("MGIT_TEST_ADO_TOKEN", "expanded-secret")

	file, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	require.Len(t, file.Providers, 3)
	assert.Equal(t, "work-ado", file.Providers[0].Name)
	assert.Equal(t, "expanded-secret", file.Providers[0].Token)
	assert.Equal(t, "literal-token", file.Providers[1].Token)
	assert.Equal(t, 6, file.Defaults.Workers)
	assert.Equal(t, "pull", file.Defaults.Mode)
	assert.Equal(t, "~/repos", file.Defaults.Target)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "empty provider list",
			content: "providers: []\n",
		},
		{
			name: "unknown kind",
			content: `providers:
  - name: x
    kind: gitlab
`,
		},
		{
			name: "missing name",
			content: `providers:
  - kind: github
`,
		},
		{
			name: "bad endpoint",
			content: `providers:
  - name: x
    kind: github
    endpoint: not-a-url
`,
		},
		{
			name: "negative concurrency",
			content: `providers:
  - name: x
    kind: github
    concurrency: -1
`,
		},
		{
			name: "duplicate names",
			content: `providers:
  - name: x
    kind: github
  - name: x
    kind: bitbucket
`,
		},
		{
			name: "unknown field",
			content: `providers:
  - name: x
    kind: github
    colour: blue
`,
		},
		{
			name: "bad default mode",
			content: `providers:
  - name: x
    kind: github
defaults:
  mode: merge
`,
		},
		{
			name:    "not yaml",
			content: "{{{",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), "test.yaml")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestDescriptorsPreserveFileOrder(t *testing.T) {
	file, err := Parse([]byte(sampleConfig), "test.yaml")
	require.NoError(t, err)

	descs := file.Descriptors()
	require.Len(t, descs, 3)

	assert.Equal(t, "work-ado", descs[0].Name)
	assert.Equal(t, provider.KindAzureDevOps, descs[0].Kind)
	assert.Equal(t, "https://dev.azure.com/acme", descs[0].Endpoint)
	assert.Equal(t, 8, descs[0].QueryConcurrency)
	assert.Equal(t, 10.0, descs[0].RatePerSecond)

	assert.Equal(t, "public-gh", descs[1].Name)
	assert.Equal(t, provider.KindGitHub, descs[1].Kind)
	assert.Empty(t, descs[1].Endpoint)

	assert.Equal(t, "team-bb", descs[2].Name)
	assert.Equal(t, provider.KindBitbucket, descs[2].Kind)
}
