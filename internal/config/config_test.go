package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_DefaultsAndValidation(t *testing.T) {
	cfg, err := Parse([]byte(`
resources:
  - kind: Null
    name: base
    attributes:
      triggers:
        rev: "1"
  - kind: Network
    name: main
    provider: aws
    attributes:
      cidr_block: 10.0.0.0/16
outputs:
  vpc_id: "${Network.main.id}"
`))
	require.NoError(t, err)
	require.Len(t, cfg.Resources, 2)

	assert.Equal(t, "null", cfg.Resources[0].Provider)
	assert.Equal(t, "aws", cfg.Resources[1].Provider)
	assert.Equal(t, "Network.main", cfg.Resources[1].Address())
	assert.Equal(t, "10.0.0.0/16", cfg.Resources[1].Attributes["cidr_block"])
	assert.Equal(t, "${Network.main.id}", cfg.Outputs["vpc_id"])
}

func TestParse_MissingKindOrName(t *testing.T) {
	_, err := Parse([]byte(`
resources:
  - name: orphan
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no kind")

	_, err = Parse([]byte(`
resources:
  - kind: Null
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no name")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("resources: ["))
	require.Error(t, err)
}

func TestExpandCount_IndexedInstances(t *testing.T) {
	cfg, err := Parse([]byte(`
resources:
  - kind: Instance
    name: web
    provider: aws
    count: 3
    attributes:
      name: web-${count.index}
      subnet_id: "${Subnet.a.id}"
`))
	require.NoError(t, err)
	require.Len(t, cfg.Resources, 3)

	assert.Equal(t, "Instance.web[0]", cfg.Resources[0].Address())
	assert.Equal(t, "Instance.web[2]", cfg.Resources[2].Address())
	assert.Equal(t, "web-0", cfg.Resources[0].Attributes["name"])
	assert.Equal(t, "web-2", cfg.Resources[2].Attributes["name"])

	// References untouched by index substitution.
	assert.Equal(t, "${Subnet.a.id}", cfg.Resources[1].Attributes["subnet_id"])

	// Instances don't share attribute maps.
	cfg.Resources[0].Attributes["name"] = "mutated"
	assert.Equal(t, "web-1", cfg.Resources[1].Attributes["name"])
}

func TestProviders_Distinct(t *testing.T) {
	cfg, err := Parse([]byte(`
resources:
  - kind: Null
    name: a
  - kind: Null
    name: b
  - kind: Bucket
    name: logs
    provider: aws
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"null", "aws"}, Providers(cfg))
}
