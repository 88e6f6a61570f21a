package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTemplatesYAML = `
templates:
  - template_id: small-ondemand
    strategy: DirectLaunch
    max_number: 10
    image_id: nginx-base
    subnet_id: subnet-abc123
    instance_type: t3.micro
    security_group_ids: [sg-1]
  - template_id: spot-fleet
    strategy: SpotFleet
    max_number: 50
    image_id: ami-0123456789
    subnet_ids: [subnet-a, subnet-b]
    instance_type_weights:
      t3.micro: 1
      t3.small: 2
    security_group_ids: [sg-1]
    spot_role_arn: arn:aws:iam::123456789012:role/spot-fleet
`

func writeTemplates(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestStoreLoadAndGet(t *testing.T) {
	path := writeTemplates(t, validTemplatesYAML)
	resolver := NewAliasResolver(map[string]string{"nginx-base": "ami-0000000000000aaaa"})

	store, err := NewStore(path, resolver)
	require.NoError(t, err)

	tmpl, err := store.Get("small-ondemand")
	require.NoError(t, err)
	assert.Equal(t, "ami-0000000000000aaaa", tmpl.ImageID)
	assert.Equal(t, "subnet-abc123", tmpl.Network.SingleSubnet)

	tmpl2, err := store.Get("spot-fleet")
	require.NoError(t, err)
	assert.Equal(t, "ami-0123456789", tmpl2.ImageID) // already a literal AMI id
	assert.Len(t, tmpl2.MachineType.TypeWeight, 2)

	assert.Len(t, store.List(), 2)
}

func TestStoreGetMissingReturnsNotFound(t *testing.T) {
	path := writeTemplates(t, validTemplatesYAML)
	store, err := NewStore(path, NewAliasResolver(map[string]string{"nginx-base": "ami-0000000000000aaaa"}))
	require.NoError(t, err)

	_, err = store.Get("does-not-exist")
	assert.Error(t, err)
}

func TestStoreRejectsDuplicateTemplateID(t *testing.T) {
	path := writeTemplates(t, `
templates:
  - template_id: dup
    strategy: DirectLaunch
    max_number: 1
    image_id: ami-1
    subnet_id: subnet-a
    instance_type: t3.micro
  - template_id: dup
    strategy: DirectLaunch
    max_number: 1
    image_id: ami-1
    subnet_id: subnet-a
    instance_type: t3.micro
`)
	_, err := NewStore(path, nil)
	assert.Error(t, err)
}

func TestStoreReloadPicksUpChanges(t *testing.T) {
	path := writeTemplates(t, validTemplatesYAML)
	store, err := NewStore(path, NewAliasResolver(map[string]string{"nginx-base": "ami-0000000000000aaaa"}))
	require.NoError(t, err)
	require.Len(t, store.List(), 2)

	require.NoError(t, os.WriteFile(path, []byte(`
templates:
  - template_id: only-one
    strategy: DirectLaunch
    max_number: 1
    image_id: ami-1
    subnet_id: subnet-a
    instance_type: t3.micro
`), 0o644))

	// Before Reload, the cache still reflects the original file.
	assert.Len(t, store.List(), 2)

	require.NoError(t, store.Reload())
	assert.Len(t, store.List(), 1)
	_, err = store.Get("only-one")
	require.NoError(t, err)
}

func TestAliasResolverRejectsSSMAlias(t *testing.T) {
	resolver := NewAliasResolver(nil)
	_, err := resolver.Resolve("resolve:ssm:/golden-ami")
	assert.Error(t, err)
}
