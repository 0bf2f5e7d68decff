package null

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundwork-io/groundwork/pkg/adapter"
)

func TestNullAdapter_Lifecycle(t *testing.T) {
	ctx := context.Background()
	ad := New().Adapters()["Null"]
	require.NotNil(t, ad)

	assert.True(t, ad.Schema().ForcesReplacement("triggers"))
	assert.False(t, ad.Schema().ForcesReplacement("note"))

	outputs, err := ad.Create(ctx, adapter.Attrs{"triggers": map[string]any{"rev": "1"}})
	require.NoError(t, err)
	id, _ := outputs["id"].(string)
	assert.Equal(t, "null-1", id)

	read, err := ad.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, outputs["triggers"], read["triggers"])

	updated, err := ad.Update(ctx, id, adapter.Attrs{"note": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", updated["note"])

	require.NoError(t, ad.Delete(ctx, id, nil))
	_, err = ad.Read(ctx, id)
	require.Error(t, err)
	assert.Equal(t, adapter.ClassPermanent, adapter.ClassOf(err))
}

func TestNullProvider_IDsAreSequential(t *testing.T) {
	ctx := context.Background()
	ad := New().Adapters()["Null"]

	first, err := ad.Create(ctx, adapter.Attrs{})
	require.NoError(t, err)
	second, err := ad.Create(ctx, adapter.Attrs{})
	require.NoError(t, err)

	assert.Equal(t, "null-1", first["id"])
	assert.Equal(t, "null-2", second["id"])
}
