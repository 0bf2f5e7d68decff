package aws

import (
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"

	"github.com/groundwork-io/groundwork/pkg/adapter"
)

func TestDeleteDatabaseInput(t *testing.T) {
	t.Run("no declaration leaves the final snapshot decision to RDS", func(t *testing.T) {
		input := deleteDatabaseInput("db-1", adapter.Attrs{"engine": "postgres"})
		assert.Equal(t, "db-1", awssdk.ToString(input.DBInstanceIdentifier))
		assert.Nil(t, input.SkipFinalSnapshot)
		assert.Nil(t, input.FinalDBSnapshotIdentifier)
	})

	t.Run("skip_final_snapshot opts out explicitly", func(t *testing.T) {
		input := deleteDatabaseInput("db-1", adapter.Attrs{"skip_final_snapshot": true})
		assert.True(t, awssdk.ToBool(input.SkipFinalSnapshot))
		assert.Nil(t, input.FinalDBSnapshotIdentifier)
	})

	t.Run("final_snapshot names the snapshot to take", func(t *testing.T) {
		input := deleteDatabaseInput("db-1", adapter.Attrs{"final_snapshot": "db-1-final"})
		assert.Nil(t, input.SkipFinalSnapshot)
		assert.Equal(t, "db-1-final", awssdk.ToString(input.FinalDBSnapshotIdentifier))
	})

	t.Run("nil prior snapshot never forces removal", func(t *testing.T) {
		input := deleteDatabaseInput("db-1", nil)
		assert.Nil(t, input.SkipFinalSnapshot)
		assert.Nil(t, input.FinalDBSnapshotIdentifier)
	})
}
