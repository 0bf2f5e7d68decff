package aws

import (
	"errors"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"

	"github.com/groundwork-io/groundwork/pkg/adapter"
)

func apiErr(code, message string, fault smithy.ErrorFault) error {
	return &smithy.GenericAPIError{Code: code, Message: message, Fault: fault}
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify("op", nil))

	// Throttling and server faults retry.
	assert.Equal(t, adapter.ClassTransient,
		adapter.ClassOf(classify("op", apiErr("Throttling", "slow down", smithy.FaultClient))))
	assert.Equal(t, adapter.ClassTransient,
		adapter.ClassOf(classify("op", apiErr("SomethingOdd", "oops", smithy.FaultServer))))

	// Deletions blocked by provider preconditions surface as such.
	assert.Equal(t, adapter.ClassPrecondition,
		adapter.ClassOf(classify("op", apiErr("DependencyViolation", "has dependencies", smithy.FaultClient))))
	assert.Equal(t, adapter.ClassPrecondition,
		adapter.ClassOf(classify("op", apiErr("BucketNotEmpty", "bucket not empty", smithy.FaultClient))))
	assert.Equal(t, adapter.ClassPrecondition,
		adapter.ClassOf(classify("op", apiErr("InvalidParameterCombination",
			"FinalDBSnapshotIdentifier is required", smithy.FaultClient))))

	// Everything else is permanent, including non-API errors.
	assert.Equal(t, adapter.ClassPermanent,
		adapter.ClassOf(classify("op", apiErr("InvalidAMIID.NotFound", "no such image", smithy.FaultClient))))
	assert.Equal(t, adapter.ClassPermanent,
		adapter.ClassOf(classify("op", errors.New("plain failure"))))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(apiErr("InvalidVpcID.NotFound", "gone", smithy.FaultClient)))
	assert.True(t, isNotFound(apiErr("NoSuchBucket", "gone", smithy.FaultClient)))
	assert.True(t, isNotFound(apiErr("DBInstanceNotFound", "gone", smithy.FaultClient)))
	assert.False(t, isNotFound(apiErr("Throttling", "slow down", smithy.FaultClient)))
	assert.False(t, isNotFound(errors.New("plain failure")))
}
