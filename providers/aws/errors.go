package aws

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/groundwork-io/groundwork/pkg/adapter"
)

// classify maps an AWS API failure onto the adapter error taxonomy so
// the engine can decide whether to retry, block, or surface it.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return adapter.NewPermanent(op, err)
	}

	code := apiErr.ErrorCode()
	switch code {
	case "Throttling", "ThrottlingException", "RequestLimitExceeded",
		"TooManyRequestsException", "SlowDown", "ServiceUnavailable",
		"InternalError", "InternalFailure", "RequestTimeout":
		return adapter.NewTransient(op, err).WithCode(code)
	case "DependencyViolation", "BucketNotEmpty", "ResourceInUse",
		"InvalidDBInstanceState":
		return adapter.NewPrecondition(op, err).WithCode(code)
	case "InvalidParameterCombination":
		// DeleteDBInstance without SkipFinalSnapshot fails here when
		// the instance requires a final snapshot identifier.
		if strings.Contains(apiErr.ErrorMessage(), "FinalDBSnapshotIdentifier") {
			return adapter.NewPrecondition(op, err).WithCode(code)
		}
	}

	if apiErr.ErrorFault() == smithy.FaultServer {
		return adapter.NewTransient(op, err).WithCode(code)
	}
	return adapter.NewPermanent(op, err).WithCode(code)
}

// isNotFound reports whether err indicates the resource no longer exists.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.ErrorCode()
	return strings.Contains(code, "NotFound") ||
		strings.Contains(code, ".Malformed") ||
		code == "NoSuchBucket" ||
		code == "NoSuchBucketPolicy" ||
		code == "DBInstanceNotFound" ||
		code == "DBSubnetGroupNotFoundFault"
}
