package provider

import (
	"errors"

	"github.com/aws/smithy-go"

	"github.com/cuemby/hostbroker/pkg/brokererr"
)

// terminalCode classifies an AWS API error code into one of the terminal
// provider error kinds named by the error handling design (spec §7):
// Capacity, Network, IAM, Quota, ResourceNotFound, Validation.
var terminalCode = map[string]string{
	"InsufficientInstanceCapacity": "Capacity",
	"Unsupported":                  "Capacity",
	"VpcLimitExceeded":             "Network",
	"InvalidSubnetID.NotFound":     "Network",
	"InvalidGroup.NotFound":        "Network",
	"UnauthorizedOperation":        "IAM",
	"AccessDenied":                 "IAM",
	"AuthFailure":                  "IAM",
	"InvalidClientTokenId":         "IAM",
	"ResourceLimitExceeded":        "Quota",
	"InstanceLimitExceeded":        "Quota",
	"AddressLimitExceeded":         "Quota",
	"InvalidInstanceID.NotFound":   "ResourceNotFound",
	"InvalidFleetId.NotFound":      "ResourceNotFound",
	"InvalidGroup.NotFound2":       "ResourceNotFound",
	"InvalidParameterValue":        "Validation",
	"InvalidParameterCombination":  "Validation",
	"MissingParameter":             "Validation",
	"ValidationError":              "Validation",
}

// alreadyGoneCodes are the provider error codes meaning the resource this
// release call targeted is already absent; per spec §4.6 that is treated
// as success, not as a release failure.
var alreadyGoneCodes = map[string]bool{
	"InvalidInstanceID.NotFound": true,
	"InvalidFleetId.NotFound":    true,
	"InvalidGroup.NotFound":      true,
}

// isAlreadyGone reports whether err is a provider "not found" response for
// a release call, including the nil case (no error at all).
func isAlreadyGone(err error) bool {
	if err == nil {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return alreadyGoneCodes[apiErr.ErrorCode()]
	}
	return false
}

// classifyTerminal converts a cloud-call failure, after retries are
// exhausted, into a brokererr.Provider error carrying the terminal kind
// as a detail field.
func classifyTerminal(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		kind, ok := terminalCode[code]
		if !ok {
			kind = "Validation"
		}
		return brokererr.Provider("cloud call", err).
			WithDetail("provider_code", code).
			WithDetail("terminal_kind", kind)
	}
	return brokererr.Provider("cloud call", err)
}
