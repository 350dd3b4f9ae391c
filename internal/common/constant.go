// Package common contains shared constants and sentinel errors used across
// the wallet service and its command-line client.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// SignatureHeaderName carries the hex HMAC-SHA256 of a settlement webhook body.
const SignatureHeaderName = "X-Signature"
