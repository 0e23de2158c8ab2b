package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrTagInvalidParameter marks bad CLI or API input detected before any network call.
	ErrTagInvalidParameter = goerr.NewTag("invalid_parameter")
	// ErrTagRemoteQueryFailed marks network, auth or server errors from the DICOMweb endpoint.
	ErrTagRemoteQueryFailed = goerr.NewTag("remote_query_failed")
	// ErrTagLocalWriteFailed marks filesystem errors during persistence.
	ErrTagLocalWriteFailed = goerr.NewTag("local_write_failed")
)
